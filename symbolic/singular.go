package symbolic

// Guards returns the subexpressions of expr whose zeros are the only
// places where expr can blow up or leave the real line: the base of
// every power with a negative or varying exponent, the argument of every
// logarithm, and cos(u) under every tan(u). Guards that do not depend on
// varName are dropped, and each guard is listed once.
//
// A guard that changes sign, or vanishes, between two points means expr
// may be singular between them.
func Guards(expr Expr, varName string) []Expr {
	var guards []Expr
	seen := map[string]bool{}
	add := func(g Expr) {
		if !DependsOn(g, varName) {
			return
		}
		key := g.String()
		if !seen[key] {
			seen[key] = true
			guards = append(guards, g)
		}
	}
	walk(expr, func(e Expr) {
		switch v := e.(type) {
		case *Pow:
			if negativeOrVarying(v.exp, varName) {
				add(v.base)
			}
		case *Func:
			switch v.name {
			case "ln":
				add(v.arg)
			case "tan":
				add(CosOf(v.arg))
			}
		}
	})
	return guards
}

func negativeOrVarying(exp Expr, varName string) bool {
	if DependsOn(exp, varName) {
		return true
	}
	if n, ok := exp.(*Num); ok {
		return n.IsNegative()
	}
	v, err := Constant(exp)
	return err == nil && v < 0
}
