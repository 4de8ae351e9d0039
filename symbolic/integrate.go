package symbolic

// ============================================================
// Integration (rule-based symbolic)
// ============================================================

// Integrate returns an antiderivative of expr with respect to varName.
//
// The rule set covers constants, sums, constant multiples, powers and
// exponentials of linear arguments, and the elementary functions of a
// linear argument. When no rule matches the expression is expanded and
// tried once more. ok is false when no antiderivative was found, which
// is the normal outcome for integrands such as exp(-x^2).
func Integrate(expr Expr, varName string) (Expr, bool) {
	if anti, ok := integrate(expr, varName); ok {
		return anti, true
	}
	expanded := Expand(expr)
	if expanded.Equal(expr) {
		return nil, false
	}
	return integrate(expanded, varName)
}

func integrate(expr Expr, varName string) (Expr, bool) {
	x := S(varName)
	if !DependsOn(expr, varName) {
		return MulOf(expr, x), true
	}
	switch v := expr.(type) {
	case *Sym:
		return MulOf(F(1, 2), PowOf(x, N(2))), true
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			intT, ok := integrate(t, varName)
			if !ok {
				return nil, false
			}
			terms[i] = intT
		}
		return AddOf(terms...), true
	case *Mul:
		var consts, rest []Expr
		for _, f := range v.factors {
			if DependsOn(f, varName) {
				rest = append(rest, f)
			} else {
				consts = append(consts, f)
			}
		}
		// No integration by parts: exactly one varying factor.
		if len(rest) != 1 {
			return nil, false
		}
		inner, ok := integrate(rest[0], varName)
		if !ok {
			return nil, false
		}
		return MulOf(append(consts, inner)...), true
	case *Pow:
		return integratePow(v, varName)
	case *Func:
		return integrateFunc(v, varName)
	}
	return nil, false
}

// linearSlope returns k when e == k*varName + c for constants k != 0, c.
func linearSlope(e Expr, varName string) (Expr, bool) {
	k := Diff(e, varName)
	if DependsOn(k, varName) {
		return nil, false
	}
	if n, ok := k.(*Num); ok && n.IsZero() {
		return nil, false
	}
	return k, true
}

func integratePow(p *Pow, varName string) (Expr, bool) {
	baseVaries := DependsOn(p.base, varName)
	expVaries := DependsOn(p.exp, varName)
	switch {
	case baseVaries && !expVaries:
		k, ok := linearSlope(p.base, varName)
		if !ok {
			return nil, false
		}
		if n, isNum := p.exp.(*Num); isNum && n.is(-1) {
			// ∫ (kx+c)^-1 dx = ln|kx+c| / k
			return MulOf(PowOf(k, N(-1)), LnOf(AbsOf(p.base))), true
		}
		newExp := AddOf(p.exp, N(1))
		return MulOf(PowOf(MulOf(k, newExp), N(-1)), PowOf(p.base, newExp)), true
	case !baseVaries && expVaries:
		k, ok := linearSlope(p.exp, varName)
		if !ok {
			return nil, false
		}
		// ∫ a^(kx+c) dx = a^(kx+c) / (k ln a)
		return MulOf(p, PowOf(MulOf(k, LnOf(p.base)), N(-1))), true
	}
	return nil, false
}

func integrateFunc(f *Func, varName string) (Expr, bool) {
	k, ok := linearSlope(f.arg, varName)
	if !ok {
		return nil, false
	}
	u := f.arg
	var anti Expr
	switch f.name {
	case "sin":
		anti = MulOf(N(-1), CosOf(u))
	case "cos":
		anti = SinOf(u)
	case "tan":
		anti = MulOf(N(-1), LnOf(AbsOf(CosOf(u))))
	case "exp":
		anti = ExpOf(u)
	case "sinh":
		anti = CoshOf(u)
	case "cosh":
		anti = SinhOf(u)
	case "tanh":
		anti = LnOf(CoshOf(u))
	case "ln":
		anti = AddOf(MulOf(u, LnOf(u)), MulOf(N(-1), u))
	case "asin":
		anti = AddOf(
			MulOf(u, AsinOf(u)),
			SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))),
		)
	case "acos":
		anti = AddOf(
			MulOf(u, AcosOf(u)),
			MulOf(N(-1), SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2)))))),
		)
	case "atan":
		anti = AddOf(
			MulOf(u, AtanOf(u)),
			MulOf(N(-1), F(1, 2), LnOf(AddOf(N(1), PowOf(u, N(2))))),
		)
	case "abs":
		anti = MulOf(F(1, 2), u, AbsOf(u))
	case "sign":
		anti = AbsOf(u)
	default:
		return nil, false
	}
	return MulOf(PowOf(k, N(-1)), anti), true
}
