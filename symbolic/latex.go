package symbolic

import (
	"math/big"
	"strings"
)

var latexFuncs = map[string]string{
	"sin":  `\sin`,
	"cos":  `\cos`,
	"tan":  `\tan`,
	"exp":  `\exp`,
	"ln":   `\ln`,
	"sinh": `\sinh`,
	"cosh": `\cosh`,
	"tanh": `\tanh`,
	"asin": `\arcsin`,
	"acos": `\arccos`,
	"atan": `\arctan`,
}

// LaTeX renders e for display.
func LaTeX(e Expr) string {
	switch v := e.(type) {
	case *Num:
		if v.IsInteger() {
			return v.String()
		}
		abs := new(big.Rat).Abs(v.val)
		frac := `\frac{` + abs.Num().String() + `}{` + abs.Denom().String() + `}`
		if v.IsNegative() {
			return "-" + frac
		}
		return frac
	case *Const:
		if v == Pi {
			return `\pi`
		}
		return v.name
	case *Sym:
		return v.name
	case *Add:
		parts := make([]string, len(v.terms))
		for i, t := range v.terms {
			parts[i] = LaTeX(t)
		}
		return strings.Join(parts, " + ")
	case *Mul:
		parts := make([]string, len(v.factors))
		for i, f := range v.factors {
			parts[i] = LaTeX(f)
			if _, sum := f.(*Add); sum {
				parts[i] = `\left(` + parts[i] + `\right)`
			}
		}
		return strings.Join(parts, " ")
	case *Pow:
		if n, ok := v.exp.(*Num); ok && n.val.Cmp(big.NewRat(1, 2)) == 0 {
			return `\sqrt{` + LaTeX(v.base) + `}`
		}
		base := LaTeX(v.base)
		switch v.base.(type) {
		case *Add, *Mul, *Pow:
			base = `\left(` + base + `\right)`
		}
		return base + "^{" + LaTeX(v.exp) + "}"
	case *Func:
		arg := LaTeX(v.arg)
		switch v.name {
		case "abs":
			return `\left|` + arg + `\right|`
		case "floor":
			return `\lfloor ` + arg + ` \rfloor`
		case "ceil":
			return `\lceil ` + arg + ` \rceil`
		}
		name, ok := latexFuncs[v.name]
		if !ok {
			name = `\operatorname{` + v.name + `}`
		}
		return name + `\left(` + arg + `\right)`
	}
	return e.String()
}
