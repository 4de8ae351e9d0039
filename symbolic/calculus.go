package symbolic

import (
	"math"
	"sort"
)

// Diff differentiates expr with respect to varName.
func Diff(expr Expr, varName string) Expr {
	if !DependsOn(expr, varName) {
		return N(0)
	}
	switch v := expr.(type) {
	case *Sym:
		return N(1)
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Diff(t, varName)
		}
		return AddOf(terms...)
	case *Mul:
		return diffProduct(v.factors, varName)
	case *Pow:
		return diffPow(v, varName)
	case *Func:
		outer, ok := derivatives[v.name]
		if !ok {
			// floor, ceil and sign have no derivative worth evaluating;
			// the marker fails at evaluation time.
			return MulOf(&Func{name: v.name + "'", arg: v.arg}, Diff(v.arg, varName))
		}
		return MulOf(outer(v.arg), Diff(v.arg, varName))
	}
	return N(0)
}

// diffProduct applies the product rule, skipping constant factors.
func diffProduct(factors []Expr, varName string) Expr {
	var terms []Expr
	for i, f := range factors {
		if !DependsOn(f, varName) {
			continue
		}
		term := make([]Expr, 0, len(factors))
		term = append(term, Diff(f, varName))
		term = append(term, factors[:i]...)
		term = append(term, factors[i+1:]...)
		terms = append(terms, MulOf(term...))
	}
	return AddOf(terms...)
}

func diffPow(p *Pow, varName string) Expr {
	baseVaries := DependsOn(p.base, varName)
	expVaries := DependsOn(p.exp, varName)
	switch {
	case !expVaries:
		// d/dx u^c = c u^(c-1) u'
		return MulOf(p.exp, PowOf(p.base, AddOf(p.exp, N(-1))), Diff(p.base, varName))
	case !baseVaries:
		// d/dx a^v = a^v ln(a) v'
		return MulOf(p, LnOf(p.base), Diff(p.exp, varName))
	}
	// d/dx u^v = u^v (v' ln(u) + v u'/u)
	return MulOf(p, AddOf(
		MulOf(Diff(p.exp, varName), LnOf(p.base)),
		MulOf(p.exp, Diff(p.base, varName), PowOf(p.base, N(-1))),
	))
}

// derivatives maps a function name to its derivative at u.
var derivatives = map[string]func(u Expr) Expr{
	"sin": CosOf,
	"cos": func(u Expr) Expr { return MulOf(N(-1), SinOf(u)) },
	"tan": func(u Expr) Expr { return AddOf(N(1), PowOf(TanOf(u), N(2))) },
	"exp": ExpOf,
	"ln":  func(u Expr) Expr { return PowOf(u, N(-1)) },
	"asin": func(u Expr) Expr {
		return PowOf(oneMinusSquare(u), F(-1, 2))
	},
	"acos": func(u Expr) Expr {
		return MulOf(N(-1), PowOf(oneMinusSquare(u), F(-1, 2)))
	},
	"atan": func(u Expr) Expr { return PowOf(AddOf(N(1), PowOf(u, N(2))), N(-1)) },
	"sinh": CoshOf,
	"cosh": SinhOf,
	"tanh": func(u Expr) Expr { return oneMinusSquare(TanhOf(u)) },
	"abs":  SignOf,
}

func oneMinusSquare(u Expr) Expr { return AddOf(N(1), MulOf(N(-1), PowOf(u, N(2)))) }

// DiffN returns the n-th derivative of expr.
func DiffN(expr Expr, varName string, n int) Expr {
	for i := 0; i < n; i++ {
		expr = Diff(expr, varName)
	}
	return expr
}

// Sub replaces every occurrence of the symbol varName in expr with value
// and rebuilds the tree, so numeric subtrees fold as they form.
func Sub(expr Expr, varName string, value Expr) Expr {
	return transform(expr, func(e Expr) Expr {
		if s, ok := e.(*Sym); ok && s.name == varName {
			return value
		}
		return e
	})
}

// transform rebuilds e bottom-up through the canonical constructors and
// applies fn to every rebuilt node.
func transform(e Expr, fn func(Expr) Expr) Expr {
	switch v := e.(type) {
	case *Add:
		return fn(AddOf(transformAll(v.terms, fn)...))
	case *Mul:
		return fn(MulOf(transformAll(v.factors, fn)...))
	case *Pow:
		return fn(PowOf(transform(v.base, fn), transform(v.exp, fn)))
	case *Func:
		return fn(apply(v.name, transform(v.arg, fn)))
	}
	return fn(e)
}

func transformAll(es []Expr, fn func(Expr) Expr) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = transform(e, fn)
	}
	return out
}

// maxExpandedPower bounds the integer powers of sums multiplied out by
// Expand.
const maxExpandedPower = 10

// Expand distributes products over sums and multiplies out small integer
// powers of sums and products.
func Expand(e Expr) Expr { return transform(e, distribute) }

func distribute(e Expr) Expr {
	switch v := e.(type) {
	case *Mul:
		for i, f := range v.factors {
			sum, ok := f.(*Add)
			if !ok {
				continue
			}
			rest := make([]Expr, 0, len(v.factors)-1)
			rest = append(rest, v.factors[:i]...)
			rest = append(rest, v.factors[i+1:]...)
			terms := make([]Expr, len(sum.terms))
			for k, t := range sum.terms {
				terms[k] = distribute(MulOf(append([]Expr{t}, rest...)...))
			}
			return AddOf(terms...)
		}
	case *Pow:
		n, ok := v.exp.(*Num)
		if !ok {
			return e
		}
		k, ok := n.smallInt(maxExpandedPower)
		if !ok || k < 2 {
			return e
		}
		switch base := v.base.(type) {
		case *Add:
			acc := Expr(base)
			for i := int64(1); i < k; i++ {
				// Built by hand: MulOf would fold acc*base back into a power.
				acc = distribute(&Mul{factors: []Expr{acc, base}})
			}
			return acc
		case *Mul:
			factors := make([]Expr, len(base.factors))
			for i, f := range base.factors {
				factors[i] = distribute(PowOf(f, n))
			}
			return distribute(MulOf(factors...))
		}
	}
	return e
}

// FreeSymbols returns the set of symbol names in e.
func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	walk(e, func(n Expr) {
		if s, ok := n.(*Sym); ok {
			out[s.name] = struct{}{}
		}
	})
	return out
}

// SortedSymbols returns the free symbol names of e in lexical order.
func SortedSymbols(e Expr) []string {
	set := FreeSymbols(e)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DependsOn reports whether varName occurs free in e.
func DependsOn(e Expr, varName string) bool {
	switch v := e.(type) {
	case *Sym:
		return v.name == varName
	case *Num, *Const:
		return false
	}
	for _, c := range children(e) {
		if DependsOn(c, varName) {
			return true
		}
	}
	return false
}

// Degree returns the degree of expr as a polynomial in varName, or -1
// when expr is not a polynomial in varName. The degree is read off the
// tree without expanding it, so terms that cancel are still counted and
// the result is an upper bound.
func Degree(expr Expr, varName string) int {
	if !DependsOn(expr, varName) {
		return 0
	}
	switch v := expr.(type) {
	case *Sym:
		return 1
	case *Add:
		deg := 0
		for _, t := range v.terms {
			d := Degree(t, varName)
			if d < 0 {
				return -1
			}
			deg = max(deg, d)
		}
		return deg
	case *Mul:
		deg := 0
		for _, f := range v.factors {
			d := Degree(f, varName)
			if d < 0 {
				return -1
			}
			deg = saturatingAdd(deg, d)
		}
		return deg
	case *Pow:
		n, ok := v.exp.(*Num)
		if !ok || !n.IsInteger() || n.IsNegative() || !n.val.Num().IsInt64() {
			return -1
		}
		d := Degree(v.base, varName)
		if d < 0 {
			return -1
		}
		k := n.val.Num().Int64()
		if k == 0 {
			return 0
		}
		if k > math.MaxInt32 || int64(d) > math.MaxInt32/k {
			return math.MaxInt32
		}
		return d * int(k)
	}
	return -1
}

func saturatingAdd(a, b int) int {
	if a > math.MaxInt32-b {
		return math.MaxInt32
	}
	return a + b
}
