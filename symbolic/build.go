package symbolic

import (
	"math"
	"math/big"
	"sort"
)

// maxFoldedPower bounds the integer exponents folded into exact
// rationals; larger powers stay symbolic.
const maxFoldedPower = 20

// AddOf returns the canonical sum of terms. Nested sums are flattened,
// numbers are folded, and like terms c1*t + c2*t are collected. Terms
// over a bare symbol come first in name order, the other terms keep
// their first appearance, and the numeric part comes last.
func AddOf(terms ...Expr) Expr {
	type like struct {
		coeff *Num
		rest  Expr
	}
	constant := N(0)
	groups := map[string]*like{}
	var order []string
	for _, t := range flattenSum(terms, nil) {
		if n, ok := t.(*Num); ok {
			constant = numAdd(constant, n)
			continue
		}
		c, rest := splitCoeff(t)
		key := rest.String()
		if g, ok := groups[key]; ok {
			g.coeff = numAdd(g.coeff, c)
			continue
		}
		groups[key] = &like{coeff: c, rest: rest}
		order = append(order, key)
	}

	var symbols, others []*like
	for _, key := range order {
		g := groups[key]
		if g.coeff.IsZero() {
			continue
		}
		if _, ok := g.rest.(*Sym); ok {
			symbols = append(symbols, g)
		} else {
			others = append(others, g)
		}
	}
	sort.SliceStable(symbols, func(i, j int) bool {
		return symbols[i].rest.String() < symbols[j].rest.String()
	})

	out := make([]Expr, 0, len(symbols)+len(others)+1)
	nested := false
	for _, g := range append(symbols, others...) {
		t := scale(g.coeff, g.rest)
		if _, ok := t.(*Add); ok {
			nested = true
		}
		out = append(out, t)
	}
	if !constant.IsZero() {
		out = append(out, constant)
	}
	switch {
	case len(out) == 0:
		return N(0)
	case len(out) == 1:
		return out[0]
	case nested:
		// A collected coefficient of 1 can expose a sum.
		return AddOf(out...)
	}
	return &Add{terms: out}
}

func flattenSum(terms []Expr, into []Expr) []Expr {
	for _, t := range terms {
		if a, ok := t.(*Add); ok {
			into = flattenSum(a.terms, into)
			continue
		}
		into = append(into, t)
	}
	return into
}

// splitCoeff separates the numeric coefficient of a term.
func splitCoeff(t Expr) (*Num, Expr) {
	m, ok := t.(*Mul)
	if !ok {
		return N(1), t
	}
	c, ok := m.factors[0].(*Num)
	if !ok {
		return N(1), t
	}
	if len(m.factors) == 2 {
		return c, m.factors[1]
	}
	return c, &Mul{factors: m.factors[1:]}
}

func scale(c *Num, t Expr) Expr {
	if c.is(1) {
		return t
	}
	return MulOf(c, t)
}

// MulOf returns the canonical product of factors. Nested products are
// flattened, numbers fold into one leading coefficient, and powers of a
// common base with rational exponents combine: x * x^2 is x^3.
func MulOf(factors ...Expr) Expr {
	coeff, rest := foldCoefficient(flattenProduct(factors, nil))
	if coeff.IsZero() {
		return N(0)
	}
	more, rest := foldCoefficient(combinePowers(rest))
	coeff = numMul(coeff, more)
	if coeff.IsZero() {
		return N(0)
	}
	if len(rest) == 0 {
		return coeff
	}

	keys := make([]string, len(rest))
	for i, f := range rest {
		keys[i] = f.String()
	}
	sort.Stable(byKey{exprs: rest, keys: keys})

	if coeff.is(1) {
		if len(rest) == 1 {
			return rest[0]
		}
		return &Mul{factors: rest}
	}
	return &Mul{factors: append([]Expr{coeff}, rest...)}
}

type byKey struct {
	exprs []Expr
	keys  []string
}

func (b byKey) Len() int           { return len(b.exprs) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.exprs[i], b.exprs[j] = b.exprs[j], b.exprs[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

func flattenProduct(factors []Expr, into []Expr) []Expr {
	for _, f := range factors {
		if m, ok := f.(*Mul); ok {
			into = flattenProduct(m.factors, into)
			continue
		}
		into = append(into, f)
	}
	return into
}

func foldCoefficient(factors []Expr) (*Num, []Expr) {
	coeff := N(1)
	rest := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if n, ok := f.(*Num); ok {
			coeff = numMul(coeff, n)
			continue
		}
		rest = append(rest, f)
	}
	return coeff, rest
}

// combinePowers groups factors by base and sums their rational
// exponents. Powers with a symbolic exponent pass through untouched.
func combinePowers(factors []Expr) []Expr {
	type power struct {
		base Expr
		exp  *Num
	}
	byBase := map[string]*power{}
	var powers []*power
	var opaque []Expr
	for _, f := range factors {
		base, exp := f, N(1)
		if p, ok := f.(*Pow); ok {
			n, ok := p.exp.(*Num)
			if !ok {
				opaque = append(opaque, f)
				continue
			}
			base, exp = p.base, n
		}
		key := base.String()
		if p, ok := byBase[key]; ok {
			p.exp = numAdd(p.exp, exp)
			continue
		}
		p := &power{base: base, exp: exp}
		byBase[key] = p
		powers = append(powers, p)
	}
	out := make([]Expr, 0, len(powers)+len(opaque))
	for _, p := range powers {
		if !p.exp.IsZero() {
			out = append(out, PowOf(p.base, p.exp))
		}
	}
	return append(out, opaque...)
}

// PowOf returns base^exp. Small integer powers of numbers fold into exact
// rationals; 0^0 is 1 while 0 to a negative power stays symbolic so
// evaluation can report it. (b^p)^q becomes b^(p*q) only for integer q,
// the one case where the identity holds over the reals.
func PowOf(base, exp Expr) Expr {
	e, expNum := exp.(*Num)
	b, baseNum := base.(*Num)
	switch {
	case expNum && e.IsZero():
		return N(1)
	case expNum && e.is(1):
		return base
	case baseNum && b.IsZero():
		if expNum && e.IsNegative() {
			return &Pow{base: base, exp: exp}
		}
		return N(0)
	case baseNum && b.is(1):
		return N(1)
	}
	if baseNum && expNum {
		if k, ok := e.smallInt(maxFoldedPower); ok {
			return ratPow(b, k)
		}
	}
	if inner, ok := base.(*Pow); ok && expNum && e.IsInteger() {
		return PowOf(inner.base, MulOf(inner.exp, e))
	}
	return &Pow{base: base, exp: exp}
}

// ratPow computes b^k exactly for a nonzero b.
func ratPow(b *Num, k int64) *Num {
	neg := k < 0
	if neg {
		k = -k
	}
	num := new(big.Int).Exp(b.val.Num(), big.NewInt(k), nil)
	den := new(big.Int).Exp(b.val.Denom(), big.NewInt(k), nil)
	if neg {
		num, den = den, num
	}
	return &Num{val: new(big.Rat).SetFrac(num, den)}
}

// realFuncs evaluates each elementary function over float64. A result
// that is not finite means the function is undefined at that argument.
var realFuncs = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"exp":   math.Exp,
	"ln":    math.Log,
	"abs":   math.Abs,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"sign":  sign,
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func SinOf(arg Expr) Expr   { return apply("sin", arg) }
func CosOf(arg Expr) Expr   { return apply("cos", arg) }
func TanOf(arg Expr) Expr   { return apply("tan", arg) }
func ExpOf(arg Expr) Expr   { return apply("exp", arg) }
func LnOf(arg Expr) Expr    { return apply("ln", arg) }
func AbsOf(arg Expr) Expr   { return apply("abs", arg) }
func AsinOf(arg Expr) Expr  { return apply("asin", arg) }
func AcosOf(arg Expr) Expr  { return apply("acos", arg) }
func AtanOf(arg Expr) Expr  { return apply("atan", arg) }
func SinhOf(arg Expr) Expr  { return apply("sinh", arg) }
func CoshOf(arg Expr) Expr  { return apply("cosh", arg) }
func TanhOf(arg Expr) Expr  { return apply("tanh", arg) }
func FloorOf(arg Expr) Expr { return apply("floor", arg) }
func CeilOf(arg Expr) Expr  { return apply("ceil", arg) }
func SignOf(arg Expr) Expr  { return apply("sign", arg) }
func SqrtOf(arg Expr) Expr  { return PowOf(arg, F(1, 2)) }

// apply builds name(arg). A numeric argument folds to a number only when
// the result is finite, so asin(2) and ln(-1) stay symbolic and
// evaluation can report them.
func apply(name string, arg Expr) Expr {
	self := &Func{name: name, arg: arg}
	if n, ok := arg.(*Num); ok {
		fn, known := realFuncs[name]
		if !known {
			return self
		}
		if name == "exp" && n.is(1) {
			return E
		}
		v := fn(n.Float64())
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return self
		}
		return NFloat(v)
	}

	inner, _ := arg.(*Func)
	switch name {
	case "ln":
		if arg == E {
			return N(1)
		}
		if inner != nil && inner.name == "exp" {
			return inner.arg
		}
	case "exp":
		if inner != nil && inner.name == "ln" {
			return inner.arg
		}
	case "abs":
		if _, ok := arg.(*Const); ok {
			return arg
		}
		// |c*t| = |c|*|t|
		if c, rest := splitCoeff(arg); !c.is(1) {
			return MulOf(numAbs(c), AbsOf(rest))
		}
	}
	return self
}
