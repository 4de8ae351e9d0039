// Package symbolic provides the expression kernel behind goquad.
//
// Expressions are immutable trees built from exact rational numbers,
// named constants, symbols, sums, products, powers and elementary
// functions. Trees are only built through the constructors (N, S, AddOf,
// MulOf, PowOf, SinOf, ...), which keep them in a canonical form with
// deterministic ordering, so two equal inputs always print the same way.
//
// The package covers what numerical integration needs from a symbolic
// layer: parsing (Parse), point evaluation in float64 (Compile),
// differentiation (Diff, DiffN), substitution (Sub) and best-effort
// rule-based antidifferentiation (Integrate).
package symbolic

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Expr is a node of an expression tree.
type Expr interface {
	String() string
	Equal(other Expr) bool
}

// Num is an exact rational number.
type Num struct{ val *big.Rat }

// Const is a named real constant.
type Const struct {
	name  string
	value float64
}

// Sym is a free variable.
type Sym struct{ name string }

// Add is a sum of two or more terms. A numeric term comes last.
type Add struct{ terms []Expr }

// Mul is a product of two or more factors. A numeric coefficient comes
// first.
type Mul struct{ factors []Expr }

// Pow is base^exp.
type Pow struct{ base, exp Expr }

// Func is a named elementary function applied to one argument.
type Func struct {
	name string
	arg  Expr
}

var (
	Pi = &Const{name: "pi", value: math.Pi}
	E  = &Const{name: "e", value: math.E}
)

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

// F returns the fraction p/q. It panics when q is zero.
func F(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: denominator is zero")
	}
	return &Num{val: big.NewRat(p, q)}
}

// NFloat converts a finite float64 exactly. It panics on NaN or ±Inf,
// which have no rational representation.
func NFloat(f float64) *Num {
	r := new(big.Rat).SetFloat64(f)
	if r == nil {
		panic(fmt.Sprintf("symbolic: %v is not a finite number", f))
	}
	return &Num{val: r}
}

// NDecimal parses a decimal literal such as "0.25" or "1e-3" exactly.
func NDecimal(s string) (*Num, bool) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, false
	}
	return &Num{val: r}, true
}

func S(name string) *Sym { return &Sym{name: name} }

func (n *Num) Float64() float64 {
	f, _ := n.val.Float64()
	return f
}

func (n *Num) IsZero() bool     { return n.val.Sign() == 0 }
func (n *Num) IsNegative() bool { return n.val.Sign() < 0 }
func (n *Num) IsInteger() bool  { return n.val.IsInt() }

// is reports whether n equals the integer v.
func (n *Num) is(v int64) bool {
	return n.val.IsInt() && n.val.Num().IsInt64() && n.val.Num().Int64() == v
}

// smallInt returns n as an int64 when it is an integer of magnitude at
// most limit.
func (n *Num) smallInt(limit int64) (int64, bool) {
	if !n.val.IsInt() || !n.val.Num().IsInt64() {
		return 0, false
	}
	v := n.val.Num().Int64()
	if v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func (c *Const) Float64() float64 { return c.value }

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }
func numAbs(a *Num) *Num    { return &Num{val: new(big.Rat).Abs(a.val)} }

// ------------------------------------------------------------
// Printing
// ------------------------------------------------------------

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (c *Const) String() string { return c.name }
func (s *Sym) String() string   { return s.name }

func (a *Add) String() string {
	var b strings.Builder
	for i, t := range a.terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		b.WriteString(t.String())
	}
	return b.String()
}

func (m *Mul) String() string {
	var b strings.Builder
	for i, f := range m.factors {
		if i > 0 {
			b.WriteByte('*')
		}
		if _, sum := f.(*Add); sum {
			b.WriteString("(" + f.String() + ")")
			continue
		}
		b.WriteString(f.String())
	}
	return b.String()
}

func (p *Pow) String() string {
	base, exp := p.base.String(), p.exp.String()
	if needsParens(p.base) {
		base = "(" + base + ")"
	}
	if needsParens(p.exp) {
		exp = "(" + exp + ")"
	}
	return base + "^" + exp
}

// needsParens reports whether e must be parenthesized as an operand of ^.
func needsParens(e Expr) bool {
	switch v := e.(type) {
	case *Add, *Mul, *Pow:
		return true
	case *Num:
		return !v.IsInteger() || v.IsNegative()
	}
	return false
}

func (f *Func) String() string { return f.name + "(" + f.arg.String() + ")" }

// String prints e in the syntax accepted by Parse.
func String(e Expr) string { return e.String() }

// ------------------------------------------------------------
// Equality
// ------------------------------------------------------------

func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	return ok && n.val.Cmp(o.val) == 0
}

func (c *Const) Equal(other Expr) bool {
	o, ok := other.(*Const)
	return ok && c.name == o.name
}

func (s *Sym) Equal(other Expr) bool {
	o, ok := other.(*Sym)
	return ok && s.name == o.name
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	return ok && equalAll(a.terms, o.terms)
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	return ok && equalAll(m.factors, o.factors)
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	return ok && f.name == o.name && f.arg.Equal(o.arg)
}

func equalAll(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// children returns the direct subexpressions of e.
func children(e Expr) []Expr {
	switch v := e.(type) {
	case *Add:
		return v.terms
	case *Mul:
		return v.factors
	case *Pow:
		return []Expr{v.base, v.exp}
	case *Func:
		return []Expr{v.arg}
	}
	return nil
}

// walk visits e and every subexpression, parents first.
func walk(e Expr, visit func(Expr)) {
	visit(e)
	for _, c := range children(e) {
		walk(c, visit)
	}
}
