// Package quadrature implements fixed-step numerical integration of a
// function of one real variable: the composite Trapezoidal, Midpoint
// and Simpson's rules over an equal-width partition of [a, b].
//
// The engine never refines n and never skips a sample: a sample where
// the integrand is undefined fails the rule with a *DomainError.
package quadrature

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidSubintervalCount is returned when n is not positive, or odd
// for Simpson's rule.
var ErrInvalidSubintervalCount = errors.New("quadrature: invalid subinterval count")

// Integrand is a real function of one variable that may be undefined at
// some points.
type Integrand interface {
	Eval(x float64) (float64, error)
}

// Func adapts a plain float function. Non-finite results are reported
// as domain errors by the engine.
type Func func(float64) float64

func (f Func) Eval(x float64) (float64, error) { return f(x), nil }

// DomainError reports a sample point where the integrand is undefined.
type DomainError struct {
	Rule Rule
	X    float64
	Err  error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("quadrature: %s rule: integrand not finite at x = %g", e.Rule, e.X)
	}
	return fmt.Sprintf("quadrature: %s rule: integrand undefined at x = %g: %v", e.Rule, e.X, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// ============================================================
// Rule
// ============================================================

type Rule int

const (
	Trapezoidal Rule = iota
	Midpoint
	Simpson
)

// Rules returns every rule in report order.
func Rules() []Rule { return []Rule{Trapezoidal, Midpoint, Simpson} }

func (r Rule) String() string {
	switch r {
	case Trapezoidal:
		return "trapezoidal"
	case Midpoint:
		return "midpoint"
	case Simpson:
		return "simpson"
	}
	return fmt.Sprintf("rule(%d)", int(r))
}

// Symbol is the textbook name of the approximation: T_n, M_n or S_n.
func (r Rule) Symbol() string {
	switch r {
	case Trapezoidal:
		return "T_n"
	case Midpoint:
		return "M_n"
	case Simpson:
		return "S_n"
	}
	return "?"
}

// Order is the power of h in the rule's global error term. It is also
// the derivative order whose maximum enters the rule's ErrorBound.
func (r Rule) Order() int {
	if r == Simpson {
		return 4
	}
	return 2
}

// ExactFor reports whether the rule integrates every polynomial of the
// given degree exactly: degree 1 for Trapezoidal and Midpoint, degree 3
// for Simpson. A negative degree is never exact.
func (r Rule) ExactFor(degree int) bool { return degree >= 0 && degree < r.Order() }

// CheckN validates n for this rule without touching the integrand.
func (r Rule) CheckN(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: n = %d, must be positive", ErrInvalidSubintervalCount, n)
	}
	if r == Simpson && n%2 != 0 {
		return fmt.Errorf("%w: n = %d, simpson rule needs an even n", ErrInvalidSubintervalCount, n)
	}
	return nil
}

// ParseRule accepts a rule name or any prefix of it, the rule's symbol,
// or "simpsons".
func ParseRule(s string) (Rule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("quadrature: empty rule name")
	}
	if s == "simpsons" {
		return Simpson, nil
	}
	for _, r := range Rules() {
		if s == strings.ToLower(r.Symbol()) || strings.HasPrefix(r.String(), s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("quadrature: unknown rule %q", s)
}

func (r Rule) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rule) UnmarshalText(b []byte) error {
	parsed, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ============================================================
// Partition
// ============================================================

// Partition divides [A, B] into N subintervals of equal width. B < A is
// allowed and yields a negative step.
type Partition struct {
	A, B float64
	N    int
}

func (p Partition) Step() float64 { return (p.B - p.A) / float64(p.N) }

// Point returns x_i = A + i*h. Point(N) is exactly B.
func (p Partition) Point(i int) float64 {
	if i == p.N {
		return p.B
	}
	return p.A + float64(i)*p.Step()
}

// Mid returns the center of subinterval i.
func (p Partition) Mid(i int) float64 { return p.A + (float64(i)+0.5)*p.Step() }

// Degenerate reports an empty interval.
func (p Partition) Degenerate() bool { return p.A == p.B }

// Each calls fn with every partition point, then every midpoint: the
// abscissae any of the three rules may touch. It stops at the first
// error and returns it.
func (p Partition) Each(fn func(x float64) error) error {
	for i := 0; i <= p.N; i++ {
		if err := fn(p.Point(i)); err != nil {
			return err
		}
	}
	for i := 0; i < p.N; i++ {
		if err := fn(p.Mid(i)); err != nil {
			return err
		}
	}
	return nil
}

// Refine splits every subinterval into k equal parts. Refine(2) has the
// points and midpoints of p as its points.
func (p Partition) Refine(k int) Partition { return Partition{A: p.A, B: p.B, N: p.N * k} }

func (p Partition) validate() error {
	if math.IsNaN(p.A) || math.IsInf(p.A, 0) || math.IsNaN(p.B) || math.IsInf(p.B, 0) {
		return fmt.Errorf("quadrature: bounds must be finite, got [%g, %g]", p.A, p.B)
	}
	return nil
}

// ============================================================
// Rules
// ============================================================

// TrapezoidalRule computes h * (f(x_0)/2 + f(x_1) + ... + f(x_{n-1}) + f(x_n)/2).
func TrapezoidalRule(f Integrand, a, b float64, n int) (float64, error) {
	return Approximate(Trapezoidal, f, a, b, n)
}

// MidpointRule computes h * Σ f(x_i + h/2) for i = 0..n-1.
func MidpointRule(f Integrand, a, b float64, n int) (float64, error) {
	return Approximate(Midpoint, f, a, b, n)
}

// SimpsonRule computes (h/3) * (f(x_0) + 4 Σ_odd f(x_i) + 2 Σ_even f(x_i) + f(x_n)).
// n must be even.
func SimpsonRule(f Integrand, a, b float64, n int) (float64, error) {
	return Approximate(Simpson, f, a, b, n)
}

// Approximate applies rule to f over [a, b] with n subintervals. An
// empty interval yields 0 without evaluating f.
func Approximate(rule Rule, f Integrand, a, b float64, n int) (float64, error) {
	if err := rule.CheckN(n); err != nil {
		return math.NaN(), err
	}
	p := Partition{A: a, B: b, N: n}
	if err := p.validate(); err != nil {
		return math.NaN(), err
	}
	if p.Degenerate() {
		return 0, nil
	}
	xs, weights, scale := stencil(rule, p)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		y, err := f.Eval(x)
		if err != nil {
			return math.NaN(), &DomainError{Rule: rule, X: x, Err: err}
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return math.NaN(), &DomainError{Rule: rule, X: x}
		}
		ys[i] = y
	}
	return scale * floats.Dot(weights, ys), nil
}

// stencil returns the sample points, their weights and the common
// factor of a composite rule.
func stencil(rule Rule, p Partition) (xs, weights []float64, scale float64) {
	h := p.Step()
	switch rule {
	case Midpoint:
		xs = make([]float64, p.N)
		weights = make([]float64, p.N)
		for i := range xs {
			xs[i] = p.Mid(i)
			weights[i] = 1
		}
		return xs, weights, h
	case Simpson:
		xs = make([]float64, p.N+1)
		weights = make([]float64, p.N+1)
		for i := range xs {
			xs[i] = p.Point(i)
			switch {
			case i == 0 || i == p.N:
				weights[i] = 1
			case i%2 == 1:
				weights[i] = 4
			default:
				weights[i] = 2
			}
		}
		return xs, weights, h / 3
	default:
		xs = make([]float64, p.N+1)
		weights = make([]float64, p.N+1)
		for i := range xs {
			xs[i] = p.Point(i)
			weights[i] = 1
		}
		weights[0], weights[p.N] = 0.5, 0.5
		return xs, weights, h
	}
}

// Estimate runs each rule independently. A failing rule records its
// error on its Approximation and the remaining rules still run.
func Estimate(f Integrand, a, b float64, n int, rules ...Rule) []Approximation {
	if len(rules) == 0 {
		rules = Rules()
	}
	out := make([]Approximation, len(rules))
	for i, r := range rules {
		v, err := Approximate(r, f, a, b, n)
		out[i] = Approximation{Rule: r, Value: v, Err: err}
	}
	return out
}
