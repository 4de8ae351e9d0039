package quadrature

import (
	"math"

	"go.uber.org/multierr"
)

// Approximation is one rule's result. Value is meaningless when Err is
// set.
type Approximation struct {
	Rule  Rule
	Value float64
	Err   error
}

func (a Approximation) OK() bool { return a.Err == nil }

// Exact is the closed-form value of the integral, or the reason it is
// unavailable. Unavailability is an expected outcome, not an error.
// Form is F(b) - F(a) with the bounds substituted, before evaluation.
type Exact struct {
	Value          float64
	Available      bool
	Reason         string
	Antiderivative string
	Form           string
}

func ExactValue(v float64, antiderivative string) Exact {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable("exact value is not finite")
	}
	return Exact{Value: v, Available: true, Antiderivative: antiderivative}
}

func Unavailable(reason string) Exact {
	return Exact{Reason: reason}
}

// ErrorReport pairs a rule with its error against the exact value.
// Signed is exact - approximation; Absolute is its magnitude.
type ErrorReport struct {
	Rule      Rule
	Absolute  float64
	Signed    float64
	Available bool
}

// Bound is the theoretical worst-case error of a rule, estimated from
// the maximum of |f''| (Trapezoidal, Midpoint) or |f''''| (Simpson).
type Bound struct {
	Rule      Rule
	Value     float64
	Available bool
}

// Report collects the results of one integration, in rule order. RunID
// is left to the caller. Degree is the integrand's degree as a
// polynomial, or -1 when it is not one or is unknown.
type Report struct {
	RunID          string
	Degree         int
	Partition      Partition
	Approximations []Approximation
	Exact          Exact
	Errors         []ErrorReport
	Bounds         []Bound
}

// NewReport pairs each approximation with its error against exact. A
// failed rule or an unavailable exact value yields an unavailable entry.
func NewReport(p Partition, approximations []Approximation, exact Exact) *Report {
	errs := make([]ErrorReport, len(approximations))
	for i, a := range approximations {
		errs[i] = ErrorReport{Rule: a.Rule}
		if !exact.Available || !a.OK() {
			continue
		}
		signed := exact.Value - a.Value
		errs[i].Signed = signed
		errs[i].Absolute = math.Abs(signed)
		errs[i].Available = true
	}
	return &Report{
		Degree:         -1,
		Partition:      p,
		Approximations: approximations,
		Exact:          exact,
		Errors:         errs,
	}
}

// Approximation returns the result for rule, if it was requested.
func (r *Report) Approximation(rule Rule) (Approximation, bool) {
	for _, a := range r.Approximations {
		if a.Rule == rule {
			return a, true
		}
	}
	return Approximation{}, false
}

// Error returns the error report for rule, if it was requested.
func (r *Report) Error(rule Rule) (ErrorReport, bool) {
	for _, e := range r.Errors {
		if e.Rule == rule {
			return e, true
		}
	}
	return ErrorReport{}, false
}

// Bound returns the theoretical bound for rule, if one was computed.
func (r *Report) Bound(rule Rule) (Bound, bool) {
	for _, b := range r.Bounds {
		if b.Rule == rule {
			return b, true
		}
	}
	return Bound{}, false
}

// ExactByDegree reports whether rule has no truncation error for this
// integrand because it is a polynomial of low enough degree.
func (r *Report) ExactByDegree(rule Rule) bool { return rule.ExactFor(r.Degree) }

// Err combines the failures of every rule, or returns nil when all
// rules succeeded.
func (r *Report) Err() error {
	var err error
	for _, a := range r.Approximations {
		err = multierr.Append(err, a.Err)
	}
	return err
}

// ErrorBound evaluates the textbook bound for rule given k, the maximum
// of |f''| on [a, b] for Trapezoidal and Midpoint or of |f''''| for
// Simpson.
func ErrorBound(rule Rule, k, a, b float64, n int) float64 {
	width := math.Abs(b - a)
	nf := float64(n)
	switch rule {
	case Trapezoidal:
		return k * math.Pow(width, 3) / (12 * nf * nf)
	case Midpoint:
		return k * math.Pow(width, 3) / (24 * nf * nf)
	case Simpson:
		return k * math.Pow(width, 5) / (180 * math.Pow(nf, 4))
	}
	return math.NaN()
}
