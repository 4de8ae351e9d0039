package quadrature_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/integrate/quad"

	"github.com/njchilds90/goquad/quadrature"
)

// recorder counts and remembers every abscissa it is evaluated at.
type recorder struct {
	f  func(float64) float64
	xs []float64
}

func (r *recorder) Eval(x float64) (float64, error) {
	r.xs = append(r.xs, x)
	return r.f(x), nil
}

func cubic(x float64) float64 { return 2*x*x*x - 3*x*x + x - 5 }

func TestSimpson_ExactForCubics(t *testing.T) {
	// ∫_{-1}^{2} 2x^3 - 3x^2 + x - 5 dx = -15
	for _, n := range []int{2, 4, 10, 100} {
		got, err := quadrature.SimpsonRule(quadrature.Func(cubic), -1, 2, n)
		require.NoError(t, err)
		assert.InDelta(t, -15.0, got, 1e-9, "n = %d", n)
	}
}

func TestConvergence(t *testing.T) {
	cube := quadrature.Func(func(x float64) float64 { return x * x * x })
	const exact = 4.0 // ∫_0^2 x^3 dx
	for _, rule := range quadrature.Rules() {
		t.Run(rule.String(), func(t *testing.T) {
			coarse, err := quadrature.Approximate(rule, cube, 0, 2, 10)
			require.NoError(t, err)
			fine, err := quadrature.Approximate(rule, cube, 0, 2, 1000)
			require.NoError(t, err)
			if rule == quadrature.Simpson {
				assert.InDelta(t, exact, coarse, 1e-9)
				assert.InDelta(t, exact, fine, 1e-9)
				return
			}
			assert.Less(t, math.Abs(fine-exact), math.Abs(coarse-exact))
		})
	}
}

func TestEmptyInterval(t *testing.T) {
	for _, rule := range quadrature.Rules() {
		rec := &recorder{f: math.Log}
		got, err := quadrature.Approximate(rule, rec, 3, 3, 4)
		require.NoError(t, err)
		assert.Zero(t, got)
		assert.Empty(t, rec.xs, "%s evaluated the integrand", rule)
	}
}

func TestReversedBoundsNegate(t *testing.T) {
	f := quadrature.Func(math.Exp)
	for _, rule := range quadrature.Rules() {
		forward, err := quadrature.Approximate(rule, f, 0, 1, 20)
		require.NoError(t, err)
		backward, err := quadrature.Approximate(rule, f, 1, 0, 20)
		require.NoError(t, err)
		assert.InDelta(t, -forward, backward, 1e-12, rule.String())
	}
}

func TestInvalidSubintervalCount(t *testing.T) {
	f := quadrature.Func(math.Sin)

	_, err := quadrature.SimpsonRule(f, 0, 1, 7)
	assert.True(t, errors.Is(err, quadrature.ErrInvalidSubintervalCount))
	assert.Contains(t, err.Error(), "n = 7")

	for _, rule := range quadrature.Rules() {
		for _, n := range []int{0, -2} {
			_, err := quadrature.Approximate(rule, f, 0, 1, n)
			assert.ErrorIs(t, err, quadrature.ErrInvalidSubintervalCount, "%s n=%d", rule, n)
		}
	}

	// Odd n is fine for the other rules.
	_, err = quadrature.TrapezoidalRule(f, 0, 1, 7)
	assert.NoError(t, err)
	_, err = quadrature.MidpointRule(f, 0, 1, 7)
	assert.NoError(t, err)
}

func TestNonFiniteBounds(t *testing.T) {
	_, err := quadrature.MidpointRule(quadrature.Func(math.Sin), 0, math.Inf(1), 4)
	require.Error(t, err)
	assert.NotErrorIs(t, err, quadrature.ErrInvalidSubintervalCount)
}

func TestDomainErrorIsolatedPerRule(t *testing.T) {
	recip := quadrature.Func(func(x float64) float64 { return 1 / x })
	approx := quadrature.Estimate(recip, -1, 1, 2)
	require.Len(t, approx, 3)

	var domErr *quadrature.DomainError
	require.ErrorAs(t, approx[0].Err, &domErr)
	assert.Equal(t, quadrature.Trapezoidal, domErr.Rule)
	assert.Equal(t, 0.0, domErr.X)

	// Midpoints -0.5 and 0.5 avoid the pole.
	require.NoError(t, approx[1].Err)
	assert.InDelta(t, 0.0, approx[1].Value, 1e-15)

	require.ErrorAs(t, approx[2].Err, &domErr)
	assert.Equal(t, quadrature.Simpson, domErr.Rule)
}

func TestDomainErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	f := failAt{x: 0.5, err: cause}
	_, err := quadrature.TrapezoidalRule(f, 0, 1, 2)
	assert.ErrorIs(t, err, cause)
}

type failAt struct {
	x   float64
	err error
}

func (f failAt) Eval(x float64) (float64, error) {
	if x == f.x {
		return 0, f.err
	}
	return x, nil
}

func TestMidpointAvoidsEndpoints(t *testing.T) {
	rec := &recorder{f: math.Sqrt}
	_, err := quadrature.MidpointRule(rec, 0, 1, 5)
	require.NoError(t, err)
	require.Len(t, rec.xs, 5)
	for _, x := range rec.xs {
		assert.Greater(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
}

func TestAgreesWithGaussLegendre(t *testing.T) {
	ref := quad.Fixed(math.Cos, 0, math.Pi/2, 20, nil, 0)
	require.InDelta(t, 1.0, ref, 1e-12)

	f := quadrature.Func(math.Cos)
	trap, err := quadrature.TrapezoidalRule(f, 0, math.Pi/2, 64)
	require.NoError(t, err)
	mid, err := quadrature.MidpointRule(f, 0, math.Pi/2, 64)
	require.NoError(t, err)
	simp, err := quadrature.SimpsonRule(f, 0, math.Pi/2, 64)
	require.NoError(t, err)

	assert.InDelta(t, ref, trap, 1e-4)
	assert.InDelta(t, ref, mid, 1e-4)
	assert.InDelta(t, ref, simp, 1e-8)
	// The trapezoidal error is about twice the midpoint error, opposite in sign.
	assert.InDelta(t, 2, math.Abs(trap-ref)/math.Abs(mid-ref), 0.01)
}

func TestErrorBoundDominates(t *testing.T) {
	// |cos''| and |cos''''| are at most 1.
	f := quadrature.Func(math.Cos)
	for _, rule := range quadrature.Rules() {
		got, err := quadrature.Approximate(rule, f, 0, 2, 10)
		require.NoError(t, err)
		bound := quadrature.ErrorBound(rule, 1, 0, 2, 10)
		assert.LessOrEqual(t, math.Abs(got-math.Sin(2)), bound, rule.String())
	}
}

func TestPartition(t *testing.T) {
	p := quadrature.Partition{A: 0.1, B: 0.7, N: 3}
	assert.Equal(t, 0.7, p.Point(3))
	assert.Equal(t, 0.1, p.Point(0))
	assert.InDelta(t, 0.2, p.Step(), 1e-15)

	var xs []float64
	require.NoError(t, p.Each(func(x float64) error {
		xs = append(xs, x)
		return nil
	}))
	require.Len(t, xs, 7)
	assert.Equal(t, 0.7, xs[3])
	assert.InDelta(t, 0.6, xs[6], 1e-15)

	stop := errors.New("stop")
	calls := 0
	err := p.Each(func(float64) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	fine := p.Refine(2)
	assert.Equal(t, 6, fine.N)
	assert.InDelta(t, p.Mid(1), fine.Point(3), 1e-15)

	rev := quadrature.Partition{A: 1, B: 0, N: 4}
	assert.Equal(t, -0.25, rev.Step())
	assert.Equal(t, 0.875, rev.Mid(0))
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in   string
		want quadrature.Rule
	}{
		{"trapezoidal", quadrature.Trapezoidal},
		{"T_n", quadrature.Trapezoidal},
		{"mid", quadrature.Midpoint},
		{"Simpson", quadrature.Simpson},
		{"simpsons", quadrature.Simpson},
	}
	for _, tt := range tests {
		got, err := quadrature.ParseRule(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, in := range []string{"romberg", "simpsonxyz", "midpointless", "trapezoids", ""} {
		_, err := quadrature.ParseRule(in)
		assert.Error(t, err, in)
	}

	var r quadrature.Rule
	require.NoError(t, r.UnmarshalText([]byte("m_n")))
	assert.Equal(t, quadrature.Midpoint, r)
}

func TestRule_ExactFor(t *testing.T) {
	cubic := quadrature.Func(func(x float64) float64 { return x*x*x - 2*x*x + 1 })
	line := quadrature.Func(func(x float64) float64 { return 3*x - 1 })
	for _, rule := range quadrature.Rules() {
		if rule.ExactFor(1) {
			got, err := quadrature.Approximate(rule, line, 0, 2, 2)
			require.NoError(t, err)
			assert.InDelta(t, 4, got, 1e-12, rule.String())
		}
		assert.False(t, rule.ExactFor(-1), rule.String())
		assert.False(t, rule.ExactFor(4), rule.String())
	}
	assert.True(t, quadrature.Simpson.ExactFor(3))
	assert.False(t, quadrature.Trapezoidal.ExactFor(2))
	got, err := quadrature.SimpsonRule(cubic, 0, 2, 2)
	require.NoError(t, err)
	assert.InDelta(t, 4.0-16.0/3+2, got, 1e-12)

	report := quadrature.NewReport(quadrature.Partition{A: 0, B: 2, N: 2}, nil, quadrature.Unavailable(""))
	assert.Equal(t, -1, report.Degree)
	assert.False(t, report.ExactByDegree(quadrature.Simpson))
	report.Degree = 3
	assert.True(t, report.ExactByDegree(quadrature.Simpson))
	assert.False(t, report.ExactByDegree(quadrature.Midpoint))
}

func TestNewReport(t *testing.T) {
	p := quadrature.Partition{A: 1, B: 4, N: 100}
	f := quadrature.Func(func(x float64) float64 { return 6 / math.Sqrt(x) })
	approx := quadrature.Estimate(f, p.A, p.B, p.N)

	report := quadrature.NewReport(p, approx, quadrature.ExactValue(12, "12*x^(1/2)"))
	require.NoError(t, report.Err())
	for _, rule := range quadrature.Rules() {
		a, ok := report.Approximation(rule)
		require.True(t, ok)
		assert.InDelta(t, 12, a.Value, 0.01, rule.String())

		e, ok := report.Error(rule)
		require.True(t, ok)
		assert.True(t, e.Available, rule.String())
		assert.InDelta(t, math.Abs(a.Value-12), e.Absolute, 1e-15)
		assert.InDelta(t, 12-a.Value, e.Signed, 1e-15)
	}

	missing := quadrature.NewReport(p, approx, quadrature.Unavailable("no antiderivative"))
	for _, e := range missing.Errors {
		assert.False(t, e.Available, e.Rule.String())
	}
	assert.Equal(t, "no antiderivative", missing.Exact.Reason)
}

func TestReportErrCombinesFailures(t *testing.T) {
	recip := quadrature.Func(func(x float64) float64 { return 1 / x })
	p := quadrature.Partition{A: -1, B: 1, N: 2}
	report := quadrature.NewReport(p, quadrature.Estimate(recip, p.A, p.B, p.N), quadrature.ExactValue(0, ""))

	assert.Len(t, multierr.Errors(report.Err()), 2)
	e, _ := report.Error(quadrature.Trapezoidal)
	assert.False(t, e.Available)
	e, _ = report.Error(quadrature.Midpoint)
	assert.True(t, e.Available)
}

func TestExactValueRejectsNonFinite(t *testing.T) {
	assert.False(t, quadrature.ExactValue(math.Inf(1), "").Available)
	assert.False(t, quadrature.ExactValue(math.NaN(), "").Available)
}
