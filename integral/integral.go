// Package integral evaluates a definite integral of a symbolic
// expression with the quadrature rules and reports each approximation's
// error against the exact value, when one can be found.
package integral

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/njchilds90/goquad/quadrature"
	"github.com/njchilds90/goquad/symbolic"
)

// DefaultExactTimeout bounds the exact-value attempt when Options leaves
// it unset.
const DefaultExactTimeout = 2 * time.Second

// DefaultVar is the integration variable of a constant integrand.
const DefaultVar = "x"

// DefaultMaxSubintervals caps n when Options leaves the limit unset.
const DefaultMaxSubintervals = 1_000_000

// MaxConcurrentIntegrations caps the symbolic integrations running at
// once across all callers. An integration abandoned on timeout keeps its
// slot until it actually returns.
const MaxConcurrentIntegrations = 32

var integrationSlots = make(chan struct{}, MaxConcurrentIntegrations)

// minScanCells is the coarsest grid searched for singular points.
const minScanCells = 256

// ErrAmbiguousVar is returned when the variable is not given and the
// expression has more than one free symbol.
var ErrAmbiguousVar = errors.New("integral: cannot infer integration variable")

// Spec is a definite integral ∫_Lower^Upper Expr d(Var). Lower may exceed
// Upper. LowerExpr and UpperExpr keep the bounds as parsed, such as pi/2;
// when nil the float bounds are used.
type Spec struct {
	Expr      symbolic.Expr
	Var       string
	Lower     float64
	Upper     float64
	LowerExpr symbolic.Expr
	UpperExpr symbolic.Expr
}

func (s Spec) String() string {
	return fmt.Sprintf("∫[%g, %g] %s d%s", s.Lower, s.Upper, s.Expr, s.Var)
}

// Options tunes Compute. The zero value runs every rule with the default
// timeout and subinterval limit, and no logging.
type Options struct {
	Rules           []quadrature.Rule
	ExactTimeout    time.Duration
	MaxSubintervals int
	Bounds          bool
	Logger          *zap.Logger
}

func (o Options) rules() []quadrature.Rule {
	if len(o.Rules) == 0 {
		return quadrature.Rules()
	}
	seen := map[quadrature.Rule]bool{}
	var out []quadrature.Rule
	for _, r := range o.Rules {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (o Options) timeout() time.Duration {
	if o.ExactTimeout <= 0 {
		return DefaultExactTimeout
	}
	return o.ExactTimeout
}

func (o Options) maxSubintervals() int {
	if o.MaxSubintervals <= 0 {
		return DefaultMaxSubintervals
	}
	return o.MaxSubintervals
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// ============================================================
// Spec construction
// ============================================================

// ParseSpec parses the integrand and both bounds. Bounds may be constant
// expressions such as "pi/2". An empty varName is inferred.
func ParseSpec(expr, varName, lower, upper string) (Spec, error) {
	e, err := symbolic.Parse(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("integrand: %w", err)
	}
	if varName == "" {
		if varName, err = InferVar(e); err != nil {
			return Spec{}, err
		}
	}
	spec := Spec{Expr: e, Var: varName}
	if spec.LowerExpr, spec.Lower, err = parseBound(lower); err != nil {
		return Spec{}, fmt.Errorf("lower bound: %w", err)
	}
	if spec.UpperExpr, spec.Upper, err = parseBound(upper); err != nil {
		return Spec{}, fmt.Errorf("upper bound: %w", err)
	}
	return spec, nil
}

func parseBound(s string) (symbolic.Expr, float64, error) {
	e, err := symbolic.Parse(s)
	if err != nil {
		return nil, math.NaN(), err
	}
	v, err := symbolic.Constant(e)
	if err != nil {
		return nil, math.NaN(), err
	}
	return e, v, nil
}

// InferVar returns the single free symbol of expr, or DefaultVar for a
// constant expression.
func InferVar(expr symbolic.Expr) (string, error) {
	syms := symbolic.SortedSymbols(expr)
	switch len(syms) {
	case 0:
		return DefaultVar, nil
	case 1:
		return syms[0], nil
	}
	return "", fmt.Errorf("%w: %s has free symbols %v", ErrAmbiguousVar, expr, syms)
}

// ============================================================
// Compute
// ============================================================

// Compute approximates spec with n subintervals. The exact value is
// attempted concurrently under opts.ExactTimeout.
//
// The returned error covers structurally invalid input only: a bad n for
// a requested rule or above opts.MaxSubintervals, non-finite bounds, or
// free symbols other than spec.Var. A rule that hits an undefined sample
// fails on its own Approximation; the report is still returned.
func Compute(ctx context.Context, spec Spec, n int, opts Options) (*quadrature.Report, error) {
	rules := opts.rules()
	for _, r := range rules {
		if err := r.CheckN(n); err != nil {
			return nil, err
		}
	}
	if limit := opts.maxSubintervals(); n > limit {
		return nil, fmt.Errorf("%w: n = %d exceeds the limit of %d", quadrature.ErrInvalidSubintervalCount, n, limit)
	}
	if !finite(spec.Lower) || !finite(spec.Upper) {
		return nil, fmt.Errorf("integral: bounds must be finite, got [%g, %g]", spec.Lower, spec.Upper)
	}
	if spec.Var == "" {
		v, err := InferVar(spec.Expr)
		if err != nil {
			return nil, err
		}
		spec.Var = v
	}
	fn, err := symbolic.Compile(spec.Expr, spec.Var)
	if err != nil {
		return nil, fmt.Errorf("integral: %w", err)
	}

	runID := uuid.NewString()
	log := opts.logger().With(zap.String("run_id", runID))
	log.Debug("integrating",
		zap.Stringer("integrand", fn),
		zap.String("var", spec.Var),
		zap.Float64("lower", spec.Lower),
		zap.Float64("upper", spec.Upper),
		zap.Int("n", n))
	start := time.Now()

	p := quadrature.Partition{A: spec.Lower, B: spec.Upper, N: n}

	exactCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()
	exactCh := make(chan quadrature.Exact, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("exact value panicked", zap.Any("recovered", rec), zap.Stack("stack"))
				exactCh <- quadrature.Unavailable(fmt.Sprintf("internal error: %v", rec))
			}
		}()
		exactCh <- ExactValue(exactCtx, spec, p)
	}()

	approximations := quadrature.Estimate(fn, p.A, p.B, p.N, rules...)
	for _, a := range approximations {
		if a.Err != nil {
			log.Warn("rule failed", zap.Stringer("rule", a.Rule), zap.Error(a.Err))
		}
	}

	exact := <-exactCh
	if !exact.Available {
		log.Info("exact value unavailable", zap.String("reason", exact.Reason))
	}

	report := quadrature.NewReport(p, approximations, exact)
	report.RunID = runID
	report.Degree = symbolic.Degree(spec.Expr, spec.Var)
	if opts.Bounds {
		report.Bounds = ErrorBounds(fn, p, rules)
	}
	log.Debug("integrated", zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// ExactValue integrates spec symbolically and evaluates F(B) - F(A) with
// the bounds substituted into F. The result is unavailable when no
// antiderivative rule applies, ctx ends first, F is undefined on [A, B],
// or the integrand may be singular inside [A, B]. The last is detected
// by scanning the integrand's guards (see symbolic.Guards) for a zero or
// a sign change on a grid that contains every sample of p.
func ExactValue(ctx context.Context, spec Spec, p quadrature.Partition) quadrature.Exact {
	if err := ctx.Err(); err != nil {
		return unavailableFromContext(err)
	}
	if p.N > math.MaxInt32 {
		return quadrature.Unavailable(fmt.Sprintf("too many subintervals: %d", p.N))
	}

	anti, err := antiderivative(ctx, spec)
	if err != nil {
		return unavailableFromError(err)
	}
	antiFn, err := symbolic.Compile(anti, spec.Var)
	if err != nil {
		return quadrature.Unavailable(err.Error())
	}
	reason, err := scan(ctx, spec, antiFn, p)
	if err != nil {
		return unavailableFromContext(err)
	}
	if reason != "" {
		return quadrature.Unavailable(reason)
	}

	form := symbolic.AddOf(
		symbolic.Sub(anti, spec.Var, boundExpr(spec.UpperExpr, p.B)),
		symbolic.MulOf(symbolic.N(-1), symbolic.Sub(anti, spec.Var, boundExpr(spec.LowerExpr, p.A))),
	)
	v, err := symbolic.Constant(form)
	if err != nil {
		return quadrature.Unavailable(err.Error())
	}
	exact := quadrature.ExactValue(v, anti.String())
	if exact.Available {
		exact.Form = form.String()
	}
	return exact
}

var errNoAntiderivative = errors.New("no antiderivative found")

// antiderivative runs symbolic.Integrate in its own goroutine, holding one
// of the integration slots, and stops waiting when ctx ends.
func antiderivative(ctx context.Context, spec Spec) (symbolic.Expr, error) {
	select {
	case integrationSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	type result struct {
		anti symbolic.Expr
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { <-integrationSlots }()
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("symbolic integration failed: %v", rec)}
			}
		}()
		anti, ok := symbolic.Integrate(spec.Expr, spec.Var)
		if !ok {
			done <- result{err: errNoAntiderivative}
			return
		}
		done <- result{anti: anti}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.anti, res.err
	}
}

// scanCheckEvery is how many grid points are scanned between checks of
// the context.
const scanCheckEvery = 1024

// scan walks a refinement of p holding every point and midpoint and
// returns why the exact value cannot be trusted, or "" when it can.
func scan(ctx context.Context, spec Spec, anti *symbolic.Function, p quadrature.Partition) (string, error) {
	if p.Degenerate() || p.N <= 0 {
		return "", nil
	}
	var guards []*symbolic.Function
	for _, g := range symbolic.Guards(spec.Expr, spec.Var) {
		fn, err := symbolic.Compile(g, spec.Var)
		if err != nil {
			return err.Error(), nil
		}
		guards = append(guards, fn)
	}

	k := 2
	for p.N*k < minScanCells {
		k += 2
	}
	grid := p.Refine(k)
	prev := make([]float64, len(guards))
	for i := 0; i <= grid.N; i++ {
		if i%scanCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		x := grid.Point(i)
		if _, err := anti.Eval(x); err != nil {
			return fmt.Sprintf("antiderivative %s undefined at %s = %g", anti, spec.Var, x), nil
		}
		for j, g := range guards {
			y, err := g.Eval(x)
			if err != nil || y == 0 {
				return fmt.Sprintf("integrand undefined at %s = %g", spec.Var, x), nil
			}
			if i > 0 && math.Signbit(y) != math.Signbit(prev[j]) {
				return fmt.Sprintf("integrand singular between %s = %g and %g", spec.Var, grid.Point(i-1), x), nil
			}
			prev[j] = y
		}
	}
	return "", nil
}

func boundExpr(e symbolic.Expr, v float64) symbolic.Expr {
	if e != nil {
		return e
	}
	return symbolic.NFloat(v)
}

func unavailableFromError(err error) quadrature.Exact {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unavailableFromContext(err)
	}
	return quadrature.Unavailable(err.Error())
}

func unavailableFromContext(err error) quadrature.Exact {
	if errors.Is(err, context.DeadlineExceeded) {
		return quadrature.Unavailable("timed out")
	}
	return quadrature.Unavailable("canceled")
}

// ErrorBounds estimates each rule's theoretical error bound. The
// derivative maximum is taken over the partition points and midpoints,
// so it is a sampled estimate, not a proven supremum.
func ErrorBounds(fn *symbolic.Function, p quadrature.Partition, rules []quadrature.Rule) []quadrature.Bound {
	maxima := map[int]float64{}
	failed := map[int]bool{}
	bounds := make([]quadrature.Bound, len(rules))
	for i, r := range rules {
		bounds[i] = quadrature.Bound{Rule: r}
		order := r.Order()
		if _, ok := maxima[order]; !ok && !failed[order] {
			k, err := derivativeMax(fn, order, p)
			if err != nil {
				failed[order] = true
			} else {
				maxima[order] = k
			}
		}
		if failed[order] {
			continue
		}
		bounds[i].Value = quadrature.ErrorBound(r, maxima[order], p.A, p.B, p.N)
		bounds[i].Available = finite(bounds[i].Value)
	}
	return bounds
}

func derivativeMax(fn *symbolic.Function, order int, p quadrature.Partition) (float64, error) {
	d, err := symbolic.Compile(symbolic.DiffN(fn.Expr(), fn.Var(), order), fn.Var())
	if err != nil {
		return math.NaN(), err
	}
	k := 0.0
	err = p.Each(func(x float64) error {
		y, err := d.Eval(x)
		if err != nil {
			return err
		}
		k = math.Max(k, math.Abs(y))
		return nil
	})
	if err != nil {
		return math.NaN(), err
	}
	return k, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
