package symbolic

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownSymbol is returned when an expression references a symbol
// other than the variable it was compiled for.
var ErrUnknownSymbol = errors.New("symbolic: unknown symbol")

// EvalError reports a point where an expression is undefined over the
// reals.
type EvalError struct {
	Expr   string
	At     float64
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("symbolic: %s undefined at %g: %s", e.Expr, e.At, e.Reason)
}

// Function is an expression bound to a single variable and evaluated in
// float64 arithmetic.
type Function struct {
	expr    Expr
	varName string
}

// Compile binds expr to varName. Every free symbol of expr must be
// varName; a constant expression is accepted.
func Compile(expr Expr, varName string) (*Function, error) {
	var unknown []string
	for _, name := range SortedSymbols(expr) {
		if name != varName {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s (integration variable is %q)", ErrUnknownSymbol, strings.Join(unknown, ", "), varName)
	}
	return &Function{expr: expr, varName: varName}, nil
}

func (f *Function) Expr() Expr     { return f.expr }
func (f *Function) Var() string    { return f.varName }
func (f *Function) String() string { return f.expr.String() }

// Eval returns f(x). The error is an *EvalError when f is undefined at x.
func (f *Function) Eval(x float64) (float64, error) {
	return evalFloat(f.expr, f.varName, x)
}

// Constant evaluates an expression that has no free symbols.
func Constant(expr Expr) (float64, error) {
	if syms := SortedSymbols(expr); len(syms) > 0 {
		return math.NaN(), fmt.Errorf("%w: %s (expected a constant)", ErrUnknownSymbol, strings.Join(syms, ", "))
	}
	return evalFloat(expr, "", math.NaN())
}

func evalFloat(e Expr, varName string, x float64) (float64, error) {
	undefined := func(reason string) (float64, error) {
		return math.NaN(), &EvalError{Expr: e.String(), At: x, Reason: reason}
	}
	finite := func(v float64) (float64, error) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return undefined("non-finite result")
		}
		return v, nil
	}

	switch v := e.(type) {
	case *Num:
		return v.Float64(), nil
	case *Const:
		return v.value, nil
	case *Sym:
		if v.name != varName {
			return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownSymbol, v.name)
		}
		return x, nil
	case *Add:
		sum := 0.0
		for _, t := range v.terms {
			tv, err := evalFloat(t, varName, x)
			if err != nil {
				return math.NaN(), err
			}
			sum += tv
		}
		return finite(sum)
	case *Mul:
		prod := 1.0
		for _, f := range v.factors {
			fv, err := evalFloat(f, varName, x)
			if err != nil {
				return math.NaN(), err
			}
			prod *= fv
		}
		return finite(prod)
	case *Pow:
		b, err := evalFloat(v.base, varName, x)
		if err != nil {
			return math.NaN(), err
		}
		p, err := evalFloat(v.exp, varName, x)
		if err != nil {
			return math.NaN(), err
		}
		if b == 0 && p < 0 {
			return undefined("division by zero")
		}
		if b < 0 && p != math.Trunc(p) {
			// Rational exponents with an odd denominator have a real root.
			if n, ok := v.exp.(*Num); ok && n.val.Denom().Bit(0) == 1 {
				r := math.Pow(-b, p)
				if n.val.Num().Bit(0) == 1 {
					r = -r
				}
				return finite(r)
			}
			return undefined("negative base with non-integer exponent")
		}
		return finite(math.Pow(b, p))
	case *Func:
		a, err := evalFloat(v.arg, varName, x)
		if err != nil {
			return math.NaN(), err
		}
		return evalFunc(v.name, a, undefined, finite)
	}
	return undefined(fmt.Sprintf("unsupported node %T", e))
}

func evalFunc(name string, a float64,
	undefined func(string) (float64, error),
	finite func(float64) (float64, error),
) (float64, error) {
	switch name {
	case "sin":
		return finite(math.Sin(a))
	case "cos":
		return finite(math.Cos(a))
	case "tan":
		if math.Abs(math.Cos(a)) < 1e-15 {
			return undefined("tan pole")
		}
		return finite(math.Tan(a))
	case "exp":
		return finite(math.Exp(a))
	case "ln":
		if a <= 0 {
			return undefined("logarithm of a non-positive number")
		}
		return finite(math.Log(a))
	case "abs":
		return math.Abs(a), nil
	case "asin":
		if a < -1 || a > 1 {
			return undefined("asin argument outside [-1, 1]")
		}
		return math.Asin(a), nil
	case "acos":
		if a < -1 || a > 1 {
			return undefined("acos argument outside [-1, 1]")
		}
		return math.Acos(a), nil
	case "atan":
		return math.Atan(a), nil
	case "sinh":
		return finite(math.Sinh(a))
	case "cosh":
		return finite(math.Cosh(a))
	case "tanh":
		return math.Tanh(a), nil
	case "floor":
		return math.Floor(a), nil
	case "ceil":
		return math.Ceil(a), nil
	case "sign":
		switch {
		case a > 0:
			return 1, nil
		case a < 0:
			return -1, nil
		}
		return 0, nil
	}
	return undefined("unknown function " + name)
}
