package symbolic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrParse wraps every syntax error returned by Parse.
var ErrParse = errors.New("symbolic: parse error")

// ============================================================
// Grammar
// ============================================================
//
//	sum     = product { ("+" | "-") product }
//	product = unary { ("*" | "/") unary }
//	unary   = "-" unary | power
//	power   = primary [ "^" unary ]
//	primary = number | ident [ "(" sum ")" ] | "(" sum ")"
//
// "^" is right associative and binds tighter than unary minus, so
// -x^2 parses as -(x^2).

type sumNode struct {
	Head *productNode `parser:"@@"`
	Tail []*sumTail   `parser:"@@*"`
}

type sumTail struct {
	Op      string       `parser:"@('+' | '-')"`
	Operand *productNode `parser:"@@"`
}

type productNode struct {
	Head *unaryNode     `parser:"@@"`
	Tail []*productTail `parser:"@@*"`
}

type productTail struct {
	Op      string     `parser:"@('*' | '/')"`
	Operand *unaryNode `parser:"@@"`
}

type unaryNode struct {
	Neg   *unaryNode `parser:"  '-' @@"`
	Power *powerNode `parser:"| @@"`
}

type powerNode struct {
	Base *primaryNode `parser:"@@"`
	Exp  *unaryNode   `parser:"( '^' @@ )?"`
}

type primaryNode struct {
	Number *string    `parser:"  @Number"`
	Ident  *identNode `parser:"| @@"`
	Group  *sumNode   `parser:"| '(' @@ ')'"`
}

type identNode struct {
	Name string   `parser:"@Ident"`
	Arg  *sumNode `parser:"( '(' @@ ')' )?"`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[-+*/^()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[sumNode](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)

// ============================================================
// Parse
// ============================================================

var functions = map[string]func(Expr) Expr{
	"sin":   SinOf,
	"cos":   CosOf,
	"tan":   TanOf,
	"exp":   ExpOf,
	"ln":    LnOf,
	"log":   LnOf,
	"sqrt":  SqrtOf,
	"abs":   AbsOf,
	"asin":  AsinOf,
	"acos":  AcosOf,
	"atan":  AtanOf,
	"sinh":  SinhOf,
	"cosh":  CoshOf,
	"tanh":  TanhOf,
	"floor": FloorOf,
	"ceil":  CeilOf,
	"sign":  SignOf,
}

var constants = map[string]Expr{
	"pi": Pi,
	"e":  E,
}

// Parse reads an infix expression such as "6/sqrt(x)" or "x^3 - 2*x".
// log is the natural logarithm; pi and e are constants, every other
// identifier becomes a symbol.
func Parse(input string) (Expr, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrParse)
	}
	tree, err := exprParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return tree.build()
}

// MustParse is Parse for expressions known to be valid.
func MustParse(input string) Expr {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

func (n *sumNode) build() (Expr, error) {
	head, err := n.Head.build()
	if err != nil {
		return nil, err
	}
	terms := []Expr{head}
	for _, t := range n.Tail {
		operand, err := t.Operand.build()
		if err != nil {
			return nil, err
		}
		if t.Op == "-" {
			operand = MulOf(N(-1), operand)
		}
		terms = append(terms, operand)
	}
	return AddOf(terms...), nil
}

func (n *productNode) build() (Expr, error) {
	head, err := n.Head.build()
	if err != nil {
		return nil, err
	}
	factors := []Expr{head}
	for _, t := range n.Tail {
		operand, err := t.Operand.build()
		if err != nil {
			return nil, err
		}
		if t.Op == "/" {
			if num, ok := operand.(*Num); ok && num.IsZero() {
				return nil, fmt.Errorf("%w: division by literal zero", ErrParse)
			}
			operand = PowOf(operand, N(-1))
		}
		factors = append(factors, operand)
	}
	return MulOf(factors...), nil
}

func (n *unaryNode) build() (Expr, error) {
	if n.Neg != nil {
		inner, err := n.Neg.build()
		if err != nil {
			return nil, err
		}
		return MulOf(N(-1), inner), nil
	}
	return n.Power.build()
}

func (n *powerNode) build() (Expr, error) {
	base, err := n.Base.build()
	if err != nil {
		return nil, err
	}
	if n.Exp == nil {
		return base, nil
	}
	exp, err := n.Exp.build()
	if err != nil {
		return nil, err
	}
	return PowOf(base, exp), nil
}

func (n *primaryNode) build() (Expr, error) {
	switch {
	case n.Number != nil:
		num, ok := NDecimal(*n.Number)
		if !ok {
			return nil, fmt.Errorf("%w: invalid number %q", ErrParse, *n.Number)
		}
		return num, nil
	case n.Ident != nil:
		return n.Ident.build()
	case n.Group != nil:
		return n.Group.build()
	}
	return nil, fmt.Errorf("%w: empty term", ErrParse)
}

func (n *identNode) build() (Expr, error) {
	if n.Arg == nil {
		if c, ok := constants[n.Name]; ok {
			return c, nil
		}
		if _, isFunc := functions[n.Name]; isFunc {
			return nil, fmt.Errorf("%w: function %s needs an argument", ErrParse, n.Name)
		}
		return S(n.Name), nil
	}
	fn, ok := functions[n.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown function %q", ErrParse, n.Name)
	}
	arg, err := n.Arg.build()
	if err != nil {
		return nil, err
	}
	return fn(arg), nil
}
