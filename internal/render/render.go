// Package render turns an integration report into text, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/njchilds90/goquad/integral"
	"github.com/njchilds90/goquad/quadrature"
	"github.com/njchilds90/goquad/symbolic"
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "yaml"}

// View is the serializable form of a report. Numbers are rounded to the
// requested precision; a nil number is unavailable.
type View struct {
	RunID          string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Integrand      string              `json:"integrand" yaml:"integrand"`
	LaTeX          string              `json:"latex" yaml:"latex"`
	Var            string              `json:"var" yaml:"var"`
	Lower          float64             `json:"lower" yaml:"lower"`
	Upper          float64             `json:"upper" yaml:"upper"`
	N              int                 `json:"n" yaml:"n"`
	Step           float64             `json:"step" yaml:"step"`
	Degree         int                 `json:"degree" yaml:"degree"`
	Approximations []ApproximationView `json:"approximations" yaml:"approximations"`
	Exact          ExactView           `json:"exact" yaml:"exact"`
}

type ApproximationView struct {
	Rule        string   `json:"rule" yaml:"rule"`
	Symbol      string   `json:"symbol" yaml:"symbol"`
	Value       *float64 `json:"value" yaml:"value"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	AbsError    *float64 `json:"abs_error" yaml:"abs_error"`
	SignedError *float64 `json:"signed_error" yaml:"signed_error"`
	Bound       *float64 `json:"bound,omitempty" yaml:"bound,omitempty"`
	// ExactByDegree marks a rule with no truncation error on this
	// polynomial integrand.
	ExactByDegree bool `json:"exact_by_degree,omitempty" yaml:"exact_by_degree,omitempty"`
}

type ExactView struct {
	Value          *float64 `json:"value" yaml:"value"`
	Antiderivative string   `json:"antiderivative,omitempty" yaml:"antiderivative,omitempty"`
	Form           string   `json:"form,omitempty" yaml:"form,omitempty"`
	Reason         string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NewView flattens report. A negative precision keeps full precision.
func NewView(spec integral.Spec, report *quadrature.Report, precision int) *View {
	round := func(v float64) *float64 {
		if precision >= 0 {
			v, _ = strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
		}
		return &v
	}
	p := report.Partition
	v := &View{
		RunID:     report.RunID,
		Integrand: spec.Expr.String(),
		LaTeX:     symbolic.LaTeX(spec.Expr),
		Var:       spec.Var,
		Lower:     p.A,
		Upper:     p.B,
		N:         p.N,
		Step:      *round(p.Step()),
		Degree:    report.Degree,
	}
	for _, a := range report.Approximations {
		av := ApproximationView{
			Rule:          a.Rule.String(),
			Symbol:        a.Rule.Symbol(),
			ExactByDegree: report.ExactByDegree(a.Rule),
		}
		if a.OK() {
			av.Value = round(a.Value)
		} else {
			av.Error = a.Err.Error()
		}
		if e, ok := report.Error(a.Rule); ok && e.Available {
			av.AbsError = round(e.Absolute)
			av.SignedError = round(e.Signed)
		}
		if b, ok := report.Bound(a.Rule); ok && b.Available {
			// Bounds are tiny by construction, keep them in full.
			bound := b.Value
			av.Bound = &bound
		}
		v.Approximations = append(v.Approximations, av)
	}
	if report.Exact.Available {
		v.Exact.Value = round(report.Exact.Value)
		v.Exact.Antiderivative = report.Exact.Antiderivative
		v.Exact.Form = report.Exact.Form
	} else {
		v.Exact.Reason = report.Exact.Reason
	}
	return v
}

// Write encodes v to w in format.
func Write(w io.Writer, format string, v *View) error {
	switch format {
	case "text", "":
		return writeText(w, v)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("render: unknown format %q", format)
}

func writeText(w io.Writer, v *View) error {
	fmt.Fprintf(w, "∫ %s d%s from %g to %g, n = %d, h = %g\n\n", v.Integrand, v.Var, v.Lower, v.Upper, v.N, v.Step)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	withBounds := false
	for _, a := range v.Approximations {
		withBounds = withBounds || a.Bound != nil
	}
	if withBounds {
		fmt.Fprintln(tw, "rule\tapproximation\t|error|\texact - approx\tbound")
	} else {
		fmt.Fprintln(tw, "rule\tapproximation\t|error|\texact - approx")
	}
	var exactByDegree []string
	for _, a := range v.Approximations {
		if a.Value == nil {
			fmt.Fprintf(tw, "%s\terror: %s\n", a.Symbol, a.Error)
			continue
		}
		symbol := a.Symbol
		if a.ExactByDegree {
			symbol += "*"
			exactByDegree = append(exactByDegree, a.Symbol)
		}
		row := fmt.Sprintf("%s\t%s\t%s\t%s", symbol, num(a.Value), num(a.AbsError), num(a.SignedError))
		if withBounds {
			row += "\t" + sci(a.Bound)
		}
		fmt.Fprintln(tw, row)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(exactByDegree) > 0 {
		fmt.Fprintf(w, "* %s exact for a polynomial of degree %d\n", strings.Join(exactByDegree, ", "), v.Degree)
	}

	if v.Exact.Value != nil {
		_, err := fmt.Fprintf(w, "\nexact: %s  (antiderivative %s)\n", num(v.Exact.Value), v.Exact.Antiderivative)
		return err
	}
	_, err := fmt.Fprintf(w, "\nexact: unavailable (%s)\n", v.Exact.Reason)
	return err
}

func num(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

func sci(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'e', 3, 64)
}
