package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/njchilds90/goquad/integral"
	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/render"
	"github.com/njchilds90/goquad/quadrature"
)

const integrateExample = `  # Trapezoidal, Midpoint and Simpson's rules with 100 subintervals
  goquad integrate "6/sqrt(x)" --from 1 --to 4 -n 100

  # Constant-expression bounds, one rule, JSON output
  goquad integrate "sin(t)" --from 0 --to pi/2 -n 8 --rules simpson --format json

  # Theoretical error bounds next to the observed errors
  goquad integrate "exp(-x^2)" --from 0 --to 1 -n 50 --bounds`

type IntegrateOptions struct {
	global *globalOptions

	Expr      string
	Var       string
	From      string
	To        string
	N         int
	Rules     []string
	Format    string
	Precision int
	Bounds    bool
	Timeout   time.Duration

	rules []quadrature.Rule
	maxN  int
}

func newIntegrateCommand(g *globalOptions) *cobra.Command {
	o := &IntegrateOptions{global: g}

	cmd := &cobra.Command{
		Use:     "integrate EXPR --from A --to B [-n N]",
		Short:   "Approximate a definite integral and report the errors",
		Example: integrateExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.From, "from", "", "lower bound, a number or constant expression")
	flags.StringVar(&o.To, "to", "", "upper bound, a number or constant expression")
	flags.IntVarP(&o.N, "subintervals", "n", 0, "number of subintervals (default from config)")
	flags.StringVar(&o.Var, "var", "", "integration variable (default: the single free symbol)")
	flags.StringSliceVar(&o.Rules, "rules", nil, "rules to run: trapezoidal, midpoint, simpson")
	flags.StringVarP(&o.Format, "format", "o", "", "output format: text, json or yaml")
	flags.IntVar(&o.Precision, "precision", 0, "decimal places in the output")
	flags.BoolVar(&o.Bounds, "bounds", false, "estimate theoretical error bounds")
	flags.DurationVar(&o.Timeout, "timeout", 0, "time budget for the exact value")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// Complete fills every option the user left unset from the config.
func (o *IntegrateOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg := o.global.cfg
	o.Expr = args[0]
	flags := cmd.Flags()
	if !flags.Changed("subintervals") {
		o.N = cfg.Quadrature.Subintervals
	}
	if !flags.Changed("rules") {
		o.Rules = cfg.Quadrature.Rules
	}
	if !flags.Changed("format") {
		o.Format = cfg.Output.Format
	}
	if !flags.Changed("precision") {
		o.Precision = cfg.Output.Precision
	}
	if !flags.Changed("bounds") {
		o.Bounds = cfg.Quadrature.Bounds
	}
	if !flags.Changed("timeout") {
		o.Timeout = cfg.Exact.Timeout.Duration
	}

	o.maxN = cfg.Quadrature.MaxSubintervals

	o.rules = o.rules[:0]
	for _, name := range o.Rules {
		r, err := quadrature.ParseRule(name)
		if err != nil {
			return err
		}
		o.rules = append(o.rules, r)
	}
	return nil
}

func (o *IntegrateOptions) Validate() error {
	if len(o.rules) == 0 {
		return errors.New("no rules selected")
	}
	switch o.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q, want one of %v", o.Format, render.Formats)
	}
	if o.N > o.maxN {
		return fmt.Errorf("n = %d exceeds quadrature.max_subintervals = %d", o.N, o.maxN)
	}
	if o.Precision < 0 || o.Precision > config.MaxPrecision {
		return fmt.Errorf("precision must be in [0, %d], got %d", config.MaxPrecision, o.Precision)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	return nil
}

func (o *IntegrateOptions) Run(cmd *cobra.Command) error {
	spec, err := integral.ParseSpec(o.Expr, o.Var, o.From, o.To)
	if err != nil {
		return err
	}
	report, err := integral.Compute(cmd.Context(), spec, o.N, integral.Options{
		Rules:           o.rules,
		ExactTimeout:    o.Timeout,
		MaxSubintervals: o.maxN,
		Bounds:          o.Bounds,
		Logger:          o.global.log,
	})
	if err != nil {
		return err
	}
	return render.Write(cmd.OutOrStdout(), o.Format, render.NewView(spec, report, o.Precision))
}
