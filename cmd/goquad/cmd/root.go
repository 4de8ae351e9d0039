package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/logging"
)

// globalOptions carries the persistent flags and what they resolve to.
type globalOptions struct {
	cfgFile string
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

func (g *globalOptions) load() error {
	cfg, err := config.Resolve(g.cfgFile)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if g.verbose {
		logCfg = logging.Verbose(logCfg)
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	g.cfg, g.log = cfg, log
	return nil
}

// NewRootCommand builds the goquad command tree writing reports to out.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "goquad",
		Short: "goquad - numerical integration with error reporting",
		Long: `goquad approximates a definite integral with the composite
Trapezoidal, Midpoint and Simpson's rules and reports each approximation's
error against the exact value whenever a closed form can be found.

Commands:
  integrate  - evaluate one integral
  serve      - HTTP endpoint for integrate
  rules      - list the quadrature rules
  version    - show the version`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.log != nil {
				_ = g.log.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", fmt.Sprintf("config file (default: $%s or ./%s)", config.EnvVar, config.DefaultFile))
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newIntegrateCommand(g),
		newServeCommand(g),
		newRulesCommand(),
		newVersionCommand(),
	)
	return root
}
