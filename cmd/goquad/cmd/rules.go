package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/njchilds90/goquad/internal/server"
)

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the quadrature rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tSYMBOL\tERROR ORDER\tSUBINTERVALS")
			for _, r := range server.Rules() {
				fmt.Fprintf(tw, "%s\t%s\tO(h^%d)\t%s\n", r.Name, r.Symbol, r.Order, r.N)
			}
			return tw.Flush()
		},
	}
}
