package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwriting-cli/internal/gate"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Summarize gate outcomes across deals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		wsID, _ := cmd.Flags().GetString("workspace")
		format, _ := cmd.Flags().GetString("format")

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Service.Portfolio(ctx, wsID)
		if err != nil {
			return eris.Wrap(err, "portfolio")
		}
		if format == "json" {
			return writeJSONOut(cmd.OutOrStdout(), p)
		}
		formatPortfolio(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	portfolioCmd.Flags().String("workspace", "", "limit to one workspace")
	portfolioCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(portfolioCmd)
}

func formatPortfolio(out io.Writer, p *gate.Portfolio) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Deals:\t%d\n", p.DealCount)
	for _, sc := range p.StatusCounts {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", sc.Status, sc.Count)
	}
	if p.AvgICScore != nil {
		sd := 0.0
		if p.ICScoreStdDev != nil {
			sd = *p.ICScoreStdDev
		}
		_, _ = fmt.Fprintf(w, "Avg IC score:\t%.1f (sd %.1f)\n", *p.AvgICScore, sd)
	}
	_, _ = fmt.Fprintf(w, "Overrides:\t%d (%.1f%%)\n", p.OverrideCount, p.OverrideFrequencyPct)
	for _, b := range p.BindingDistribution {
		_, _ = fmt.Fprintf(w, "  Binding %s:\t%d\n", b.BindingConstraint, b.Count)
	}
	_ = w.Flush()
}
