package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Record and inspect BOE runs",
	Long:  "Commands for recording, listing, viewing, and summarizing a deal's BOE runs. Runs are immutable; a new run supersedes the last.",
}

// -- runs create --

var runsCreateCmd = &cobra.Command{
	Use:   "create <deal-id>",
	Short: "Evaluate inputs and record them as the deal's next BOE run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := inputsFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.CreateRun(ctx, args[0], raw, actorFlag)
		if err != nil {
			return eris.Wrap(err, "runs create")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Run:\t%s (v%d)\n", run.ID, run.Version)
		_, _ = fmt.Fprintf(w, "Decision:\t%s (%d/%d pass)\n", run.DecisionSummary.Status, run.PassCount, run.DecisionSummary.TotalTests)
		_, _ = fmt.Fprintf(w, "BOE max bid:\t%s\n", formatMoney(moneyFromMap(run.Outputs, "boe_max_bid")))
		_ = w.Flush()
		return nil
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list <deal-id>",
	Short: "List a deal's BOE runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Service.ListRuns(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <deal-id> <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.Service.GetRun(ctx, args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeJSONOut(cmd.OutOrStdout(), run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats <deal-id>",
	Short: "Show aggregate statistics over a deal's runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Service.ListRuns(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
		return nil
	},
}

func init() {
	addInputFlags(runsCreateCmd)

	runsCmd.AddCommand(runsCreateCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total         int
	Advance       int
	Blocked       int
	NeedsWork     int
	MeanPassCount float64
	StdPassCount  float64
	MeanMaxBid    *float64
	Binding       map[string]int
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []underwriting.RunView) runStats {
	s := runStats{Total: len(runs), Binding: map[string]int{}}
	if len(runs) == 0 {
		return s
	}

	passCounts := make([]float64, 0, len(runs))
	var bids []float64
	for _, r := range runs {
		switch r.DecisionSummary.Status {
		case boe.StatusAdvance:
			s.Advance++
		case boe.StatusBlocked:
			s.Blocked++
		default:
			s.NeedsWork++
		}
		passCounts = append(passCounts, float64(r.PassCount))
		if bid := moneyFromMap(r.Outputs, "boe_max_bid"); bid != nil {
			bids = append(bids, *bid)
		}
		if r.BindingConstraint != nil {
			s.Binding[*r.BindingConstraint]++
		}
	}

	s.MeanPassCount, s.StdPassCount = stat.MeanStdDev(passCounts, nil)
	if len(passCounts) < 2 {
		s.StdPassCount = 0
	}
	if len(bids) > 0 {
		mean := stat.Mean(bids, nil)
		s.MeanMaxBid = &mean
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []underwriting.RunView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVERSION\tDECISION\tSTATUS\tPASS\tMAX BID\tBINDING\tBY\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t--------\t------\t----\t-------\t-------\t--\t-------")

	for _, r := range runs {
		binding := ""
		if r.BindingConstraint != nil {
			binding = *r.BindingConstraint
		}
		_, _ = fmt.Fprintf(w, "%s\tv%d\t%s\t%s\t%d/%d\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Version,
			r.Decision,
			r.DecisionSummary.Status,
			r.PassCount,
			boe.TotalTests,
			formatMoney(moneyFromMap(r.Outputs, "boe_max_bid")),
			binding,
			r.CreatedBy,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Advance:\t%d\n", s.Advance)
	_, _ = fmt.Fprintf(w, "Needs work:\t%d\n", s.NeedsWork)
	_, _ = fmt.Fprintf(w, "Blocked:\t%d\n", s.Blocked)
	if s.Total > 0 {
		_, _ = fmt.Fprintf(w, "Mean pass count:\t%.2f (sd %.2f)\n", s.MeanPassCount, s.StdPassCount)
	}
	if s.MeanMaxBid != nil {
		_, _ = fmt.Fprintf(w, "Mean max bid:\t%s\n", formatMoney(s.MeanMaxBid))
	}
	for _, label := range []string{boe.ConstraintYOC, boe.ConstraintCapex, boe.ConstraintCoC} {
		if n := s.Binding[label]; n > 0 {
			_, _ = fmt.Fprintf(w, "  Binding %s:\t%d\n", label, n)
		}
	}
	_ = w.Flush()
}

