package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwriting-cli/internal/gate"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/store"
	"github.com/sells-group/underwriting-cli/internal/underwriting"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Manage deals and their gate",
}

var dealsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a deal in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := underwriting.NewDeal{Name: args[0]}
		in.WorkspaceID, _ = cmd.Flags().GetString("workspace")
		in.Address, _ = cmd.Flags().GetString("address")
		if cmd.Flags().Changed("asking-price") {
			price, _ := cmd.Flags().GetFloat64("asking-price")
			in.AskingPrice = &price
		}

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		d, err := env.Service.CreateDeal(ctx, in, actorFlag)
		if err != nil {
			return eris.Wrap(err, "deals create")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), d.ID)
		return nil
	},
}

var dealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		wsID, _ := cmd.Flags().GetString("workspace")
		limit, _ := cmd.Flags().GetInt("limit")

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		deals, err := env.Service.ListDeals(ctx, store.DealFilter{WorkspaceID: wsID, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "deals list")
		}
		if len(deals) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No deals found.")
			return nil
		}
		formatDeals(cmd.OutOrStdout(), deals)
		return nil
	},
}

var dealsGateCmd = &cobra.Command{
	Use:   "gate <deal-id>",
	Short: "Show the gate summary for a deal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Service.GateSummary(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "deals gate")
		}
		if format == "json" {
			return writeJSONOut(cmd.OutOrStdout(), sum)
		}
		formatGateSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

var dealsOverrideCmd = &cobra.Command{
	Use:   "override <deal-id>",
	Short: "Set or clear a manual gate override",
	Long:  "Sets the deal's gate status by hand (ADVANCE, REVIEW, KILL, APPROVED, BLOCKED) with a required comment, or clears the override with CLEAR.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		status, _ := cmd.Flags().GetString("status")
		comment, _ := cmd.Flags().GetString("comment")

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		d, err := env.Service.Override(ctx, args[0], status, comment, actorFlag)
		if err != nil {
			return eris.Wrap(err, "deals override")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gate status: %s (computed %s)\n", d.GateStatus, d.GateStatusComputed)
		return nil
	},
}

var dealsActivityCmd = &cobra.Command{
	Use:   "activity <deal-id>",
	Short: "Show the gate audit trail for a deal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		feed, err := env.Service.Activity(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "deals activity")
		}
		formatActivity(cmd.OutOrStdout(), feed)
		return nil
	},
}

var dealsICPacketCmd = &cobra.Command{
	Use:   "ic-packet <deal-id>",
	Short: "Print the investment committee packet for a deal as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Service.ICPacket(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "deals ic-packet")
		}
		return writeJSONOut(cmd.OutOrStdout(), p)
	},
}

func init() {
	dealsCreateCmd.Flags().String("workspace", "", "workspace ID (required)")
	dealsCreateCmd.Flags().String("address", "", "property address")
	dealsCreateCmd.Flags().Float64("asking-price", 0, "asking price in dollars")
	_ = dealsCreateCmd.MarkFlagRequired("workspace")

	dealsListCmd.Flags().String("workspace", "", "filter by workspace ID")
	dealsListCmd.Flags().Int("limit", 50, "max number of deals to display")

	dealsGateCmd.Flags().String("format", "table", "output format: table or json")

	dealsOverrideCmd.Flags().String("status", "", "override status, or CLEAR")
	dealsOverrideCmd.Flags().String("comment", "", "reason for the override (required unless clearing)")
	_ = dealsOverrideCmd.MarkFlagRequired("status")

	dealsActivityCmd.Flags().Int("limit", underwriting.DefaultActivityLimit, "max number of events to display")

	dealsCmd.AddCommand(dealsCreateCmd)
	dealsCmd.AddCommand(dealsListCmd)
	dealsCmd.AddCommand(dealsGateCmd)
	dealsCmd.AddCommand(dealsOverrideCmd)
	dealsCmd.AddCommand(dealsActivityCmd)
	dealsCmd.AddCommand(dealsICPacketCmd)
	rootCmd.AddCommand(dealsCmd)
}

func formatDeals(out io.Writer, deals []model.Deal) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tASKING\tGATE STATE\tGATE STATUS\tOVERRIDE")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t----------\t-----------\t--------")
	for _, d := range deals {
		name := d.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		override := ""
		if d.HasOverride() {
			override = string(*d.GateOverrideStatus)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(d.ID),
			name,
			formatMoney(d.AskingPrice),
			d.CurrentGateState,
			d.GateStatus,
			override,
		)
	}
	_ = w.Flush()
}

func formatGateSummary(out io.Writer, s *gate.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Deal:\t%s (%s)\n", s.DealName, s.DealID)
	_, _ = fmt.Fprintf(w, "Computed:\t%s (%d pass, hard veto ok: %t)\n", s.ComputedStatus, s.ComputedPassCount, s.ComputedHardVetoOK)
	if s.HasOverride && s.OverrideStatus != nil {
		reason := ""
		if s.OverrideReason != nil {
			reason = *s.OverrideReason
		}
		_, _ = fmt.Fprintf(w, "Override:\t%s %s\n", *s.OverrideStatus, strconv.Quote(reason))
	}
	_, _ = fmt.Fprintf(w, "Effective:\t%s\n", s.EffectiveStatus)
	_, _ = fmt.Fprintf(w, "IC score:\t%d\n", s.ICScore)
	_, _ = fmt.Fprintf(w, "Audit events:\t%d\n", s.AuditTrailCount)
	_, _ = fmt.Fprintln(w)
	formatTests(w, s.Explainability.Tests)
	_ = w.Flush()
}

func formatActivity(out io.Writer, feed []underwriting.ActivityEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tTYPE\tACTOR\tSUMMARY")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t-------")
	for _, ev := range feed {
		who := ""
		if ev.Actor.ID != nil {
			who = *ev.Actor.ID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type, who, ev.Summary)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
