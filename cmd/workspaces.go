package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwriting-cli/internal/model"
)

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "Manage deal workspaces",
}

var workspacesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		ws, err := env.Service.CreateWorkspace(ctx, args[0], actorFlag)
		if err != nil {
			return eris.Wrap(err, "workspaces create")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), ws.ID)
		return nil
	},
}

var workspacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Service.ListWorkspaces(ctx)
		if err != nil {
			return eris.Wrap(err, "workspaces list")
		}
		if len(list) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No workspaces found.")
			return nil
		}
		formatWorkspaces(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	workspacesCmd.AddCommand(workspacesCreateCmd)
	workspacesCmd.AddCommand(workspacesListCmd)
	rootCmd.AddCommand(workspacesCmd)
}

func formatWorkspaces(out io.Writer, list []model.Workspace) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCREATED BY\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t----------\t-------")
	for _, ws := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ws.ID, ws.Name, ws.CreatedBy, ws.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
