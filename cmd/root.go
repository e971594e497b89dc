package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/config"
)

var (
	cfg       *config.Config
	actorFlag string
)

var rootCmd = &cobra.Command{
	Use:   "underwrite",
	Short: "Back-of-envelope underwriting gate for multifamily deals",
	Long:  "Evaluates deals against the BOE test battery, records immutable runs, tracks the gate state with overrides and an audit trail, and serves it all over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorFlag, "user", defaultActor(), "user recorded on runs, overrides and audit events")
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
