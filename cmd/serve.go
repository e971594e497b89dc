package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwriting-cli/internal/api"
	"github.com/sells-group/underwriting-cli/internal/monitoring"
	"github.com/sells-group/underwriting-cli/internal/parity"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the underwriting HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		env, err := initService(ctx, reg)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Parity.Schedule != "" {
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			sched, err := parity.NewScheduler(ctx, cfg.Parity.Schedule, cfg.Parity.FixturesDir,
				func(r *parity.Report, err error, at time.Time) {
					if err == nil {
						env.Metrics.RecordParity(r.Compared(), len(r.Failures), at)
					}
					alerter.HandleParity(ctx, r, err, at)
				})
			if err != nil {
				return err
			}
			// Populate the parity gauges before the first tick.
			sched.RunNow(ctx)
			sched.Start()
			defer sched.Stop()
		}

		srv := api.New(env.Service, env.Metrics, cfg.Server, cfg.Metrics)
		if err := srv.ListenAndServe(ctx, cfg.Server.Port); err != nil {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
