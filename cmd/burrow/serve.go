package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/broker"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Burrow broker",
	Long: `Run the Burrow broker on the configured TCP endpoint.

The broker accepts client connections, maintains the subscription table, and
fans published events out to subscribers. Prometheus metrics and health
endpoints are served on a separate address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.ListenAddress, _ = cmd.Flags().GetString("listen")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}
		if cmd.Flags().Changed("max-queue") {
			cfg.MaxQueueDepth, _ = cmd.Flags().GetInt("max-queue")
		}

		metrics.SetVersion(Version)

		// Metrics and health endpoints
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/livez", metrics.LivenessHandler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := broker.NewBroker(broker.Options{
			ListenAddress: cfg.ListenAddress,
			MaxQueueDepth: cfg.MaxQueueDepth,
		})
		return b.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "TCP endpoint to listen on (default 127.0.0.1:9876, env BURROW_LISTEN)")
	serveCmd.Flags().String("metrics-addr", "", "Address for metrics and health endpoints (default :9100, env BURROW_METRICS_ADDR)")
	serveCmd.Flags().Int("max-queue", 0, "Per-connection write queue depth before disconnect (default 256, env BURROW_MAX_QUEUE)")
}
