package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"weather-history/internal/server"
	"weather-history/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only query API",
	Long: `Serve the read-only HTTP query API backed by the history index, with
Prometheus metrics at /metrics. The server runs until interrupted.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides configuration)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{withDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.db.UpdatePoolStats()
			}
		}
	}()

	a.logger.Info(ctx, "starting query server", logging.Fields{
		"address": addr,
		"driver":  a.db.Driver(),
	})
	handler := server.NewHandler(a.ix, a.db, a.logger, a.metrics)
	return server.New(addr, handler, prometheus.DefaultGatherer, a.logger).Run(ctx)
}
