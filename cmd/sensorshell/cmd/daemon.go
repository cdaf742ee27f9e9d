// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hackystat-go/sensorshell/internal/logging"
)

var daemonMetricsAddr string

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run in the foreground serving Prometheus metrics until interrupted",
	Long: "daemon builds the façade shell (running startup recovery) and keeps it\n" +
		"alive under its own autoflush ticker, additionally serving /metrics so\n" +
		"an operator can monitor sensorshell_records_sent_total,\n" +
		"sensorshell_flush_failures_total, and sensorshell_spool_files.",
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", ":9090", "address the /metrics endpoint listens on")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	sh, _, err := openShell()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: daemonMetricsAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srvErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", daemonMetricsAddr).Msg("daemon: metrics server listening")
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("daemon: received shutdown signal")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("daemon: metrics server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("daemon: metrics server did not shut down cleanly")
	}

	if err := sh.Quit(context.Background()); err != nil {
		logging.Error().Err(err).Msg("daemon: final flush did not complete")
		return err
	}
	logging.Info().Msg("daemon: stopped gracefully")
	return nil
}
