// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hackystat-go/sensorshell/internal/logging"
)

var autosendCmd = &cobra.Command{
	Use:   "autosend <minutes>",
	Short: "Run in the foreground, auto-flushing every <minutes>, until interrupted",
	Long: "autosend overrides autosend.timeinterval with the given value and blocks,\n" +
		"relying on the shell's own autoflush ticker, until SIGINT or SIGTERM.\n" +
		"It is the supported way to change the interval for a single run; the\n" +
		"REPL's autosend# line is informational only, since a shell's ticker is\n" +
		"fixed at construction.",
	Args: cobra.ExactArgs(1),
	RunE: runAutosend,
}

func init() {
	rootCmd.AddCommand(autosendCmd)
}

func runAutosend(_ *cobra.Command, args []string) error {
	var minutes float64
	if _, err := fmt.Sscanf(args[0], "%f", &minutes); err != nil {
		return fmt.Errorf("invalid minutes %q: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Autosend.TimeInterval = minutes

	sh, err := openShellWithConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Float64("minutes", minutes).Msg("autosend running in foreground, waiting for interrupt")
	<-ctx.Done()

	logging.Info().Msg("autosend received shutdown signal, flushing and exiting")
	if err := sh.Quit(context.Background()); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
