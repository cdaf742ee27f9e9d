// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cmd implements the sensorshell CLI commands, grounded on
// plexd's cobra.Command tree style (a package-level rootCmd, one file
// per subcommand registering itself from init()).
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/shell"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "sensorshell",
	Short: "sensorshell relays development-activity records to a Hackystat-style ingestion server",
	Long: "sensorshell buffers sensor data instances from editors, build tools, and\n" +
		"version-control hooks, transmits them in batches, and spools to local\n" +
		"disk when the configured server is unreachable.\n\n" +
		"With no subcommand it reads '#'-delimited commands from stdin (see 'help').",
	RunE: runREPL,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (trace, debug, info, warn, error)")
	// Errors get the banner treatment below instead of cobra's default
	// "Error: ..." plus usage dump.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// Execute runs the root command, printing a loud startup banner to
// stderr when it fails on a config or credential problem rather than
// letting the failure scroll by as an ordinary error line.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printStartupBanner(err)
	}
	return err
}

func printStartupBanner(err error) {
	if !errors.Is(err, shellerr.ErrConfig) && !errors.Is(err, shellerr.ErrAuth) {
		fmt.Fprintln(os.Stderr, "sensorshell:", err)
		return
	}

	logging.Error().Err(err).Msg("sensorshell: startup failed")
	fmt.Fprintln(os.Stderr, "============================================================")
	fmt.Fprintln(os.Stderr, " SENSORSHELL STARTUP FAILED")
	fmt.Fprintln(os.Stderr, " "+err.Error())
	fmt.Fprintln(os.Stderr, " check host, user, and password in your config file or")
	fmt.Fprintln(os.Stderr, " SENSORSHELL_* environment overrides.")
	fmt.Fprintln(os.Stderr, "============================================================")
}

// loadConfig loads configuration and applies the --log-level override,
// initializing the global logger to match.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level})
	return cfg, nil
}

// openShell loads configuration and constructs the façade shell every
// subcommand operates on. Construction runs startup recovery for the
// single-shell path (see shell.New).
func openShell() (shell.Shell, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sh, err := openShellWithConfig(cfg)
	return sh, cfg, err
}

// openShellWithConfig builds the façade shell from an already-loaded
// config, for callers (like autosend) that need to mutate it first.
func openShellWithConfig(cfg *config.Config) (shell.Shell, error) {
	dirs, err := shell.DefaultDirs()
	if err != nil {
		return nil, fmt.Errorf("resolve default directories: %w", err)
	}
	return shell.New(cfg, dirs)
}

// parseFields turns a list of "key=value" strings into a field map, the
// shape both the REPL's add#/statechange# lines and the add/statechange
// subcommands' --field flags ultimately need.
func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, want key=value", p)
		}
		fields[k] = v
	}
	return fields, nil
}
