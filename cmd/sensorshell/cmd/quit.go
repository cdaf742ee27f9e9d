// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Run startup recovery, then flush and close immediately (useful from a shutdown hook)",
	RunE:  runQuit,
}

func init() {
	rootCmd.AddCommand(quitCmd)
}

func runQuit(_ *cobra.Command, _ []string) error {
	sh, _, err := openShell()
	if err != nil {
		return err
	}

	if err := sh.Quit(context.Background()); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
