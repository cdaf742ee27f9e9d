// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Report whether the configured server is reachable",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(_ *cobra.Command, _ []string) error {
	sh, _, err := openShell()
	if err != nil {
		return err
	}
	defer sh.Quit(context.Background())

	if sh.Ping(context.Background()) {
		fmt.Println("reachable")
		return nil
	}
	fmt.Println("unreachable")
	return errors.New("server unreachable")
}
