// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Flush the buffer now and print how many records the server acknowledged",
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(_ *cobra.Command, _ []string) error {
	sh, _, err := openShell()
	if err != nil {
		return err
	}
	defer sh.Quit(context.Background())

	n, err := sh.Send(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}
