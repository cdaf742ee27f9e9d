// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var addFields []string

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue one sensor data record (repeat --field key=value for each field)",
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringArrayVarP(&addFields, "field", "f", nil, "a key=value field pair, repeatable")
	rootCmd.AddCommand(addCmd)
}

func runAdd(_ *cobra.Command, _ []string) error {
	fields, err := parseFields(addFields)
	if err != nil {
		return err
	}

	sh, _, err := openShell()
	if err != nil {
		return err
	}
	defer sh.Quit(context.Background())

	if err := sh.AddFields(context.Background(), fields); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
