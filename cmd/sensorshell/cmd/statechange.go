// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stateChangeChecksum int64
	stateChangeFields   []string
)

var statechangeCmd = &cobra.Command{
	Use:   "statechange",
	Short: "Record a state transition, adding only if (resource, checksum) differs from the persisted memo",
	RunE:  runStatechange,
}

func init() {
	statechangeCmd.Flags().Int64Var(&stateChangeChecksum, "checksum", 0, "checksum of the resource's new state")
	statechangeCmd.Flags().StringArrayVarP(&stateChangeFields, "field", "f", nil, "a key=value field pair, repeatable; include resource=<path>")
	rootCmd.AddCommand(statechangeCmd)
}

func runStatechange(_ *cobra.Command, _ []string) error {
	fields, err := parseFields(stateChangeFields)
	if err != nil {
		return err
	}

	sh, _, err := openShell()
	if err != nil {
		return err
	}
	defer sh.Quit(context.Background())

	if err := sh.StateChange(context.Background(), stateChangeChecksum, fields); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
