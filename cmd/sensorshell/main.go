// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command sensorshell is the CLI surface around the relay: one-shot
// subcommands for scripting, a line-oriented REPL for long-lived
// interactive sessions, and a daemon mode that also serves Prometheus
// metrics.
package main

import (
	"os"

	"github.com/hackystat-go/sensorshell/cmd/sensorshell/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
