// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell implements the transmission engine: SensorShell (a
// buffered, auto-flushing, spool-backed pipeline to one server) and
// MultiSensorShell (a round-robin fan-out over several SensorShells).
// The Shell interface and New are the only construction path sensors
// should use; New picks a SensorShell or a MultiSensorShell based on
// Config.Multishell.Enabled.
//
// Each SensorShell's autoflush ticker runs as a github.com/thejerf/suture/v4
// service under a private one-shell supervisor, grounded on the teacher's
// internal/supervisor/tree.go. MultiSensorShell nests one child supervisor
// per shell under its own root supervisor the same way SupervisorTree
// nests data/messaging/api layers under its root.
package shell
