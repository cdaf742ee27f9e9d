// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the relay's structured logging: a global
// zerolog sink configured once at startup, and a per-tool file sink
// satisfying the one-log-file-per-sensor-tool convention each shell
// instance relies on.
package logging
