// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GenerateCorrelationID creates a short unique ID for tagging a recovery run
// or a single flush attempt across its log lines.
//
//	id := logging.GenerateCorrelationID()
//	logging.WithComponent("recovery").Str("run_id", id).Msg("starting replay")
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// WithComponent creates a child logger tagged with a component field.
//
//	shellLog := logging.WithComponent("shell")
//	shellLog.Info().Str("tool", tool).Msg("flush succeeded")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
