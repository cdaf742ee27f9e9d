// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"

	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

var errConfig = shellerr.ErrConfig

// Validate checks that the required keys are present and repairs
// optional keys that fail their lower-bound check by logging and
// substituting the documented default, per the construction contract:
// required keys absent is fatal, optional keys out of range are not.
func (c *Config) Validate() error {
	if err := c.validateRequired(); err != nil {
		return err
	}
	c.normalizeHost()
	c.repairBounds()
	return nil
}

func (c *Config) validateRequired() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required key(s): %s", errConfig, strings.Join(missing, ", "))
	}
	return nil
}

// normalizeHost enforces the trailing-slash convention the ServerClient
// relies on when joining resource paths.
func (c *Config) normalizeHost() {
	if !strings.HasSuffix(c.Host, "/") {
		c.Host += "/"
	}
}

// repairBounds replaces any optional numeric field below its lower bound
// with the documented default, logging the substitution rather than
// failing construction.
func (c *Config) repairBounds() {
	d := defaultConfig()

	if c.Timeout < 1 {
		logging.Warn().Int("value", c.Timeout).Int("default", d.Timeout).Msg("timeout below lower bound, using default")
		c.Timeout = d.Timeout
	}
	if c.Autosend.TimeInterval <= 0 {
		logging.Warn().Float64("value", c.Autosend.TimeInterval).Msg("autosend.timeinterval below lower bound, using default")
		c.Autosend.TimeInterval = d.Autosend.TimeInterval
	}
	if c.Autosend.MaxBuffer < 0 {
		logging.Warn().Int("value", c.Autosend.MaxBuffer).Msg("autosend.maxbuffer below lower bound, using default")
		c.Autosend.MaxBuffer = d.Autosend.MaxBuffer
	}
	if c.StateChange.Interval < 1 {
		logging.Warn().Int("value", c.StateChange.Interval).Msg("statechange.interval below lower bound, using default")
		c.StateChange.Interval = d.StateChange.Interval
	}
	if c.Multishell.NumShells < 1 {
		logging.Warn().Int("value", c.Multishell.NumShells).Msg("multishell.numshells below lower bound, using default")
		c.Multishell.NumShells = d.Multishell.NumShells
	}
	if c.Multishell.BatchSize < 0 {
		logging.Warn().Int("value", c.Multishell.BatchSize).Msg("multishell.batchsize below lower bound, using default")
		c.Multishell.BatchSize = d.Multishell.BatchSize
	}
	if c.Multishell.MaxBuffer < 0 {
		logging.Warn().Int("value", c.Multishell.MaxBuffer).Msg("multishell.maxbuffer below lower bound, using default")
		c.Multishell.MaxBuffer = d.Multishell.MaxBuffer
	}
	if c.Multishell.Autosend.TimeInterval <= 0 {
		logging.Warn().Float64("value", c.Multishell.Autosend.TimeInterval).Msg("multishell.autosend.timeinterval below lower bound, using default")
		c.Multishell.Autosend.TimeInterval = d.Multishell.Autosend.TimeInterval
	}
	if !validLogLevels[strings.ToUpper(c.Logging.Level)] {
		logging.Warn().Str("value", c.Logging.Level).Msg("logging.level unrecognized, using default")
		c.Logging.Level = d.Logging.Level
	}
}

var validLogLevels = map[string]bool{
	"TRACE": true,
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}
