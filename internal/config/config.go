// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates the shell's configuration, layering
// built-in defaults, a legacy flat properties file, an optional YAML file,
// and environment variables with koanf the way the teacher's internal/config
// package does.
package config

import "time"

// Config holds everything a SensorShell or MultiSensorShell needs to run.
// Host, User and Password have no usable default and must be supplied by
// the caller; every other field falls back to defaultConfig() values.
type Config struct {
	Host     string `koanf:"host"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Timeout int `koanf:"timeout"`

	Autosend    AutosendConfig    `koanf:"autosend"`
	Offline     OfflineConfig     `koanf:"offline"`
	StateChange StateChangeConfig `koanf:"statechange"`
	Multishell  MultishellConfig  `koanf:"multishell"`
	Logging     LoggingConfig     `koanf:"logging"`
}

type AutosendConfig struct {
	TimeInterval float64 `koanf:"timeinterval"`
	MaxBuffer    int     `koanf:"maxbuffer"`
}

type OfflineConfig struct {
	Cache    CacheConfig    `koanf:"cache"`
	Recovery RecoveryConfig `koanf:"recovery"`
}

type CacheConfig struct {
	Enabled bool `koanf:"enabled"`
}

type RecoveryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type StateChangeConfig struct {
	Interval int `koanf:"interval"`
}

type MultishellConfig struct {
	Enabled   bool                      `koanf:"enabled"`
	NumShells int                       `koanf:"numshells"`
	BatchSize int                       `koanf:"batchsize"`
	MaxBuffer int                       `koanf:"maxbuffer"`
	Autosend  MultishellAutosendConfig  `koanf:"autosend"`
}

type MultishellAutosendConfig struct {
	TimeInterval float64 `koanf:"timeinterval"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// AutosendInterval returns the effective autoflush period, accounting for
// the multishell override described by the per-shell timeinterval rule.
func (c *Config) AutosendInterval() time.Duration {
	if c.Multishell.Enabled {
		return time.Duration(c.Multishell.Autosend.TimeInterval * float64(time.Minute))
	}
	return time.Duration(c.Autosend.TimeInterval * float64(time.Minute))
}

// AutosendMaxBuffer returns the effective per-shell buffer trigger,
// accounting for the multishell override.
func (c *Config) AutosendMaxBuffer() int {
	if c.Multishell.Enabled {
		return c.Multishell.MaxBuffer
	}
	return c.Autosend.MaxBuffer
}

// PingTimeout is hardcoded and never overridden by Timeout, matching the
// ServerClient.ping() contract.
const PingTimeout = 5 * time.Second

// defaultConfig returns a Config with every optional field at its
// documented default; Host/User/Password are left empty and must be
// supplied by a higher layer before Validate() is called.
func defaultConfig() *Config {
	return &Config{
		Timeout: 10,
		Autosend: AutosendConfig{
			TimeInterval: 1.0,
			MaxBuffer:    250,
		},
		Offline: OfflineConfig{
			Cache:    CacheConfig{Enabled: true},
			Recovery: RecoveryConfig{Enabled: true},
		},
		StateChange: StateChangeConfig{
			Interval: 30,
		},
		Multishell: MultishellConfig{
			Enabled:   false,
			NumShells: 10,
			BatchSize: 499,
			MaxBuffer: 500,
			Autosend:  MultishellAutosendConfig{TimeInterval: 0.05},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}
