// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the search path for a YAML config file.
const ConfigPathEnvVar = "SENSORSHELL_CONFIG"

// LegacyPropertiesPathEnvVar overrides the search path for the legacy
// sensorshell.properties flat file Hackystat clients historically shipped.
const LegacyPropertiesPathEnvVar = "SENSORSHELL_PROPERTIES"

// DefaultConfigPaths lists YAML config locations searched in priority
// order; the first one found is used.
var DefaultConfigPaths = []string{
	"sensorshell.yaml",
	"sensorshell.yml",
	os.ExpandEnv("$HOME/.sensorshell/sensorshell.yaml"),
}

// DefaultPropertiesPaths lists legacy flat-file config locations.
var DefaultPropertiesPaths = []string{
	"sensorshell.properties",
	os.ExpandEnv("$HOME/.sensorshell/sensorshell.properties"),
}

// Load builds a Config from four layered sources, lowest precedence
// first: built-in defaults, an optional legacy .properties file, an
// optional YAML file, then environment variables. Each layer overrides
// the keys it sets; a later layer that omits a key leaves the earlier
// value in place.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: load defaults: %v", errConfig, err)
	}

	if path := findFile(LegacyPropertiesPathEnvVar, DefaultPropertiesPaths); path != "" {
		if err := k.Load(file.Provider(path), newPropertiesParser()); err != nil {
			return nil, fmt.Errorf("%w: load properties file %s: %v", errConfig, path, err)
		}
	}

	if path := findFile(ConfigPathEnvVar, DefaultConfigPaths); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: load config file %s: %v", errConfig, path, err)
		}
	}

	envProvider := env.Provider("SENSORSHELL_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: load environment: %v", errConfig, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", errConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile(envVar string, candidates []string) string {
	if p := os.Getenv(envVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps SENSORSHELL_HOST, SENSORSHELL_AUTOSEND_MAXBUFFER,
// etc. to the struct's dotted koanf paths. env.Provider passes the full
// variable name, so the SENSORSHELL_ prefix is stripped here before the
// lookup in envMappings.
func envTransformFunc(key string) string {
	mapped, ok := envMappings[strings.TrimPrefix(key, "SENSORSHELL_")]
	if !ok {
		return ""
	}
	return mapped
}

var envMappings = map[string]string{
	"HOST":                             "host",
	"USER":                             "user",
	"PASSWORD":                         "password",
	"TIMEOUT":                          "timeout",
	"AUTOSEND_TIMEINTERVAL":            "autosend.timeinterval",
	"AUTOSEND_MAXBUFFER":               "autosend.maxbuffer",
	"OFFLINE_CACHE_ENABLED":            "offline.cache.enabled",
	"OFFLINE_RECOVERY_ENABLED":         "offline.recovery.enabled",
	"STATECHANGE_INTERVAL":             "statechange.interval",
	"MULTISHELL_ENABLED":               "multishell.enabled",
	"MULTISHELL_NUMSHELLS":             "multishell.numshells",
	"MULTISHELL_BATCHSIZE":             "multishell.batchsize",
	"MULTISHELL_MAXBUFFER":             "multishell.maxbuffer",
	"MULTISHELL_AUTOSEND_TIMEINTERVAL": "multishell.autosend.timeinterval",
	"LOGGING_LEVEL":                    "logging.level",
}
