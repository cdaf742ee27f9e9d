// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensorshell.yaml")
	yamlBody := "host: http://localhost:9876/\nuser: alice\npassword: secret\nautosend:\n  maxbuffer: 42\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv(LegacyPropertiesPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "http://localhost:9876/" {
		t.Errorf("expected host from file, got %q", cfg.Host)
	}
	if cfg.Autosend.MaxBuffer != 42 {
		t.Errorf("expected autosend.maxbuffer 42 from file, got %d", cfg.Autosend.MaxBuffer)
	}
	if cfg.Timeout != 10 {
		t.Errorf("expected default timeout 10, got %d", cfg.Timeout)
	}
}

func TestLoadFromLegacyPropertiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensorshell.properties")
	body := "# legacy config\nsensorshell.host=http://localhost:9876/\nsensorshell.user=bob\nsensorshell.password=hunter2\nautosend.maxbuffer=7\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write properties file: %v", err)
	}

	t.Setenv(LegacyPropertiesPathEnvVar, path)
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User != "bob" {
		t.Errorf("expected user bob, got %q", cfg.User)
	}
	if cfg.Autosend.MaxBuffer != 7 {
		t.Errorf("expected autosend.maxbuffer 7, got %d", cfg.Autosend.MaxBuffer)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensorshell.yaml")
	yamlBody := "host: http://localhost:9876/\nuser: alice\npassword: secret\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv(LegacyPropertiesPathEnvVar, "")
	t.Setenv("SENSORSHELL_USER", "carol")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.User != "carol" {
		t.Errorf("expected env override user carol, got %q", cfg.User)
	}
}

func TestLoadMissingRequiredFails(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv(LegacyPropertiesPathEnvVar, "")
	t.Setenv("SENSORSHELL_HOST", "")
	t.Setenv("SENSORSHELL_USER", "")
	t.Setenv("SENSORSHELL_PASSWORD", "")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing required keys")
	}
}

func TestPropertiesParserSkipsComments(t *testing.T) {
	p := newPropertiesParser()
	out, err := p.Unmarshal([]byte("# comment\n! also comment\n\nhost=http://x/\n"))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["host"] != "http://x/" {
		t.Errorf("expected host http://x/, got %v", out["host"])
	}
	if len(out) != 1 {
		t.Errorf("expected 1 key, got %d: %v", len(out), out)
	}
}

func TestPropertiesParserMissingEquals(t *testing.T) {
	p := newPropertiesParser()
	if _, err := p.Unmarshal([]byte("not-a-kv-pair")); err == nil {
		t.Error("expected error for malformed line")
	}
}
