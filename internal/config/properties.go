// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// propertiesParser reads the legacy Hackystat sensorshell.properties flat
// file: one "key=value" pair per line, "#" or "!" starting a comment,
// blank lines ignored. Keys already use the dotted koanf path names
// (sensorshell.host, sensorshell.autosend.timeinterval, ...); the
// "sensorshell." prefix, if present, is stripped for compatibility with
// older property files that namespaced every key. Dotted keys are
// expanded into nested maps (autosend.maxbuffer becomes
// {"autosend": {"maxbuffer": ...}}) so they reach the matching struct
// fields.
type propertiesParser struct{}

func newPropertiesParser() propertiesParser {
	return propertiesParser{}
}

func (propertiesParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	scanner := bufio.NewScanner(bytes.NewReader(b))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "!") {
			continue
		}

		idx := strings.Index(text, "=")
		if idx < 0 {
			return nil, fmt.Errorf("properties line %d: missing '=': %q", line, text)
		}
		key := strings.TrimSpace(text[:idx])
		value := strings.TrimSpace(text[idx+1:])
		key = strings.TrimPrefix(key, "sensorshell.")
		if key == "" {
			return nil, fmt.Errorf("properties line %d: empty key", line)
		}
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := m[p].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				m[p] = child
			}
			m = child
		}
		m[parts[len(parts)-1]] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan properties: %w", err)
	}
	return out, nil
}

func (propertiesParser) Marshal(data map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	for k, v := range data {
		fmt.Fprintf(&buf, "%s=%v\n", k, v)
	}
	return buf.Bytes(), nil
}
