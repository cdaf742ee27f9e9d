// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	toolMu    sync.Mutex
	toolFiles = map[string]*os.File{}
)

// ForTool opens (or reuses) <logDir>/<tool>.log in append mode and returns a
// logger that writes to that file only, tagged with the tool's name; its
// messages are not copied to the global sink. Records are newline-delimited
// JSON, one message per line.
//
// The returned closer must be called when the owning shell quits; it closes
// the underlying file handle and forgets it so a later ForTool call with the
// same name reopens cleanly.
func ForTool(logDir, tool string) (zerolog.Logger, func() error, error) {
	toolMu.Lock()
	defer toolMu.Unlock()

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	path := filepath.Join(logDir, tool+".log")
	f, ok := toolFiles[path]
	if !ok {
		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		toolFiles[path] = f
	}

	logger := zerolog.New(f).With().Timestamp().Str("tool", tool).Logger()

	closeFn := func() error {
		toolMu.Lock()
		defer toolMu.Unlock()
		delete(toolFiles, path)
		return f.Close()
	}

	return logger, closeFn, nil
}
