// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dirs is the on-disk layout a SensorShell reads and writes: the offline
// spool, per-tool log files, and the durable state-memo/claim index.
type Dirs struct {
	SpoolDir string
	LogDir   string
	StateDir string
}

// DefaultDirs returns the layout rooted at <userHome>/.hackystat/sensorshell.
func DefaultDirs() (Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve user home directory: %w", err)
	}
	root := filepath.Join(home, ".hackystat", "sensorshell")
	return Dirs{
		SpoolDir: filepath.Join(root, "offline"),
		LogDir:   filepath.Join(root, "logs"),
		StateDir: filepath.Join(root, "state"),
	}, nil
}
