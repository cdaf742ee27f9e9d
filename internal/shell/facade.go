// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"time"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/probe"
	"github.com/hackystat-go/sensorshell/internal/spool"
	"github.com/hackystat-go/sensorshell/internal/statememo"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// Shell is the operation surface every sensor is expected to use,
// satisfied by both SensorShell and MultiSensorShell. New is the only
// construction path sensors should call.
type Shell interface {
	Add(ctx context.Context, r model.Record) error
	AddFields(ctx context.Context, fields map[string]string) error
	StateChange(ctx context.Context, checksum int64, fields map[string]string) error
	Send(ctx context.Context) (int, error)
	Ping(ctx context.Context) bool
	Quit(ctx context.Context) error
}

// New validates cfg, builds either a SensorShell or a MultiSensorShell
// depending on cfg.Multishell.Enabled, and runs startup recovery if
// cfg.Offline.Recovery.Enabled and the server is reachable.
// MultiSensorShell runs one Recover pass per child concurrently,
// coordinated by the shared memo store's claim index (see
// NewMultiSensorShell); the single-shell path below runs one pass
// directly against the shell it just constructed.
func New(cfg *config.Config, dirs Dirs) (Shell, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	memoStore, err := statememo.Open(dirs.StateDir)
	if err != nil {
		return nil, err
	}

	spoolStore, err := spool.New(dirs.SpoolDir)
	if err != nil {
		return nil, err
	}

	client := transport.New(cfg.Host, cfg.User, cfg.Password, time.Duration(cfg.Timeout)*time.Second)

	if cfg.Multishell.Enabled {
		return NewMultiSensorShell(cfg, dirs, client, spoolStore, memoStore)
	}

	opts := Options{
		Name:   "sensorshell",
		Client: client,
		Probe:  probe.New(client, "sensorshell"),
		Spool:  spoolStore,
		Memo:   memoStore,
		LogDir: dirs.LogDir,
	}

	s, err := NewSensorShell(cfg, opts)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if _, recErr := Recover(ctx, cfg, opts); recErr != nil {
		s.log.Warn().Err(recErr).Msg("startup recovery did not complete")
	}

	return s, nil
}
