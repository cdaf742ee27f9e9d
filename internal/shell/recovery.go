// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"fmt"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/metrics"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// Recover replays every spooled batch against the server using a
// recovery helper shell — a SensorShell configured identically to opts
// except with caching and recovery disabled, a distinct log-tool name
// (opts.Name suffixed "-offline-recovery"), no autoflush timer, and no
// synchronous maxbuffer trigger, so exactly one Send() drains exactly
// one file's records. A file is deleted only once Send() acknowledges
// every record it held; a partial or failed send leaves it in place for
// a later attempt and never aborts the rest of the loop.
//
// When opts.Memo is set, each file is durably claimed via
// opts.Memo.TryClaim before processing and released afterward, so
// concurrent Recover calls sharing one spool directory and memo store
// (MultiSensorShell runs one per child at startup) never double-process
// the same file.
//
// Recover is a no-op if recovery is disabled in cfg, or if the
// reachability probe does not succeed at the moment it is called.
func Recover(ctx context.Context, cfg *config.Config, opts Options) (int, error) {
	if !cfg.Offline.Recovery.Enabled {
		return 0, nil
	}
	if !opts.Probe.IsPingable(ctx, transport.PingTimeout) {
		return 0, nil
	}

	names, err := opts.Spool.List()
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	helperCfg := *cfg
	helperCfg.Offline.Cache.Enabled = false
	helperCfg.Offline.Recovery.Enabled = false
	helperCfg.Autosend.MaxBuffer = 0
	helperCfg.Autosend.TimeInterval = 0
	helperCfg.Multishell.Enabled = false

	helperOpts := opts
	helperOpts.Name = opts.Name + "-offline-recovery"
	helperOpts.Memo = nil
	helperOpts.Supervisor = nil

	helper, err := NewSensorShell(&helperCfg, helperOpts)
	if err != nil {
		return 0, fmt.Errorf("construct recovery helper: %w", err)
	}

	recovered := 0
	for _, name := range names {
		func() {
			if opts.Memo != nil {
				claimed, claimErr := opts.Memo.TryClaim(name)
				if claimErr != nil {
					logging.Error().Err(claimErr).Str("file", name).Msg("recovery: failed to claim spool file, skipping this pass")
					return
				}
				if !claimed {
					return
				}
				defer func() {
					if relErr := opts.Memo.Release(name); relErr != nil {
						logging.Warn().Err(relErr).Str("file", name).Msg("recovery: failed to release spool file claim")
					}
				}()
			}

			batch, loadErr := opts.Spool.Load(name)
			if loadErr != nil {
				logging.Error().Err(loadErr).Str("file", name).Msg("recovery: failed to load spool file, leaving in place")
				return
			}

			queued := 0
			for _, r := range batch {
				if addErr := helper.Add(ctx, r); addErr != nil {
					logging.Error().Err(addErr).Str("file", name).Msg("recovery: failed to queue record")
					continue
				}
				queued++
			}

			n, _ := helper.Send(ctx)
			if n != len(batch) || queued != len(batch) {
				logging.Warn().Str("file", name).Int("sent", n).Int("want", len(batch)).Msg("recovery: partial send, leaving file in place")
				return
			}

			if delErr := opts.Spool.Delete(name); delErr != nil {
				logging.Error().Err(delErr).Str("file", name).Msg("recovery: failed to delete spool file after full acknowledgement")
				return
			}
			recovered += n
		}()
	}
	metrics.RecordRecovered(recovered)

	if quitErr := helper.Quit(ctx); quitErr != nil {
		logging.Warn().Err(quitErr).Msg("recovery helper quit reported an error")
	}

	return recovered, nil
}
