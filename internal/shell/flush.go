// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"time"

	"github.com/hackystat-go/sensorshell/internal/metrics"
	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/statememo"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// errUnreachable classifies a flush that could not even attempt the PUT
// because the reachability probe reported the server down; it never
// escapes this package, but flush returns it to quit() so a final-flush
// failure can be distinguished from a successful drain.
var errUnreachable = errors.New("server unreachable")

// autoFlushService drives periodic flush() calls as a suture.Service,
// grounded on the teacher's WALRetryLoopService adaptation of a
// Start/ctx.Done()/Stop loop to suture's Serve contract.
type autoFlushService struct {
	shell    *SensorShell
	interval time.Duration
}

func (a *autoFlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.shell.flush(ctx); err != nil {
				a.shell.log.Warn().Err(err).Msg("autoflush tick did not complete")
			}
		}
	}
}

// flush implements the four-step algorithm: detach the buffer under
// lock and release the lock for the remainder, probe reachability,
// then attempt delivery. It never holds s.mu across the probe call or
// the PUT. flushMu ensures at most one flush is in flight per shell;
// no retry happens here, retry is the autoflush timer's job.
func (s *SensorShell) flush(ctx context.Context) (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if !s.probe.IsPingable(ctx, transport.PingTimeout) {
		s.log.Warn().Int("records", len(batch)).Msg("server unreachable, diverting batch")
		return s.divert(batch, errUnreachable)
	}

	putCtx, cancel := context.WithTimeout(ctx, s.putTimeout)
	defer cancel()
	if err := s.client.PutBatch(putCtx, batch); err != nil {
		s.log.Error().Err(err).Int("records", len(batch)).Msg("putBatch failed")
		metrics.RecordFlushFailure()
		return s.divert(batch, err)
	}

	s.mu.Lock()
	s.totalSent += len(batch)
	totalSent, startTime := s.totalSent, s.startTime
	s.mu.Unlock()

	if s.memo != nil {
		lc := statememo.Lifecycle{TotalSent: totalSent, StartTime: startTime}
		if err := s.memo.SaveLifecycle(s.name, lc); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist lifecycle sidecar")
		}
	}

	metrics.RecordSent(len(batch))
	return len(batch), nil
}

// divert spools or discards a batch the server did not acknowledge and
// returns (0, cause) so the caller knows this flush did not complete,
// even though the batch itself was not necessarily lost.
func (s *SensorShell) divert(batch model.Batch, cause error) (int, error) {
	if !s.cacheEnabled {
		s.log.Warn().Int("records", len(batch)).Msg("data lost: offline caching disabled")
		return 0, cause
	}

	if err := s.spool.Store(batch); err != nil {
		s.log.Error().Err(err).Int("records", len(batch)).Msg("spool write failed; batch lost")
		return 0, cause
	}

	if names, err := s.spool.List(); err == nil {
		metrics.SetSpoolFiles(len(names))
	}
	return 0, cause
}
