// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
	"github.com/hackystat-go/sensorshell/internal/spool"
	"github.com/hackystat-go/sensorshell/internal/statememo"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// minAutoFlushInterval is the spec's 0.01-minute cutoff below which the
// autoflush timer is disabled rather than scheduled with a near-zero
// period.
const minAutoFlushInterval = 600 * time.Millisecond

type lifecycle int32

const (
	lifecycleRunning lifecycle = iota
	lifecycleTerminating
	lifecycleTerminated
)

// httpClient is the subset of transport.ServerClient the shell depends
// on, kept narrow so tests can substitute a fake rather than dial real
// HTTP.
type httpClient interface {
	PutBatch(ctx context.Context, batch model.Batch) error
}

// reachability is the subset of probe.Probe the shell depends on.
type reachability interface {
	IsPingable(ctx context.Context, timeout time.Duration) bool
}

// Options bundles a SensorShell's collaborators, so the façade, the
// multishell dispatcher, and the recovery path can all construct shells
// that share a client, probe, spool, or memo store as appropriate.
type Options struct {
	// Name identifies the shell for its log file (<LogDir>/<Name>.log)
	// and as the key under which its StateChange memo is persisted.
	Name string

	Client httpClient
	Probe  reachability
	Spool  *spool.Store
	// Memo is optional; a nil Memo means the shell keeps its StateChange
	// memo in-process only (used by the recovery helper, which never
	// calls StateChange).
	Memo *statememo.Store

	LogDir string

	// Supervisor, if set, is the suture.Supervisor the autoflush service
	// is registered under instead of a private one created and served
	// by this constructor. MultiSensorShell supplies this so every
	// child's ticker lives in one supervisor tree; the single-shell
	// façade leaves it nil.
	Supervisor *suture.Supervisor
}

// SensorShell is a single buffered, auto-flushing transmission pipeline
// to one server (the heart of the relay). Exactly one mutex guards its
// buffer, counters, and StateChange memo; the HTTP call inside flush
// never runs while that mutex is held.
type SensorShell struct {
	name  string
	owner string

	client httpClient
	probe  reachability
	spool  *spool.Store
	memo   *statememo.Store

	cacheEnabled bool
	putTimeout   time.Duration
	maxBuffer    int

	log      zerolog.Logger
	closeLog func() error

	mu        sync.Mutex
	buffer    model.Batch
	state     statememo.State
	totalSent int
	startTime time.Time
	lifecycle lifecycle

	// ownsMemo is true for a shell that should close its statememo.Store
	// on Quit: the single-shell façade case. A MultiSensorShell child
	// shares one Store across siblings, so its owner (MultiSensorShell)
	// closes it once after every child has quit instead.
	ownsMemo bool

	// flushMu serializes flush() invocations so at most one is in
	// flight per shell, whether triggered by add()'s maxbuffer check,
	// an explicit Send(), the autoflush tick, or quit()'s final drain.
	flushMu sync.Mutex

	sup    *suture.Supervisor
	cancel context.CancelFunc
	done   <-chan error
}

// NewSensorShell constructs a running shell: it loads any persisted
// StateChange memo, starts (or joins) the autoflush ticker, and leaves
// the shell in the Running state. It does not perform startup recovery;
// call Recover separately once the primary shell exists.
func NewSensorShell(cfg *config.Config, opts Options) (*SensorShell, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: shell name is required", shellerr.ErrConfig)
	}

	toolLog, closeLog, err := logging.ForTool(opts.LogDir, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shellerr.ErrConfig, err)
	}

	s := &SensorShell{
		name:         opts.Name,
		owner:        cfg.User,
		client:       opts.Client,
		probe:        opts.Probe,
		spool:        opts.Spool,
		memo:         opts.Memo,
		cacheEnabled: cfg.Offline.Cache.Enabled,
		putTimeout:   time.Duration(cfg.Timeout) * time.Second,
		maxBuffer:    cfg.AutosendMaxBuffer(),
		log:          toolLog,
		closeLog:     closeLog,
		lifecycle:    lifecycleRunning,
		ownsMemo:     opts.Memo != nil && opts.Supervisor == nil,
	}

	if opts.Memo != nil {
		st, loadErr := opts.Memo.Load(opts.Name)
		if loadErr != nil {
			_ = closeLog()
			return nil, loadErr
		}
		s.state = st

		lc, lcErr := opts.Memo.LoadLifecycle(opts.Name)
		if lcErr != nil {
			_ = closeLog()
			return nil, lcErr
		}
		s.totalSent = lc.TotalSent
		s.startTime = lc.StartTime
	}
	if s.startTime.IsZero() {
		s.startTime = time.Now()
	}

	interval := cfg.AutosendInterval()
	if interval < minAutoFlushInterval {
		s.log.Info().Dur("requested_interval", interval).Msg("autosend interval below 0.01 minutes, autoflush timer disabled")
		return s, nil
	}

	svc := &autoFlushService{shell: s, interval: interval}
	if opts.Supervisor != nil {
		opts.Supervisor.Add(svc)
		return s, nil
	}

	sup := suture.New(opts.Name, suture.Spec{})
	sup.Add(svc)
	ctx, cancel := context.WithCancel(context.Background())
	s.sup = sup
	s.cancel = cancel
	s.done = sup.ServeBackground(ctx)

	return s, nil
}

// Add validates r and appends it to the buffer, then synchronously
// flushes before returning if the buffer has just reached the configured
// maxbuffer trigger (a maxbuffer of 0 disables this trigger entirely).
func (s *SensorShell) Add(ctx context.Context, r model.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.lifecycle != lifecycleRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: add", shellerr.ErrShellClosed)
	}
	s.buffer = append(s.buffer, r)
	trigger := s.maxBuffer > 0 && len(s.buffer) >= s.maxBuffer
	s.mu.Unlock()

	if trigger {
		s.flush(ctx)
	}
	return nil
}

// AddFields builds a Record from fields, defaulting owner to the
// configured user and tool to "unknown", and delegates to Add.
func (s *SensorShell) AddFields(ctx context.Context, fields map[string]string) error {
	r, err := model.FromFields(fields, s.owner)
	if err != nil {
		return err
	}
	return s.Add(ctx, r)
}

// StateChange compares (fields["resource"], checksum) against the
// persisted memo, calling AddFields only when either component differs,
// and unconditionally overwrites the memo with the new pair.
func (s *SensorShell) StateChange(ctx context.Context, checksum int64, fields map[string]string) error {
	resource := fields["resource"]

	s.mu.Lock()
	changed := resource != s.state.LastResource || checksum != s.state.LastChecksum
	s.state = statememo.State{LastResource: resource, LastChecksum: checksum}
	newState := s.state
	s.mu.Unlock()

	if s.memo != nil {
		if err := s.memo.Save(s.name, newState); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist statechange memo")
		}
	}

	if changed {
		return s.AddFields(ctx, fields)
	}
	return nil
}

// Send performs a synchronous flush and returns the number of records
// the server acknowledged during this call.
func (s *SensorShell) Send(ctx context.Context) (int, error) {
	s.mu.Lock()
	closed := s.lifecycle != lifecycleRunning
	s.mu.Unlock()
	if closed {
		return 0, fmt.Errorf("%w: send", shellerr.ErrShellClosed)
	}

	n, _ := s.flush(ctx)
	return n, nil
}

// Ping reports whether the server is reachable with the configured
// credentials, bounded by the reachability probe's wall-clock timeout.
func (s *SensorShell) Ping(ctx context.Context) bool {
	return s.probe.IsPingable(ctx, transport.PingTimeout)
}

// Quit stops the autoflush timer, performs one final flush, closes the
// shell's log file, and marks it Terminated. A failure of the final
// flush is logged and does not prevent teardown from completing, but is
// reported back to the caller wrapped in shellerr.ErrShell.
func (s *SensorShell) Quit(ctx context.Context) error {
	s.mu.Lock()
	if s.lifecycle != lifecycleRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: quit", shellerr.ErrShellClosed)
	}
	s.lifecycle = lifecycleTerminating
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	_, flushErr := s.flush(ctx)

	var quitErr error
	if flushErr != nil {
		s.log.Error().Err(flushErr).Msg("final flush did not complete before quit")
		quitErr = fmt.Errorf("%w: %v", shellerr.ErrShell, flushErr)
	}

	if err := s.closeLog(); err != nil && quitErr == nil {
		quitErr = fmt.Errorf("%w: close log: %v", shellerr.ErrShell, err)
	}

	if s.ownsMemo {
		if err := s.memo.Close(); err != nil && quitErr == nil {
			quitErr = fmt.Errorf("%w: close statememo: %v", shellerr.ErrShell, err)
		}
	}

	s.mu.Lock()
	s.lifecycle = lifecycleTerminated
	s.mu.Unlock()

	return quitErr
}

// TotalSent returns the number of records the server has acknowledged
// across the shell's lifetime so far. When a memo store is present this
// survives process restarts, so it reflects records sent by every
// process that has run under this shell name, not just the current one.
func (s *SensorShell) TotalSent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSent
}

// StartTime returns the earliest recorded start time for this shell
// name: the current process's start unless a prior process already
// persisted an earlier one.
func (s *SensorShell) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}
