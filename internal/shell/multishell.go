// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/probe"
	"github.com/hackystat-go/sensorshell/internal/spool"
	"github.com/hackystat-go/sensorshell/internal/statememo"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// MultiSensorShell fans Add calls out round-robin across numShells child
// SensorShells sharing one Config with the multishell overrides applied,
// increasing throughput by keeping more than one PUT in flight at a
// time. Grounded on the teacher's SupervisorTree: one child supervisor
// per shell, nested under a root supervisor built with a sutureslog
// event hook the same way the teacher wires data/messaging/api layers
// under its root.
type MultiSensorShell struct {
	children  []*SensorShell
	batchSize int
	memo      *statememo.Store

	// mu guards batchCounter and current, the dispatcher's own state,
	// independent of any one child's mutex.
	mu           sync.Mutex
	batchCounter int
	current      int
	rng          *rand.Rand

	sup    *suture.Supervisor
	cancel context.CancelFunc
	done   <-chan error
}

// NewMultiSensorShell constructs cfg.Multishell.NumShells child shells
// (minimum 1), starts their autoflush tickers under one supervisor tree,
// and — if cfg.Offline.Recovery.Enabled — runs one Recover pass per
// child concurrently. All children share one spool directory and memo
// store, so each Recover pass claims a file via the store before
// replaying it (see Recover), making the concurrent passes safe.
func NewMultiSensorShell(cfg *config.Config, dirs Dirs, client *transport.ServerClient, spoolStore *spool.Store, memoStore *statememo.Store) (*MultiSensorShell, error) {
	n := cfg.Multishell.NumShells
	if n < 1 {
		n = 1
	}

	handler := &sutureslog.Handler{Logger: slog.Default()}
	root := suture.New("sensorshell-multishell", suture.Spec{EventHook: handler.MustHook()})

	children := make([]*SensorShell, 0, n)
	var recoverWG sync.WaitGroup
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("sensorshell-%d", i)

		childSup := suture.New(name, suture.Spec{})
		root.Add(childSup)

		childOpts := Options{
			Name:       name,
			Client:     client,
			Probe:      probe.New(client, name),
			Spool:      spoolStore,
			Memo:       memoStore,
			LogDir:     dirs.LogDir,
			Supervisor: childSup,
		}
		child, err := NewSensorShell(cfg, childOpts)
		if err != nil {
			return nil, fmt.Errorf("construct child shell %d: %w", i, err)
		}
		children = append(children, child)

		recoverWG.Add(1)
		go func(opts Options) {
			defer recoverWG.Done()
			if _, err := Recover(context.Background(), cfg, opts); err != nil {
				logging.Warn().Err(err).Str("shell", opts.Name).Msg("startup recovery did not complete")
			}
		}(childOpts)
	}
	recoverWG.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	done := root.ServeBackground(ctx)

	return &MultiSensorShell{
		children:  children,
		batchSize: cfg.Multishell.BatchSize,
		memo:      memoStore,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sup:       root,
		cancel:    cancel,
		done:      done,
	}, nil
}

// nextChild routes the current call to a child and advances the
// dispatcher state for the next one. With batchSize == 0, a child is
// picked uniformly at random per call (documented as a worse throughput
// strategy, retained for A/B comparison). Otherwise it routes to the
// current child, then rolls over to the next child once batchSize calls
// have been routed to the current one — producing runs of exactly
// batchSize consecutive records per child.
func (m *MultiSensorShell) nextChild() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchSize == 0 {
		return m.rng.Intn(len(m.children))
	}

	i := m.current
	m.batchCounter++
	if m.batchCounter == m.batchSize {
		m.batchCounter = 0
		m.current = (m.current + 1) % len(m.children)
	}
	return i
}

// Add routes r to the next child per the selection policy.
func (m *MultiSensorShell) Add(ctx context.Context, r model.Record) error {
	return m.children[m.nextChild()].Add(ctx, r)
}

// AddFields routes fields to the next child per the selection policy.
func (m *MultiSensorShell) AddFields(ctx context.Context, fields map[string]string) error {
	return m.children[m.nextChild()].AddFields(ctx, fields)
}

// StateChange routes the call to the next child per the selection
// policy; each child's StateChange memo is independent, so dispatching
// the same logical resource to different children across calls can
// suppress deduplication — a known quirk of naive round robin, not
// corrected here.
func (m *MultiSensorShell) StateChange(ctx context.Context, checksum int64, fields map[string]string) error {
	return m.children[m.nextChild()].StateChange(ctx, checksum, fields)
}

// Send flushes every child concurrently and returns the sum of records
// acknowledged, so no single slow child blocks the others' HTTP calls.
func (m *MultiSensorShell) Send(ctx context.Context) (int, error) {
	type result struct {
		n   int
		err error
	}
	results := make([]result, len(m.children))

	var wg sync.WaitGroup
	for i, child := range m.children {
		wg.Add(1)
		go func(i int, child *SensorShell) {
			defer wg.Done()
			n, err := child.Send(ctx)
			results[i] = result{n: n, err: err}
		}(i, child)
	}
	wg.Wait()

	total := 0
	var errs []error
	for _, r := range results {
		total += r.n
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return total, errors.Join(errs...)
}

// Ping delegates to child 0.
func (m *MultiSensorShell) Ping(ctx context.Context) bool {
	return m.children[0].Ping(ctx)
}

// Quit stops the entire supervisor tree (halting every child's
// autoflush ticker at once), then quits each child so it performs its
// final flush and closes its log. A failure quitting one child does not
// prevent the others from being quit; all errors are collected.
func (m *MultiSensorShell) Quit(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	var errs []error
	for _, child := range m.children {
		if err := child.Quit(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if m.memo != nil {
		if err := m.memo.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
