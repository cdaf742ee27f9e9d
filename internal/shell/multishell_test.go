// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"go.uber.org/goleak"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/spool"
	"github.com/hackystat-go/sensorshell/internal/statememo"
	"github.com/hackystat-go/sensorshell/internal/transport"
)

// newFakeMultiShell assembles a MultiSensorShell out of SensorShells
// backed by fakes, bypassing NewMultiSensorShell's real transport/probe
// wiring so dispatch and aggregation logic can be tested without
// touching the network.
func newFakeMultiShell(t *testing.T, numShells, batchSize int, pingable bool) (*MultiSensorShell, []*fakeClient) {
	t.Helper()

	children := make([]*SensorShell, numShells)
	clients := make([]*fakeClient, numShells)
	for i := range children {
		clients[i] = &fakeClient{}
		s, err := NewSensorShell(testConfig(), Options{
			Name:   fmt.Sprintf("child-%d", i),
			Client: clients[i],
			Probe:  fakeProbe{pingable: pingable},
			Spool:  mustSpool(t),
			LogDir: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewSensorShell child %d: %v", i, err)
		}
		children[i] = s
	}

	m := &MultiSensorShell{
		children:  children,
		batchSize: batchSize,
		rng:       rand.New(rand.NewSource(1)),
	}
	t.Cleanup(func() {
		for _, c := range children {
			c.Quit(context.Background())
		}
	})
	return m, clients
}

func TestMultiShellDistribution(t *testing.T) {
	m, _ := newFakeMultiShell(t, 2, 3, true)

	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		if err := m.Add(ctx, sampleRecord("alice", "r")); err != nil {
			t.Fatalf("Add r%d: %v", i, err)
		}
	}

	counts := make([]int, len(m.children))
	for i, c := range m.children {
		c.mu.Lock()
		counts[i] = len(c.buffer)
		c.mu.Unlock()
	}

	// Per S6: numshells=2, batchsize=3, 10 adds -> child0={r1,r2,r3,r7,r8,r9} (6),
	// child1={r4,r5,r6,r10} (4).
	if counts[0] != 6 {
		t.Errorf("child 0 received %d records, want 6", counts[0])
	}
	if counts[1] != 4 {
		t.Errorf("child 1 received %d records, want 4", counts[1])
	}
}

func TestMultiShellDistributionBalancedOverManyFullRounds(t *testing.T) {
	const numShells, batchSize, rounds = 3, 5, 4
	m, _ := newFakeMultiShell(t, numShells, batchSize, true)

	ctx := context.Background()
	total := numShells * batchSize * rounds
	for i := 0; i < total; i++ {
		if err := m.Add(ctx, sampleRecord("alice", "r")); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	for i, c := range m.children {
		c.mu.Lock()
		n := len(c.buffer)
		c.mu.Unlock()
		if n != batchSize*rounds {
			t.Errorf("child %d received %d records, want %d", i, n, batchSize*rounds)
		}
	}
}

func TestMultiShellBatchSizeZeroPicksRandomly(t *testing.T) {
	m, _ := newFakeMultiShell(t, 4, 0, true)

	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		seen[m.nextChild()] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected batchsize=0 to spread across multiple children over 200 picks, saw %v", seen)
	}
}

func TestMultiShellPingDelegatesToChildZero(t *testing.T) {
	m, _ := newFakeMultiShell(t, 3, 1, false)

	if m.Ping(context.Background()) {
		t.Error("expected Ping to reflect child 0's unreachable probe")
	}
}

func TestMultiShellSendSumsChildren(t *testing.T) {
	m, clients := newFakeMultiShell(t, 2, 1, true)

	for i, c := range m.children {
		if err := c.Add(context.Background(), sampleRecord("alice", "r")); err != nil {
			t.Fatalf("child %d Add: %v", i, err)
		}
	}

	n, err := m.Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != len(m.children) {
		t.Errorf("Send = %d, want %d (one record per child)", n, len(m.children))
	}
	for i, c := range clients {
		if c.sentCount() != 1 {
			t.Errorf("child %d client received %d records, want 1", i, c.sentCount())
		}
	}
}

func TestNewMultiSensorShellBuildsConfiguredChildCount(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := multishellConfig(3, 2)
	dirs := Dirs{SpoolDir: t.TempDir(), LogDir: t.TempDir(), StateDir: t.TempDir()}

	memoStore, err := statememo.Open(dirs.StateDir)
	if err != nil {
		t.Fatalf("statememo.Open: %v", err)
	}
	// Not independently closed here: MultiSensorShell.Quit closes the
	// shared memo store it owns, so closing it again here would double-close.

	spoolStore, err := spool.New(dirs.SpoolDir)
	if err != nil {
		t.Fatalf("spool.New: %v", err)
	}

	client := transport.New(cfg.Host, cfg.User, cfg.Password, 0)

	m, err := NewMultiSensorShell(cfg, dirs, client, spoolStore, memoStore)
	if err != nil {
		t.Fatalf("NewMultiSensorShell: %v", err)
	}
	// Quitting immediately: the buffer is empty so the final flush never
	// touches the network, keeping this test offline-safe.
	defer m.Quit(context.Background())

	if len(m.children) != 3 {
		t.Errorf("expected 3 child shells, got %d", len(m.children))
	}
}

func multishellConfig(numShells, batchSize int) *config.Config {
	cfg := testConfig()
	cfg.Multishell = config.MultishellConfig{
		Enabled:   true,
		NumShells: numShells,
		BatchSize: batchSize,
		MaxBuffer: 100000,
		Autosend:  config.MultishellAutosendConfig{TimeInterval: 0},
	}
	return cfg
}
