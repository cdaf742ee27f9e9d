// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hackystat-go/sensorshell/internal/config"
	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
	"github.com/hackystat-go/sensorshell/internal/spool"
)

func facadeConfig(t *testing.T, host string) *config.Config {
	t.Helper()
	cfg := testConfig()
	cfg.Host = host
	cfg.User = "alice"
	cfg.Password = "secret"
	return cfg
}

func facadeDirs(t *testing.T) Dirs {
	t.Helper()
	return Dirs{SpoolDir: t.TempDir(), LogDir: t.TempDir(), StateDir: t.TempDir()}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{} // missing host/user/password
	_, err := New(cfg, facadeDirs(t))
	if !errors.Is(err, shellerr.ErrConfig) {
		t.Fatalf("New(invalid config) = %v, want ErrConfig", err)
	}
}

func TestNewSingleShellHappyPath(t *testing.T) {
	var putCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/alice":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/sensordata" && r.Method == http.MethodPut:
			putCount++
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := facadeConfig(t, srv.URL)
	sh, err := New(cfg, facadeDirs(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sh.Quit(context.Background())

	if _, ok := sh.(*SensorShell); !ok {
		t.Fatalf("New() with Multishell disabled returned %T, want *SensorShell", sh)
	}

	if err := sh.Add(context.Background(), sampleRecord("alice", "file:///Foo.java")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	n, err := sh.Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != 1 {
		t.Errorf("Send = %d, want 1", n)
	}
	if putCount != 1 {
		t.Errorf("server saw %d PUTs, want 1", putCount)
	}
}

func TestNewMultishellSelectsMultiSensorShell(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := facadeConfig(t, srv.URL)
	cfg.Multishell.Enabled = true
	cfg.Multishell.NumShells = 2

	sh, err := New(cfg, facadeDirs(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sh.Quit(context.Background())

	if _, ok := sh.(*MultiSensorShell); !ok {
		t.Fatalf("New() with Multishell enabled returned %T, want *MultiSensorShell", sh)
	}
}

// TestNewRunsStartupRecoveryForSingleShell covers S2: a batch spooled
// while offline is replayed against the server the moment a reachable
// single shell is constructed through New.
func TestNewRunsStartupRecoveryForSingleShell(t *testing.T) {
	var putCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/alice":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/sensordata" && r.Method == http.MethodPut:
			putCount++
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dirs := facadeDirs(t)

	// Pre-populate the spool as if a prior offline run had left a batch
	// behind.
	preexisting, err := spool.New(dirs.SpoolDir)
	if err != nil {
		t.Fatalf("spool.New: %v", err)
	}
	batch := model.Batch{sampleRecord("alice", "a"), sampleRecord("alice", "b")}
	if err := preexisting.Store(batch); err != nil {
		t.Fatalf("Store: %v", err)
	}

	cfg := facadeConfig(t, srv.URL)
	cfg.Offline.Recovery.Enabled = true

	sh, err := New(cfg, dirs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sh.Quit(context.Background())

	if putCount != 1 {
		t.Errorf("expected startup recovery to PUT the spooled batch once, saw %d PUTs", putCount)
	}

	names, err := preexisting.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected the spool file to be gone after full recovery, got %v", names)
	}
}
