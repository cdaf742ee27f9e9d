// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

func TestPingSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "alice", "secret", time.Second)
	if !c.Ping(context.Background()) {
		t.Error("expected Ping to return true")
	}
}

func TestPingFailureUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:0/", "alice", "secret", time.Second)
	if c.Ping(context.Background()) {
		t.Error("expected Ping to return false for unreachable host")
	}
}

func TestIsRegisteredTrue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/users/alice" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "alice", "secret", time.Second)
	ok, err := c.IsRegistered(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected registered=true")
	}
}

func TestIsRegisteredFalseOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "alice", "wrong", time.Second)
	ok, err := c.IsRegistered(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected registered=false")
	}
}

func TestPutBatchSuccess(t *testing.T) {
	var gotAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		gotAuth = ok && user == "alice" && pass == "secret"
		if r.Method != http.MethodPut || r.URL.Path != "/sensordata" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "alice", "secret", time.Second)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := model.Batch{{
		Timestamp: ts, Runtime: ts, Owner: "alice", Tool: "Eclipse",
		SensorDataType: "DevEvent", Resource: "file:///tmp/Foo.java",
	}}

	if err := c.PutBatch(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotAuth {
		t.Error("expected basic auth header")
	}
}

func TestPutBatchClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, shellerr.ErrAuth},
		{"forbidden", http.StatusForbidden, shellerr.ErrAuth},
		{"badrequest", http.StatusBadRequest, shellerr.ErrBadRequest},
		{"servererror", http.StatusInternalServerError, shellerr.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := New(srv.URL+"/", "alice", "secret", time.Second)
			ts := time.Now()
			batch := model.Batch{{
				Timestamp: ts, Runtime: ts, Owner: "alice", Tool: "Eclipse",
				SensorDataType: "DevEvent", Resource: "file:///tmp/Foo.java",
			}}

			err := c.PutBatch(context.Background(), batch)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPutBatchNetworkError(t *testing.T) {
	c := New("http://127.0.0.1:0/", "alice", "secret", 100*time.Millisecond)
	ts := time.Now()
	batch := model.Batch{{
		Timestamp: ts, Runtime: ts, Owner: "alice", Tool: "Eclipse",
		SensorDataType: "DevEvent", Resource: "file:///tmp/Foo.java",
	}}

	err := c.PutBatch(context.Background(), batch)
	if !errors.Is(err, shellerr.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
