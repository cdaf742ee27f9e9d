// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package probe implements the reachability probe (C3): a circuit
// breaker around ServerClient.IsRegistered, bounded by a supervisory
// timer so a caller never waits longer than the requested timeout even
// if the underlying HTTP call is still in flight. Grounded on the
// teacher's CircuitBreakerClient wrapping pattern.
package probe

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hackystat-go/sensorshell/internal/logging"
	"github.com/hackystat-go/sensorshell/internal/metrics"
)

// registrationChecker is the subset of transport.ServerClient the probe
// depends on, kept narrow so tests can substitute a fake.
type registrationChecker interface {
	IsRegistered(ctx context.Context) (bool, error)
}

// Probe wraps a registrationChecker with a circuit breaker so repeated
// failures short-circuit future calls instead of paying the full
// network timeout every time.
type Probe struct {
	client registrationChecker
	cb     *gobreaker.CircuitBreaker[bool]
}

// New builds a Probe named for logging purposes; the circuit opens
// after 5 consecutive failures and waits 30s before probing again.
func New(client registrationChecker, name string) *Probe {
	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("probe", name).Str("from", stateString(from)).Str("to", stateString(to)).Msg("reachability circuit breaker transition")
			metrics.SetCircuitBreakerState(int(to))
		},
	})

	return &Probe{client: client, cb: cb}
}

// IsPingable reports whether the server is reachable and the configured
// credentials are valid, giving up after timeout even if the underlying
// check has not returned. The straggling goroutine is abandoned; its
// result, if any, is discarded.
func (p *Probe) IsPingable(ctx context.Context, timeout time.Duration) bool {
	result := make(chan bool, 1)

	go func() {
		ok, err := p.cb.Execute(func() (bool, error) {
			return p.client.IsRegistered(ctx)
		})
		result <- err == nil && ok
	}()

	select {
	case ok := <-result:
		return ok
	case <-time.After(timeout):
		return false
	}
}

func stateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
