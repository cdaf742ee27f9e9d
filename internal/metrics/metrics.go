// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes the Prometheus counters and gauges the daemon
// subcommand serves on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorshell_records_sent_total",
		Help: "Total number of records successfully acknowledged by the server",
	})

	flushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorshell_flush_failures_total",
		Help: "Total number of flush attempts that failed to reach the server",
	})

	spoolFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sensorshell_spool_files",
		Help: "Current number of batches waiting in the offline spool directory",
	})

	circuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sensorshell_circuit_breaker_state",
		Help: "Reachability circuit breaker state: 0=closed, 1=half-open, 2=open",
	})

	recoveredRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sensorshell_recovered_records_total",
		Help: "Total number of records replayed from the spool on startup recovery",
	})
)

// RecordSent adds n to the sent-records counter.
func RecordSent(n int) {
	recordsSentTotal.Add(float64(n))
}

// RecordFlushFailure increments the flush failure counter.
func RecordFlushFailure() {
	flushFailuresTotal.Inc()
}

// SetSpoolFiles sets the current spool file count gauge.
func SetSpoolFiles(n int) {
	spoolFiles.Set(float64(n))
}

// SetCircuitBreakerState sets the breaker state gauge (0=closed,
// 1=half-open, 2=open, matching gobreaker.State's ordinal values).
func SetCircuitBreakerState(state int) {
	circuitBreakerState.Set(float64(state))
}

// RecordRecovered adds n to the recovered-records counter.
func RecordRecovered(n int) {
	recoveredRecordsTotal.Add(float64(n))
}
