// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shellerr defines the stable error kinds the relay's components
// return, grounded on the teacher's sentinel-error style (one var per
// condition, wrapped with fmt.Errorf("...: %w", ...) at the call site so
// errors.Is keeps working through flush/recover).
package shellerr

import "errors"

var (
	// ErrConfig is returned when a Config is missing a required key or a
	// value fails validation that has no safe default. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrValidation is returned by add(record) when mandatory fields are
	// missing or a timestamp could not be parsed.
	ErrValidation = errors.New("invalid record")

	// ErrShellClosed is returned by any mutating operation on a shell
	// that has already completed quit().
	ErrShellClosed = errors.New("shell is closed")

	// ErrNetwork is returned by ServerClient on transport failure (DNS,
	// connect, timeout, connection reset).
	ErrNetwork = errors.New("network error")

	// ErrServer is returned by ServerClient on a 5xx response.
	ErrServer = errors.New("server error")

	// ErrAuth is returned by ServerClient on a 401 or 403 response.
	ErrAuth = errors.New("authentication error")

	// ErrBadRequest is returned by ServerClient on a 4xx response other
	// than 401/403.
	ErrBadRequest = errors.New("bad request")

	// ErrSpoolIO is returned by SpoolStore when a batch could not be
	// durably written or read back. flush() logs it and drops the batch;
	// it is never surfaced to the caller of add/send.
	ErrSpoolIO = errors.New("spool I/O error")

	// ErrShell wraps a final-flush failure reported by quit() after
	// teardown has already completed; the wrapped cause is whatever
	// flush() classified the failure as.
	ErrShell = errors.New("shell error")
)
