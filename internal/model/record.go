// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the wire and in-memory representation of a
// telemetry event and its XML codec.
package model

import (
	"fmt"
	"time"

	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

// TimestampLayout is the ISO-8601-with-milliseconds format used for both
// the Timestamp and Runtime fields, matching the server's SensorData schema.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// reservedKeys are the six mandatory field names; a caller-supplied
// property may not collide with any of them.
var reservedKeys = map[string]struct{}{
	"timestamp":      {},
	"runtime":        {},
	"owner":          {},
	"tool":           {},
	"sensorDataType": {},
	"resource":       {},
}

// Property is one (key, value) pair. Order matters: it is preserved
// through the buffer, the spool file, and the wire format.
type Property struct {
	Key   string
	Value string
}

// Record is one telemetry event.
type Record struct {
	Timestamp      time.Time
	Runtime        time.Time
	Owner          string
	Tool           string
	SensorDataType string
	Resource       string
	Properties     []Property
}

// Validate checks the mandatory fields and property-key constraints
// described by the record invariants: no empty mandatory field, no zero
// timestamp, no duplicate property key, no property key shadowing a
// reserved field name.
func (r Record) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", shellerr.ErrValidation)
	}
	if r.Runtime.IsZero() {
		return fmt.Errorf("%w: missing runtime", shellerr.ErrValidation)
	}
	if r.Owner == "" {
		return fmt.Errorf("%w: missing owner", shellerr.ErrValidation)
	}
	if r.Tool == "" {
		return fmt.Errorf("%w: missing tool", shellerr.ErrValidation)
	}
	if r.SensorDataType == "" {
		return fmt.Errorf("%w: missing sensorDataType", shellerr.ErrValidation)
	}
	if r.Resource == "" {
		return fmt.Errorf("%w: missing resource", shellerr.ErrValidation)
	}

	seen := make(map[string]struct{}, len(r.Properties))
	for _, p := range r.Properties {
		if _, reserved := reservedKeys[p.Key]; reserved {
			return fmt.Errorf("%w: property key %q collides with a mandatory field", shellerr.ErrValidation, p.Key)
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("%w: duplicate property key %q", shellerr.ErrValidation, p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}

// FromFields builds a Record from a flat key/value map, as used by the
// shell's map-based add() entry point. Reserved keys populate the
// corresponding fields (timestamp/runtime default to now, owner defaults
// to defaultOwner, tool defaults to "unknown"); everything else becomes
// a property. Map iteration order is not stable, so callers that need a
// deterministic property order should use the Record-typed add() instead.
func FromFields(fields map[string]string, defaultOwner string) (Record, error) {
	now := time.Now().UTC()
	r := Record{
		Timestamp: now,
		Runtime:   now,
		Owner:     defaultOwner,
		Tool:      "unknown",
	}

	for k, v := range fields {
		switch k {
		case "timestamp":
			ts, err := time.Parse(TimestampLayout, v)
			if err != nil {
				return Record{}, fmt.Errorf("%w: unparseable timestamp %q: %v", shellerr.ErrValidation, v, err)
			}
			r.Timestamp = ts
		case "runtime":
			rt, err := time.Parse(TimestampLayout, v)
			if err != nil {
				return Record{}, fmt.Errorf("%w: unparseable runtime %q: %v", shellerr.ErrValidation, v, err)
			}
			r.Runtime = rt
		case "owner":
			r.Owner = v
		case "tool":
			r.Tool = v
		case "sensorDataType":
			r.SensorDataType = v
		case "resource":
			r.Resource = v
		default:
			r.Properties = append(r.Properties, Property{Key: k, Value: v})
		}
	}

	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
