// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Batch is an ordered sequence of Records carrying no further metadata.
type Batch []Record

// Len reports the number of records, used by flush() to compute the
// totalSent increment and by tests asserting |batch| equalities.
func (b Batch) Len() int {
	return len(b)
}
