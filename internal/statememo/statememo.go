// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package statememo durably persists each shell's StateChange memo
// (lastResource, lastChecksum) and the set of spool filenames currently
// being replayed, so a crash mid-recovery does not double-process a
// batch. Grounded on the teacher's BadgerDB-backed WAL: one embedded
// store, one key per logical record, JSON-encoded values.
package statememo

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

const (
	memoKeyPrefix      = "memo/"
	claimKeyPrefix     = "claim/"
	lifecycleKeyPrefix = "lifecycle/"
)

// State is the per-shell StateChange memo.
type State struct {
	LastResource string `json:"last_resource"`
	LastChecksum int64  `json:"last_checksum"`
}

// Lifecycle is the small sidecar a shell persists across restarts so its
// TotalSent counter and StartTime survive a process crash or restart
// instead of resetting to zero, keeping sensorshell_records_sent_total
// meaningful as a cumulative metric rather than a per-process one.
type Lifecycle struct {
	TotalSent int       `json:"total_sent"`
	StartTime time.Time `json:"start_time"`
}

// Store durably persists one State per shell name and tracks which
// spool filenames are currently claimed for recovery processing, so two
// recovery passes (e.g. after a crash mid-replay) never process the
// same file concurrently.
type Store struct {
	db *badger.DB

	mu      sync.Mutex
	claimed map[string]struct{}
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open statememo db at %s: %v", shellerr.ErrSpoolIO, dir, err)
	}
	return &Store{db: db, claimed: make(map[string]struct{})}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted State for shell, or the zero State
// ("", 0) if none has been recorded yet.
func (s *Store) Load(shell string) (State, error) {
	var st State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(memoKeyPrefix + shell))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &st)
		})
	})
	if err != nil {
		return State{}, fmt.Errorf("%w: load statememo for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}
	return st, nil
}

// Save persists the State for shell, overwriting any prior value. It is
// called on every statechange invocation regardless of whether a record
// was produced, per the memo's update contract.
func (s *Store) Save(shell string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: marshal statememo for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(memoKeyPrefix+shell), data)
	})
	if err != nil {
		return fmt.Errorf("%w: save statememo for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}
	return nil
}

// LoadLifecycle returns the persisted Lifecycle for shell, or a zero
// Lifecycle if none has been recorded yet (a brand new shell name).
func (s *Store) LoadLifecycle(shell string) (Lifecycle, error) {
	var lc Lifecycle
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lifecycleKeyPrefix + shell))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &lc)
		})
	})
	if err != nil {
		return Lifecycle{}, fmt.Errorf("%w: load lifecycle for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}
	return lc, nil
}

// SaveLifecycle persists lc for shell, overwriting any prior value.
func (s *Store) SaveLifecycle(shell string, lc Lifecycle) error {
	data, err := json.Marshal(lc)
	if err != nil {
		return fmt.Errorf("%w: marshal lifecycle for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lifecycleKeyPrefix+shell), data)
	})
	if err != nil {
		return fmt.Errorf("%w: save lifecycle for %s: %v", shellerr.ErrSpoolIO, shell, err)
	}
	return nil
}

// TryClaim durably records that filename is being replayed and returns
// true, or returns false without claiming if it is already claimed
// (either in this process, via the in-memory set, or by a prior process
// that crashed before releasing it, via the persisted claim key).
func (s *Store) TryClaim(filename string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claimed[filename]; ok {
		return false, nil
	}

	claimed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(claimKeyPrefix + filename))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set([]byte(claimKeyPrefix+filename), []byte{1}); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: claim %s: %v", shellerr.ErrSpoolIO, filename, err)
	}
	if claimed {
		s.claimed[filename] = struct{}{}
	}
	return claimed, nil
}

// Release removes a claim, either because replay finished or because
// it failed and should be retried on the next recovery pass.
func (s *Store) Release(filename string) error {
	s.mu.Lock()
	delete(s.claimed, filename)
	s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(claimKeyPrefix + filename))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: release claim %s: %v", shellerr.ErrSpoolIO, filename, err)
	}
	return nil
}
