// SensorShell - client-side telemetry relay
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package spool implements the durable on-disk FIFO of batches (C4). The
// on-disk contract — one file per batch, filenames that sort
// lexicographically in creation order — is a literal external interface
// consumed by recovery tooling outside this module, so it is implemented
// directly on os/path/filepath/encoding/xml rather than through badger;
// see internal/statememo for the durable auxiliary index this package
// is paired with.
package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hackystat-go/sensorshell/internal/model"
	"github.com/hackystat-go/sensorshell/internal/shellerr"
)

const filenameLayout = "2006.01.02.15.04.05.000"

// Store is a durable FIFO of Batches backed by one XML file per batch in
// a directory. It never mutates a file after writing; concurrent access
// to the same directory from more than one process is undefined.
type Store struct {
	dir string

	mu       sync.Mutex
	lastStem string
	seq      int
}

// New returns a Store rooted at dir, creating the directory if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create spool dir %s: %v", shellerr.ErrSpoolIO, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Store serializes a non-empty batch and writes it to a new file whose
// name sorts after every previously stored file. Calling Store more
// than once within the same millisecond produces distinct, still
// increasing names via a monotonic sequence suffix. Empty batches are a
// no-op.
func (s *Store) Store(batch model.Batch) error {
	if len(batch) == 0 {
		return nil
	}

	data, err := model.MarshalXML(batch)
	if err != nil {
		return err
	}

	name := s.nextFilename()
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write spool file %s: %v", shellerr.ErrSpoolIO, path, err)
	}
	return nil
}

// nextFilename produces a yyyy.MM.dd.HH.mm.ss.SSS stem. Calling it again
// within the same millisecond appends a fixed-width zero-padded counter
// directly after the millisecond digits (no separator) so the name
// keeps sorting after the unsuffixed stem and after every
// lower-numbered collision: "." sorts below any digit, so
// "...000.xml" < "...000001.xml" < "...000002.xml".
func (s *Store) nextFilename() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stem := time.Now().Format(filenameLayout)
	if stem == s.lastStem {
		s.seq++
	} else {
		s.lastStem = stem
		s.seq = 0
	}

	if s.seq == 0 {
		return stem + ".xml"
	}
	return fmt.Sprintf("%s%03d.xml", stem, s.seq)
}

// List enumerates spooled batch filenames in lexicographic (creation)
// order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list spool dir %s: %v", shellerr.ErrSpoolIO, s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and deserializes the batch stored under name.
func (s *Store) Load(name string) (model.Batch, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read spool file %s: %v", shellerr.ErrSpoolIO, path, err)
	}
	return model.UnmarshalXML(data)
}

// Delete removes the spool file under name.
func (s *Store) Delete(name string) error {
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: delete spool file %s: %v", shellerr.ErrSpoolIO, path, err)
	}
	return nil
}

// HasOfflineData reports whether any batch is currently spooled.
func (s *Store) HasOfflineData() (bool, error) {
	names, err := s.List()
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}
