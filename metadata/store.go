package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// TimeLayout is the capture-time format persisted in the metadata file,
// kept identical to what existing galleries already have on disk
const TimeLayout = "2006-01-02 15:04:05"

// ErrStoreCorrupt means the metadata file exists but cannot be parsed.
// It is surfaced at startup instead of silently reinitializing the store,
// which would lose pin state and capture times.
var ErrStoreCorrupt = errors.New("metadata store corrupt")

// Record is the mutable per-asset metadata the store owns. Capture time
// and pin state live here; asset existence lives on the filesystem.
type Record struct {
	CapturedAt time.Time
	Pinned     bool
}

// Entry pairs an id with its record for ordered listings
type Entry struct {
	ID     string
	Record Record
}

// Store is a durable id -> Record mapping backed by a single structured
// file. The full content is held in memory; every mutation rewrites the
// file through a temp-then-rename replace under a single writer lock, so
// readers only ever observe a complete pre- or post-mutation file.
type Store struct {
	path string

	mu      sync.RWMutex
	records map[string]Record

	// rename publishes the rewritten file; swappable for fault injection
	rename func(oldpath, newpath string) error
}

// metaFile is the on-disk shape, bit-compatible with existing .meta.json
// files: two maps keyed by asset id, with pinned holding only true entries
type metaFile struct {
	Datetime map[string]string `json:"datetime"`
	Pinned   map[string]bool   `json:"pinned"`
}

// Load reads the metadata file into memory. A missing file yields an empty
// store; an unreadable or unparsable one fails with ErrStoreCorrupt.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]Record),
		rename:  os.Rename,
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file '%s': %w", path, err)
	}

	var mf metaFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrStoreCorrupt, path, err)
	}

	for id, value := range mf.Datetime {
		capturedAt, err := time.ParseInLocation(TimeLayout, value, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: bad datetime %q for %s: %v", ErrStoreCorrupt, value, id, err)
		}
		s.records[id] = Record{CapturedAt: capturedAt, Pinned: mf.Pinned[id]}
	}
	// pins without a datetime entry still count as records
	for id, pinned := range mf.Pinned {
		if pinned {
			if _, ok := s.records[id]; !ok {
				s.records[id] = Record{Pinned: true}
			}
		}
	}

	return s, nil
}

// Get returns the record for id, if any
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Set creates or replaces the record for id and persists the store
func (s *Store) Set(id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return s.saveLocked()
}

// Remove deletes the record for id and persists the store; removing an
// unknown id is a no-op
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	return s.saveLocked()
}

// List returns the entries whose capture time falls within the inclusive
// [start, end] bounds (nil bound = unbounded), ordered by capture time
// with id lexical order breaking ties for determinism.
func (s *Store) List(start, end *time.Time, newestFirst bool) []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.records))
	for id, rec := range s.records {
		if start != nil && rec.CapturedAt.Before(*start) {
			continue
		}
		if end != nil && rec.CapturedAt.After(*end) {
			continue
		}
		entries = append(entries, Entry{ID: id, Record: rec})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].Record.CapturedAt, entries[j].Record.CapturedAt
		if !ti.Equal(tj) {
			if newestFirst {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// saveLocked rewrites the metadata file; callers hold the write lock
func (s *Store) saveLocked() error {
	mf := metaFile{
		Datetime: make(map[string]string),
		Pinned:   make(map[string]bool),
	}
	for id, rec := range s.records {
		if !rec.CapturedAt.IsZero() {
			mf.Datetime[id] = rec.CapturedAt.Format(TimeLayout)
		}
		if rec.Pinned {
			mf.Pinned[id] = true
		}
	}

	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata temp file: %w", err)
	}
	if err := s.rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish metadata file: %w", err)
	}
	return nil
}
