// Package server stores short-lived voice clips in memory, keyed by an
// opaque id, with age-based eviction via a periodic sweep.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultBlobRetention is how long a stored clip survives before a sweep
// removes it.
const DefaultBlobRetention = 24 * time.Hour

// DefaultSweepInterval is how often the background sweeper runs.
const DefaultSweepInterval = time.Hour

// BlobRecord is a stored clip: raw bytes, a content-type tag, and the
// insertion time that retention is measured from.
type BlobRecord struct {
	Data        []byte
	ContentType string
	StoredAt    time.Time
}

// BlobStore holds clip records until they age past the retention window.
// The store enforces no capacity bound and no per-clip size cap; the upload
// boundary caps request sizes before Put is ever called.
type BlobStore struct {
	mu        sync.RWMutex
	records   map[string]BlobRecord
	retention time.Duration
	now       func() time.Time
}

// NewBlobStore creates a store with the given retention window. A
// non-positive retention falls back to DefaultBlobRetention.
func NewBlobStore(retention time.Duration) *BlobStore {
	if retention <= 0 {
		retention = DefaultBlobRetention
	}
	return &BlobStore{
		records:   make(map[string]BlobRecord),
		retention: retention,
		now:       time.Now,
	}
}

// Put inserts or overwrites the record for id, stamping the current time.
// Ids are not checked for collision; last write wins. The record is
// retrievable immediately.
func (s *BlobStore) Put(id string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = BlobRecord{
		Data:        data,
		ContentType: contentType,
		StoredAt:    s.now(),
	}
}

// Get looks up the record for id. A miss returns ok == false, never an
// error. Lookups do not extend retention; only insertion time matters.
func (s *BlobStore) Get(id string) (BlobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Sweep removes every record older than the retention window and returns the
// number removed.
func (s *BlobStore) Sweep() int {
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.StoredAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of records currently stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Run sweeps on the given interval until ctx is cancelled. The sweep is
// advisory housekeeping: a skipped or delayed run has no correctness impact.
func (s *BlobStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Blob sweep removed %d expired clip(s)", n)
			}
		}
	}
}
