package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot per source in a map. It is safe for
// concurrent use. With a TTL, expired snapshots are hidden from GetLatest
// immediately and dropped from the map by a background goroutine.
type MemoryStore struct {
	mu            sync.RWMutex
	snapshots     map[string]Snapshot
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopped       bool
	stopMu        sync.Mutex
}

// NewMemoryStore creates a store without expiry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
	}
}

// NewMemoryStoreWithTTL creates a store that expires snapshots older than ttl,
// checking every cleanupInterval (default one minute). Call Stop when done.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		snapshots:     make(map[string]Snapshot),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop ends the cleanup goroutine and waits for it. It is a no-op on stores
// without TTL and on repeated calls.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped {
		return
	}

	close(s.stopCleanup)
	<-s.cleanupDone
	s.cleanupTicker.Stop()
	s.stopped = true
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl == 0 {
		return
	}

	now := time.Now()
	for source, snapshot := range s.snapshots {
		if snapshot.expired(s.ttl, now) {
			delete(s.snapshots, source)
		}
	}
}

// Put replaces the snapshot stored for snapshot.Source.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if snapshot.expired(s.ttl, time.Now()) {
		return fmt.Errorf("put %s: %w", snapshot.File, ErrExpired)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.Source] = snapshot
	return nil
}

// GetLatest returns the snapshot stored for source. found is false when there
// is none.
func (s *MemoryStore) GetLatest(ctx context.Context, source string) (Snapshot, bool, error) {
	select {
	case <-ctx.Done():
		return Snapshot{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, found := s.snapshots[source]
	if !found || snapshot.expired(s.ttl, time.Now()) {
		return Snapshot{}, false, nil
	}
	return snapshot, true, nil
}
