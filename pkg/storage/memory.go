package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reports in a map. It is safe for concurrent use.
//
// With a TTL, a background goroutine removes reports whose GeneratedAt is
// older than the TTL; call Stop to end it.
type MemoryStore struct {
	mu            sync.RWMutex
	reports       map[string]Report
	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopped       bool
	stopMu        sync.Mutex
}

// NewMemoryStore creates a store that keeps reports until replaced.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]Report),
	}
}

// NewMemoryStoreWithTTL creates a store that expires reports older than ttl,
// checking every cleanupInterval (default one minute).
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		reports:       make(map[string]Report),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop ends the cleanup goroutine. It is safe to call more than once and
// on stores without a TTL.
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
	for run, report := range s.reports {
		if now.Sub(report.GeneratedAt) > s.ttl {
			delete(s.reports, run)
		}
	}
}

// Put stores report under report.Run, replacing any previous one.
func (s *MemoryStore) Put(ctx context.Context, report Report) error {
	if err := ValidateRun(report.Run); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.Run] = report
	return nil
}

// GetLatest returns the report stored for run. found is false if there is none.
func (s *MemoryStore) GetLatest(ctx context.Context, run string) (Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	report, found := s.reports[run]
	return report, found, nil
}

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// TTL returns the expiry age, or zero when reports never expire.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Close stops the cleanup goroutine. It never fails.
func (s *MemoryStore) Close() error {
	s.Stop()
	return nil
}
