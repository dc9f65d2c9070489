package store

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/flowpulse/flowpulse/internal/analysis"
)

// Entry pairs a report with the time the collector computed it. Entries are
// copied out of the store by value, so callers can hold one across requests
// without racing the next Put.
type Entry struct {
	Report    *analysis.Report
	UpdatedAt time.Time
}

// Store caches the newest report per workflow ID. Reports older than the TTL
// stop being served and are eventually evicted by Run, so health claims
// disappear when collection stops instead of going stale silently.
// Safe for concurrent use.
type Store struct {
	ttl time.Duration
	now func() time.Time // injectable for deterministic tests

	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates a Store whose reports live for ttl after each Put.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
}

// TTL returns the configured report lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores or replaces the report for rep.WorkflowID. The report itself is
// shared, not copied; callers hand over ownership and must not mutate it.
func (s *Store) Put(rep *analysis.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[rep.WorkflowID] = Entry{Report: rep, UpdatedAt: s.now()}
}

// Get returns the entry for the given workflow ID, if one exists. The entry
// may already be past the TTL; callers that care check UpdatedAt against
// TTL, which is how the API turns staleness into a 404.
func (s *Store) Get(workflowID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[workflowID]
	return e, ok
}

// Live returns every entry still within the TTL. Entries past the TTL but
// not yet evicted are filtered out here, so serving never depends on the
// eviction loop's timing.
func (s *Store) Live() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-s.ttl)
	live := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.UpdatedAt.After(cutoff) {
			live = append(live, e)
		}
	}
	return live
}

// Count returns the number of entries held, stale ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict drops every entry whose UpdatedAt is older than now minus the TTL
// and returns how many were dropped.
func (s *Store) Evict(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.entries, func(_ string, e Entry) bool {
		if e.UpdatedAt.After(cutoff) {
			return false
		}
		removed++
		return true
	})
	return removed
}

// Run evicts in the background until ctx is cancelled, ticking at half the
// TTL (at least every second) so stale entries do not linger long.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale reports", "count", n)
			}
		}
	}
}
