// Package cache provides the per-resource-kind freshness cache.
//
// This is a freshness cache, not a capacity-bounded cache: the store holds
// at most one entry per resource kind, each entry is replaced wholesale on
// refetch, and the only "eviction" is overwrite-on-set. Partial merges are
// deliberately impossible — the backend's inconsistent shapes make partial
// updates a bug factory.
//
// Thread-safety:
//   - All operations are protected by mutex
//   - Safe for concurrent access from multiple goroutines
//
// Ownership: the store exclusively owns cached values; the coordinator is
// the only writer, consumers receive read-only snapshots.
package cache

import (
	"sync"
	"time"
)

// Kind identifies a cached resource. The enum is closed: free-form strings
// are not accepted as cache keys.
type Kind string

const (
	KindComplaints    Kind = "complaints"
	KindNotifications Kind = "notifications"
	KindProviders     Kind = "providers"
	KindProfile       Kind = "profile"
	KindSettings      Kind = "settings"
	KindReference     Kind = "reference" // types / priorities / statuses
)

// Kinds lists every cache kind, in a stable order (used by health reporting).
var Kinds = []Kind{
	KindComplaints,
	KindNotifications,
	KindProviders,
	KindProfile,
	KindSettings,
	KindReference,
}

// defaultTTLs is the per-kind freshness window. Complaint and notification
// data changes constantly; providers, profile and reference data are nearly
// static, so they keep longer windows.
var defaultTTLs = map[Kind]time.Duration{
	KindComplaints:    2 * time.Minute,
	KindNotifications: 1 * time.Minute,
	KindProviders:     5 * time.Minute,
	KindProfile:       10 * time.Minute,
	KindSettings:      5 * time.Minute,
	KindReference:     10 * time.Minute,
}

// Entry is one cached value with its fetch timestamp.
//
// Lifecycle: created on first successful fetch, replaced wholesale on
// refetch, never partially mutated.
type Entry struct {
	Value     interface{}
	FetchedAt time.Time
}

// Store is the kind-keyed freshness cache.
//
// Stores are explicit injectable objects, not module-level singletons, so
// tests construct isolated instances with their own clocks.
type Store struct {
	mu      sync.Mutex
	entries map[Kind]Entry
	ttls    map[Kind]time.Duration
	now     func() time.Time
}

// NewStore creates a store with the default TTL table and wall clock.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a store with an injected clock.
//
// Tests use this to probe staleness boundaries without sleeping.
func NewStoreWithClock(now func() time.Time) *Store {
	ttls := make(map[Kind]time.Duration, len(defaultTTLs))
	for kind, ttl := range defaultTTLs {
		ttls[kind] = ttl
	}
	return &Store{
		entries: make(map[Kind]Entry),
		ttls:    ttls,
		now:     now,
	}
}

// Get returns the cached entry for a kind, if one exists.
func (s *Store) Get(kind Kind) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[kind]
	return entry, ok
}

// Set stores a value for a kind, stamping the current time.
//
// Set always overwrites, never merges — this guards against partial-update
// bugs from inconsistent backend shapes.
func (s *Store) Set(kind Kind, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind] = Entry{
		Value:     value,
		FetchedAt: s.now(),
	}
}

// IsStale reports whether the cached entry for a kind must be refetched
// before being served.
//
// An absent entry is always stale. Otherwise the entry is stale exactly
// when the elapsed time since the fetch reaches the kind's TTL: fresh for
// every instant before FetchedAt+TTL, stale at and after it.
func (s *Store) IsStale(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[kind]
	if !ok {
		return true
	}
	return s.now().Sub(entry.FetchedAt) >= s.ttlLocked(kind)
}

// TTL returns the freshness window configured for a kind.
func (s *Store) TTL(kind Kind) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttlLocked(kind)
}

// SetTTL overrides the freshness window for a kind.
func (s *Store) SetTTL(kind Kind, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttls[kind] = ttl
}

// Age returns how long ago the kind was fetched, and whether it ever was.
func (s *Store) Age(kind Kind) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[kind]
	if !ok {
		return 0, false
	}
	return s.now().Sub(entry.FetchedAt), true
}

// ttlLocked resolves the TTL for a kind. Caller must hold the mutex.
//
// Unknown kinds get a zero TTL, which makes them permanently stale rather
// than permanently fresh.
func (s *Store) ttlLocked(kind Kind) time.Duration {
	return s.ttls[kind]
}
