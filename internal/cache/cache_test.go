package cache

import (
	"testing"
	"time"
)

// testClock is a manually-advanced clock for staleness tests.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestStore() (*Store, *testClock) {
	clock := &testClock{current: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	return NewStoreWithClock(clock.now), clock
}

func TestStoreAbsentEntryIsStale(t *testing.T) {
	store, _ := newTestStore()

	if !store.IsStale(KindComplaints) {
		t.Error("expected absent entry to be stale")
	}

	if _, ok := store.Get(KindComplaints); ok {
		t.Error("expected Get to report no entry")
	}
}

func TestStoreSetStampsFetchTime(t *testing.T) {
	store, clock := newTestStore()

	store.Set(KindProviders, []string{"a"})

	entry, ok := store.Get(KindProviders)
	if !ok {
		t.Fatal("expected entry after Set")
	}
	if !entry.FetchedAt.Equal(clock.current) {
		t.Errorf("expected fetch time %v but got %v", clock.current, entry.FetchedAt)
	}
}

// TestStoreStalenessMonotonicity checks the boundary behavior: fresh for
// every query before T+TTL, stale at and after T+TTL.
func TestStoreStalenessMonotonicity(t *testing.T) {
	store, clock := newTestStore()
	ttl := store.TTL(KindComplaints)

	store.Set(KindComplaints, "value")

	if store.IsStale(KindComplaints) {
		t.Error("expected entry to be fresh immediately after Set")
	}

	clock.advance(ttl - time.Millisecond)
	if store.IsStale(KindComplaints) {
		t.Error("expected entry to be fresh just before TTL elapses")
	}

	clock.advance(time.Millisecond)
	if !store.IsStale(KindComplaints) {
		t.Error("expected entry to be stale exactly at TTL")
	}

	clock.advance(time.Hour)
	if !store.IsStale(KindComplaints) {
		t.Error("expected entry to stay stale after TTL")
	}
}

func TestStoreSetOverwritesWholesale(t *testing.T) {
	store, clock := newTestStore()

	store.Set(KindProfile, "old")
	clock.advance(time.Minute)
	store.Set(KindProfile, "new")

	entry, _ := store.Get(KindProfile)
	if entry.Value != "new" {
		t.Errorf("expected overwritten value 'new' but got %v", entry.Value)
	}
	if !entry.FetchedAt.Equal(clock.current) {
		t.Error("expected fetch time to be re-stamped on overwrite")
	}
}

func TestStoreKindsAreIndependent(t *testing.T) {
	store, clock := newTestStore()

	store.Set(KindNotifications, "n")
	store.Set(KindProfile, "p")

	// Notifications (1m TTL) go stale; profile (10m TTL) stays fresh
	clock.advance(90 * time.Second)

	if !store.IsStale(KindNotifications) {
		t.Error("expected notifications to be stale after 90s")
	}
	if store.IsStale(KindProfile) {
		t.Error("expected profile to still be fresh after 90s")
	}
}

func TestStoreSetTTL(t *testing.T) {
	store, clock := newTestStore()

	store.SetTTL(KindSettings, 10*time.Second)
	store.Set(KindSettings, "s")

	clock.advance(9 * time.Second)
	if store.IsStale(KindSettings) {
		t.Error("expected settings fresh under overridden TTL")
	}

	clock.advance(time.Second)
	if !store.IsStale(KindSettings) {
		t.Error("expected settings stale at overridden TTL")
	}
}

func TestStoreAge(t *testing.T) {
	store, clock := newTestStore()

	if _, ok := store.Age(KindComplaints); ok {
		t.Error("expected no age for absent entry")
	}

	store.Set(KindComplaints, "c")
	clock.advance(42 * time.Second)

	age, ok := store.Age(KindComplaints)
	if !ok {
		t.Fatal("expected age after Set")
	}
	if age != 42*time.Second {
		t.Errorf("expected age 42s but got %v", age)
	}
}
