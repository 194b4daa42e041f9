package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cportal/internal/cache"
	"cportal/internal/config"
	"cportal/internal/coordinator"
	"cportal/internal/domain"
	apperrors "cportal/internal/errors"
	"cportal/internal/storage"
	"cportal/internal/telegram"
)

// stubPortal serves canned complaint pages.
type stubPortal struct {
	pages    map[int]string // page number → JSON payload
	err      error
	failures int // fail this many calls before serving pages
	calls    int
}

func (p *stubPortal) FetchComplaints(ctx context.Context, page int) (interface{}, error) {
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("temporarily unavailable")
	}
	if p.err != nil {
		return nil, p.err
	}
	payload, ok := p.pages[page]
	if !ok {
		payload = `[]`
	}
	var raw interface{}
	json.Unmarshal([]byte(payload), &raw)
	return raw, nil
}

// stubMessenger records notifications and edits.
type stubMessenger struct {
	mu     sync.Mutex
	sent   []string
	edited []string
	nextID int
}

func (m *stubMessenger) SendComplaintMessage(complaint domain.Complaint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, complaint.ComplaintID)
	m.nextID++
	return fmt.Sprintf("msg-%d", m.nextID), nil
}

func (m *stubMessenger) EditMessageText(chatID, messageID, newText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edited = append(m.edited, messageID)
	return nil
}

func (m *stubMessenger) sentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		MaxPages:        3,
		MaxFetchRetries: 2,
		WorkerPoolSize:  2,
		BatchSize:       50,
		TelegramChatID:  "42",
	}
}

func newTestMonitor(t *testing.T, portal PageFetcher, tg Messenger) (*Monitor, *storage.Store) {
	t.Helper()
	store := storage.New(filepath.Join(t.TempDir(), "complaints.csv"))
	coord := coordinator.New(cache.NewStore())
	return New(coord, portal, store, tg, testConfig()), store
}

func TestRunCycleNotifiesNewComplaints(t *testing.T) {
	portal := &stubPortal{pages: map[int]string{
		1: `{"complaints": [{"id": 1, "caretaker": "Ann"}, {"id": 2, "caretaker": "Bo"}]}`,
	}}
	tg := &stubMessenger{}
	mon, store := newTestMonitor(t, portal, tg)

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected cycle to succeed but got: %v", err)
	}

	sent := tg.sentIDs()
	if len(sent) != 2 {
		t.Fatalf("expected 2 notifications but got %d: %v", len(sent), sent)
	}
	if store.IsNew("CMP-1") || store.IsNew("CMP-2") {
		t.Error("expected notified complaints to be recorded in storage")
	}
}

func TestRunCycleSkipsAlreadySeen(t *testing.T) {
	portal := &stubPortal{pages: map[int]string{
		1: `[{"id": 1, "caretaker": "Ann"}]`,
	}}
	tg := &stubMessenger{}
	mon, store := newTestMonitor(t, portal, tg)

	store.SaveMultiple([]storage.Record{{ComplaintID: "CMP-1", MessageID: "old"}})

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected cycle to succeed but got: %v", err)
	}

	if len(tg.sentIDs()) != 0 {
		t.Errorf("expected no notifications for seen complaints, got %v", tg.sentIDs())
	}
}

func TestRunCycleWalksPages(t *testing.T) {
	portal := &stubPortal{pages: map[int]string{
		1: `[{"id": 1}]`,
		2: `[{"id": 2}]`,
	}}
	tg := &stubMessenger{}
	mon, _ := newTestMonitor(t, portal, tg)

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected cycle to succeed but got: %v", err)
	}

	// Page 3 returns empty and stops the walk
	if portal.calls != 3 {
		t.Errorf("expected 3 page fetches but got %d", portal.calls)
	}
	if len(tg.sentIDs()) != 2 {
		t.Errorf("expected notifications from both pages, got %v", tg.sentIDs())
	}
}

func TestRunCycleCleansUpResolved(t *testing.T) {
	portal := &stubPortal{pages: map[int]string{
		1: `[{"id": 2, "caretaker": "Bo"}]`,
	}}
	tg := &stubMessenger{}
	mon, store := newTestMonitor(t, portal, tg)

	// CMP-1 is recorded but no longer active on the portal
	store.SaveMultiple([]storage.Record{
		{ComplaintID: "CMP-1", MessageID: "msg-old", CaretakerName: "Ann"},
		{ComplaintID: "CMP-2", MessageID: "msg-live", CaretakerName: "Bo"},
	})

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected cycle to succeed but got: %v", err)
	}

	if store.Exists("CMP-1") {
		t.Error("expected resolved complaint to be removed from storage")
	}
	if !store.Exists("CMP-2") {
		t.Error("expected active complaint to stay in storage")
	}
	if len(tg.edited) != 1 || tg.edited[0] != "msg-old" {
		t.Errorf("expected resolved message to be edited, got %v", tg.edited)
	}
}

func TestRunCyclePropagatesSessionExpiryOverCache(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	store := storage.New(filepath.Join(t.TempDir(), "complaints.csv"))
	coord := coordinator.NewWithClock(cache.NewStoreWithClock(clock), clock)
	portal := &stubPortal{pages: map[int]string{
		1: `[{"id": 1, "caretaker": "Ann"}]`,
	}}
	tg := &stubMessenger{}
	mon := New(coord, portal, store, tg, testConfig())

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected priming cycle to succeed but got: %v", err)
	}

	// Let the complaints cache go stale, then expire the session
	now = now.Add(3 * time.Minute)
	portal.err = apperrors.NewSessionExpiredError("GET /api/complaints returned 401")

	err := mon.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected session expiry to fail the cycle despite cached complaints")
	}
	if !apperrors.IsSessionExpired(err) {
		t.Errorf("expected a session expired error but got: %v", err)
	}
}

func TestRunCycleRetriesTransientFetchFailures(t *testing.T) {
	portal := &stubPortal{
		failures: 1,
		pages: map[int]string{
			1: `[{"id": 1, "caretaker": "Ann"}]`,
		},
	}
	tg := &stubMessenger{}
	mon, _ := newTestMonitor(t, portal, tg)

	if err := mon.RunCycle(context.Background()); err != nil {
		t.Fatalf("expected the retry to recover the cycle but got: %v", err)
	}
	if len(tg.sentIDs()) != 1 {
		t.Errorf("expected 1 notification after retry, got %v", tg.sentIDs())
	}
}

func TestRunCycleDoesNotRetrySessionExpiry(t *testing.T) {
	portal := &stubPortal{err: apperrors.NewSessionExpiredError("401")}
	tg := &stubMessenger{}
	mon, _ := newTestMonitor(t, portal, tg)

	err := mon.RunCycle(context.Background())
	if !apperrors.IsSessionExpired(err) {
		t.Fatalf("expected a session expired error but got: %v", err)
	}
	if portal.calls != 1 {
		t.Errorf("expected a single fetch attempt for an expired session, got %d", portal.calls)
	}
}

func TestRunCycleFailsWithoutCache(t *testing.T) {
	portal := &stubPortal{err: errors.New("connection refused")}
	tg := &stubMessenger{}
	mon, _ := newTestMonitor(t, portal, tg)

	if err := mon.RunCycle(context.Background()); err == nil {
		t.Error("expected cycle to fail when fetch fails with no cached data")
	}
}

func TestWorkerPoolProcessesAllJobs(t *testing.T) {
	tg := &stubMessenger{}
	pool := NewWorkerPool(tg, 3)

	go func() {
		for i := 1; i <= 5; i++ {
			pool.Submit(domain.Complaint{ID: fmt.Sprint(i), ComplaintID: fmt.Sprintf("CMP-%d", i)})
		}
		pool.Close()
	}()

	count := 0
	for result := range pool.Results() {
		if result.Error != nil {
			t.Errorf("unexpected error for %s: %v", result.ComplaintID, result.Error)
		}
		if result.MessageID == "" {
			t.Errorf("expected message ID for %s", result.ComplaintID)
		}
		count++
	}

	if count != 5 {
		t.Errorf("expected 5 results but got %d", count)
	}
}

func TestWorkerPoolWithUnconfiguredTelegram(t *testing.T) {
	// NewClient returns a typed nil when no token is configured; every
	// send must no-op instead of panicking
	tg := telegram.NewClient("", "", false)
	pool := NewWorkerPool(tg, 1)

	go func() {
		pool.Submit(domain.Complaint{ID: "1", ComplaintID: "CMP-1"})
		pool.Close()
	}()

	count := 0
	for result := range pool.Results() {
		if result.Error != nil {
			t.Errorf("expected no error from unconfigured telegram, got %v", result.Error)
		}
		if result.MessageID != "" {
			t.Errorf("expected empty message ID, got %q", result.MessageID)
		}
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 result but got %d", count)
	}
}
