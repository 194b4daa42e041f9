package monitor

import (
	"context"
	"log"

	"cportal/internal/config"
	"cportal/internal/coordinator"
	"cportal/internal/domain"
	apperrors "cportal/internal/errors"
	"cportal/internal/normalize"
	"cportal/internal/storage"
)

// PageFetcher retrieves one page of the raw complaint list. The portal
// client satisfies this.
type PageFetcher interface {
	FetchComplaints(ctx context.Context, page int) (interface{}, error)
}

// Messenger is the notification surface the monitor needs: sending new
// complaint messages and editing old ones when complaints resolve.
type Messenger interface {
	Notifier
	EditMessageText(chatID, messageID, newText string) error
}

// Monitor orchestrates one complaint refresh cycle.
//
// Flow per cycle:
//  1. Fetch the complaint list through the coordinator (cache-gated)
//  2. Detect complaints resolved on the portal side and clean them up
//  3. Detect new complaints and notify them via the worker pool
//  4. Batch-save notified complaints to storage
type Monitor struct {
	coord  *coordinator.Coordinator
	portal PageFetcher
	store  *storage.Store
	tg     Messenger
	cfg    *config.Config
}

// New creates a monitor.
func New(coord *coordinator.Coordinator, portal PageFetcher, store *storage.Store, tg Messenger, cfg *config.Config) *Monitor {
	return &Monitor{
		coord:  coord,
		portal: portal,
		store:  store,
		tg:     tg,
		cfg:    cfg,
	}
}

// ComplaintsFetcher builds the raw fetcher handed to the coordinator.
//
// Pagination:
//   - Pages are fetched sequentially, starting at 1
//   - An empty page means the end of the list
//   - MaxPages caps the walk so a buggy backend cannot loop us forever
//   - A failure on page 1 fails the fetch; a failure on a later page
//     keeps the records collected so far
//   - An expired session always fails the fetch, whichever page hits it
func (m *Monitor) ComplaintsFetcher() coordinator.RawFetcher {
	return func(ctx context.Context) (interface{}, error) {
		var records []interface{}

		for page := 1; page <= m.cfg.MaxPages; page++ {
			raw, err := m.fetchPage(ctx, page)
			if err != nil {
				if page == 1 || apperrors.IsSessionExpired(err) {
					return nil, err
				}
				log.Printf("  ⚠️  Failed to fetch page %d, keeping %d records: %v", page, len(records), err)
				break
			}

			pageRecords := normalize.UnwrapList(raw)
			if len(pageRecords) == 0 {
				break
			}

			log.Printf("    → Found %d complaints on page %d", len(pageRecords), page)
			for _, rec := range pageRecords {
				records = append(records, rec)
			}
		}

		return records, nil
	}
}

// fetchPage retrieves one page of the complaint list, retrying transient
// failures up to MaxFetchRetries attempts. An expired session is not
// retried: only a fresh login fixes it, so it surfaces immediately.
func (m *Monitor) fetchPage(ctx context.Context, page int) (interface{}, error) {
	attempts := m.cfg.MaxFetchRetries
	if attempts < 1 {
		attempts = 1
	}

	var raw interface{}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err = m.portal.FetchComplaints(ctx, page)
		if err == nil {
			return raw, nil
		}
		if apperrors.IsSessionExpired(err) {
			return nil, err
		}
		if attempt < attempts {
			log.Printf("  ⚠️  Page %d fetch attempt %d/%d failed, retrying: %v", page, attempt, attempts, err)
		}
	}

	return nil, err
}

// RunCycle executes one refresh cycle.
//
// Error handling:
//   - An expired session fails the cycle even when cached data exists,
//     so the caller can re-login instead of serving stale data forever
//   - Any other fetch failure with no cached data fails the cycle
//   - Any other fetch failure with cached data logs a warning and works
//     off the cached list (better a slightly stale cycle than none)
//   - Individual notification failures are logged and skipped
func (m *Monitor) RunCycle(ctx context.Context) error {
	complaints, err := m.coord.Complaints(ctx, m.ComplaintsFetcher())
	if err != nil {
		if apperrors.IsSessionExpired(err) {
			return err
		}
		if len(complaints) == 0 {
			return err
		}
		log.Printf("  ⚠️  Fetch failed, continuing with %d cached complaints: %v", len(complaints), err)
	}

	log.Printf("🎉 Active complaints this cycle: %d", len(complaints))

	m.cleanupResolved(complaints)

	newComplaints := make([]domain.Complaint, 0)
	for _, complaint := range complaints {
		if m.store.IsNew(complaint.ComplaintID) {
			log.Println("    🆕 New Complaint -", complaint.ComplaintID)
			newComplaints = append(newComplaints, complaint)
		}
	}

	if len(newComplaints) > 0 {
		m.notifyConcurrently(newComplaints)
	}

	return nil
}

// cleanupResolved finds complaints recorded in storage that no longer
// appear in the portal's active list, marks their Telegram messages as
// resolved and drops them from storage.
func (m *Monitor) cleanupResolved(active []domain.Complaint) {
	activeSet := make(map[string]bool, len(active))
	for _, complaint := range active {
		activeSet[complaint.ComplaintID] = true
	}

	for _, id := range m.store.AllSeen() {
		if activeSet[id] {
			continue
		}

		log.Printf("  ✅ Complaint %s no longer active on portal, cleaning up", id)

		// The telegram client no-ops when unconfigured
		messageID := m.store.GetMessageID(id)
		caretaker := m.store.GetCaretakerName(id)
		resolvedText := "✅ <b>RESOLVED ON PORTAL</b>\n\nComplaint " + id
		if caretaker != "" {
			resolvedText += "\n👤 " + caretaker
		}
		if err := m.tg.EditMessageText(m.cfg.TelegramChatID, messageID, resolvedText); err != nil {
			log.Printf("  ⚠️  Failed to edit message for %s: %v", id, err)
		}

		if _, err := m.store.RemoveIfExists(id); err != nil {
			log.Printf("  ⚠️  Failed to remove %s from storage: %v", id, err)
		}
	}
}

// notifyConcurrently pushes new complaints through the worker pool and
// batch-saves the successfully notified ones.
func (m *Monitor) notifyConcurrently(complaints []domain.Complaint) {
	pool := NewWorkerPool(m.tg, m.cfg.WorkerPoolSize)

	go func() {
		for _, complaint := range complaints {
			pool.Submit(complaint)
		}
		pool.Close()
	}()

	var recordsToSave []storage.Record
	for result := range pool.Results() {
		if result.Error != nil {
			log.Printf("    ⚠️  Failed to process %s: %v", result.ComplaintID, result.Error)
			continue
		}

		recordsToSave = append(recordsToSave, storage.Record{
			ComplaintID:   result.ComplaintID,
			MessageID:     result.MessageID,
			RecordID:      result.RecordID,
			CaretakerName: result.CaretakerName,
		})

		// Flush in batches so a crash mid-cycle loses at most one batch
		if len(recordsToSave) >= m.cfg.BatchSize {
			m.saveRecords(recordsToSave)
			recordsToSave = recordsToSave[:0]
		}
	}

	if len(recordsToSave) > 0 {
		m.saveRecords(recordsToSave)
	}
}

func (m *Monitor) saveRecords(records []storage.Record) {
	if err := m.store.SaveMultiple(records); err != nil {
		log.Println("    ⚠️  Failed to save records:", err)
	} else {
		log.Printf("    ✓ Saved %d new complaints", len(records))
	}
}
