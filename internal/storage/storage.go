// Package storage provides persistent and in-memory storage for notified
// complaints.
//
// This package implements a two-tier storage system:
//  1. CSV file for persistence (survives restarts)
//  2. In-memory cache for fast lookups (O(1) instead of O(n))
//
// Thread-safety:
//   - All operations are protected by mutex
//   - Safe for concurrent access from multiple goroutines
//   - Atomic read-modify-write operations
package storage

import (
	"bufio"
	"encoding/csv"
	"log"
	"os"
	"sync"
)

// bufferSize for buffered I/O (64KB). Larger buffer means fewer system calls.
const bufferSize = 64 * 1024

// Record represents one notified complaint.
//
// Fields:
//   - ComplaintID: Display complaint number (e.g. "CMP-12345")
//   - MessageID: Telegram message ID for later editing
//   - RecordID: Backend record ID for mutation calls
//   - CaretakerName: Complainant name for display
type Record struct {
	ComplaintID   string
	MessageID     string
	RecordID      string
	CaretakerName string
}

// Store provides thread-safe storage for notified-complaint data.
//
// Data flow:
//
//	Read:   CSV → load into maps → serve from maps
//	Write:  append to CSV → update maps
//	Delete: remove from maps → rewrite entire CSV
//
// Deletions rewrite the whole file because CSV has no in-place delete;
// they only happen when complaints resolve, which is rare.
type Store struct {
	mu             sync.Mutex
	filePath       string
	seen           map[string]bool
	messageIDs     map[string]string
	recordIDs      map[string]string
	caretakerNames map[string]string
}

// New creates a Store backed by the given CSV file and loads existing data.
//
// Initialization flow:
//  1. Create empty maps
//  2. Load data from the CSV file (if it exists)
//  3. Return ready-to-use storage
func New(filePath string) *Store {
	s := &Store{
		filePath:       filePath,
		seen:           make(map[string]bool),
		messageIDs:     make(map[string]string),
		recordIDs:      make(map[string]string),
		caretakerNames: make(map[string]string),
	}

	s.loadFromFile()

	return s
}

// loadFromFile loads notified complaints from the CSV file into memory.
//
// CSV columns: ComplaintID, MessageID, RecordID, CaretakerName.
// A missing file is normal on first run. Malformed rows are skipped.
func (s *Store) loadFromFile() {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("📋 No existing complaint file found. Creating new one...")
		} else {
			log.Println("⚠️  Failed to open complaint file:", err)
		}
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // rows from older versions may be shorter
	records, err := reader.ReadAll()
	if err != nil {
		log.Println("⚠️  Failed to read complaint file:", err)
		return
	}

	count := 0
	for i, record := range records {
		// Skip header row if present
		if i == 0 && len(record) > 0 && record[0] == "ComplaintID" {
			continue
		}

		if len(record) >= 1 && record[0] != "" {
			complaintID := record[0]
			s.seen[complaintID] = true

			if len(record) >= 2 {
				s.messageIDs[complaintID] = record[1]
			}
			if len(record) >= 3 {
				s.recordIDs[complaintID] = record[2]
			}
			if len(record) >= 4 {
				s.caretakerNames[complaintID] = record[3]
			}

			count++
		}
	}

	log.Println("📚 Loaded", count, "previously seen complaints from storage")
}

// IsNew checks whether a complaint has not been notified yet.
//
// This is the hottest call in the fetch cycle, so it is a plain O(1)
// map lookup with no file I/O.
func (s *Store) IsNew(complaintID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.seen[complaintID]
}

// MarkAsSeen marks a complaint as notified in memory only.
//
// Use SaveMultiple to persist to disk.
func (s *Store) MarkAsSeen(complaintID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[complaintID] = true
}

// GetMessageID retrieves the Telegram message ID for a complaint.
func (s *Store) GetMessageID(complaintID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageIDs[complaintID]
}

// SetMessageID sets the Telegram message ID for a complaint (memory only).
func (s *Store) SetMessageID(complaintID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageIDs[complaintID] = messageID
}

// GetRecordID retrieves the backend record ID for a complaint.
func (s *Store) GetRecordID(complaintID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordIDs[complaintID]
}

// GetCaretakerName retrieves the complainant name for a complaint.
func (s *Store) GetCaretakerName(complaintID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caretakerNames[complaintID]
}

// Exists checks whether a complaint is recorded in storage.
func (s *Store) Exists(complaintID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[complaintID]
}

// AllSeen returns every recorded complaint ID.
//
// Used to find resolved complaints: IDs in storage that no longer appear
// in the portal's open list.
func (s *Store) AllSeen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	complaints := make([]string, 0, len(s.seen))
	for id := range s.seen {
		complaints = append(complaints, id)
	}
	return complaints
}

// SaveMultiple atomically appends multiple records to storage.
//
// Batching multiple writes into one file operation is the preferred way
// to save. The in-memory maps are updated only after a successful write,
// keeping file and memory consistent.
func (s *Store) SaveMultiple(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	bufferedWriter := bufio.NewWriterSize(file, bufferSize)
	writer := csv.NewWriter(bufferedWriter)

	for _, r := range records {
		if err := writer.Write([]string{r.ComplaintID, r.MessageID, r.RecordID, r.CaretakerName}); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if err := bufferedWriter.Flush(); err != nil {
		return err
	}

	for _, r := range records {
		s.seen[r.ComplaintID] = true
		s.messageIDs[r.ComplaintID] = r.MessageID
		s.recordIDs[r.ComplaintID] = r.RecordID
		s.caretakerNames[r.ComplaintID] = r.CaretakerName
	}

	return nil
}

// RemoveIfExists atomically checks whether a complaint is recorded and
// removes it, rewriting the CSV.
//
// Returns:
//   - bool: true if the complaint was removed, false if it wasn't recorded
//   - error: file I/O error, nil on success
func (s *Store) RemoveIfExists(complaintID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen[complaintID] {
		return false, nil
	}

	delete(s.seen, complaintID)
	delete(s.messageIDs, complaintID)
	delete(s.recordIDs, complaintID)
	delete(s.caretakerNames, complaintID)

	return true, s.rewriteFile()
}

// rewriteFile rewrites the entire CSV with current in-memory data.
//
// Caller must hold the mutex.
func (s *Store) rewriteFile() error {
	file, err := os.OpenFile(s.filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	bufferedWriter := bufio.NewWriterSize(file, bufferSize)
	writer := csv.NewWriter(bufferedWriter)

	for id := range s.seen {
		record := []string{id, s.messageIDs[id], s.recordIDs[id], s.caretakerNames[id]}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return bufferedWriter.Flush()
}
