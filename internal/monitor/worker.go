// Package monitor runs the periodic complaint refresh cycle: paged
// fetching, new-complaint detection, concurrent notification dispatch and
// resolved-complaint cleanup.
package monitor

import (
	"log"
	"sync"
	"time"

	"cportal/internal/domain"
)

// Notifier sends complaint notifications. The telegram client satisfies
// this; tests substitute a stub.
type Notifier interface {
	SendComplaintMessage(complaint domain.Complaint) (string, error)
}

// ProcessResult is the outcome of notifying one new complaint.
type ProcessResult struct {
	ComplaintID   string
	RecordID      string
	CaretakerName string
	MessageID     string
	Error         error
}

// Worker represents a single worker in the notification pool.
//
// Lifecycle:
//  1. Pull a complaint from the jobs channel
//  2. Send the notification
//  3. Push the result to the results channel
//  4. Repeat until the jobs channel closes
type Worker struct {
	id      int
	jobs    <-chan domain.Complaint
	results chan<- ProcessResult
	tg      Notifier
	wg      *sync.WaitGroup
}

// WorkerPool manages concurrent notification workers.
//
// Benefits:
//   - Controlled concurrency (prevents hammering the Telegram API)
//   - Backpressure handling (buffered job channel)
//   - Graceful shutdown (wait for all workers to finish)
type WorkerPool struct {
	workers     []*Worker
	jobs        chan domain.Complaint
	results     chan ProcessResult
	wg          sync.WaitGroup
	workerCount int
}

// NewWorkerPool creates and starts a notification worker pool.
func NewWorkerPool(tg Notifier, workerCount int) *WorkerPool {
	log.Printf("  → Creating worker pool with %d workers...\n", workerCount)

	pool := &WorkerPool{
		workers:     make([]*Worker, workerCount),
		jobs:        make(chan domain.Complaint, 100),
		results:     make(chan ProcessResult, 100),
		workerCount: workerCount,
	}

	for i := 0; i < workerCount; i++ {
		worker := &Worker{
			id:      i + 1,
			jobs:    pool.jobs,
			results: pool.results,
			tg:      tg,
			wg:      &pool.wg,
		}

		pool.workers[i] = worker
		pool.wg.Add(1)

		go worker.start()
	}

	log.Printf("  ✓ Worker pool started with %d workers\n", workerCount)
	return pool
}

// Submit adds a complaint to the processing queue.
//
// Non-blocking while the job buffer has space; blocks otherwise until a
// worker picks up a job.
func (p *WorkerPool) Submit(complaint domain.Complaint) {
	p.jobs <- complaint
}

// Close closes the job channel and waits for all workers to finish.
//
// Shutdown flow:
//  1. Close jobs channel (workers stop after their current job)
//  2. Wait for all workers to finish
//  3. Close results channel (signals no more results coming)
func (p *WorkerPool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

// Results returns the read-only results channel.
func (p *WorkerPool) Results() <-chan ProcessResult {
	return p.results
}

// start begins the worker's processing loop.
//
// Errors are logged and carried in the result; a failed job never crashes
// the worker.
func (w *Worker) start() {
	defer w.wg.Done()

	log.Printf("  ✓ Worker #%d started\n", w.id)

	for job := range w.jobs {
		log.Printf("  [Worker #%d] Processing complaint %s\n", w.id, job.ComplaintID)

		result := w.processComplaint(job)
		w.results <- result

		if result.Error != nil {
			log.Printf("  [Worker #%d] ✗ Failed to process %s: %v\n", w.id, job.ComplaintID, result.Error)
		} else {
			log.Printf("  [Worker #%d] ✓ Processed %s successfully\n", w.id, job.ComplaintID)
		}
	}

	log.Printf("  ✓ Worker #%d stopped\n", w.id)
}

// processComplaint sends one complaint notification.
//
// The complaint arrives fully normalized, so the worker only dispatches
// and records the resulting Telegram message ID.
func (w *Worker) processComplaint(complaint domain.Complaint) ProcessResult {
	result := ProcessResult{
		ComplaintID:   complaint.ComplaintID,
		RecordID:      complaint.ID,
		CaretakerName: complaint.Caretaker,
	}

	messageID, err := w.tg.SendComplaintMessage(complaint)
	if err != nil {
		result.Error = err
		return result
	}
	result.MessageID = messageID

	// Telegram allows ~30 messages/second; with 10 workers this keeps us
	// at 10/second
	time.Sleep(100 * time.Millisecond)

	return result
}
