// Package health provides the health check endpoint for the cportal agent.
//
// This package implements:
//   - HTTP health check endpoint
//   - Uptime monitoring
//   - Last-fetch status reporting
//   - Per-resource cache freshness reporting
package health

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"cportal/internal/cache"
)

// KindStatus reports cache freshness for one resource kind.
type KindStatus struct {
	Kind    string `json:"kind"`
	Age     string `json:"age"`     // "never" when the kind was never fetched
	TTL     string `json:"ttl"`
	IsStale bool   `json:"is_stale"`
}

// Status represents the application health status returned by /health.
type Status struct {
	Status          string       `json:"status"`
	Uptime          string       `json:"uptime"`
	LastFetchTime   string       `json:"last_fetch_time"`
	LastFetchStatus string       `json:"last_fetch_status"`
	Cache           []KindStatus `json:"cache"`
}

// Monitor tracks application health metrics.
//
// Thread-safety:
//   - All fields are protected by RWMutex
//   - Safe for concurrent updates from multiple goroutines
type Monitor struct {
	startTime       time.Time
	lastFetchTime   time.Time
	lastFetchStatus string
	store           *cache.Store
	mu              sync.RWMutex
}

// NewMonitor creates a health monitor reporting on the given cache store.
func NewMonitor(store *cache.Store) *Monitor {
	return &Monitor{
		startTime:       time.Now(),
		lastFetchStatus: "not started",
		store:           store,
	}
}

// UpdateFetchStatus records the outcome of a fetch cycle.
//
// Call with "success" after a good cycle, or "error: details" after a
// failed one.
func (m *Monitor) UpdateFetchStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFetchTime = time.Now()
	m.lastFetchStatus = status
}

// GetStatus returns the current health status including per-kind cache
// freshness.
func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.startTime)

	status := Status{
		Status:          "healthy",
		Uptime:          uptime.String(),
		LastFetchTime:   m.lastFetchTime.Format("2006-01-02 15:04:05"),
		LastFetchStatus: m.lastFetchStatus,
	}

	for _, kind := range cache.Kinds {
		ks := KindStatus{
			Kind:    string(kind),
			TTL:     m.store.TTL(kind).String(),
			IsStale: m.store.IsStale(kind),
			Age:     "never",
		}
		if age, ok := m.store.Age(kind); ok {
			ks.Age = age.String()
		}
		status.Cache = append(status.Cache, ks)
	}

	return status
}

// Handler returns the /health HTTP handler.
func Handler(monitor *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := monitor.GetStatus()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// StartServer starts the health check HTTP server in a background
// goroutine.
//
// Endpoints:
//   - GET /health: JSON health status
func StartServer(monitor *Monitor, port string) {
	http.HandleFunc("/health", Handler(monitor))

	go func() {
		log.Printf("✓ Health check server started on :%s", port)
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			log.Printf("⚠️  Health check server error: %v", err)
		}
	}()
}
