// Package monitor keeps in-process counters for the status API.
package monitor

import (
	"sync"
	"time"
)

// VenueStats are the counters tracked for one venue.
type VenueStats struct {
	CyclesCompleted int64     `json:"cycles_completed"`
	CyclesFailed    int64     `json:"cycles_failed"`
	OrdersPlaced    int64     `json:"orders_placed"`
	OrdersCanceled  int64     `json:"orders_canceled"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorAt     time.Time `json:"last_error_at,omitzero"`
	LastCycleAt     time.Time `json:"last_cycle_at,omitzero"`
}

// Metrics aggregates per-venue counters. Safe for concurrent use.
type Metrics struct {
	mu      sync.Mutex
	started time.Time
	venues  map[string]*VenueStats
}

func NewMetrics() *Metrics {
	return &Metrics{started: time.Now(), venues: make(map[string]*VenueStats)}
}

func (m *Metrics) stats(venue string) *VenueStats {
	s, ok := m.venues[venue]
	if !ok {
		s = &VenueStats{}
		m.venues[venue] = s
	}
	return s
}

// CycleCompleted records a successful cycle.
func (m *Metrics) CycleCompleted(venue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats(venue)
	s.CyclesCompleted++
	s.LastCycleAt = time.Now()
}

// CycleFailed records a failed cycle and its cause.
func (m *Metrics) CycleFailed(venue string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats(venue)
	s.CyclesFailed++
	s.LastCycleAt = time.Now()
	if err != nil {
		s.LastError = err.Error()
		s.LastErrorAt = time.Now()
	}
}

// OrderPlaced bumps the placement counter.
func (m *Metrics) OrderPlaced(venue string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats(venue).OrdersPlaced++
}

// OrdersCanceled bumps the cancellation counter by n.
func (m *Metrics) OrdersCanceled(venue string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats(venue).OrdersCanceled += int64(n)
}

// Snapshot returns a copy of every venue's counters plus process uptime.
func (m *Metrics) Snapshot() (map[string]VenueStats, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]VenueStats, len(m.venues))
	for venue, s := range m.venues {
		out[venue] = *s
	}
	return out, time.Since(m.started)
}
