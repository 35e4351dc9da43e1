package observability

import (
	"fmt"
	"sync"
	"time"
)

// routeStats accumulates per-route counters.
type routeStats struct {
	Count         int64
	TotalDuration time.Duration
}

// Metrics keeps in-process request and error counters keyed by route. It is
// intentionally not a metrics backend; Snapshot exposes the counters for
// debugging or a future exporter.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]*routeStats
	errors   map[string]int64
}

// NewMetrics initializes empty counter maps.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]*routeStats),
		errors:   make(map[string]int64),
	}
}

// RecordRequest counts a completed request and accumulates its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := fmt.Sprintf("%s %s %d", method, path, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &routeStats{}
		m.requests[key] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
}

// RecordError counts a request that ended in an error envelope, keyed by the
// domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := fmt.Sprintf("%s %s %s", method, path, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key]++
}

// RouteSnapshot is a point-in-time view of one route's counters.
type RouteSnapshot struct {
	Count      int64
	AvgLatency time.Duration
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() (requests map[string]RouteSnapshot, errors map[string]int64) {
	requests = make(map[string]RouteSnapshot)
	errors = make(map[string]int64)
	if m == nil {
		return requests, errors
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, stats := range m.requests {
		snap := RouteSnapshot{Count: stats.Count}
		if stats.Count > 0 {
			snap.AvgLatency = stats.TotalDuration / time.Duration(stats.Count)
		}
		requests[key] = snap
	}
	for key, count := range m.errors {
		errors[key] = count
	}
	return requests, errors
}
