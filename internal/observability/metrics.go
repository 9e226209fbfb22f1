package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps process-local counters. Request and error keys use the route
// template, never the raw path, so ids in URLs do not grow the maps. A nil
// *Metrics is a valid no-op.
type Metrics struct {
	mu            sync.Mutex
	started       time.Time
	requests      map[string]*RequestStats
	errors        map[string]int64
	authDecisions map[string]int64
}

// RequestStats aggregates requests for one route, method and status.
type RequestStats struct {
	Count        int64         `json:"count"`
	TotalLatency time.Duration `json:"total_latency_ns"`
	MaxLatency   time.Duration `json:"max_latency_ns"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Requests      map[string]RequestStats `json:"requests"`
	Errors        map[string]int64        `json:"errors"`
	AuthDecisions map[string]int64        `json:"auth_decisions"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		started:       time.Now(),
		requests:      make(map[string]*RequestStats),
		errors:        make(map[string]int64),
		authDecisions: make(map[string]int64),
	}
}

// RecordRequest counts a finished request under "METHOD route status".
func (m *Metrics) RecordRequest(route, method string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	key := method + " " + route + " " + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.requests[key]
	if !ok {
		stats = &RequestStats{}
		m.requests[key] = stats
	}
	stats.Count++
	stats.TotalLatency += latency
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}
}

// RecordError counts an error response under "METHOD route code".
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method+" "+route+" "+code]++
}

// RecordAuthDecision counts gate outcomes as "outcome" or "outcome|reason".
func (m *Metrics) RecordAuthDecision(outcome, reason string) {
	if m == nil {
		return
	}
	key := outcome
	if reason != "" {
		key += "|" + reason
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authDecisions[key]++
}

func (m *Metrics) AuthDecisions() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCounts(m.authDecisions)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	requests := make(map[string]RequestStats, len(m.requests))
	for k, v := range m.requests {
		requests[k] = *v
	}
	return Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      requests,
		Errors:        copyCounts(m.errors),
		AuthDecisions: copyCounts(m.authDecisions),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
