// Package metrics holds per-server counters and the registry that exposes
// them in the Prometheus text format.
//
// A Registry is constructed by the host and handed to every server. Servers
// create a ServerMetrics when they start, register it under their name and
// unregister it when they stop. The first registrant of a name wins.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// ServerMetrics collects counters for one running server.
// All methods are safe for concurrent use.
type ServerMetrics struct {
	name    string
	kind    string
	started time.Time

	activeConnections atomic.Int64
	totalConnections  atomic.Uint64
	totalRequests     atomic.Uint64
	bytesSent         atomic.Uint64
	bytesReceived     atomic.Uint64
	totalErrors       atomic.Uint64

	mu     sync.RWMutex
	custom map[string]*atomic.Uint64
}

// NewServerMetrics creates metrics for the server called name. kind is the
// protocol ("DNS", "SMTP", ...) and becomes part of the exported metric names.
func NewServerMetrics(name, kind string) *ServerMetrics {
	return &ServerMetrics{
		name:    name,
		kind:    kind,
		started: time.Now(),
		custom:  make(map[string]*atomic.Uint64),
	}
}

// Name returns the server name the metrics belong to.
func (m *ServerMetrics) Name() string { return m.name }

// Kind returns the server protocol.
func (m *ServerMetrics) Kind() string { return m.kind }

// ConnectionOpened records an accepted connection or received datagram.
func (m *ServerMetrics) ConnectionOpened() {
	m.activeConnections.Add(1)
	m.totalConnections.Add(1)
}

// ConnectionClosed records the end of a connection's handler.
func (m *ServerMetrics) ConnectionClosed() {
	m.activeConnections.Add(-1)
}

// RequestHandled records one protocol request.
func (m *ServerMetrics) RequestHandled() {
	m.totalRequests.Add(1)
}

// BytesSent adds n to the sent byte counter.
func (m *ServerMetrics) BytesSent(n int) {
	if n > 0 {
		m.bytesSent.Add(uint64(n))
	}
}

// BytesReceived adds n to the received byte counter.
func (m *ServerMetrics) BytesReceived(n int) {
	if n > 0 {
		m.bytesReceived.Add(uint64(n))
	}
}

// ErrorOccurred records a handler failure.
func (m *ServerMetrics) ErrorOccurred() {
	m.totalErrors.Add(1)
}

// Inc increments the named custom counter, creating it on first use.
func (m *ServerMetrics) Inc(counter string) {
	m.Add(counter, 1)
}

// Add adds delta to the named custom counter, creating it on first use.
func (m *ServerMetrics) Add(counter string, delta uint64) {
	m.mu.RLock()
	c, ok := m.custom[counter]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if c, ok = m.custom[counter]; !ok {
			c = new(atomic.Uint64)
			m.custom[counter] = c
		}
		m.mu.Unlock()
	}
	c.Add(delta)
}

// Counter returns the current value of a custom counter (zero if unknown).
func (m *ServerMetrics) Counter(counter string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.custom[counter]; ok {
		return c.Load()
	}
	return 0
}

// Snapshot is a point-in-time copy of a ServerMetrics.
type Snapshot struct {
	Name              string            `json:"name"`
	Kind              string            `json:"kind"`
	UptimeSeconds     float64           `json:"uptime_seconds"`
	ActiveConnections int64             `json:"active_connections"`
	TotalConnections  uint64            `json:"total_connections"`
	TotalRequests     uint64            `json:"total_requests"`
	BytesSent         uint64            `json:"bytes_sent"`
	BytesReceived     uint64            `json:"bytes_received"`
	TotalErrors       uint64            `json:"total_errors"`
	Custom            map[string]uint64 `json:"custom,omitempty"`
}

// Snapshot returns the current values.
func (m *ServerMetrics) Snapshot() Snapshot {
	s := Snapshot{
		Name:              m.name,
		Kind:              m.kind,
		UptimeSeconds:     time.Since(m.started).Seconds(),
		ActiveConnections: m.activeConnections.Load(),
		TotalConnections:  m.totalConnections.Load(),
		TotalRequests:     m.totalRequests.Load(),
		BytesSent:         m.bytesSent.Load(),
		BytesReceived:     m.bytesReceived.Load(),
		TotalErrors:       m.totalErrors.Load(),
	}
	m.mu.RLock()
	if len(m.custom) > 0 {
		s.Custom = make(map[string]uint64, len(m.custom))
		for k, c := range m.custom {
			s.Custom[k] = c.Load()
		}
	}
	m.mu.RUnlock()
	return s
}
