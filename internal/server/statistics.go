package server

import (
	"sync/atomic"
	"time"
)

// Statistics collects connection and traffic counters for one server.
// All methods are safe for concurrent use. The object handed out by
// Runtime.Statistics is live: readers observe updates as they happen.
type Statistics struct {
	activeConnections atomic.Int64
	totalConnections  atomic.Uint64
	totalRequests     atomic.Uint64
	bytesSent         atomic.Uint64
	bytesReceived     atomic.Uint64
	totalErrors       atomic.Uint64
	startTime         atomic.Int64 // unix nanoseconds, zero until started
}

func (s *Statistics) ActiveConnections() int64 { return s.activeConnections.Load() }
func (s *Statistics) TotalConnections() uint64 { return s.totalConnections.Load() }
func (s *Statistics) TotalRequests() uint64    { return s.totalRequests.Load() }
func (s *Statistics) BytesSent() uint64        { return s.bytesSent.Load() }
func (s *Statistics) BytesReceived() uint64    { return s.bytesReceived.Load() }
func (s *Statistics) TotalErrors() uint64      { return s.totalErrors.Load() }

// StartTime returns when the server last started, or the zero time.
func (s *Statistics) StartTime() time.Time {
	ns := s.startTime.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Uptime is computed at call time from StartTime.
func (s *Statistics) Uptime() time.Duration {
	ns := s.startTime.Load()
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}

// Reset zeroes every counter and the start time.
func (s *Statistics) Reset() {
	s.activeConnections.Store(0)
	s.totalConnections.Store(0)
	s.totalRequests.Store(0)
	s.bytesSent.Store(0)
	s.bytesReceived.Store(0)
	s.totalErrors.Store(0)
	s.startTime.Store(0)
}

func (s *Statistics) markStarted(t time.Time) { s.startTime.Store(t.UnixNano()) }

func (s *Statistics) connectionOpened() {
	s.activeConnections.Add(1)
	s.totalConnections.Add(1)
}

func (s *Statistics) connectionClosed() { s.activeConnections.Add(-1) }

// StatisticsSnapshot is a point-in-time copy of Statistics.
type StatisticsSnapshot struct {
	ActiveConnections int64     `json:"active_connections"`
	TotalConnections  uint64    `json:"total_connections"`
	TotalRequests     uint64    `json:"total_requests"`
	BytesSent         uint64    `json:"bytes_sent"`
	BytesReceived     uint64    `json:"bytes_received"`
	TotalErrors       uint64    `json:"total_errors"`
	StartTime         time.Time `json:"start_time"`
	UptimeSeconds     float64   `json:"uptime_seconds"`
}

// Snapshot returns the current values.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		ActiveConnections: s.ActiveConnections(),
		TotalConnections:  s.TotalConnections(),
		TotalRequests:     s.TotalRequests(),
		BytesSent:         s.BytesSent(),
		BytesReceived:     s.BytesReceived(),
		TotalErrors:       s.TotalErrors(),
		StartTime:         s.StartTime(),
		UptimeSeconds:     s.Uptime().Seconds(),
	}
}
