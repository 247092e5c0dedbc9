package models

import (
	"time"

	"github.com/jroosing/hydrahost/internal/server"
)

// ServerStatsResponse contains host runtime statistics and a summary of
// every server.
type ServerStatsResponse struct {
	Uptime        string               `json:"uptime"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	StartTime     time.Time            `json:"start_time"`
	GoRoutines    int                  `json:"goroutines"`
	MemoryAllocMB float64              `json:"memory_alloc_mb"`
	NumCPU        int                  `json:"num_cpu"`
	System        *SystemStats         `json:"system,omitempty"`
	Process       *ProcessStats        `json:"process,omitempty"`
	Servers       []ServerResponse     `json:"servers"`
	Totals        ServerTotalsResponse `json:"totals"`
}

// SystemStats describes the machine the host runs on.
type SystemStats struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platform_version"`
	Load1           float64 `json:"load1"`
	Load5           float64 `json:"load5"`
	Load15          float64 `json:"load15"`
	MemoryTotalMB   float64 `json:"memory_total_mb"`
	MemoryUsedPct   float64 `json:"memory_used_percent"`
}

// ProcessStats describes this process as the OS sees it.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSMB      float64 `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
}

// ServerTotalsResponse sums the counters of all servers.
type ServerTotalsResponse struct {
	Servers           int    `json:"servers"`
	Running           int    `json:"running"`
	ActiveConnections int64  `json:"active_connections"`
	TotalConnections  uint64 `json:"total_connections"`
	TotalRequests     uint64 `json:"total_requests"`
	TotalErrors       uint64 `json:"total_errors"`
}

// ServerResponse describes one protocol server.
type ServerResponse struct {
	Name       string                    `json:"name"`
	Kind       string                    `json:"kind"`
	State      string                    `json:"state"`
	Healthy    bool                      `json:"healthy"`
	Statistics server.StatisticsSnapshot `json:"statistics"`
	Counters   map[string]uint64         `json:"counters,omitempty"`
}

// ServersResponse is the response for GET /servers.
type ServersResponse struct {
	Servers []ServerResponse `json:"servers"`
	Count   int              `json:"count"`
}

// ServerActionResponse is returned by start, stop and reset.
type ServerActionResponse struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// ServerHealthResponse is the response for GET /servers/{name}/health.
type ServerHealthResponse struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	State   string `json:"state"`
}
