// Package handlers implements the REST API endpoint handlers for HydraHost.
//
// REST API Endpoints:
//
// System:
//   - GET /api/v1/health - Health check status
//   - GET /api/v1/stats - Host statistics and a summary of every server
//
// Servers:
//   - GET /api/v1/servers - List servers with state and statistics
//   - GET /api/v1/servers/:name - One server
//   - POST /api/v1/servers/:name/start - Start a stopped server
//   - POST /api/v1/servers/:name/stop - Stop a running server
//   - POST /api/v1/servers/:name/reset - Move a failed server back to stopped
//   - GET /api/v1/servers/:name/health - Health probe, 503 when not running
//
// DNS records:
//   - GET /api/v1/dns/records - Zones and records of the DNS server
//   - POST /api/v1/dns/records - Add or replace a record
//   - DELETE /api/v1/dns/records/:name - Remove every record of a name
//
// Authentication:
//
// When an API key is configured every /api/v1 endpoint requires the
// X-API-Key header.
//
// @title HydraHost Management API
// @version 1.0
// @description REST API for controlling HydraHost protocol servers and DNS records.
//
// @contact.name HydraHost Support
// @contact.url https://github.com/jroosing/hydrahost
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jroosing/hydrahost/internal/server"
	"github.com/jroosing/hydrahost/internal/zone"
)

// ServerDirectory gives the API access to the servers the host runs.
type ServerDirectory interface {
	Servers() []server.Server
	Server(name string) (server.Server, bool)
}

// Resetter is implemented by servers that can leave the error state.
type Resetter interface {
	Reset() error
}

// RecordManager is the DNS server surface the record endpoints use.
type RecordManager interface {
	Name() string
	AddRecord(name, address string) error
	RemoveRecord(name string) bool
	Store() *zone.Store
}

// Handler contains dependencies for API handlers.
type Handler struct {
	servers   ServerDirectory
	logger    *slog.Logger
	startTime time.Time

	// actionTimeout bounds start and stop requests.
	actionTimeout time.Duration

	mu  sync.RWMutex
	dns RecordManager
}

// New creates a Handler over the given servers.
func New(servers ServerDirectory, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		servers:       servers,
		logger:        logger,
		startTime:     time.Now(),
		actionTimeout: 10 * time.Second,
	}
}

// SetDNS sets the DNS server whose records the API manages.
func (h *Handler) SetDNS(dns RecordManager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dns = dns
}

// GetDNS returns the managed DNS server, or nil.
func (h *Handler) GetDNS() RecordManager {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dns
}

func (h *Handler) actionContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, h.actionTimeout)
}
