package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/hydrahost/internal/api/handlers"
	"github.com/jroosing/hydrahost/internal/logging"
	"github.com/jroosing/hydrahost/internal/server"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// socketless is a server whose listening step binds nothing and can be
// told to fail.
type socketless struct {
	*server.Runtime

	mu   sync.Mutex
	fail error
}

func (s *socketless) StartListening(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail
}

func (s *socketless) StopListening(context.Context) error { return nil }

func (s *socketless) failNextStart(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func newSocketless(t *testing.T, name, kind string) *socketless {
	t.Helper()
	s := &socketless{}
	rt, err := server.NewRuntime(server.Options{Name: name, Kind: kind, Logger: logging.Discard()}, s)
	require.NoError(t, err)
	s.Runtime = rt
	return s
}

// directory is a fixed, ordered ServerDirectory.
type directory []server.Server

func (d directory) Servers() []server.Server { return d }

func (d directory) Server(name string) (server.Server, bool) {
	for _, s := range d {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/servers", h.ListServers)
	api.GET("/servers/:name", h.GetServer)
	api.GET("/servers/:name/health", h.ServerHealth)
	api.POST("/servers/:name/start", h.StartServer)
	api.POST("/servers/:name/stop", h.StopServer)
	api.POST("/servers/:name/reset", h.ResetServer)
	api.GET("/dns/records", h.ListDNSRecords)
	api.POST("/dns/records", h.AddDNSRecord)
	api.DELETE("/dns/records/:name", h.DeleteDNSRecord)

	return r
}

func performRequest(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
