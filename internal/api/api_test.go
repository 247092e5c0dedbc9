// Package api_test provides behavior tests for the API package.
package api_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/hydrahost/internal/api"
	"github.com/jroosing/hydrahost/internal/api/models"
	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/logging"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
)

type noServers struct{}

func (noServers) Servers() []server.Server { return nil }
func (noServers) Server(string) (server.Server, bool) { return nil, false }

func createTestConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    8080,
	}
}

func newTestServer(cfg config.APIConfig, reg *metrics.Registry) *api.Server {
	return api.New(cfg, noServers{}, reg, logging.Discard())
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

// ============================================================================
// Server Creation Tests
// ============================================================================

func TestServer_Addr(t *testing.T) {
	cfg := createTestConfig()
	cfg.Host = "0.0.0.0"
	cfg.Port = 9090

	assert.Equal(t, "0.0.0.0:9090", newTestServer(cfg, nil).Addr())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := newTestServer(createTestConfig(), nil)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(t.Context()))
	assert.NoError(t, <-done, "a clean shutdown is not an error")
}

// ============================================================================
// Routes Tests
// ============================================================================

func TestRoutes_HealthEndpoint(t *testing.T) {
	w := performRequest(newTestServer(createTestConfig(), nil).Engine(), http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRoutes_StatsEndpoint(t *testing.T) {
	w := performRequest(newTestServer(createTestConfig(), nil).Engine(), http.MethodGet, "/api/v1/stats", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ServerStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Uptime)
	assert.Empty(t, resp.Servers)
}

func TestRoutes_MetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry("hydrahost")
	require.True(t, reg.Register(metrics.NewServerMetrics("dns", "DNS")))
	cfg := createTestConfig()
	cfg.APIKey = "secret-key"

	w := performRequest(newTestServer(cfg, reg).Engine(), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code, "metrics are not behind the API key")
	assert.Contains(t, w.Body.String(), "hydrahost_servers_registered 1")
	assert.Contains(t, w.Body.String(), `hydrahost_dns_requests_total{server="dns"} 0`)
}

func TestRoutes_NoMetricsWithoutRegistry(t *testing.T) {
	w := performRequest(newTestServer(createTestConfig(), nil).Engine(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_Swagger(t *testing.T) {
	w := performRequest(newTestServer(createTestConfig(), nil).Engine(), http.MethodGet, "/swagger/doc.json", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "HydraHost Management API")
	assert.Contains(t, w.Body.String(), "/servers/{name}/reset")
}

func TestRoutes_SwaggerDocumentsEveryRoute(t *testing.T) {
	engine := newTestServer(createTestConfig(), nil).Engine()
	w := performRequest(engine, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	for _, route := range engine.Routes() {
		path, ok := strings.CutPrefix(route.Path, "/api/v1")
		if !ok {
			continue
		}
		if i := strings.Index(path, ":name"); i >= 0 {
			path = path[:i] + "{name}" + path[i+len(":name"):]
		}
		ops, ok := doc.Paths[path]
		if assert.True(t, ok, "%s is not documented", route.Path) {
			assert.Contains(t, ops, strings.ToLower(route.Method), "%s %s is not documented", route.Method, route.Path)
		}
	}
}

func TestRoutes_DNSRecordsWithoutDNSServer(t *testing.T) {
	w := performRequest(newTestServer(createTestConfig(), nil).Engine(), http.MethodGet, "/api/v1/dns/records", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ============================================================================
// API Key Protection Tests
// ============================================================================

func TestRoutes_APIKey(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{"valid key", "secret-key", "secret-key", http.StatusOK},
		{"invalid key", "secret-key", "wrong-key", http.StatusUnauthorized},
		{"missing key", "secret-key", "", http.StatusUnauthorized},
		{"no key configured", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			cfg.APIKey = tt.configured

			req := httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil)
			if tt.sent != "" {
				req.Header.Set("X-Api-Key", tt.sent)
			}
			w := httptest.NewRecorder()
			newTestServer(cfg, nil).Engine().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// ============================================================================
// Static UI Tests
// ============================================================================

func TestStaticUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>hydrahost</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	cfg := createTestConfig()
	cfg.StaticDir = dir
	engine := newTestServer(cfg, nil).Engine()

	w := performRequest(engine, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "console.log")

	w = performRequest(engine, http.MethodGet, "/servers/dns", "")
	assert.Equal(t, http.StatusOK, w.Code, "client-side routes fall back to index.html")
	assert.Contains(t, w.Body.String(), "hydrahost")

	w = performRequest(engine, http.MethodGet, "/api/v1/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
