package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ServerMetrics
// =============================================================================

func TestServerMetrics_Counters(t *testing.T) {
	m := NewServerMetrics("dns-main", "DNS")

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.RequestHandled()
	m.BytesReceived(40)
	m.BytesSent(56)
	m.BytesSent(-1)
	m.ErrorOccurred()
	m.Inc("nxdomain")
	m.Add("nxdomain", 2)

	s := m.Snapshot()
	assert.Equal(t, "dns-main", s.Name)
	assert.Equal(t, "DNS", s.Kind)
	assert.Equal(t, int64(1), s.ActiveConnections)
	assert.Equal(t, uint64(2), s.TotalConnections)
	assert.Equal(t, uint64(1), s.TotalRequests)
	assert.Equal(t, uint64(40), s.BytesReceived)
	assert.Equal(t, uint64(56), s.BytesSent)
	assert.Equal(t, uint64(1), s.TotalErrors)
	assert.Equal(t, map[string]uint64{"nxdomain": 3}, s.Custom)
	assert.Equal(t, uint64(3), m.Counter("nxdomain"))
	assert.Zero(t, m.Counter("unknown"))
}

func TestServerMetrics_ConcurrentCustomCounters(t *testing.T) {
	m := NewServerMetrics("dns", "DNS")

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			for range 100 {
				m.Inc("answers")
			}
		})
	}
	wg.Wait()

	assert.Equal(t, uint64(5000), m.Counter("answers"))
}

// =============================================================================
// Registry
// =============================================================================

func TestRegistry_FirstRegistrantWins(t *testing.T) {
	r := NewRegistry("")
	first := NewServerMetrics("dns", "DNS")
	second := NewServerMetrics("dns", "DNS")

	assert.True(t, r.Register(first))
	assert.False(t, r.Register(second))

	got, ok := r.Get("dns")
	require.True(t, ok)
	assert.Same(t, first, got)

	assert.False(t, r.UnregisterMetrics(second), "loser must not evict the winner")
	assert.True(t, r.UnregisterMetrics(first))
	_, ok = r.Get("dns")
	assert.False(t, ok)
	assert.False(t, r.Unregister("dns"))
}

func TestRegistry_Render(t *testing.T) {
	r := NewRegistry("hydra")
	a := NewServerMetrics("alpha", "DNS")
	b := NewServerMetrics("beta", "SMTP")
	require.True(t, r.Register(a))
	require.True(t, r.Register(b))

	a.ConnectionOpened()
	a.RequestHandled()
	a.Inc("nxdomain")
	a.Inc("requests") // collides with a standard family, never exported
	b.ConnectionOpened()
	b.ConnectionOpened()

	text, err := r.Text()
	require.NoError(t, err)

	assert.Contains(t, text, "hydra_servers_registered 2\n")
	assert.Contains(t, text, "hydra_connections_total 3\n")
	assert.Contains(t, text, `hydra_dns_connections_total{server="alpha"} 1`)
	assert.Contains(t, text, `hydra_dns_requests_total{server="alpha"} 1`)
	assert.Contains(t, text, `hydra_dns_nxdomain_total{server="alpha"} 1`)
	assert.Contains(t, text, `hydra_smtp_connections_total{server="beta"} 2`)
	assert.Contains(t, text, "# TYPE hydra_dns_requests_total counter")
	assert.Contains(t, text, "# TYPE hydra_connections_active gauge")

	lastAggregate := strings.LastIndex(text, "# TYPE hydra_servers_registered")
	firstServer := strings.Index(text, "# TYPE hydra_dns_")
	require.NotEqual(t, -1, lastAggregate)
	require.NotEqual(t, -1, firstServer)
	assert.Less(t, strings.LastIndex(text, "# TYPE hydra_requests_total"), firstServer)
	assert.Less(t, lastAggregate, firstServer, "aggregate families come before per-server families")
}

func TestRegistry_RenderEmpty(t *testing.T) {
	text, err := NewRegistry("hydra").Text()
	require.NoError(t, err)
	assert.Contains(t, text, "hydra_servers_registered 0\n")
	assert.NotContains(t, text, "server=")
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry("hydra")
	require.True(t, r.Register(NewServerMetrics("dns", "DNS")))

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), `hydra_dns_uptime_seconds{server="dns"}`)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "dns", sanitize("DNS"))
	assert.Equal(t, "acl_denied", sanitize("acl-denied"))
	assert.Equal(t, "_9lives", sanitize("9lives"))
}
