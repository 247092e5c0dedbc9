package dnsserver_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/dns"
	"github.com/jroosing/hydrahost/internal/dnsserver"
	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/logging"
	"github.com/jroosing/hydrahost/internal/metrics"
	"github.com/jroosing/hydrahost/internal/server"
)

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func testConfig(t *testing.T) config.DNSConfig {
	t.Helper()
	return config.DNSConfig{
		ServerConfig: config.ServerConfig{
			Enabled:        true,
			Name:           "dns-test",
			Port:           freeUDPPort(t),
			BindAddress:    "127.0.0.1",
			MaxConnections: 16,
		},
		Domains: []config.DomainConfig{
			{Name: "test.local", Authority: true},
			{Name: "example.org", Authority: false},
		},
		Resources: []config.ResourceConfig{
			{Type: "A", Name: "www.test.local", Address: "192.168.1.100"},
			{Type: "AAAA", Name: "v6.test.local", Address: "2001:db8::1"},
		},
	}
}

func startServer(t *testing.T, cfg config.DNSConfig, reg *metrics.Registry) *dnsserver.Server {
	t.Helper()
	s, err := dnsserver.New(cfg, reg, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		_ = s.Drain(2 * time.Second)
	})
	return s
}

func query(t *testing.T, s *dnsserver.Server, name string, qtype uint16) (*mdns.Msg, error) {
	t.Helper()
	c := &mdns.Client{Net: "udp", Timeout: 300 * time.Millisecond}
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	r, _, err := c.Exchange(m, s.Addr().String())
	if err == nil {
		assert.Equal(t, m.Id, r.Id)
		assert.True(t, r.Response)
	}
	return r, err
}

func answerA(t *testing.T, r *mdns.Msg) string {
	t.Helper()
	require.Len(t, r.Answer, 1)
	a, ok := r.Answer[0].(*mdns.A)
	require.True(t, ok, "answer is %T", r.Answer[0])
	assert.Equal(t, uint32(300), a.Hdr.Ttl)
	return a.A.String()
}

// ============================================================================
// Resolution
// ============================================================================

func TestServer_Resolution(t *testing.T) {
	s := startServer(t, testConfig(t), nil)

	tests := []struct {
		name     string
		qname    string
		wantCode int
		wantAddr string
	}{
		{"stored record", "www.test.local", mdns.RcodeSuccess, "192.168.1.100"},
		{"case insensitive", "WWW.Test.LOCAL", mdns.RcodeSuccess, "192.168.1.100"},
		{"miss under authoritative zone", "missing.test.local", mdns.RcodeNameError, ""},
		{"only AAAA stored", "v6.test.local", mdns.RcodeSuccess, "127.0.0.1"},
		{"miss under non-authoritative zone", "host.example.org", mdns.RcodeSuccess, "0.0.0.0"},
		{"miss outside any zone", "elsewhere.net", mdns.RcodeSuccess, "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := query(t, s, tt.qname, mdns.TypeA)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, r.Rcode)
			require.Len(t, r.Question, 1)
			assert.Equal(t, mdns.Fqdn(tt.qname), r.Question[0].Name)
			if tt.wantAddr == "" {
				assert.Empty(t, r.Answer)
				return
			}
			assert.Equal(t, tt.wantAddr, answerA(t, r))
		})
	}

	m := s.Metrics()
	assert.Equal(t, uint64(3), m.Counter(dnsserver.CounterAnswers))
	assert.Equal(t, uint64(1), m.Counter(dnsserver.CounterNXDomain))
	assert.Equal(t, uint64(2), m.Counter(dnsserver.CounterFallback))
	assert.Equal(t, uint64(6), s.Statistics().TotalRequests())
}

func TestServer_SimpleModeNeverSendsNXDomain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = "simple"
	s := startServer(t, cfg, nil)

	r, err := query(t, s, "missing.test.local", mdns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, mdns.RcodeSuccess, r.Rcode)
	assert.Equal(t, "0.0.0.0", answerA(t, r))
}

func TestServer_NonAQueriesAreDropped(t *testing.T) {
	s := startServer(t, testConfig(t), nil)

	_, err := query(t, s, "v6.test.local", mdns.TypeAAAA)
	require.Error(t, err, "no reply is sent for non-A queries")

	require.Eventually(t, func() bool {
		return s.Metrics().Counter(dnsserver.CounterDropped) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, s.Statistics().TotalErrors())
}

func TestServer_MalformedDatagramGetsNoReply(t *testing.T) {
	s := startServer(t, testConfig(t), nil)

	conn, err := net.Dial("udp4", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Short header, then a question whose label runs past the end.
	for _, payload := range [][]byte{
		{0x12, 0x34, 0x01},
		{0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0, 10, 'a', 'b'},
	} {
		_, err = conn.Write(payload)
		require.NoError(t, err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = conn.Read(make([]byte, 512))
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return s.Statistics().TotalErrors() == 2
	}, time.Second, 10*time.Millisecond)

	// The loop keeps serving.
	r, err := query(t, s, "www.test.local", mdns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.100", answerA(t, r))
}

func TestServer_ResponsesAreIgnored(t *testing.T) {
	s := startServer(t, testConfig(t), nil)

	m := new(mdns.Msg)
	m.SetQuestion("www.test.local.", mdns.TypeA)
	m.Response = true
	packed, err := m.Pack()
	require.NoError(t, err)

	conn, err := net.Dial("udp4", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write(packed)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = conn.Read(make([]byte, 512))
	require.Error(t, err)
	assert.Zero(t, s.Statistics().TotalRequests())
}

// ============================================================================
// Administration
// ============================================================================

func TestServer_AddRemoveRecord(t *testing.T) {
	s := startServer(t, testConfig(t), nil)

	err := s.AddRecord("host.example.", "not-an-ip")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, ok := s.Store().Lookup("host.example", 1)
	assert.False(t, ok)

	require.NoError(t, s.AddRecord("new.test.local", "10.1.2.3"))
	r, err := query(t, s, "new.test.local", mdns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", answerA(t, r))

	assert.True(t, s.RemoveRecord("NEW.test.local."))
	assert.False(t, s.RemoveRecord("new.test.local"))
	r, err = query(t, s, "new.test.local", mdns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, mdns.RcodeNameError, r.Rcode)
}

func TestNew_RejectsInvalidResource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Resources = append(cfg.Resources, config.ResourceConfig{Type: "A", Name: "bad", Address: "300.1.1.1"})
	_, err := dnsserver.New(cfg, nil, logging.Discard())
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestServer_MetricsExposition(t *testing.T) {
	reg := metrics.NewRegistry("hydrahost")
	s := startServer(t, testConfig(t), reg)

	_, err := query(t, s, "www.test.local", mdns.TypeA)
	require.NoError(t, err)

	text, err := reg.Text()
	require.NoError(t, err)
	assert.Contains(t, text, `hydrahost_dns_answers_total{server="dns-test"} 1`)
	assert.Contains(t, text, `hydrahost_dns_requests_total{server="dns-test"} 1`)
	assert.Contains(t, text, "hydrahost_servers_registered 1")
}

func TestServer_AccessList(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedNetworks = []string{"192.0.2.0/24"}
	s := startServer(t, cfg, nil)

	_, err := query(t, s, "www.test.local", mdns.TypeA)
	require.Error(t, err)
	require.Eventually(t, func() bool {
		return s.Metrics().Counter(server.CounterACLDenied) == 1
	}, time.Second, 10*time.Millisecond)
}

// ============================================================================
// Records file
// ============================================================================

func TestServer_RecordsFileWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("10.0.0.1 nas.test.local\n10.0.0.2 printer.test.local\n"), 0o644))

	cfg := testConfig(t)
	cfg.RecordsFile = path
	cfg.WatchRecordsFile = true
	s := startServer(t, cfg, nil)

	r, err := query(t, s, "nas.test.local", mdns.TypeA)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", answerA(t, r))

	require.NoError(t, os.WriteFile(path, []byte("# moved\n10.0.0.9 nas.test.local\n"), 0o644))

	require.Eventually(t, func() bool {
		addr, ok := s.Store().Lookup("nas.test.local", 1)
		_, printer := s.Store().Lookup("printer.test.local", 1)
		return ok && addr.String() == "10.0.0.9" && !printer
	}, 3*time.Second, 20*time.Millisecond)

	// Records that did not come from the file survive reloads.
	_, ok := s.Store().Lookup("www.test.local", 1)
	assert.True(t, ok)
}

func TestServer_RecordsFileReloadKeepsOtherFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("10.0.0.1 host.test.local\n10.0.0.2 keep.test.local\n"), 0o644))

	cfg := testConfig(t)
	cfg.RecordsFile = path
	cfg.WatchRecordsFile = true
	s := startServer(t, cfg, nil)

	_, ok := s.Store().Lookup("host.test.local", dns.TypeA)
	require.True(t, ok)
	require.NoError(t, s.Store().AddRecord("host.test.local", "fd00::1"))

	require.NoError(t, os.WriteFile(path, []byte("10.0.0.2 keep.test.local\n"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := s.Store().Lookup("host.test.local", dns.TypeA)
		return !ok
	}, 3*time.Second, 20*time.Millisecond)

	addr, ok := s.Store().Lookup("host.test.local", dns.TypeAAAA)
	require.True(t, ok, "AAAA record added outside the file survives the reload")
	assert.Equal(t, "fd00::1", addr.String())
}

func TestServer_MissingRecordsFileDoesNotBlockStart(t *testing.T) {
	cfg := testConfig(t)
	cfg.RecordsFile = filepath.Join(t.TempDir(), "absent")
	s := startServer(t, cfg, nil)
	assert.Equal(t, server.StateRunning, s.State())
}
