package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/hydrahost/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleConfig() *config.Config {
	cfg := config.Default()
	cfg.DNS.Port = 5353
	cfg.DNS.BindAddress = "127.0.0.1"
	cfg.DNS.MaxConnections = 64
	cfg.DNS.AllowedNetworks = []string{"10.0.0.0/8", "192.168.0.0/16"}
	cfg.DNS.Mode = "simple"
	cfg.DNS.RecordsFile = "/etc/hydrahost/hosts"
	cfg.DNS.WatchRecordsFile = true
	cfg.DNS.Domains = []config.DomainConfig{
		{Name: "lab.local", Authority: true},
		{Name: "example.org"},
	}
	cfg.DNS.Resources = []config.ResourceConfig{
		{Type: "A", Name: "www.lab.local", Address: "10.0.0.5"},
		{Type: "AAAA", Name: "v6.lab.local", Address: "2001:db8::5"},
	}
	cfg.SMTP.Enabled = true
	cfg.SMTP.Hostname = "mail.lab.local"
	cfg.SMTP.IdleTimeout = "30s"
	cfg.SMTP.AllowedNetworks = []string{"127.0.0.0/8"}
	cfg.Logging.Level = "DEBUG"
	cfg.Logging.Structured = true
	cfg.Logging.ExtraFields = map[string]string{"site": "lab"}
	cfg.Metrics.Namespace = "lab"
	cfg.Metrics.Runtime = true
	cfg.API.Enabled = true
	cfg.API.Port = 9090
	cfg.API.APIKey = "secret"
	return cfg
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Health(t.Context()))

	empty, err := db.IsEmpty(t.Context())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.ImportConfig(t.Context(), sampleConfig()))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err, "migrations must be idempotent")
	defer db.Close()

	cfg, err := db.ExportConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 5353, cfg.DNS.Port)
}

func TestImportExport_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	want := sampleConfig()
	require.NoError(t, db.ImportConfig(t.Context(), want))

	got, err := db.ExportConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImportConfig_ReplacesPrevious(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.ImportConfig(t.Context(), sampleConfig()))

	next := config.Default()
	next.DNS.Resources = []config.ResourceConfig{{Type: "A", Name: "only.lab.local", Address: "10.9.9.9"}}
	require.NoError(t, db.ImportConfig(t.Context(), next))

	got, err := db.ExportConfig(t.Context())
	require.NoError(t, err)
	assert.Empty(t, got.DNS.Domains)
	assert.Empty(t, got.DNS.AllowedNetworks)
	assert.Empty(t, got.Logging.ExtraFields)
	require.Len(t, got.DNS.Resources, 1)
	assert.Equal(t, "only.lab.local", got.DNS.Resources[0].Name)
	assert.False(t, got.SMTP.Enabled)
}

func TestImportConfig_InvalidWritesNothing(t *testing.T) {
	db := openTestDB(t)
	cfg := config.Default()
	cfg.DNS.Port = 0

	err := db.ImportConfig(t.Context(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dns.port must be 1..65535")

	empty, err := db.IsEmpty(t.Context())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestExportConfig_EmptyDatabaseGivesDefaults(t *testing.T) {
	db := openTestDB(t)
	got, err := db.ExportConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), got)
}

func TestSetGetConfig(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetConfig(t.Context(), "dns.port", "5454"))
	v, err := db.GetConfig(t.Context(), "dns.port")
	require.NoError(t, err)
	assert.Equal(t, "5454", v)

	cfg, err := db.ExportConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 5454, cfg.DNS.Port)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "dns.prot", "53"},
		{"not an int", "dns.port", "fifty"},
		{"not a bool", "api.enabled", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, db.SetConfig(t.Context(), tt.key, tt.value))
		})
	}

	_, err = db.GetConfig(t.Context(), "api.port")
	assert.ErrorContains(t, err, "not found")

	all, err := db.GetAllConfig(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dns.port": "5454"}, all)
}

func TestGetVersion_IncrementsOnChange(t *testing.T) {
	db := openTestDB(t)
	before, err := db.GetVersion(t.Context())
	require.NoError(t, err)

	require.NoError(t, db.SetConfig(t.Context(), "dns.port", "5454"))
	after, err := db.GetVersion(t.Context())
	require.NoError(t, err)
	assert.Greater(t, after, before)
}

func TestSettings_KeysAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range settings {
		assert.False(t, seen[s.key], "duplicate key %s", s.key)
		seen[s.key] = true
	}
}
