package config

// Record types accepted in dns.resources.
const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// ServerConfig holds the settings shared by every protocol server.
type ServerConfig struct {
	Enabled     bool   `toml:"enabled" json:"enabled"`
	Name        string `toml:"name" json:"name"`
	Port        int    `toml:"port" json:"port"`
	BindAddress string `toml:"bind_address" json:"bind_address"`

	// MaxConnections bounds concurrent handlers; 0 disables the limit.
	MaxConnections int `toml:"max_connections" json:"max_connections"`

	// AllowedNetworks lists client CIDRs; empty allows everyone.
	AllowedNetworks []string `toml:"allowed_networks" json:"allowed_networks,omitempty"`
}

// DomainConfig declares a zone the DNS server serves.
type DomainConfig struct {
	Name      string `toml:"name" json:"name"`
	Authority bool   `toml:"authority" json:"authority"`
}

// ResourceConfig declares a static record.
type ResourceConfig struct {
	Type    string `toml:"type" json:"type"` // "A" or "AAAA"
	Name    string `toml:"name" json:"name"`
	Address string `toml:"address" json:"address"`
}

// DNSConfig contains DNS server settings.
type DNSConfig struct {
	ServerConfig

	Domains   []DomainConfig   `toml:"domains" json:"domains,omitempty"`
	Resources []ResourceConfig `toml:"resources" json:"resources,omitempty"`

	// UseRecursion is accepted for compatibility; recursion is never performed.
	UseRecursion bool `toml:"use_recursion" json:"use_recursion"`

	// Mode is "zone" (NXDOMAIN under authoritative zones) or "simple"
	// (always answer, 0.0.0.0 on a miss).
	Mode string `toml:"mode" json:"mode"`

	// RecordsFile is a hosts-format file loaded at start.
	RecordsFile      string `toml:"records_file" json:"records_file,omitempty"`
	WatchRecordsFile bool   `toml:"watch_records_file" json:"watch_records_file"`
}

// MailConfig contains SMTP or POP3 server settings.
type MailConfig struct {
	ServerConfig

	// Hostname is announced in the greeting.
	Hostname string `toml:"hostname" json:"hostname"`

	// IdleTimeout closes a silent connection, e.g. "5m".
	IdleTimeout string `toml:"idle_timeout" json:"idle_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `toml:"level" json:"level"`
	Structured       bool              `toml:"structured" json:"structured"`
	StructuredFormat string            `toml:"structured_format" json:"structured_format"`
	IncludePID       bool              `toml:"include_pid" json:"include_pid"`
	ExtraFields      map[string]string `toml:"extra_fields" json:"extra_fields,omitempty"`
}

// MetricsConfig controls the metrics exposition.
type MetricsConfig struct {
	Namespace string `toml:"namespace" json:"namespace"`
	// Runtime adds Go runtime and process collectors.
	Runtime bool `toml:"runtime" json:"runtime"`
}

// APIConfig contains management API settings.
//
// APIKey is a secret and is never returned by API endpoints.
type APIConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	Host      string `toml:"host" json:"host"`
	Port      int    `toml:"port" json:"port"`
	APIKey    string `toml:"api_key" json:"-"`
	StaticDir string `toml:"static_dir" json:"static_dir,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	DNS     DNSConfig     `toml:"dns" json:"dns"`
	SMTP    MailConfig    `toml:"smtp" json:"smtp"`
	POP3    MailConfig    `toml:"pop3" json:"pop3"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	API     APIConfig     `toml:"api" json:"api"`
}
