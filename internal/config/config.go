// Package config provides configuration types, loading and validation for
// HydraHost.
//
// Configuration is read from a TOML file. The database package
// (internal/database) can import and export the same structure, so a
// deployment may keep its settings in SQLite instead.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath names the environment variable consulted when no config
// path is given on the command line.
const EnvConfigPath = "HYDRAHOST_CONFIG"

// Default ports.
const (
	DefaultDNSPort  = 5300
	DefaultSMTPPort = 2525
	DefaultPOP3Port = 1110
	DefaultAPIPort  = 8080
)

// DefaultIdleTimeout applies to mail servers without idle_timeout.
const DefaultIdleTimeout = 5 * time.Minute

// Default returns a configuration that runs the DNS server on its default
// port with the API disabled.
func Default() *Config {
	cfg := &Config{
		DNS: DNSConfig{
			ServerConfig: ServerConfig{Enabled: true, Port: DefaultDNSPort},
		},
		SMTP: MailConfig{ServerConfig: ServerConfig{Port: DefaultSMTPPort}},
		POP3: MailConfig{ServerConfig: ServerConfig{Port: DefaultPOP3Port}},
		API:  APIConfig{Port: DefaultAPIPort},
	}
	_ = cfg.Validate()
	return cfg
}

// ResolveConfigPath returns the flag value when set, otherwise the value of
// HYDRAHOST_CONFIG. An empty result means "use defaults".
func ResolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// Load reads a TOML file on top of Default and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Save writes cfg as TOML to path.
func (cfg *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	if err := cfg.Encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not save config: %w", err)
	}
	return f.Close()
}

// Validate validates and normalizes the configuration.
func (cfg *Config) Validate() error {
	// Server names
	if cfg.DNS.Name == "" {
		cfg.DNS.Name = "dns"
	}
	if cfg.SMTP.Name == "" {
		cfg.SMTP.Name = "smtp"
	}
	if cfg.POP3.Name == "" {
		cfg.POP3.Name = "pop3"
	}

	// Ports are only checked for enabled servers
	if err := validateServer("dns", cfg.DNS.ServerConfig); err != nil {
		return err
	}
	if err := validateServer("smtp", cfg.SMTP.ServerConfig); err != nil {
		return err
	}
	if err := validateServer("pop3", cfg.POP3.ServerConfig); err != nil {
		return err
	}
	if err := checkUniqueNames(cfg.DNS.ServerConfig, cfg.SMTP.ServerConfig, cfg.POP3.ServerConfig); err != nil {
		return err
	}

	// DNS
	cfg.DNS.Mode = strings.ToLower(strings.TrimSpace(cfg.DNS.Mode))
	if cfg.DNS.Mode == "" {
		cfg.DNS.Mode = "zone"
	}
	if cfg.DNS.Mode != "zone" && cfg.DNS.Mode != "simple" {
		return fmt.Errorf("dns.mode must be \"zone\" or \"simple\", got %q", cfg.DNS.Mode)
	}
	for i, d := range cfg.DNS.Domains {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("dns.domains[%d].name is required", i)
		}
	}
	for i := range cfg.DNS.Resources {
		r := &cfg.DNS.Resources[i]
		r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
		if r.Type == "" {
			r.Type = RecordTypeA
		}
		if r.Type != RecordTypeA && r.Type != RecordTypeAAAA {
			return fmt.Errorf("dns.resources[%d].type must be A or AAAA, got %q", i, r.Type)
		}
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("dns.resources[%d].name is required", i)
		}
		addr, err := netip.ParseAddr(strings.TrimSpace(r.Address))
		if err != nil {
			return fmt.Errorf("dns.resources[%d].address: %w", i, err)
		}
		if (r.Type == RecordTypeA) != addr.Unmap().Is4() {
			return fmt.Errorf("dns.resources[%d]: address %s does not match type %s", i, r.Address, r.Type)
		}
	}

	// Mail
	for _, m := range []*MailConfig{&cfg.SMTP, &cfg.POP3} {
		if m.Hostname == "" {
			m.Hostname = "localhost"
		}
		if m.IdleTimeout != "" {
			if _, err := time.ParseDuration(m.IdleTimeout); err != nil {
				return fmt.Errorf("%s.idle_timeout: %w", m.Name, err)
			}
		}
	}

	// Normalize logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	// Normalize management API
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}
	return nil
}

// IdleTimeoutDuration returns the parsed idle timeout, or
// DefaultIdleTimeout when unset.
func (m MailConfig) IdleTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(m.IdleTimeout)
	if err != nil || d <= 0 {
		return DefaultIdleTimeout
	}
	return d
}

func validateServer(section string, s ServerConfig) error {
	if !s.Enabled {
		return nil
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%s.port must be 1..65535", section)
	}
	if s.MaxConnections < 0 {
		return fmt.Errorf("%s.max_connections must not be negative", section)
	}
	return nil
}

func checkUniqueNames(servers ...ServerConfig) error {
	seen := make(map[string]bool, len(servers))
	for _, s := range servers {
		if seen[s.Name] {
			return fmt.Errorf("server name %q is used twice", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
