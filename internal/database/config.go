package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jroosing/hydrahost/internal/config"
)

// Server sections stored in the database. They double as the section column
// of allowed_networks.
const (
	SectionDNS  = "dns"
	SectionSMTP = "smtp"
	SectionPOP3 = "pop3"
)

// setting maps one scalar config field to its database key.
type setting struct {
	key string
	get func(*config.Config) string
	set func(*config.Config, string) error
}

func stringSetting(key string, field func(*config.Config) *string) setting {
	return setting{
		key: key,
		get: func(c *config.Config) string { return *field(c) },
		set: func(c *config.Config, v string) error {
			*field(c) = v
			return nil
		},
	}
}

func intSetting(key string, field func(*config.Config) *int) setting {
	return setting{
		key: key,
		get: func(c *config.Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *config.Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolSetting(key string, field func(*config.Config) *bool) setting {
	return setting{
		key: key,
		get: func(c *config.Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *config.Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func serverSettings(section string, field func(*config.Config) *config.ServerConfig) []setting {
	return []setting{
		boolSetting(section+".enabled", func(c *config.Config) *bool { return &field(c).Enabled }),
		stringSetting(section+".name", func(c *config.Config) *string { return &field(c).Name }),
		intSetting(section+".port", func(c *config.Config) *int { return &field(c).Port }),
		stringSetting(section+".bind_address", func(c *config.Config) *string { return &field(c).BindAddress }),
		intSetting(section+".max_connections", func(c *config.Config) *int { return &field(c).MaxConnections }),
	}
}

func mailSettings(section string, field func(*config.Config) *config.MailConfig) []setting {
	out := serverSettings(section, func(c *config.Config) *config.ServerConfig { return &field(c).ServerConfig })
	return append(out,
		stringSetting(section+".hostname", func(c *config.Config) *string { return &field(c).Hostname }),
		stringSetting(section+".idle_timeout", func(c *config.Config) *string { return &field(c).IdleTimeout }),
	)
}

// settings lists every scalar setting in a stable order.
var settings = func() []setting {
	var out []setting
	out = append(out, serverSettings(SectionDNS, func(c *config.Config) *config.ServerConfig { return &c.DNS.ServerConfig })...)
	out = append(out,
		boolSetting("dns.use_recursion", func(c *config.Config) *bool { return &c.DNS.UseRecursion }),
		stringSetting("dns.mode", func(c *config.Config) *string { return &c.DNS.Mode }),
		stringSetting("dns.records_file", func(c *config.Config) *string { return &c.DNS.RecordsFile }),
		boolSetting("dns.watch_records_file", func(c *config.Config) *bool { return &c.DNS.WatchRecordsFile }),
	)
	out = append(out, mailSettings(SectionSMTP, func(c *config.Config) *config.MailConfig { return &c.SMTP })...)
	out = append(out, mailSettings(SectionPOP3, func(c *config.Config) *config.MailConfig { return &c.POP3 })...)
	out = append(out,
		stringSetting("logging.level", func(c *config.Config) *string { return &c.Logging.Level }),
		boolSetting("logging.structured", func(c *config.Config) *bool { return &c.Logging.Structured }),
		stringSetting("logging.structured_format", func(c *config.Config) *string { return &c.Logging.StructuredFormat }),
		boolSetting("logging.include_pid", func(c *config.Config) *bool { return &c.Logging.IncludePID }),

		stringSetting("metrics.namespace", func(c *config.Config) *string { return &c.Metrics.Namespace }),
		boolSetting("metrics.runtime", func(c *config.Config) *bool { return &c.Metrics.Runtime }),

		boolSetting("api.enabled", func(c *config.Config) *bool { return &c.API.Enabled }),
		stringSetting("api.host", func(c *config.Config) *string { return &c.API.Host }),
		intSetting("api.port", func(c *config.Config) *int { return &c.API.Port }),
		stringSetting("api.api_key", func(c *config.Config) *string { return &c.API.APIKey }),
		stringSetting("api.static_dir", func(c *config.Config) *string { return &c.API.StaticDir }),
	)
	return out
}()

func lookupSetting(key string) (setting, bool) {
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

// SetConfig sets a single configuration value. The key must name a known
// setting and the value must parse as that setting's type.
func (db *DB) SetConfig(ctx context.Context, key, value string) error {
	s, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := s.set(config.Default(), value); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	return setConfigInTx(ctx, db.conn, map[string]string{key: value})
}

// GetConfig retrieves a configuration value.
func (db *DB) GetConfig(ctx context.Context, key string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var value string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("config key not found: %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config %s: %w", key, err)
	}
	return value, nil
}

// GetAllConfig returns every stored scalar setting.
func (db *DB) GetAllConfig(ctx context.Context) (map[string]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getAllConfig(ctx, db.conn)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getAllConfig(ctx context.Context, q queryer) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM config")
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
