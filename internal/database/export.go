package database

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jroosing/hydrahost/internal/config"
)

// ExportConfig builds a validated config from the stored settings.
// Settings that were never stored keep their defaults.
func (db *DB) ExportConfig(ctx context.Context) (*config.Config, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	cfg := config.Default()
	if err := db.exportSettings(ctx, cfg); err != nil {
		return nil, err
	}
	if err := db.exportAllowedNetworks(ctx, cfg); err != nil {
		return nil, err
	}
	if err := db.exportDNSZones(ctx, cfg); err != nil {
		return nil, err
	}
	if err := db.exportExtraFields(ctx, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stored settings are invalid: %w", err)
	}
	return cfg, nil
}

func (db *DB) exportSettings(ctx context.Context, cfg *config.Config) error {
	values, err := getAllConfig(ctx, db.conn)
	if err != nil {
		return err
	}
	for _, key := range slices.Sorted(maps.Keys(values)) {
		s, ok := lookupSetting(key)
		if !ok {
			return fmt.Errorf("unknown setting %q in database", key)
		}
		if err := s.set(cfg, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) exportAllowedNetworks(ctx context.Context, cfg *config.Config) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT section, cidr FROM allowed_networks ORDER BY section, position")
	if err != nil {
		return fmt.Errorf("failed to query allowed networks: %w", err)
	}
	defer rows.Close()

	cfg.DNS.AllowedNetworks = nil
	cfg.SMTP.AllowedNetworks = nil
	cfg.POP3.AllowedNetworks = nil
	for rows.Next() {
		var section, cidr string
		if err := rows.Scan(&section, &cidr); err != nil {
			return fmt.Errorf("failed to scan allowed network: %w", err)
		}
		switch section {
		case SectionDNS:
			cfg.DNS.AllowedNetworks = append(cfg.DNS.AllowedNetworks, cidr)
		case SectionSMTP:
			cfg.SMTP.AllowedNetworks = append(cfg.SMTP.AllowedNetworks, cidr)
		case SectionPOP3:
			cfg.POP3.AllowedNetworks = append(cfg.POP3.AllowedNetworks, cidr)
		default:
			return fmt.Errorf("allowed network %s has unknown section %q", cidr, section)
		}
	}
	return rows.Err()
}

func (db *DB) exportDNSZones(ctx context.Context, cfg *config.Config) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT name, authority FROM dns_domains ORDER BY position")
	if err != nil {
		return fmt.Errorf("failed to query DNS domains: %w", err)
	}
	defer rows.Close()

	cfg.DNS.Domains = nil
	for rows.Next() {
		var d config.DomainConfig
		if err := rows.Scan(&d.Name, &d.Authority); err != nil {
			return fmt.Errorf("failed to scan DNS domain: %w", err)
		}
		cfg.DNS.Domains = append(cfg.DNS.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	resRows, err := db.conn.QueryContext(ctx, "SELECT record_type, name, address FROM dns_resources ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to query DNS resources: %w", err)
	}
	defer resRows.Close()

	cfg.DNS.Resources = nil
	for resRows.Next() {
		var r config.ResourceConfig
		if err := resRows.Scan(&r.Type, &r.Name, &r.Address); err != nil {
			return fmt.Errorf("failed to scan DNS resource: %w", err)
		}
		cfg.DNS.Resources = append(cfg.DNS.Resources, r)
	}
	return resRows.Err()
}

func (db *DB) exportExtraFields(ctx context.Context, cfg *config.Config) error {
	rows, err := db.conn.QueryContext(ctx, "SELECT key, value FROM logging_extra_fields")
	if err != nil {
		return fmt.Errorf("failed to query extra fields: %w", err)
	}
	defer rows.Close()

	cfg.Logging.ExtraFields = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("failed to scan extra field: %w", err)
		}
		cfg.Logging.ExtraFields[k] = v
	}
	return rows.Err()
}
