package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jroosing/hydrahost/internal/config"
)

// ImportConfig replaces the stored settings with cfg in one transaction.
// cfg is validated first; nothing is written if it is invalid.
func (db *DB) ImportConfig(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := importSettings(ctx, tx, cfg); err != nil {
		return err
	}
	if err := importAllowedNetworks(ctx, tx, cfg); err != nil {
		return err
	}
	if err := importDNSZones(ctx, tx, cfg); err != nil {
		return err
	}
	if err := importExtraFields(ctx, tx, cfg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func importSettings(ctx context.Context, tx txExec, cfg *config.Config) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM config"); err != nil {
		return fmt.Errorf("failed to clear config: %w", err)
	}
	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.key] = s.get(cfg)
	}
	return setConfigInTx(ctx, tx, values)
}

func importAllowedNetworks(ctx context.Context, tx txExec, cfg *config.Config) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM allowed_networks"); err != nil {
		return fmt.Errorf("failed to clear allowed networks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO allowed_networks (section, cidr, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare network insert: %w", err)
	}
	defer stmt.Close()

	sections := []struct {
		name     string
		networks []string
	}{
		{SectionDNS, cfg.DNS.AllowedNetworks},
		{SectionSMTP, cfg.SMTP.AllowedNetworks},
		{SectionPOP3, cfg.POP3.AllowedNetworks},
	}
	for _, sec := range sections {
		for i, cidr := range sec.networks {
			if _, err := stmt.ExecContext(ctx, sec.name, cidr, i); err != nil {
				return fmt.Errorf("failed to insert %s network %s: %w", sec.name, cidr, err)
			}
		}
	}
	return nil
}

func importDNSZones(ctx context.Context, tx txExec, cfg *config.Config) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM dns_domains"); err != nil {
		return fmt.Errorf("failed to clear DNS domains: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM dns_resources"); err != nil {
		return fmt.Errorf("failed to clear DNS resources: %w", err)
	}

	if len(cfg.DNS.Domains) > 0 {
		domainStmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO dns_domains (name, authority, position) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare domain insert: %w", err)
		}
		defer domainStmt.Close()

		for i, d := range cfg.DNS.Domains {
			if _, err := domainStmt.ExecContext(ctx, d.Name, d.Authority, i); err != nil {
				return fmt.Errorf("failed to insert domain %s: %w", d.Name, err)
			}
		}
	}

	if len(cfg.DNS.Resources) > 0 {
		resourceStmt, err := tx.PrepareContext(ctx, "INSERT INTO dns_resources (record_type, name, address) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare resource insert: %w", err)
		}
		defer resourceStmt.Close()

		for _, r := range cfg.DNS.Resources {
			if _, err := resourceStmt.ExecContext(ctx, r.Type, r.Name, r.Address); err != nil {
				return fmt.Errorf("failed to insert resource %s -> %s: %w", r.Name, r.Address, err)
			}
		}
	}
	return nil
}

func importExtraFields(ctx context.Context, tx txExec, cfg *config.Config) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM logging_extra_fields"); err != nil {
		return fmt.Errorf("failed to clear extra fields: %w", err)
	}
	for k, v := range cfg.Logging.ExtraFields {
		if _, err := tx.ExecContext(ctx, "INSERT INTO logging_extra_fields (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("failed to insert extra field %s: %w", k, err)
		}
	}
	return nil
}

// Helper types and functions

type txExec interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func setConfigInTx(ctx context.Context, tx txExec, configs map[string]string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO config (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare config insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range configs {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("failed to set config %s: %w", key, err)
		}
	}
	return nil
}
