package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/database"
	"github.com/jroosing/hydrahost/internal/host"
	"github.com/jroosing/hydrahost/internal/logging"
)

type serveOptions struct {
	configPath string
	dbPath     string
	debug      bool
	jsonLogs   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the configured servers until interrupted",
		Long: `Run the configured servers until SIGINT or SIGTERM.

Without --db the configuration comes from --config (or HYDRAHOST_CONFIG),
falling back to the built-in defaults. With --db the settings database is
used; a configuration file given alongside it is imported first.
`,
		Example: `  hydrahost serve --config hydrahost.toml
  hydrahost serve --db /var/lib/hydrahost/settings.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to TOML configuration file (or set "+config.EnvConfigPath+")")
	f.StringVar(&opts.dbPath, "db", "", "path to the SQLite settings database")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	f.BoolVar(&opts.jsonLogs, "json-logs", false, "enable JSON structured logging")
	return cmd
}

func serve(ctx context.Context, opts serveOptions) error {
	cfg, err := loadSettings(ctx, opts.configPath, opts.dbPath)
	if err != nil {
		return err
	}
	if opts.jsonLogs {
		cfg.Logging.Structured = true
		cfg.Logging.StructuredFormat = "json"
	}
	if opts.debug {
		cfg.Logging.Level = "DEBUG"
	}

	logger := logging.Configure(logging.Config{
		Level:            cfg.Logging.Level,
		Structured:       cfg.Logging.Structured,
		StructuredFormat: cfg.Logging.StructuredFormat,
		IncludePID:       cfg.Logging.IncludePID,
		ExtraFields:      cfg.Logging.ExtraFields,
	})
	logger.Info("HydraHost starting",
		"version", version,
		"dns", cfg.DNS.Enabled,
		"smtp", cfg.SMTP.Enabled,
		"pop3", cfg.POP3.Enabled,
		"api", cfg.API.Enabled,
	)

	runner, err := host.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	return nil
}

// loadSettings reads the configuration from the file, or from the settings
// database when dbPath is set. A file given together with a database, or an
// empty database, is imported before reading it back.
func loadSettings(ctx context.Context, configPath, dbPath string) (*config.Config, error) {
	path := config.ResolveConfigPath(configPath)
	if dbPath == "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	empty, err := db.IsEmpty(ctx)
	if err != nil {
		return nil, err
	}
	if path != "" || empty {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := db.ImportConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}
	return db.ExportConfig(ctx)
}
