package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jroosing/hydrahost/internal/config"
	"github.com/jroosing/hydrahost/internal/database"
)

func newSettingsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Import or export the settings database",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite settings database")
	_ = cmd.MarkPersistentFlagRequired("db")

	importCmd := &cobra.Command{
		Use:     "import <file>",
		Short:   "Replace the stored settings with a TOML configuration file",
		Example: `  hydrahost settings import hydrahost.toml --db settings.db`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, err := database.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.ImportConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s\n", args[0], dbPath)
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:     "export",
		Short:   "Print the stored settings as TOML",
		Example: `  hydrahost settings export --db settings.db > hydrahost.toml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			cfg, err := db.ExportConfig(cmd.Context())
			if err != nil {
				return err
			}
			return cfg.Encode(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(importCmd, exportCmd)
	return cmd
}
