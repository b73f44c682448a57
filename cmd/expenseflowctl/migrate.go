package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"expenseflow/internal/backend"
	"expenseflow/internal/storage"
)

func (a *app) migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite schema migrations",
		Long: `Create or update the schema of the SQLite store. The server applies
the same migrations on start; this command is for preparing a database
ahead of a deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind, _ := backend.ParseKind(a.v.GetString("backend")); kind != backend.KindSQLite {
				return fmt.Errorf("migrate only applies to the sqlite backend")
			}
			path := a.v.GetString("sqlite-path")
			dsn := storage.SQLiteDSN(path)
			out := cmd.OutOrStdout()

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if !status {
				a.logger.Info("Running migrations", "database", path)
				if err := storage.RunMigrations(dsn); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}

			version, dirty, err := storage.MigrationVersion(dsn)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(out, "Database: %s\nSchema version: %d\n", path, version)
			if dirty {
				fmt.Fprintln(out, "Warning: the last migration did not complete")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without migrating")
	return cmd
}
