package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/pkg/db"
	"github.com/skillforge/skillforge/pkg/presenter"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the skillforge database (migrations, status, etc.)`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		base, err := basePath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, filepath.Join(base, "skillforge.db"))
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.NewMigrationRunner(conn).Run(ctx, repository.Migrations()); err != nil {
			return err
		}

		presenter.Success("Database is up to date")
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the current database migration status, including applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		base, err := basePath()
		if err != nil {
			return err
		}
		dbPath := filepath.Join(base, "skillforge.db")
		conn, err := db.Open(ctx, dbPath)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.NewMigrationRunner(conn).Applied(ctx)
		if err != nil {
			return err
		}

		appliedMap := make(map[int64]bool)
		for _, v := range applied {
			appliedMap[v] = true
		}

		allMigrations := repository.Migrations()

		presenter.Section("Database Migration Status")
		presenter.Info(fmt.Sprintf("Database: %s\n", dbPath))

		appliedCount := 0
		for _, m := range allMigrations {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[✓]"
				appliedCount++
			}
			presenter.Info(fmt.Sprintf("%s %d - %s", status, m.Version, m.Description))
		}

		presenter.Info(fmt.Sprintf("\nApplied: %d/%d migrations", appliedCount, len(allMigrations)))
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		base, err := basePath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, filepath.Join(base, "skillforge.db"))
		if err != nil {
			return err
		}
		defer conn.Close()

		runner := db.NewMigrationRunner(conn)
		applied, err := runner.Applied(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		lastVersion := applied[len(applied)-1]
		if err := runner.Rollback(ctx, repository.Migrations()); err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Rolled back migration %d", lastVersion))
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
