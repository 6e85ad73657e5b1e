package main

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(migrateSubcommand("up", "Apply all pending migrations", database.RunMigrations))
	cmd.AddCommand(migrateSubcommand("down", "Roll back the latest migration", database.RollbackMigration))
	cmd.AddCommand(migrateSubcommand("status", "Print migration status", database.MigrationStatus))
	return cmd
}

func migrateSubcommand(use, short string, run func(*sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lg, err := newLogger()
			if err != nil {
				return err
			}
			defer lg.Sync()

			db, err := database.Connect(database.ConfigFromEnv())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := run(db.DB); err != nil {
				return err
			}
			lg.Sugar().Infow("migrate finished", "command", use)
			return nil
		},
	}
}
