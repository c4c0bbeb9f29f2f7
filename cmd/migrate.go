package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/finance-dashboard/db/migrations"
	"github.com/frahmantamala/finance-dashboard/pkg/logger"
)

const migrationsTable = "schema_migrations"

var (
	migrateRollback bool
	migrateStatus   bool
	migrateDir      string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply, roll back or list the database schema migrations",
	RunE:  runMigration,
}

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the most recent migration")
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print which migrations are applied and exit")
	migrateCmd.MarkFlagsMutuallyExclusive("rollback", "status")
	migrateCmd.Flags().StringVarP(&migrateDir, "dir", "d", "", "directory of .sql migrations; the embedded set is used when empty")
}

// gooseCommand maps the CLI flags onto a goose verb.
func gooseCommand() string {
	switch {
	case migrateStatus:
		return "status"
	case migrateRollback:
		return "down"
	default:
		return "up"
	}
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("migrate: open database: %w", err)
	}
	defer db.Close()

	goose.SetTableName(migrationsTable)
	dir := migrateDir
	if dir == "" {
		goose.SetBaseFS(migrations.FS)
		dir = "."
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	verb := gooseCommand()
	if err := goose.RunContext(ctx, verb, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", verb, err)
	}
	lg.Info("Migrate: done", "command", verb, "dir", dir)
	return nil
}
