package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/finance-dashboard/internal/seed"
	"github.com/frahmantamala/finance-dashboard/pkg/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo users and transactions",
	Long:  `Create the demo accounts (demo is the administrator) and populate them with monthly transactions since 2020.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			return fmt.Errorf("failed to init gorm: %w", err)
		}

		report, err := seed.New(gormDB, lg).Run(context.Background(), seed.Accounts, seed.Options{
			Clear:      clearData,
			BcryptCost: cfg.Security.BCryptCost,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Seeded %d users and %d transactions\n", report.UsersCreated, report.TransactionsCreated)
		for _, username := range report.AccountsSkipped {
			fmt.Println("Skipped account with existing data:", username)
		}
		fmt.Println("Demo admin: demo / demo123")
		return nil
	},
}
