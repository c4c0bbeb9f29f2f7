package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/finance-dashboard/api"
	"github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	authPostgres "github.com/frahmantamala/finance-dashboard/internal/auth/postgres"
	"github.com/frahmantamala/finance-dashboard/internal/category"
	categoryPostgres "github.com/frahmantamala/finance-dashboard/internal/category/postgres"
	"github.com/frahmantamala/finance-dashboard/internal/core/events"
	"github.com/frahmantamala/finance-dashboard/internal/importer"
	"github.com/frahmantamala/finance-dashboard/internal/plausibility"
	"github.com/frahmantamala/finance-dashboard/internal/stats"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
	txPostgres "github.com/frahmantamala/finance-dashboard/internal/transaction/postgres"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
	"github.com/frahmantamala/finance-dashboard/internal/transport/rest"
	"github.com/frahmantamala/finance-dashboard/internal/user"
	userPostgres "github.com/frahmantamala/finance-dashboard/internal/user/postgres"
	"github.com/frahmantamala/finance-dashboard/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		// audit handlers run asynchronously
		deps.EventBus.Wait()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	threshold, err := decimal.NewFromString(cfg.Plausibility.LargeAmountThreshold)
	if err != nil {
		return fmt.Errorf("plausibility.large_amount_threshold: %w", err)
	}
	checker := plausibility.NewChecker(plausibility.Config{
		LargeAmountThreshold: threshold,
		FlagFutureDates:      cfg.Plausibility.FlagFutureDates,
		FlagMissingCategory:  cfg.Plausibility.FlagMissingCategory,
	})

	base := transport.NewBaseHandler(lg)

	authService := auth.NewService(
		authPostgres.NewRepository(deps.Gorm),
		auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.AccessTokenDuration),
		cfg.Security.BCryptCost,
		lg,
	)

	txService := transaction.NewService(txPostgres.NewRepository(deps.Gorm), transaction.NewAccountLocker(), checker, deps.EventBus, lg)
	transaction.NewEventHandler(txService, lg).RegisterEventHandlers(deps.EventBus)

	importService := importer.NewService(txService, deps.EventBus, cfg.Import, lg)
	statsService := stats.NewService(txService, lg)
	categoryService := category.NewService(categoryPostgres.NewCategoryRepository(deps.DB), lg)
	userService := user.NewService(userPostgres.NewRepository(deps.Gorm), deps.EventBus, cfg.Security.BCryptCost, lg)

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:      rest.NewHealthHandler(map[string]rest.Pinger{"postgres": deps.DB}),
		Auth:        auth.NewHandler(authService),
		RBAC:        auth.NewRBACAuthorization(lg),
		Transaction: transaction.NewHandler(base, txService),
		Import:      importer.NewHandler(base, importService, cfg.Import.MaxUploadBytes),
		Category:    category.NewHandler(base, categoryService),
		Stats:       stats.NewHandler(base, statsService),
		User:        user.NewHandler(base, userService),
	}, cfg.Server, lg)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Logging.Level, config.Logging.Format)
	lg := logger.LoggerWrapper()

	if _, err := api.Load(context.Background()); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(lg)
	events.AuditLog(bus, lg,
		events.EventTypeTransactionCreated,
		events.EventTypeTransactionsImported,
		events.EventTypeUserDeleted,
	)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		EventBus: bus,
		Router:   chi.NewRouter(),
		Logger:   lg,
	}, nil
}

// initDB opens the pgx connection pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := internal.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
