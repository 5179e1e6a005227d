// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	router "brokerage-ledger/internal/api"
	"brokerage-ledger/internal/api/handler"
	"brokerage-ledger/internal/api/middleware"
	"brokerage-ledger/internal/config"
	"brokerage-ledger/internal/events"
	"brokerage-ledger/internal/metrics"
	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/repository"
	"brokerage-ledger/internal/repository/memory"
	"brokerage-ledger/internal/repository/postgres"
	"brokerage-ledger/internal/service"
	"brokerage-ledger/internal/util"
	"brokerage-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB // nil with the memory driver
	Redis  *redis.Client

	Store     repository.Store
	Rates     *rates.Cache
	Refresher *rates.Refresher // nil with the static provider
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Auth      *middleware.Authenticator

	// Services
	LedgerService service.LedgerService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize loads the configuration and initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return app.InitializeWithConfig(ctx, cfg)
}

// InitializeWithConfig initializes all application components from cfg.
func (app *Application) InitializeWithConfig(ctx context.Context, cfg *config.AppConfig) error {
	app.Config = cfg

	// 1. Logger
	util.InitLogger(util.LoggerConfig{Level: cfg.Log.Level, Production: cfg.Log.Production})
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "database_driver", cfg.Database.Driver)

	// 2. Store
	if err := app.openStore(ctx); err != nil {
		return err
	}

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(registry)

	// 4. Rates
	app.Rates = rates.NewCache(rates.Static())
	if cfg.Redis.Addr != "" {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Rates.Provider == "coingecko" {
		var snapshots rates.SnapshotStore
		if app.Redis != nil {
			snapshots = rates.NewRedisStore(app.Redis, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL)
		}
		provider := rates.NewCoinGecko(cfg.Rates.BaseURL, cfg.Rates.APIKey, cfg.Rates.Timeout)
		app.Refresher = rates.NewRefresher(provider, app.Rates, cfg.Rates.RefreshInterval, snapshots, app.Metrics, app.Logger)
		app.Refresher.Restore(ctx)
	}
	app.Logger.Info("Rate cache initialized.", "provider", cfg.Rates.Provider)

	// 5. Events
	if len(cfg.Kafka.Brokers) > 0 {
		app.Publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, app.Logger)
		app.Logger.Info("Kafka publisher initialized.", "topic", cfg.Kafka.Topic)
	} else {
		app.Publisher = events.NoopPublisher{}
	}

	// 6. Services
	addresses, err := cfg.Ledger.Addresses()
	if err != nil {
		return fmt.Errorf("failed to read deposit addresses: %w", err)
	}
	app.LedgerService = service.NewLedgerService(app.Store, app.Rates, service.Options{
		LockTimeout:      cfg.Ledger.LockTimeout,
		PublishTimeout:   cfg.Ledger.PublishTimeout,
		Publisher:        app.Publisher,
		Observer:         app.Metrics,
		Logger:           app.Logger,
		DepositAddresses: addresses,
	})
	app.Logger.Info("Services initialized.")

	// 7. HTTP handlers and router
	app.Auth = middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, app.Logger)
	app.HTTPHandler = router.NewRouter(
		handler.NewLedgerHandler(app.LedgerService, app.Logger),
		handler.NewAdminHandler(app.LedgerService, app.Logger),
		app.Auth,
		app.Metrics,
		app.Logger,
	)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

func (app *Application) openStore(ctx context.Context) error {
	cfg := app.Config
	if cfg.Database.Driver == "memory" {
		app.Store = memory.NewStore()
		app.Logger.Warn("Using the in-memory store; balances are lost on exit and all accounts share one write lock.")
		return nil
	}

	var (
		database *sqlx.DB
		err      error
	)
	if cfg.Database.URL != "" {
		database, err = db.NewPostgresDBFromURL(ctx, cfg.Database.URL)
	} else {
		database, err = db.NewPostgresDB(ctx, cfg.Database.Config)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Store = postgres.NewStore(database, cfg.Ledger.LockTimeout)
	app.Logger.Info("Database connection established.")
	return nil
}

// Migrate applies the schema. Only the postgres driver has one.
func (app *Application) Migrate(ctx context.Context) error {
	if app.DB == nil {
		return errors.New("migrate: no database configured")
	}
	if err := db.Migrate(ctx, app.DB); err != nil {
		return err
	}
	app.Logger.Info("Database schema applied.")
	return nil
}

// Ledger returns the ledger service.
func (app *Application) Ledger() service.LedgerService { return app.LedgerService }

// RefreshRates fetches one rate snapshot now. A no-op with the static provider.
func (app *Application) RefreshRates(ctx context.Context) error {
	if app.Refresher == nil {
		return nil
	}
	return app.Refresher.Refresh(ctx)
}

// StartBackground launches the rate refresher. It stops when ctx is done.
func (app *Application) StartBackground(ctx context.Context) {
	if app.Refresher == nil {
		return
	}
	go app.Refresher.Run(ctx)
	app.Logger.Info("Rate refresher started.", "interval", app.Config.Rates.RefreshInterval)
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	var errs []error
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			app.Logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Failed to close Redis client", "error", err)
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			app.Logger.Info("Database connection closed.")
		}
	}
	app.Logger.Info("Application shut down gracefully.")
	_ = util.SyncLogger()
	return errors.Join(errs...)
}
