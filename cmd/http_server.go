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

	"github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/analytics"
	analyticsPostgres "github.com/agromarket/payments/internal/analytics/postgres"
	"github.com/agromarket/payments/internal/auth"
	"github.com/agromarket/payments/internal/core/events"
	"github.com/agromarket/payments/internal/fraud"
	"github.com/agromarket/payments/internal/payment"
	paymentPostgres "github.com/agromarket/payments/internal/payment/postgres"
	"github.com/agromarket/payments/internal/provider"
	"github.com/agromarket/payments/internal/transport/rest"
	"github.com/agromarket/payments/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle payment API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Recorder *analytics.Recorder
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

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
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		// Flush queued analytics before releasing the database.
		deps.Recorder.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	registry := provider.NewRegistry()
	simulator := provider.NewSimulator(registry, provider.Settings{
		BankFailureRate:   config.Payment.BankFailureRate,
		MobileFailureRate: config.Payment.MobileFailureRate,
		MinLatency:        config.Payment.MinLatency,
		MaxLatency:        config.Payment.MaxLatency,
		RefundDelay:       config.Payment.RefundDelay,
	}, log)

	paymentRepo := paymentPostgres.NewPaymentRepository(gormDB)
	analyticsRepo := analyticsPostgres.NewAnalyticsRepository(gormDB)

	fraudEngine := fraud.NewEngine(paymentRepo, paymentRepo, fraud.Config{
		VeryHighAmount:     mustDecimal(config.Fraud.VeryHighAmount, "50000"),
		VeryLowAmount:      mustDecimal(config.Fraud.VeryLowAmount, "1"),
		LargeCashThreshold: mustDecimal(config.Payment.LargeCashThreshold, "10000"),
		MaxPerMinute:       config.Fraud.MaxPerMinute,
		MaxPerHour:         config.Fraud.MaxPerHour,
		MaxPerDay:          config.Fraud.MaxPerDay,
		BlockThreshold:     config.Fraud.BlockThreshold,
		ReviewThreshold:    config.Fraud.ReviewThreshold,
	}, log)

	recorder := analytics.NewRecorder(analyticsRepo, analytics.RecorderConfig{
		Workers:            config.Analytics.Workers,
		QueueSize:          config.Analytics.QueueSize,
		HighValueThreshold: mustDecimal(config.Analytics.HighValueThreshold, "50000"),
	}, log)

	eventBus := events.NewEventBus(log)
	payment.NewEventHandler(log).RegisterHandlers(eventBus)
	processor := payment.NewProcessor(
		paymentRepo, fraudEngine, simulator, recorder, eventBus,
		config.Payment.ProviderTimeout, log)

	verifier := auth.NewJWTVerifier(config.Security.JWTSecret)
	paymentHandler := payment.NewHandler(processor, log)
	providerHandler := provider.NewHandler(registry, log)
	analyticsHandler := analytics.NewHandler(analytics.NewService(analyticsRepo, log), log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, verifier,
		paymentHandler, providerHandler, analyticsHandler,
		config.Server.AllowedOrigins, log)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Router:   router,
		Recorder: recorder,
		Logger:   log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func mustDecimal(value, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.RequireFromString(fallback)
	}
	return d
}
