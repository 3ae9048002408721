package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agromarket/payments/internal/analytics"
	analyticsPostgres "github.com/agromarket/payments/internal/analytics/postgres"
	"github.com/agromarket/payments/pkg/logger"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the alert sweeper`,
}

var alertWorkerCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Start the alert sweeper",
	Long:  `Periodically resolve payment alerts that have outlived their retention window`,
	Run: func(cmd *cobra.Command, args []string) {
		startAlertSweeper()
	},
}

var (
	sweepInterval time.Duration
	alertTTL      time.Duration
)

func startAlertSweeper() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Observability.Logging.Format, config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm connection: %v\n", err)
		os.Exit(1)
	}

	service := analytics.NewService(analyticsPostgres.NewAnalyticsRepository(gormDB), log)

	interval := getDurationFlag(sweepInterval, config.Analytics.SweepInterval)
	ttl := getDurationFlag(alertTTL, config.Analytics.AlertTTL)

	log.Info("starting alert sweeper",
		"sweep_interval", interval.String(),
		"alert_ttl", ttl.String())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Sweep once on startup so restarts don't delay cleanup by a full
	// interval.
	sweepOnce(service, ttl, log)

	for {
		select {
		case <-ticker.C:
			sweepOnce(service, ttl, log)
		case sig := <-sigChan:
			log.Info("received signal, shutting down alert sweeper", "signal", sig.String())
			return
		}
	}
}

func sweepOnce(service *analytics.Service, ttl time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolved, err := service.SweepExpiredAlerts(ctx, ttl)
	if err != nil {
		log.Error("alert sweep failed", "error", err)
		return
	}
	if resolved > 0 {
		log.Info("resolved expired alerts", "count", resolved)
	}
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	alertWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "Sweep interval (overrides config)")
	alertWorkerCmd.Flags().DurationVar(&alertTTL, "ttl", 0, "Alert retention window (overrides config)")

	workerCmd.AddCommand(alertWorkerCmd)
}
