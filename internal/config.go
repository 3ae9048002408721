package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Fraud         FraudConfig         `mapstructure:"fraud"`
	Analytics     AnalyticsConfig     `mapstructure:"analytics"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// PaymentConfig tunes the provider simulations. Failure rates are fractions
// in [0,1]; latency bounds the simulated network delay per provider call.
type PaymentConfig struct {
	MaxAmount          string        `mapstructure:"max_amount"`
	BankFailureRate    float64       `mapstructure:"bank_failure_rate"`
	MobileFailureRate  float64       `mapstructure:"mobile_failure_rate"`
	MinLatency         time.Duration `mapstructure:"min_latency"`
	MaxLatency         time.Duration `mapstructure:"max_latency"`
	RefundDelay        time.Duration `mapstructure:"refund_delay"`
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`
	DefaultCurrency    string        `mapstructure:"default_currency"`
	LargeCashThreshold string        `mapstructure:"large_cash_threshold"`
}

type FraudConfig struct {
	VeryHighAmount  string  `mapstructure:"very_high_amount"`
	VeryLowAmount   string  `mapstructure:"very_low_amount"`
	MaxPerMinute    int     `mapstructure:"max_per_minute"`
	MaxPerHour      int     `mapstructure:"max_per_hour"`
	MaxPerDay       int     `mapstructure:"max_per_day"`
	BlockThreshold  float64 `mapstructure:"block_threshold"`
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

type AnalyticsConfig struct {
	Workers            int           `mapstructure:"workers"`
	QueueSize          int           `mapstructure:"queue_size"`
	HighValueThreshold string        `mapstructure:"high_value_threshold"`
	AlertTTL           time.Duration `mapstructure:"alert_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds a config purely from environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("HTTP_SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_SOURCE", ""),
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("SECURITY_JWT_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOGGING_LEVEL", "info"),
				Format: getEnv("LOGGING_FORMAT", "json"),
			},
		},
		Payment:   DefaultPaymentConfig(),
		Fraud:     DefaultFraudConfig(),
		Analytics: DefaultAnalyticsConfig(),
	}
}

func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		MaxAmount:          getEnv("PAYMENT_MAX_AMOUNT", "1000000"),
		BankFailureRate:    getEnvAsFloat("PAYMENT_BANK_FAILURE_RATE", 0.05),
		MobileFailureRate:  getEnvAsFloat("PAYMENT_MOBILE_FAILURE_RATE", 0.03),
		MinLatency:         getEnvAsDuration("PAYMENT_MIN_LATENCY", 500*time.Millisecond),
		MaxLatency:         getEnvAsDuration("PAYMENT_MAX_LATENCY", 2*time.Second),
		RefundDelay:        getEnvAsDuration("PAYMENT_REFUND_DELAY", 300*time.Millisecond),
		ProviderTimeout:    getEnvAsDuration("PAYMENT_PROVIDER_TIMEOUT", 10*time.Second),
		DefaultCurrency:    getEnv("PAYMENT_DEFAULT_CURRENCY", "ETB"),
		LargeCashThreshold: getEnv("PAYMENT_LARGE_CASH_THRESHOLD", "10000"),
	}
}

func DefaultFraudConfig() FraudConfig {
	return FraudConfig{
		VeryHighAmount:  getEnv("FRAUD_VERY_HIGH_AMOUNT", "50000"),
		VeryLowAmount:   getEnv("FRAUD_VERY_LOW_AMOUNT", "1"),
		MaxPerMinute:    getEnvAsInt("FRAUD_MAX_PER_MINUTE", 5),
		MaxPerHour:      getEnvAsInt("FRAUD_MAX_PER_HOUR", 20),
		MaxPerDay:       getEnvAsInt("FRAUD_MAX_PER_DAY", 100),
		BlockThreshold:  getEnvAsFloat("FRAUD_BLOCK_THRESHOLD", 0.8),
		ReviewThreshold: getEnvAsFloat("FRAUD_REVIEW_THRESHOLD", 0.5),
	}
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		Workers:            getEnvAsInt("ANALYTICS_WORKERS", 4),
		QueueSize:          getEnvAsInt("ANALYTICS_QUEUE_SIZE", 256),
		HighValueThreshold: getEnv("ANALYTICS_HIGH_VALUE_THRESHOLD", "50000"),
		AlertTTL:           getEnvAsDuration("ANALYTICS_ALERT_TTL", 72*time.Hour),
		SweepInterval:      getEnvAsDuration("ANALYTICS_SWEEP_INTERVAL", 1*time.Hour),
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if err := c.Fraud.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("fraud config: %v", err))
	}

	if err := c.Analytics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("analytics config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *PaymentConfig) Validate() error {
	if c.BankFailureRate < 0 || c.BankFailureRate > 1 {
		return errors.New("bank_failure_rate must be between 0 and 1")
	}
	if c.MobileFailureRate < 0 || c.MobileFailureRate > 1 {
		return errors.New("mobile_failure_rate must be between 0 and 1")
	}
	if c.MaxLatency < c.MinLatency {
		return errors.New("max_latency must be >= min_latency")
	}
	return nil
}

func (c *FraudConfig) Validate() error {
	if c.MaxPerMinute <= 0 || c.MaxPerHour <= 0 || c.MaxPerDay <= 0 {
		return errors.New("frequency caps must be positive")
	}
	if c.BlockThreshold <= c.ReviewThreshold {
		return errors.New("block_threshold must be greater than review_threshold")
	}
	return nil
}

func (c *AnalyticsConfig) Validate() error {
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("queue_size must be positive")
	}
	return nil
}
