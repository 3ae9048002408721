package analytics

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMetric is the raw per-payment analytics row; one insert per
// processed payment, successful or not.
type PaymentMetric struct {
	ID           int64           `gorm:"primaryKey"`
	PaymentID    string          `gorm:"column:payment_id;not null;index"`
	UserID       int64           `gorm:"column:user_id;not null;index"`
	MethodKind   string          `gorm:"column:method_kind;not null"`
	ProviderCode string          `gorm:"column:provider_code"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Currency     string          `gorm:"column:currency;not null"`
	Fee          decimal.Decimal `gorm:"column:fee;type:numeric(18,2)"`
	Success      bool            `gorm:"column:success"`
	DurationMs   int64           `gorm:"column:duration_ms"`
	CreatedAt    time.Time       `gorm:"column:created_at;index"`
}

func (PaymentMetric) TableName() string {
	return "payment_metrics"
}

// DailyAggregate keeps one row per calendar date, incremented as payments
// are recorded. Dates are stored as "2006-01-02" strings so the unique key
// survives timezone-naive stores.
type DailyAggregate struct {
	ID           int64           `gorm:"primaryKey"`
	Date         string          `gorm:"column:date;not null;uniqueIndex"`
	TxCount      int64           `gorm:"column:tx_count"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(18,2)"`
	SuccessCount int64           `gorm:"column:success_count"`
	FailureCount int64           `gorm:"column:failure_count"`
	TotalFees    decimal.Decimal `gorm:"column:total_fees;type:numeric(18,2)"`
	BankCount    int64           `gorm:"column:bank_count"`
	MobileCount  int64           `gorm:"column:mobile_count"`
	CashCount    int64           `gorm:"column:cash_count"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (DailyAggregate) TableName() string {
	return "payment_daily_aggregates"
}

// HourlyAggregate is the daily aggregate minus the per-method breakdown,
// keyed by (date, hour-of-day).
type HourlyAggregate struct {
	ID           int64           `gorm:"primaryKey"`
	Date         string          `gorm:"column:date;not null;uniqueIndex:idx_hourly_date_hour"`
	Hour         int             `gorm:"column:hour;not null;uniqueIndex:idx_hourly_date_hour"`
	TxCount      int64           `gorm:"column:tx_count"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(18,2)"`
	SuccessCount int64           `gorm:"column:success_count"`
	FailureCount int64           `gorm:"column:failure_count"`
	TotalFees    decimal.Decimal `gorm:"column:total_fees;type:numeric(18,2)"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (HourlyAggregate) TableName() string {
	return "payment_hourly_aggregates"
}

const (
	AlertStatusActive   = "active"
	AlertStatusResolved = "resolved"
)

const (
	AlertHighValueTransaction = "HIGH_VALUE_TRANSACTION"
	AlertHighFailureRate      = "HIGH_FAILURE_RATE"
	AlertUnusualPattern       = "UNUSUAL_PATTERN"
)

type Alert struct {
	ID         int64           `gorm:"primaryKey"`
	AlertID    string          `gorm:"column:alert_id;not null;uniqueIndex"`
	Type       string          `gorm:"column:type;not null;index"`
	UserID     int64           `gorm:"column:user_id;index"`
	Payload    json.RawMessage `gorm:"column:payload;type:jsonb"`
	Status     string          `gorm:"column:status;default:active;index"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	ResolvedAt *time.Time      `gorm:"column:resolved_at"`
}

func (Alert) TableName() string {
	return "payment_alerts"
}
