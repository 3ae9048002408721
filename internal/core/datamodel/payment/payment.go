package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

// Payment is the persisted outcome of one payment request. Fee and
// settlement are fixed once the status leaves pending.
type Payment struct {
	ID            int64           `gorm:"primaryKey"`
	PaymentID     string          `gorm:"column:payment_id;not null;uniqueIndex"`
	TransactionID string          `gorm:"column:transaction_id"`
	UserID        int64           `gorm:"column:user_id;not null;index"`
	MethodID      int64           `gorm:"column:method_id;not null"`
	MethodKind    string          `gorm:"column:method_kind;not null"`
	ProviderCode  string          `gorm:"column:provider_code"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Currency      string          `gorm:"column:currency;not null"`
	Description   string          `gorm:"column:description"`
	Status        string          `gorm:"column:status;default:pending;index"`
	Fee           decimal.Decimal `gorm:"column:fee;type:numeric(18,2)"`
	Settlement    string          `gorm:"column:settlement"`
	ProviderRef   string          `gorm:"column:provider_ref"`
	FailureReason *string         `gorm:"column:failure_reason"`
	Metadata      json.RawMessage `gorm:"column:metadata;type:jsonb"`
	ProcessedAt   *time.Time      `gorm:"column:processed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}

// Refundable reports whether a refund may be issued against this payment.
// A partially refunded payment stays refundable until the refunded sum
// reaches the original amount; that check lives with the refund sum query.
func (p *Payment) Refundable() bool {
	return p.Status == StatusCompleted || p.Status == StatusRefunded
}

func (p *Payment) Terminal() bool {
	return p.Status == StatusFailed || p.Status == StatusRefunded
}

// Refund records one refund against a payment. Multiple refunds may target
// the same payment; their sum never exceeds the original amount.
type Refund struct {
	ID          int64           `gorm:"primaryKey"`
	RefundID    string          `gorm:"column:refund_id;not null;uniqueIndex"`
	PaymentID   string          `gorm:"column:payment_id;not null;index"`
	UserID      int64           `gorm:"column:user_id;not null"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Reason      string          `gorm:"column:reason"`
	ProcessedAt time.Time       `gorm:"column:processed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;default:now()"`
}

func (Refund) TableName() string {
	return "refunds"
}
