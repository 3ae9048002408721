package paymentmethod

import (
	"encoding/json"
	"errors"
	"time"
)

type Kind string

const (
	KindBank   Kind = "bank"
	KindMobile Kind = "mobile"
	KindCash   Kind = "cash"
)

// PaymentMethod belongs to exactly one user. The details payload is a
// kind-tagged union; use the typed accessors instead of touching the raw
// JSON.
type PaymentMethod struct {
	ID         int64           `gorm:"primaryKey"`
	UserID     int64           `gorm:"column:user_id;not null;index"`
	Kind       Kind            `gorm:"column:kind;not null"`
	Details    json.RawMessage `gorm:"column:details;type:jsonb"`
	IsVerified bool            `gorm:"column:is_verified;default:false"`
	IsDefault  bool            `gorm:"column:is_default;default:false"`
	IsActive   bool            `gorm:"column:is_active;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;default:now()"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

type BankDetails struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

type MobileDetails struct {
	PhoneNumber  string `json:"phone_number"`
	ProviderCode string `json:"provider_code"`
}

type CashDetails struct{}

var ErrWrongKind = errors.New("payment method kind does not match requested details")

func (m *PaymentMethod) BankDetails() (*BankDetails, error) {
	if m.Kind != KindBank {
		return nil, ErrWrongKind
	}
	var d BankDetails
	if err := json.Unmarshal(m.Details, &d); err != nil {
		return nil, err
	}
	if d.AccountNumber == "" || d.BankCode == "" {
		return nil, errors.New("bank details missing account_number or bank_code")
	}
	return &d, nil
}

func (m *PaymentMethod) MobileDetails() (*MobileDetails, error) {
	if m.Kind != KindMobile {
		return nil, ErrWrongKind
	}
	var d MobileDetails
	if err := json.Unmarshal(m.Details, &d); err != nil {
		return nil, err
	}
	if d.PhoneNumber == "" || d.ProviderCode == "" {
		return nil, errors.New("mobile details missing phone_number or provider_code")
	}
	return &d, nil
}
