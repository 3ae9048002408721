package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
	EventTypeFraudBlocked     = "fraud.blocked"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID     string          `json:"payment_id"`
	TransactionID string          `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	MethodKind    string          `json:"method_kind"`
	ProviderCode  string          `json:"provider_code"`
}

func NewPaymentCompletedEvent(paymentID, transactionID string, userID int64, amount decimal.Decimal, currency, methodKind, providerCode string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"transaction_id": transactionID,
				"user_id":        userID,
				"amount":         amount.String(),
				"currency":       currency,
				"method_kind":    methodKind,
				"provider_code":  providerCode,
			},
		},
		PaymentID:     paymentID,
		TransactionID: transactionID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		MethodKind:    methodKind,
		ProviderCode:  providerCode,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     string          `json:"payment_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	MethodKind    string          `json:"method_kind"`
	FailureReason string          `json:"failure_reason"`
	StatusTag     string          `json:"status_tag"`
}

func NewPaymentFailedEvent(paymentID string, userID int64, amount decimal.Decimal, methodKind, failureReason, statusTag string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"user_id":        userID,
				"amount":         amount.String(),
				"method_kind":    methodKind,
				"failure_reason": failureReason,
				"status_tag":     statusTag,
			},
		},
		PaymentID:     paymentID,
		UserID:        userID,
		Amount:        amount,
		MethodKind:    methodKind,
		FailureReason: failureReason,
		StatusTag:     statusTag,
	}
}

type PaymentRefundedEvent struct {
	BaseEvent
	PaymentID string          `json:"payment_id"`
	RefundID  string          `json:"refund_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func NewPaymentRefundedEvent(paymentID, refundID string, userID int64, amount decimal.Decimal, reason string) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentRefunded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"refund_id":  refundID,
				"user_id":    userID,
				"amount":     amount.String(),
				"reason":     reason,
			},
		},
		PaymentID: paymentID,
		RefundID:  refundID,
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
	}
}

type FraudBlockedEvent struct {
	BaseEvent
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	RiskScore float64         `json:"risk_score"`
	RiskLevel string          `json:"risk_level"`
}

func NewFraudBlockedEvent(userID int64, amount decimal.Decimal, riskScore float64, riskLevel string) *FraudBlockedEvent {
	return &FraudBlockedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeFraudBlocked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":    userID,
				"amount":     amount.String(),
				"risk_score": riskScore,
				"risk_level": riskLevel,
			},
		},
		UserID:    userID,
		Amount:    amount,
		RiskScore: riskScore,
		RiskLevel: riskLevel,
	}
}
