package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agromarket/payments/internal/core/events"
)

// EventHandler reacts to payment lifecycle events published by the
// processor. Today it only emits notification logs; a real deployment
// would fan out to SMS or email from here.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{logger: logger}
}

// RegisterHandlers subscribes the handler to every payment event type.
func (h *EventHandler) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentCompleted, h.HandlePaymentCompleted)
	bus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
	bus.Subscribe(events.EventTypePaymentRefunded, h.HandlePaymentRefunded)
	bus.Subscribe(events.EventTypeFraudBlocked, h.HandleFraudBlocked)
}

func (h *EventHandler) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	h.logger.Info("payment completed notification",
		"payment_id", completed.PaymentID,
		"transaction_id", completed.TransactionID,
		"user_id", completed.UserID,
		"amount", completed.Amount.String(),
		"currency", completed.Currency,
		"provider_code", completed.ProviderCode)
	return nil
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentFailedEvent, got %T", event)
	}

	h.logger.Warn("payment failed notification",
		"payment_id", failed.PaymentID,
		"user_id", failed.UserID,
		"amount", failed.Amount.String(),
		"method_kind", failed.MethodKind,
		"failure_reason", failed.FailureReason,
		"status_tag", failed.StatusTag)
	return nil
}

func (h *EventHandler) HandlePaymentRefunded(ctx context.Context, event events.Event) error {
	refunded, ok := event.(*events.PaymentRefundedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentRefundedEvent, got %T", event)
	}

	h.logger.Info("payment refunded notification",
		"payment_id", refunded.PaymentID,
		"refund_id", refunded.RefundID,
		"user_id", refunded.UserID,
		"amount", refunded.Amount.String(),
		"reason", refunded.Reason)
	return nil
}

func (h *EventHandler) HandleFraudBlocked(ctx context.Context, event events.Event) error {
	blocked, ok := event.(*events.FraudBlockedEvent)
	if !ok {
		return fmt.Errorf("expected FraudBlockedEvent, got %T", event)
	}

	h.logger.Warn("fraud blocked notification",
		"user_id", blocked.UserID,
		"amount", blocked.Amount.String(),
		"risk_score", blocked.RiskScore,
		"risk_level", blocked.RiskLevel)
	return nil
}
