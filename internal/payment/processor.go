package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/datamodel/analytics"
	"github.com/agromarket/payments/internal/core/datamodel/payment"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/agromarket/payments/internal/core/events"
	"github.com/agromarket/payments/internal/fraud"
	"github.com/agromarket/payments/internal/provider"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryAPI is the persistence capability the processor depends on. The
// history queries double as the fraud engine's read-only view.
type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error)
	UpdateStatus(ctx context.Context, paymentID string, status string, fields map[string]interface{}) error
	CreateRefund(ctx context.Context, ref *payment.Refund) error
	SumRefunds(ctx context.Context, paymentID string) (decimal.Decimal, error)
	GetMethod(ctx context.Context, id int64) (*paymentmethod.PaymentMethod, error)
	CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	RecentPayments(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error)
	CountRefundsByUser(ctx context.Context, userID int64) (int64, error)
}

type FraudAPI interface {
	Analyze(ctx context.Context, req fraud.Request) fraud.Assessment
}

// RecorderAPI accepts analytics metrics fire-and-forget; a full queue or a
// stopped recorder drops the metric without reporting back.
type RecorderAPI interface {
	Record(metric analytics.PaymentMetric)
}

type SimulatorAPI interface {
	ProcessBank(ctx context.Context, details *paymentmethod.BankDetails, amount decimal.Decimal) (*provider.Outcome, error)
	ProcessMobile(ctx context.Context, details *paymentmethod.MobileDetails, amount decimal.Decimal) (*provider.Outcome, error)
	ProcessCash(ctx context.Context, amount decimal.Decimal) (*provider.Outcome, error)
	ProcessRefund(ctx context.Context) error
}

// Processor orchestrates the payment pipeline: validation, fraud screening,
// provider simulation, persistence, then analytics. Every expected failure
// becomes a PaymentResult with success=false; callers never see raw errors.
type Processor struct {
	repo            RepositoryAPI
	fraudEngine     FraudAPI
	simulator       SimulatorAPI
	recorder        RecorderAPI
	eventBus        *events.EventBus
	providerTimeout time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

func NewProcessor(
	repo RepositoryAPI,
	fraudEngine FraudAPI,
	simulator SimulatorAPI,
	recorder RecorderAPI,
	eventBus *events.EventBus,
	providerTimeout time.Duration,
	logger *slog.Logger,
) *Processor {
	if providerTimeout <= 0 {
		providerTimeout = 10 * time.Second
	}
	return &Processor{
		repo:            repo,
		fraudEngine:     fraudEngine,
		simulator:       simulator,
		recorder:        recorder,
		eventBus:        eventBus,
		providerTimeout: providerTimeout,
		now:             time.Now,
		logger:          logger,
	}
}

func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// ProcessPayment runs the full pipeline for one payment request.
func (p *Processor) ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) (result *PaymentResult) {
	start := p.now()
	if req.Timestamp.IsZero() {
		req.Timestamp = start
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during payment processing",
				"user_id", req.UserID,
				"panic", r)
			result = failureResult(errors.ErrCodeProcessingError, "internal processing error")
		}
	}()

	if appErr := req.Validate(); appErr != nil {
		p.logger.Info("payment request rejected by validation",
			"user_id", req.UserID,
			"error", appErr.GetDetailedMessage())
		return failureResult(errors.ErrCodeValidationFailed, validationMessages(appErr)...)
	}

	assessment := p.fraudEngine.Analyze(ctx, fraud.Request{
		UserID:    req.UserID,
		MethodID:  req.MethodID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Timestamp: req.Timestamp,
	})
	if assessment.Recommendation == fraud.RecommendationBlock {
		p.logger.Warn("payment blocked by fraud screening",
			"user_id", req.UserID,
			"amount", req.Amount.String(),
			"risk_score", assessment.Score,
			"risk_level", string(assessment.Level))
		p.eventBus.Publish(ctx, events.NewFraudBlockedEvent(req.UserID, req.Amount, assessment.Score, string(assessment.Level)))
		return failureResult(errors.ErrCodeFraudDetected, "transaction blocked by fraud screening")
	}

	method, err := p.repo.GetMethod(ctx, req.MethodID)
	if err != nil || method == nil || !method.IsActive || method.UserID != req.UserID {
		p.logger.Info("payment method unresolved",
			"user_id", req.UserID,
			"method_id", req.MethodID,
			"error", err)
		return failureResult(errors.ErrCodePaymentMethodNotFound, "payment method not found or inactive")
	}

	record := &payment.Payment{
		PaymentID:   newPaymentID(),
		UserID:      req.UserID,
		MethodID:    method.ID,
		MethodKind:  string(method.Kind),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Status:      payment.StatusPending,
		Metadata:    buildMetadata(req.Metadata, assessment),
	}

	if err := p.repo.Create(ctx, record); err != nil {
		p.logger.Error("failed to persist payment record",
			"user_id", req.UserID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}

	outcome, provErr := p.runProviderSimulation(ctx, method, req.Amount)
	if provErr != nil {
		return p.handleProviderFailure(ctx, record, provErr, start)
	}

	updates := map[string]interface{}{
		"transaction_id": outcome.TransactionID,
		"provider_code":  outcome.ProviderCode,
		"provider_ref":   outcome.ProviderRef,
		"fee":            outcome.Fee,
		"settlement":     outcome.Settlement,
	}
	if err := p.repo.UpdateStatus(ctx, record.PaymentID, payment.StatusCompleted, updates); err != nil {
		p.logger.Error("failed to finalize payment record",
			"payment_id", record.PaymentID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}

	p.eventBus.Publish(ctx, events.NewPaymentCompletedEvent(
		record.PaymentID, outcome.TransactionID, req.UserID, req.Amount,
		req.Currency, record.MethodKind, outcome.ProviderCode))

	processedAt := p.now()
	p.recorder.Record(analytics.PaymentMetric{
		PaymentID:    record.PaymentID,
		UserID:       req.UserID,
		MethodKind:   record.MethodKind,
		ProviderCode: outcome.ProviderCode,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Fee:          outcome.Fee,
		Success:      true,
		DurationMs:   processedAt.Sub(start).Milliseconds(),
		CreatedAt:    processedAt,
	})

	p.logger.Info("payment completed",
		"payment_id", record.PaymentID,
		"transaction_id", outcome.TransactionID,
		"user_id", req.UserID,
		"amount", req.Amount.String(),
		"fee", outcome.Fee.String(),
		"provider", outcome.ProviderCode)

	return successResult(&PaymentData{
		PaymentID:                    record.PaymentID,
		TransactionID:                outcome.TransactionID,
		Amount:                       req.Amount,
		Currency:                     req.Currency,
		Fee:                          outcome.Fee,
		Settlement:                   outcome.Settlement,
		MethodKind:                   record.MethodKind,
		ProviderCode:                 outcome.ProviderCode,
		ProviderRef:                  outcome.ProviderRef,
		Status:                       payment.StatusCompleted,
		BalanceAfter:                 outcome.BalanceAfter,
		RequiresDeliveryConfirmation: outcome.RequiresDeliveryConfirmation,
		FraudReview:                  assessment.RequiresReview,
		CreatedAt:                    record.CreatedAt,
		ProcessedAt:                  &processedAt,
	})
}

func (p *Processor) runProviderSimulation(ctx context.Context, method *paymentmethod.PaymentMethod, amount decimal.Decimal) (*provider.Outcome, error) {
	provCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	switch method.Kind {
	case paymentmethod.KindBank:
		details, err := method.BankDetails()
		if err != nil {
			return nil, errors.NewProviderError("bank payment method details are invalid", errors.ErrCodeBankError).WithCause(err)
		}
		return p.simulator.ProcessBank(provCtx, details, amount)
	case paymentmethod.KindMobile:
		details, err := method.MobileDetails()
		if err != nil {
			return nil, errors.NewProviderError("mobile payment method details are invalid", errors.ErrCodeMobileError).WithCause(err)
		}
		return p.simulator.ProcessMobile(provCtx, details, amount)
	case paymentmethod.KindCash:
		return p.simulator.ProcessCash(provCtx, amount)
	default:
		return nil, errors.NewValidationError(
			fmt.Sprintf("unsupported payment type: %s", method.Kind),
			errors.ErrCodeUnsupportedPaymentType)
	}
}

func (p *Processor) handleProviderFailure(ctx context.Context, record *payment.Payment, provErr error, start time.Time) *PaymentResult {
	appErr, ok := errors.IsAppError(provErr)
	if !ok {
		appErr = errors.NewInternalError("provider simulation failed", provErr)
	}

	reason := appErr.Message
	if err := p.repo.UpdateStatus(ctx, record.PaymentID, payment.StatusFailed, map[string]interface{}{
		"failure_reason": reason,
	}); err != nil {
		p.logger.Error("failed to mark payment as failed",
			"payment_id", record.PaymentID,
			"error", err)
	}

	p.eventBus.Publish(ctx, events.NewPaymentFailedEvent(
		record.PaymentID, record.UserID, record.Amount, record.MethodKind,
		reason, string(appErr.Code)))

	now := p.now()
	p.recorder.Record(analytics.PaymentMetric{
		PaymentID:  record.PaymentID,
		UserID:     record.UserID,
		MethodKind: record.MethodKind,
		Amount:     record.Amount,
		Currency:   record.Currency,
		Success:    false,
		DurationMs: now.Sub(start).Milliseconds(),
		CreatedAt:  now,
	})

	p.logger.Warn("payment failed at provider stage",
		"payment_id", record.PaymentID,
		"user_id", record.UserID,
		"status", string(appErr.Code),
		"reason", reason)

	messages := []string{reason}
	if details, ok := appErr.Details.(map[string]interface{}); ok {
		for k, v := range details {
			messages = append(messages, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return failureResult(appErr.Code, messages...)
}

// RefundPayment refunds part or all of a completed payment. Multiple refunds
// may target one payment; their sum never exceeds the original amount.
func (p *Processor) RefundPayment(ctx context.Context, paymentID string, req *RefundRequest) (result *PaymentResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic during refund processing",
				"payment_id", paymentID,
				"panic", r)
			result = failureResult(errors.ErrCodeProcessingError, "internal processing error")
		}
	}()

	if appErr := req.Validate(); appErr != nil {
		return failureResult(errors.ErrCodeValidationFailed, validationMessages(appErr)...)
	}

	record, err := p.repo.GetByPaymentID(ctx, paymentID)
	if err != nil || record == nil {
		return failureResult(errors.ErrCodePaymentNotFound, "payment not found")
	}

	if record.UserID != req.UserID {
		return failureResult(errors.ErrCodePaymentNotFound, "payment not found")
	}

	if !record.Refundable() {
		return failureResult(errors.ErrCodeInvalidRefundStatus,
			fmt.Sprintf("payment in status %s cannot be refunded", record.Status))
	}

	if req.Amount.GreaterThan(record.Amount) {
		return failureResult(errors.ErrCodeInvalidRefundAmount, "refund amount exceeds the original payment amount")
	}

	refunded, err := p.repo.SumRefunds(ctx, paymentID)
	if err != nil {
		p.logger.Error("failed to sum prior refunds",
			"payment_id", paymentID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}
	if refunded.Add(req.Amount).GreaterThan(record.Amount) {
		return failureResult(errors.ErrCodeInvalidRefundAmount,
			fmt.Sprintf("cumulative refunds would exceed the original amount, already refunded %s", refunded.String()))
	}

	refCtx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()
	if err := p.simulator.ProcessRefund(refCtx); err != nil {
		return failureFromError(err)
	}

	refund := &payment.Refund{
		RefundID:    newRefundID(),
		PaymentID:   paymentID,
		UserID:      record.UserID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedAt: p.now(),
	}
	if err := p.repo.CreateRefund(ctx, refund); err != nil {
		p.logger.Error("failed to persist refund record",
			"payment_id", paymentID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}

	if err := p.repo.UpdateStatus(ctx, paymentID, payment.StatusRefunded, nil); err != nil {
		p.logger.Error("failed to transition payment to refunded",
			"payment_id", paymentID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}

	p.eventBus.Publish(ctx, events.NewPaymentRefundedEvent(
		paymentID, refund.RefundID, record.UserID, req.Amount, req.Reason))

	p.logger.Info("payment refunded",
		"payment_id", paymentID,
		"refund_id", refund.RefundID,
		"amount", req.Amount.String())

	return successResult(&RefundData{
		RefundID:    refund.RefundID,
		PaymentID:   paymentID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		ProcessedAt: refund.ProcessedAt,
	})
}

// GetPayment returns the current state of a payment. Repeated calls with the
// same id return identical data absent an intervening refund.
func (p *Processor) GetPayment(ctx context.Context, userID int64, paymentID string) *PaymentResult {
	record, err := p.repo.GetByPaymentID(ctx, paymentID)
	if err != nil || record == nil || record.UserID != userID {
		return failureResult(errors.ErrCodePaymentNotFound, "payment not found")
	}

	data := &PaymentData{
		PaymentID:     record.PaymentID,
		TransactionID: record.TransactionID,
		Amount:        record.Amount,
		Currency:      record.Currency,
		Fee:           record.Fee,
		Settlement:    record.Settlement,
		MethodKind:    record.MethodKind,
		ProviderCode:  record.ProviderCode,
		ProviderRef:   record.ProviderRef,
		Status:        record.Status,
		CreatedAt:     record.CreatedAt,
		ProcessedAt:   record.ProcessedAt,
	}
	if record.FailureReason != nil {
		data.FailureReason = *record.FailureReason
	}

	return successResult(data)
}

// ListPayments returns the user's most recent payments, newest first.
func (p *Processor) ListPayments(ctx context.Context, userID int64, limit int) *PaymentResult {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := p.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		p.logger.Error("failed to list payments",
			"user_id", userID,
			"error", err)
		return failureResult(errors.ErrCodeProcessingError, "internal processing error")
	}

	items := make([]*PaymentData, 0, len(records))
	for _, record := range records {
		item := &PaymentData{
			PaymentID:     record.PaymentID,
			TransactionID: record.TransactionID,
			Amount:        record.Amount,
			Currency:      record.Currency,
			Fee:           record.Fee,
			Settlement:    record.Settlement,
			MethodKind:    record.MethodKind,
			ProviderCode:  record.ProviderCode,
			Status:        record.Status,
			CreatedAt:     record.CreatedAt,
			ProcessedAt:   record.ProcessedAt,
		}
		if record.FailureReason != nil {
			item.FailureReason = *record.FailureReason
		}
		items = append(items, item)
	}

	return successResult(items)
}

func newPaymentID() string {
	return "PAY-" + uuid.New().String()
}

func newRefundID() string {
	return "REF-" + uuid.New().String()
}

func buildMetadata(meta map[string]interface{}, assessment fraud.Assessment) json.RawMessage {
	payload := map[string]interface{}{
		"fraud": map[string]interface{}{
			"score":           assessment.Score,
			"level":           string(assessment.Level),
			"requires_review": assessment.RequiresReview,
			"degraded":        assessment.Degraded,
		},
	}
	for k, v := range meta {
		if k == "fraud" {
			continue
		}
		payload[k] = v
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

func validationMessages(appErr *errors.AppError) []string {
	if details, ok := appErr.Details.(errors.ValidationErrors); ok {
		messages := make([]string, 0, len(details.Errors))
		for _, ve := range details.Errors {
			messages = append(messages, ve.Message)
		}
		return messages
	}
	return []string{appErr.Message}
}
