package payment

import (
	"time"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// StatusSuccess is the PaymentResult status for any successful operation.
// Failures carry one of the error codes from the internal error taxonomy.
const StatusSuccess = "SUCCESS"

// SystemMaxAmount is the hard ceiling on any single payment, applied before
// provider-specific limits.
var SystemMaxAmount = decimal.NewFromInt(1000000)

type ProcessPaymentRequest struct {
	UserID      int64                  `json:"-"`
	MethodID    int64                  `json:"payment_method_id"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"-"`
}

func (r *ProcessPaymentRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("payment_method_id", r.MethodID).Required()
	validator.Field("amount", r.Amount).Required().
		Positive(errors.ErrCodeValidationFailed).
		MaxDecimal(SystemMaxAmount, errors.ErrCodeValidationFailed)
	validator.Field("currency", r.Currency).Required().MinLength(3).MaxLength(3)
	validator.Field("description", r.Description).MaxLength(500)

	return validator.Validate()
}

type RefundRequest struct {
	UserID int64           `json:"-"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (r *RefundRequest) Validate() *errors.AppError {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().
		Positive(errors.ErrCodeValidationFailed)
	validator.Field("reason", r.Reason).MaxLength(500)

	return validator.Validate()
}

// PaymentResult is the stable response contract for every payment operation.
// Expected failures surface here with success=false and a status tag, never
// as transport-level errors.
type PaymentResult struct {
	Success   bool        `json:"success"`
	Errors    []string    `json:"errors"`
	Data      interface{} `json:"data"`
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

type PaymentData struct {
	PaymentID                    string           `json:"payment_id"`
	TransactionID                string           `json:"transaction_id,omitempty"`
	Amount                       decimal.Decimal  `json:"amount"`
	Currency                     string           `json:"currency"`
	Fee                          decimal.Decimal  `json:"fee"`
	Settlement                   string           `json:"settlement,omitempty"`
	MethodKind                   string           `json:"method_kind"`
	ProviderCode                 string           `json:"provider_code,omitempty"`
	ProviderRef                  string           `json:"provider_ref,omitempty"`
	Status                       string           `json:"status"`
	BalanceAfter                 *decimal.Decimal `json:"balance_after,omitempty"`
	RequiresDeliveryConfirmation bool             `json:"requires_delivery_confirmation,omitempty"`
	FailureReason                string           `json:"failure_reason,omitempty"`
	FraudReview                  bool             `json:"fraud_review,omitempty"`
	CreatedAt                    time.Time        `json:"created_at"`
	ProcessedAt                  *time.Time       `json:"processed_at,omitempty"`
}

type RefundData struct {
	RefundID    string          `json:"refund_id"`
	PaymentID   string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

func successResult(data interface{}) *PaymentResult {
	return &PaymentResult{
		Success:   true,
		Errors:    []string{},
		Data:      data,
		Status:    StatusSuccess,
		Timestamp: time.Now(),
	}
}

func failureResult(status errors.ErrorCode, messages ...string) *PaymentResult {
	if len(messages) == 0 {
		messages = []string{}
	}
	return &PaymentResult{
		Success:   false,
		Errors:    messages,
		Data:      nil,
		Status:    string(status),
		Timestamp: time.Now(),
	}
}

// failureFromError maps any error to a PaymentResult, defaulting unexpected
// errors to PROCESSING_ERROR.
func failureFromError(err error) *PaymentResult {
	if appErr, ok := errors.IsAppError(err); ok {
		messages := []string{appErr.GetDetailedMessage()}
		return failureResult(appErr.Code, messages...)
	}
	return failureResult(errors.ErrCodeProcessingError, "internal processing error")
}
