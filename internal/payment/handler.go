package payment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/auth"
	"github.com/agromarket/payments/internal/transport"
	"github.com/go-chi/chi"
)

// ProcessorAPI is the payment surface exposed over HTTP.
type ProcessorAPI interface {
	ProcessPayment(ctx context.Context, req *ProcessPaymentRequest) *PaymentResult
	RefundPayment(ctx context.Context, paymentID string, req *RefundRequest) *PaymentResult
	GetPayment(ctx context.Context, userID int64, paymentID string) *PaymentResult
	ListPayments(ctx context.Context, userID int64, limit int) *PaymentResult
}

type Handler struct {
	transport.BaseHandler
	Processor ProcessorAPI
	Logger    *slog.Logger
}

func NewHandler(processor ProcessorAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Processor:   processor,
		Logger:      logger,
	}
}

// ProcessPayment handles POST /api/v1/payments
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ProcessPayment: user not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ProcessPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	req.UserID = user.ID

	result := h.Processor.ProcessPayment(r.Context(), &req)
	h.WriteJSON(w, statusCodeFor(result), result)
}

// RefundPayment handles POST /api/v1/payments/{paymentID}/refund
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("RefundPayment: user not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		h.HandleError(w, errors.NewValidationError("payment ID is required", errors.ErrCodeValidationFailed))
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("RefundPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	req.UserID = user.ID

	result := h.Processor.RefundPayment(r.Context(), paymentID, &req)
	h.WriteJSON(w, statusCodeFor(result), result)
}

// GetPayment handles GET /api/v1/payments/{paymentID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		h.HandleError(w, errors.NewValidationError("payment ID is required", errors.ErrCodeValidationFailed))
		return
	}

	result := h.Processor.GetPayment(r.Context(), user.ID, paymentID)
	h.WriteJSON(w, statusCodeFor(result), result)
}

// ListPayments handles GET /api/v1/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.HandleError(w, errors.NewValidationError("limit must be an integer", errors.ErrCodeValidationFailed))
			return
		}
		limit = parsed
	}

	result := h.Processor.ListPayments(r.Context(), user.ID, limit)
	h.WriteJSON(w, statusCodeFor(result), result)
}

// statusCodeFor maps a PaymentResult status tag onto an HTTP status. The
// result body itself stays the stable contract either way.
func statusCodeFor(result *PaymentResult) int {
	if result.Success {
		return http.StatusOK
	}

	switch errors.ErrorCode(result.Status) {
	case errors.ErrCodeValidationFailed, errors.ErrCodeInvalidRefundAmount:
		return http.StatusBadRequest
	case errors.ErrCodePaymentNotFound, errors.ErrCodePaymentMethodNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidRefundStatus:
		return http.StatusConflict
	case errors.ErrCodeProcessingError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
