package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	Service *Service
	Logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

// Dashboard handles GET /api/v1/analytics/dashboard?start=&end=
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	dash, err := h.Service.GetDashboard(r.Context(), start, end)
	if err != nil {
		h.Logger.Error("Dashboard: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dash)
}

// Trends handles GET /api/v1/analytics/trends?period=24h|7d|30d
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	var days int
	switch period := r.URL.Query().Get("period"); period {
	case "24h":
		days = 1
	case "7d", "":
		days = 7
	case "30d":
		days = 30
	default:
		h.HandleError(w, errors.NewValidationError("period must be one of 24h, 7d, 30d", errors.ErrCodeValidationFailed))
		return
	}

	trends, err := h.Service.GetTrends(r.Context(), days)
	if err != nil {
		h.Logger.Error("Trends: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, trends)
}

// Providers handles GET /api/v1/analytics/providers?days=30
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	days, ok := h.intParam(w, r, "days")
	if !ok {
		return
	}

	stats, err := h.Service.GetProviderBreakdown(r.Context(), days)
	if err != nil {
		h.Logger.Error("Providers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"providers": stats})
}

// TopUsers handles GET /api/v1/analytics/top-users?days=30&limit=10
func (h *Handler) TopUsers(w http.ResponseWriter, r *http.Request) {
	days, ok := h.intParam(w, r, "days")
	if !ok {
		return
	}
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}

	stats, err := h.Service.GetTopUsers(r.Context(), days, limit)
	if err != nil {
		h.Logger.Error("TopUsers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"users": stats})
}

// RecentPayments handles GET /api/v1/analytics/recent?limit=20
func (h *Handler) RecentPayments(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}

	metrics, err := h.Service.GetRecentPayments(r.Context(), limit)
	if err != nil {
		h.Logger.Error("RecentPayments: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"payments": metrics})
}

// FraudReport handles GET /api/v1/analytics/fraud-report?user_id=&days=7
func (h *Handler) FraudReport(w http.ResponseWriter, r *http.Request) {
	days, ok := h.intParam(w, r, "days")
	if !ok {
		return
	}
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	report, err := h.Service.GetFraudReport(r.Context(), userID, days)
	if err != nil {
		h.Logger.Error("FraudReport: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

// Alerts handles GET /api/v1/analytics/alerts?user_id=&limit=50
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	alerts, err := h.Service.GetActiveAlerts(r.Context(), userID, limit)
	if err != nil {
		h.Logger.Error("Alerts: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		h.HandleError(w, errors.NewValidationError(name+" must be an integer", errors.ErrCodeValidationFailed))
		return 0, false
	}
	return value, true
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, true
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.HandleError(w, errors.NewValidationError("user_id must be an integer", errors.ErrCodeValidationFailed))
		return 0, false
	}
	return userID, true
}
