package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/datamodel/analytics"
	"github.com/shopspring/decimal"
)

// ProviderStat is one row of the per-provider breakdown.
type ProviderStat struct {
	ProviderCode string          `json:"provider_code"`
	MethodKind   string          `json:"method_kind"`
	TxCount      int64           `json:"tx_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	SuccessCount int64           `json:"success_count"`
}

// UserStat is one row of the top-users-by-volume report.
type UserStat struct {
	UserID       int64           `json:"user_id"`
	TxCount      int64           `json:"tx_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SuccessCount int64           `json:"success_count"`
}

type Dashboard struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	TxCount      int64           `json:"tx_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	SuccessRate  float64         `json:"success_rate"`
	BankCount    int64           `json:"bank_count"`
	MobileCount  int64           `json:"mobile_count"`
	CashCount    int64           `json:"cash_count"`
	ActiveAlerts int             `json:"active_alerts"`
}

type Trends struct {
	From   string                      `json:"from"`
	To     string                      `json:"to"`
	Daily  []analytics.DailyAggregate  `json:"daily"`
	Hourly []analytics.HourlyAggregate `json:"hourly"`
}

type FraudReport struct {
	WindowDays   int               `json:"window_days"`
	UserID       int64             `json:"user_id,omitempty"`
	AlertsByType map[string]int64  `json:"alerts_by_type"`
	ActiveAlerts []analytics.Alert `json:"active_alerts"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// Service is the read side of analytics, serving the reporting endpoints
// from the aggregates the Recorder maintains.
type Service struct {
	repo   RepositoryAPI
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

const dateLayout = "2006-01-02"

// GetDashboard totals activity over the date range plus the active alert
// count. Empty bounds default to today.
func (s *Service) GetDashboard(ctx context.Context, from, to string) (*Dashboard, error) {
	today := s.now().Format(dateLayout)
	if from == "" {
		from = today
	}
	if to == "" {
		to = today
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	rows, err := s.repo.DailyRange(ctx, from, to)
	if err != nil {
		return nil, errors.NewInternalError("failed to load daily aggregates", err)
	}

	dash := &Dashboard{From: from, To: to}
	var successCount int64
	for _, row := range rows {
		dash.TxCount += row.TxCount
		dash.TotalAmount = dash.TotalAmount.Add(row.TotalAmount)
		dash.TotalFees = dash.TotalFees.Add(row.TotalFees)
		dash.BankCount += row.BankCount
		dash.MobileCount += row.MobileCount
		dash.CashCount += row.CashCount
		successCount += row.SuccessCount
	}
	if dash.TxCount > 0 {
		dash.SuccessRate = float64(successCount) / float64(dash.TxCount)
	}

	alerts, err := s.repo.ActiveAlerts(ctx, 0, 100)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active alerts", err)
	}
	dash.ActiveAlerts = len(alerts)

	return dash, nil
}

func validateRange(from, to string) *errors.AppError {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return errors.NewValidationError("from must be a YYYY-MM-DD date", errors.ErrCodeValidationFailed)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return errors.NewValidationError("to must be a YYYY-MM-DD date", errors.ErrCodeValidationFailed)
	}
	if end.Before(start) {
		return errors.NewValidationError("to must not precede from", errors.ErrCodeValidationFailed)
	}
	return nil
}

// GetTrends returns daily aggregates for the trailing N days plus today's
// hourly curve.
func (s *Service) GetTrends(ctx context.Context, days int) (*Trends, error) {
	if days <= 0 || days > 90 {
		days = 7
	}

	now := s.now()
	to := now.Format(dateLayout)
	from := now.AddDate(0, 0, -(days - 1)).Format(dateLayout)

	daily, err := s.repo.DailyRange(ctx, from, to)
	if err != nil {
		return nil, errors.NewInternalError("failed to load daily aggregates", err)
	}

	hourly, err := s.repo.HourlyForDate(ctx, to)
	if err != nil {
		return nil, errors.NewInternalError("failed to load hourly aggregates", err)
	}

	return &Trends{From: from, To: to, Daily: daily, Hourly: hourly}, nil
}

// GetProviderBreakdown aggregates volume per provider over the trailing
// window, banks and mobile wallets alike.
func (s *Service) GetProviderBreakdown(ctx context.Context, days int) ([]ProviderStat, error) {
	if days <= 0 || days > 90 {
		days = 30
	}

	since := s.now().AddDate(0, 0, -days)
	stats, err := s.repo.ProviderBreakdown(ctx, since)
	if err != nil {
		return nil, errors.NewInternalError("failed to load provider breakdown", err)
	}
	return stats, nil
}

// GetTopUsers ranks buyers by payment volume over the trailing window.
func (s *Service) GetTopUsers(ctx context.Context, days, limit int) ([]UserStat, error) {
	if days <= 0 || days > 90 {
		days = 30
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	since := s.now().AddDate(0, 0, -days)
	stats, err := s.repo.TopUsersSince(ctx, since, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to load top users", err)
	}
	return stats, nil
}

// GetRecentPayments returns the newest raw metric rows.
func (s *Service) GetRecentPayments(ctx context.Context, limit int) ([]analytics.PaymentMetric, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	metrics, err := s.repo.RecentMetrics(ctx, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to load recent payments", err)
	}
	return metrics, nil
}

// GetFraudReport summarizes alert activity over the trailing window,
// optionally scoped to one user.
func (s *Service) GetFraudReport(ctx context.Context, userID int64, days int) (*FraudReport, error) {
	if days <= 0 || days > 90 {
		days = 7
	}

	since := s.now().AddDate(0, 0, -days)
	byType, err := s.repo.CountAlertsByType(ctx, userID, since)
	if err != nil {
		return nil, errors.NewInternalError("failed to count alerts", err)
	}

	active, err := s.repo.ActiveAlerts(ctx, userID, 50)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active alerts", err)
	}

	return &FraudReport{
		WindowDays:   days,
		UserID:       userID,
		AlertsByType: byType,
		ActiveAlerts: active,
		GeneratedAt:  s.now(),
	}, nil
}

func (s *Service) GetActiveAlerts(ctx context.Context, userID int64, limit int) ([]analytics.Alert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	alerts, err := s.repo.ActiveAlerts(ctx, userID, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to load active alerts", err)
	}
	return alerts, nil
}

// SweepExpiredAlerts resolves active alerts older than the TTL. Run
// periodically by the alerts worker.
func (s *Service) SweepExpiredAlerts(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("alert ttl must be positive")
	}

	cutoff := s.now().Add(-ttl)
	resolved, err := s.repo.ResolveAlertsBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.NewInternalError("failed to resolve expired alerts", err)
	}

	if resolved > 0 {
		s.logger.Info("expired alerts resolved",
			"count", resolved,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return resolved, nil
}
