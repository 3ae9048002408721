package postgres

import (
	"context"
	"time"

	analyticspkg "github.com/agromarket/payments/internal/analytics"
	"github.com/agromarket/payments/internal/core/datamodel/analytics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) analyticspkg.RepositoryAPI {
	return &AnalyticsRepository{
		db: db,
	}
}

const dateLayout = "2006-01-02"

func (r *AnalyticsRepository) InsertMetric(ctx context.Context, m *analytics.PaymentMetric) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// UpsertDaily increments the aggregate row for the metric's date, creating
// it on first sight. The upsert is a single atomic statement.
func (r *AnalyticsRepository) UpsertDaily(ctx context.Context, m *analytics.PaymentMetric) error {
	successCount, failureCount := counters(m.Success)
	bankCount, mobileCount, cashCount := methodCounters(m.MethodKind)

	agg := &analytics.DailyAggregate{
		Date:         m.CreatedAt.Format(dateLayout),
		TxCount:      1,
		TotalAmount:  m.Amount,
		SuccessCount: successCount,
		FailureCount: failureCount,
		TotalFees:    m.Fee,
		BankCount:    bankCount,
		MobileCount:  mobileCount,
		CashCount:    cashCount,
		UpdatedAt:    time.Now(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tx_count":      gorm.Expr("payment_daily_aggregates.tx_count + 1"),
			"total_amount":  gorm.Expr("payment_daily_aggregates.total_amount + ?", m.Amount),
			"success_count": gorm.Expr("payment_daily_aggregates.success_count + ?", successCount),
			"failure_count": gorm.Expr("payment_daily_aggregates.failure_count + ?", failureCount),
			"total_fees":    gorm.Expr("payment_daily_aggregates.total_fees + ?", m.Fee),
			"bank_count":    gorm.Expr("payment_daily_aggregates.bank_count + ?", bankCount),
			"mobile_count":  gorm.Expr("payment_daily_aggregates.mobile_count + ?", mobileCount),
			"cash_count":    gorm.Expr("payment_daily_aggregates.cash_count + ?", cashCount),
			"updated_at":    time.Now(),
		}),
	}).Create(agg).Error
}

func (r *AnalyticsRepository) UpsertHourly(ctx context.Context, m *analytics.PaymentMetric) error {
	successCount, failureCount := counters(m.Success)

	agg := &analytics.HourlyAggregate{
		Date:         m.CreatedAt.Format(dateLayout),
		Hour:         m.CreatedAt.Hour(),
		TxCount:      1,
		TotalAmount:  m.Amount,
		SuccessCount: successCount,
		FailureCount: failureCount,
		TotalFees:    m.Fee,
		UpdatedAt:    time.Now(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "hour"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tx_count":      gorm.Expr("payment_hourly_aggregates.tx_count + 1"),
			"total_amount":  gorm.Expr("payment_hourly_aggregates.total_amount + ?", m.Amount),
			"success_count": gorm.Expr("payment_hourly_aggregates.success_count + ?", successCount),
			"failure_count": gorm.Expr("payment_hourly_aggregates.failure_count + ?", failureCount),
			"total_fees":    gorm.Expr("payment_hourly_aggregates.total_fees + ?", m.Fee),
			"updated_at":    time.Now(),
		}),
	}).Create(agg).Error
}

func (r *AnalyticsRepository) InsertAlert(ctx context.Context, a *analytics.Alert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AnalyticsRepository) CountUserMetricsSince(ctx context.Context, userID int64, since time.Time) (int64, int64, error) {
	var row struct {
		Total    int64
		Failures int64
	}
	err := r.db.WithContext(ctx).
		Model(&analytics.PaymentMetric{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) AS failures").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Failures, nil
}

func (r *AnalyticsRepository) DailyRange(ctx context.Context, from, to string) ([]analytics.DailyAggregate, error) {
	var rows []analytics.DailyAggregate
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) HourlyForDate(ctx context.Context, date string) ([]analytics.HourlyAggregate, error) {
	var rows []analytics.HourlyAggregate
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("hour ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) ProviderBreakdown(ctx context.Context, since time.Time) ([]analyticspkg.ProviderStat, error) {
	var stats []analyticspkg.ProviderStat
	err := r.db.WithContext(ctx).
		Model(&analytics.PaymentMetric{}).
		Where("created_at >= ? AND provider_code <> ''", since).
		Select("provider_code, method_kind, COUNT(*) AS tx_count, " +
			"COALESCE(SUM(amount), 0) AS total_amount, COALESCE(SUM(fee), 0) AS total_fees, " +
			"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count").
		Group("provider_code, method_kind").
		Order("tx_count DESC").
		Scan(&stats).Error
	return stats, err
}

func (r *AnalyticsRepository) TopUsersSince(ctx context.Context, since time.Time, limit int) ([]analyticspkg.UserStat, error) {
	var stats []analyticspkg.UserStat
	err := r.db.WithContext(ctx).
		Model(&analytics.PaymentMetric{}).
		Where("created_at >= ?", since).
		Select("user_id, COUNT(*) AS tx_count, COALESCE(SUM(amount), 0) AS total_amount, " +
			"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count").
		Group("user_id").
		Order("total_amount DESC").
		Limit(limit).
		Scan(&stats).Error
	return stats, err
}

func (r *AnalyticsRepository) RecentMetrics(ctx context.Context, limit int) ([]analytics.PaymentMetric, error) {
	var metrics []analytics.PaymentMetric
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&metrics).Error
	return metrics, err
}

// ActiveAlerts lists unresolved alerts newest first; userID 0 means all users.
func (r *AnalyticsRepository) ActiveAlerts(ctx context.Context, userID int64, limit int) ([]analytics.Alert, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", analytics.AlertStatusActive)
	if userID > 0 {
		q = q.Where("user_id = ?", userID)
	}

	var alerts []analytics.Alert
	err := q.Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

func (r *AnalyticsRepository) CountAlertsByType(ctx context.Context, userID int64, since time.Time) (map[string]int64, error) {
	q := r.db.WithContext(ctx).
		Model(&analytics.Alert{}).
		Where("created_at >= ?", since)
	if userID > 0 {
		q = q.Where("user_id = ?", userID)
	}

	var rows []struct {
		Type  string
		Count int64
	}
	err := q.Select("type, COUNT(*) AS count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byType := make(map[string]int64, len(rows))
	for _, row := range rows {
		byType[row.Type] = row.Count
	}
	return byType, nil
}

func (r *AnalyticsRepository) ResolveAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&analytics.Alert{}).
		Where("status = ? AND created_at < ?", analytics.AlertStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":      analytics.AlertStatusResolved,
			"resolved_at": now,
		})
	return res.RowsAffected, res.Error
}

func counters(success bool) (int64, int64) {
	if success {
		return 1, 0
	}
	return 0, 1
}

func methodCounters(kind string) (int64, int64, int64) {
	switch kind {
	case "bank":
		return 1, 0, 0
	case "mobile":
		return 0, 1, 0
	case "cash":
		return 0, 0, 1
	}
	return 0, 0, 0
}
