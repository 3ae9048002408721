package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/agromarket/payments/internal/core/datamodel/analytics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryAPI is the analytics persistence surface. Aggregate upserts must
// be atomic per row; the recorder never wraps them in a shared transaction.
type RepositoryAPI interface {
	InsertMetric(ctx context.Context, m *analytics.PaymentMetric) error
	UpsertDaily(ctx context.Context, m *analytics.PaymentMetric) error
	UpsertHourly(ctx context.Context, m *analytics.PaymentMetric) error
	InsertAlert(ctx context.Context, a *analytics.Alert) error
	CountUserMetricsSince(ctx context.Context, userID int64, since time.Time) (total int64, failures int64, err error)
	DailyRange(ctx context.Context, from, to string) ([]analytics.DailyAggregate, error)
	HourlyForDate(ctx context.Context, date string) ([]analytics.HourlyAggregate, error)
	ProviderBreakdown(ctx context.Context, since time.Time) ([]ProviderStat, error)
	TopUsersSince(ctx context.Context, since time.Time, limit int) ([]UserStat, error)
	RecentMetrics(ctx context.Context, limit int) ([]analytics.PaymentMetric, error)
	ActiveAlerts(ctx context.Context, userID int64, limit int) ([]analytics.Alert, error)
	CountAlertsByType(ctx context.Context, userID int64, since time.Time) (map[string]int64, error)
	ResolveAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RecorderConfig tunes the worker pool and the alert rules.
type RecorderConfig struct {
	Workers            int
	QueueSize          int
	HighValueThreshold decimal.Decimal
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Workers:            4,
		QueueSize:          256,
		HighValueThreshold: decimal.NewFromInt(50000),
	}
}

// Recorder ingests payment metrics asynchronously: raw row insert, daily and
// hourly aggregate upserts, then alert-rule evaluation. Record never blocks
// the payment path; when the queue is full the metric is dropped and counted.
type Recorder struct {
	repo    RepositoryAPI
	cfg     RecorderConfig
	jobs    chan analytics.PaymentMetric
	wg      sync.WaitGroup
	once    sync.Once
	closed  bool
	dropped int64
	mu      sync.Mutex
	now     func() time.Time
	logger  *slog.Logger
}

func NewRecorder(repo RepositoryAPI, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.HighValueThreshold.IsZero() {
		cfg.HighValueThreshold = def.HighValueThreshold
	}

	r := &Recorder{
		repo:   repo,
		cfg:    cfg,
		jobs:   make(chan analytics.PaymentMetric, cfg.QueueSize),
		now:    time.Now,
		logger: logger,
	}

	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	logger.Info("analytics recorder started",
		"workers", cfg.Workers,
		"queue_size", cfg.QueueSize)

	return r
}

func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record enqueues one metric fire-and-forget. Metrics sent to a full queue
// or a stopped recorder are dropped and counted.
func (r *Recorder) Record(metric analytics.PaymentMetric) {
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = r.now()
	}

	r.mu.Lock()
	if r.closed {
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.logger.Warn("analytics recorder stopped, metric dropped",
			"payment_id", metric.PaymentID,
			"dropped_total", dropped)
		return
	}

	select {
	case r.jobs <- metric:
		r.mu.Unlock()
	default:
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.logger.Warn("analytics queue full, metric dropped",
			"payment_id", metric.PaymentID,
			"dropped_total", dropped)
	}
}

// Dropped reports how many metrics were discarded due to backpressure.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Shutdown stops intake and blocks until queued metrics are flushed.
func (r *Recorder) Shutdown() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.jobs)
	})
	r.wg.Wait()
	r.logger.Info("analytics recorder stopped", "dropped_total", r.Dropped())
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()
	for metric := range r.jobs {
		r.process(metric)
	}
	r.logger.Debug("analytics worker stopped", "worker_id", id)
}

func (r *Recorder) process(metric analytics.PaymentMetric) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.repo.InsertMetric(ctx, &metric); err != nil {
		r.logger.Error("failed to insert payment metric",
			"payment_id", metric.PaymentID,
			"error", err)
		return
	}

	if err := r.repo.UpsertDaily(ctx, &metric); err != nil {
		r.logger.Error("failed to upsert daily aggregate",
			"payment_id", metric.PaymentID,
			"error", err)
	}

	if err := r.repo.UpsertHourly(ctx, &metric); err != nil {
		r.logger.Error("failed to upsert hourly aggregate",
			"payment_id", metric.PaymentID,
			"error", err)
	}

	r.evaluateAlerts(ctx, metric)
}

func (r *Recorder) evaluateAlerts(ctx context.Context, metric analytics.PaymentMetric) {
	if metric.Amount.GreaterThanOrEqual(r.cfg.HighValueThreshold) {
		r.raiseAlert(ctx, analytics.AlertHighValueTransaction, metric, map[string]interface{}{
			"amount":    metric.Amount.String(),
			"threshold": r.cfg.HighValueThreshold.String(),
		})
	}

	total, failures, err := r.repo.CountUserMetricsSince(ctx, metric.UserID, metric.CreatedAt.Add(-24*time.Hour))
	if err != nil {
		r.logger.Warn("failure-rate alert check skipped",
			"user_id", metric.UserID,
			"error", err)
	} else if total >= 3 && float64(failures)/float64(total) > 0.5 {
		r.raiseAlert(ctx, analytics.AlertHighFailureRate, metric, map[string]interface{}{
			"window_hours": 24,
			"total":        total,
			"failures":     failures,
		})
	}

	if reason := r.unusualPattern(ctx, metric); reason != "" {
		r.raiseAlert(ctx, analytics.AlertUnusualPattern, metric, map[string]interface{}{
			"pattern": reason,
			"amount":  metric.Amount.String(),
		})
	}
}

func (r *Recorder) unusualPattern(ctx context.Context, metric analytics.PaymentMetric) string {
	hour := metric.CreatedAt.Hour()
	if hour >= 22 || hour < 6 {
		return "night_time_transaction"
	}

	if metric.Amount.Mod(decimal.NewFromInt(1000)).IsZero() &&
		metric.Amount.GreaterThanOrEqual(r.cfg.HighValueThreshold) {
		return "round_amount_over_threshold"
	}

	recent, _, err := r.repo.CountUserMetricsSince(ctx, metric.UserID, metric.CreatedAt.Add(-5*time.Minute))
	if err != nil {
		r.logger.Warn("burst pattern check skipped",
			"user_id", metric.UserID,
			"error", err)
		return ""
	}
	if recent > 3 {
		return "rapid_transaction_burst"
	}

	return ""
}

func (r *Recorder) raiseAlert(ctx context.Context, alertType string, metric analytics.PaymentMetric, payload map[string]interface{}) {
	payload["payment_id"] = metric.PaymentID
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}

	alert := &analytics.Alert{
		AlertID:   "ALT-" + uuid.New().String(),
		Type:      alertType,
		UserID:    metric.UserID,
		Payload:   raw,
		Status:    analytics.AlertStatusActive,
		CreatedAt: r.now(),
	}

	if err := r.repo.InsertAlert(ctx, alert); err != nil {
		r.logger.Error("failed to insert alert",
			"alert_type", alertType,
			"payment_id", metric.PaymentID,
			"error", err)
		return
	}

	r.logger.Warn("payment alert raised",
		"alert_id", alert.AlertID,
		"alert_type", alertType,
		"user_id", metric.UserID,
		"payment_id", metric.PaymentID)
}
