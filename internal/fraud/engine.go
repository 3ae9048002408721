package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/agromarket/payments/internal/core/datamodel/payment"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/shopspring/decimal"
)

// Factor weights; they total 1.0.
const (
	weightAmount        = 0.30
	weightFrequency     = 0.25
	weightTime          = 0.20
	weightPaymentMethod = 0.15
	weightUserBehavior  = 0.10
)

const (
	riskRoundThousand = 0.3
	riskVeryHigh      = 0.4
	riskVeryLow       = 0.3
	riskDenylisted    = 0.5

	riskOverPerMinute = 0.5
	riskOverPerHour   = 0.3
	riskOverPerDay    = 0.2

	riskNightTime = 0.6
	riskWeekend   = 0.3
	riskHoliday   = 0.4

	riskUnverifiedMethod = 0.6
	riskFreshMethod      = 0.5
	riskLargeCash        = 0.4

	riskNewUser         = 0.4
	riskHighFailureRate = 0.6
	riskManyRefunds     = 0.4
	riskErraticAmounts  = 0.2
)

// Exact amounts with a history of abuse in the simulated network.
var deniedAmounts = map[string]struct{}{
	"999":    {},
	"9999":   {},
	"99999":  {},
	"100001": {},
	"500001": {},
}

// Fixed holiday calendar (month, day). Ethiopian public holidays observed
// by the marketplace.
var holidays = map[[2]int]struct{}{
	{1, 1}:  {},
	{1, 7}:  {},
	{1, 19}: {},
	{5, 1}:  {},
	{9, 11}: {},
	{9, 27}: {},
}

// HistoryStore is the read-only transaction-history capability the engine
// scores against.
type HistoryStore interface {
	CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	RecentPayments(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error)
	CountRefundsByUser(ctx context.Context, userID int64) (int64, error)
}

// MethodStore resolves the payment method under assessment.
type MethodStore interface {
	GetMethod(ctx context.Context, id int64) (*paymentmethod.PaymentMethod, error)
}

// Engine computes a weighted risk score for a prospective payment. It never
// returns an error for business-risk reasons: data-access failures are
// swallowed, logged, and scored as zero additional risk so a fraud outage
// never blocks legitimate checkout traffic.
type Engine struct {
	history HistoryStore
	methods MethodStore
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
}

func NewEngine(history HistoryStore, methods MethodStore, cfg Config, logger *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.VeryHighAmount.IsZero() {
		cfg.VeryHighAmount = def.VeryHighAmount
	}
	if cfg.VeryLowAmount.IsZero() {
		cfg.VeryLowAmount = def.VeryLowAmount
	}
	if cfg.LargeCashThreshold.IsZero() {
		cfg.LargeCashThreshold = def.LargeCashThreshold
	}
	if cfg.MaxPerMinute <= 0 {
		cfg.MaxPerMinute = def.MaxPerMinute
	}
	if cfg.MaxPerHour <= 0 {
		cfg.MaxPerHour = def.MaxPerHour
	}
	if cfg.MaxPerDay <= 0 {
		cfg.MaxPerDay = def.MaxPerDay
	}
	if cfg.BlockThreshold <= 0 {
		cfg.BlockThreshold = def.BlockThreshold
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = def.ReviewThreshold
	}

	return &Engine{
		history: history,
		methods: methods,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Analyze scores the request across all five factors and classifies it.
func (e *Engine) Analyze(ctx context.Context, req Request) Assessment {
	degraded := false

	factors := []Factor{
		e.amountFactor(req),
	}

	freq, freqDegraded := e.frequencyFactor(ctx, req)
	factors = append(factors, freq)
	degraded = degraded || freqDegraded

	factors = append(factors, e.timeFactor(req))

	method, methodDegraded := e.methodFactor(ctx, req)
	factors = append(factors, method)
	degraded = degraded || methodDegraded

	behavior, behaviorDegraded := e.behaviorFactor(ctx, req)
	factors = append(factors, behavior)
	degraded = degraded || behaviorDegraded

	score := clamp01(weightAmount*factors[0].Score +
		weightFrequency*factors[1].Score +
		weightTime*factors[2].Score +
		weightPaymentMethod*factors[3].Score +
		weightUserBehavior*factors[4].Score)

	level := levelFor(score)

	assessment := Assessment{
		Score:          score,
		Level:          level,
		Factors:        factors,
		Recommendation: e.recommend(level, score),
		RequiresReview: level == RiskLevelHigh || score > 0.7,
		Degraded:       degraded,
		AssessedAt:     e.now(),
	}

	if degraded {
		e.logger.Warn("fraud analysis degraded, history data unavailable",
			"user_id", req.UserID,
			"score", score)
	}

	e.logger.Debug("fraud analysis complete",
		"user_id", req.UserID,
		"amount", req.Amount.String(),
		"score", score,
		"level", string(level),
		"recommendation", string(assessment.Recommendation))

	return assessment
}

func (e *Engine) amountFactor(req Request) Factor {
	f := Factor{Type: FactorAmount}

	if req.Amount.Sign() > 0 && req.Amount.Mod(decimal.NewFromInt(1000)).IsZero() {
		f.Score += riskRoundThousand
		f.Reasons = append(f.Reasons, "round-thousand amount")
	}
	if req.Amount.GreaterThan(e.cfg.VeryHighAmount) {
		f.Score += riskVeryHigh
		f.Reasons = append(f.Reasons, fmt.Sprintf("amount above %s threshold", e.cfg.VeryHighAmount.String()))
	}
	if req.Amount.LessThan(e.cfg.VeryLowAmount) {
		f.Score += riskVeryLow
		f.Reasons = append(f.Reasons, "amount below minimum plausible value")
	}
	if _, denied := deniedAmounts[req.Amount.String()]; denied {
		f.Score += riskDenylisted
		f.Reasons = append(f.Reasons, "amount matches known abuse pattern")
	}

	f.Score = clamp01(f.Score)
	return f
}

func (e *Engine) frequencyFactor(ctx context.Context, req Request) (Factor, bool) {
	f := Factor{Type: FactorFrequency}
	now := e.now()

	windows := []struct {
		since  time.Time
		cap    int
		label  string
		weight float64
	}{
		{now.Add(-time.Minute), e.cfg.MaxPerMinute, "minute", riskOverPerMinute},
		{now.Add(-time.Hour), e.cfg.MaxPerHour, "hour", riskOverPerHour},
		{now.Add(-24 * time.Hour), e.cfg.MaxPerDay, "day", riskOverPerDay},
	}

	for _, w := range windows {
		count, err := e.history.CountCompletedSince(ctx, req.UserID, w.since)
		if err != nil {
			e.logger.Warn("frequency query failed, scoring zero risk",
				"user_id", req.UserID, "window", w.label, "error", err)
			return Factor{Type: FactorFrequency}, true
		}
		if count > int64(w.cap) {
			f.Score += w.weight
			f.Reasons = append(f.Reasons, fmt.Sprintf("%d transactions in the last %s (cap %d)", count, w.label, w.cap))
		}
	}

	f.Score = clamp01(f.Score)
	return f, false
}

func (e *Engine) timeFactor(req Request) Factor {
	f := Factor{Type: FactorTime}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	hour := ts.Hour()
	if hour >= 22 || hour < 6 {
		f.Score += riskNightTime
		f.Reasons = append(f.Reasons, "night-time transaction")
	}
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		f.Score += riskWeekend
		f.Reasons = append(f.Reasons, "weekend transaction")
	}
	if _, ok := holidays[[2]int{int(ts.Month()), ts.Day()}]; ok {
		f.Score += riskHoliday
		f.Reasons = append(f.Reasons, "public holiday transaction")
	}

	f.Score = clamp01(f.Score)
	return f
}

func (e *Engine) methodFactor(ctx context.Context, req Request) (Factor, bool) {
	f := Factor{Type: FactorPaymentMethod}

	method, err := e.methods.GetMethod(ctx, req.MethodID)
	if err != nil || method == nil {
		// unknown method is itself a signal, not a degraded lookup
		f.Score = riskUnverifiedMethod
		f.Reasons = append(f.Reasons, "payment method unknown")
		return f, false
	}

	if !method.IsVerified {
		f.Score += riskUnverifiedMethod
		f.Reasons = append(f.Reasons, "payment method not verified")
	}
	if e.now().Sub(method.CreatedAt) < time.Hour {
		f.Score += riskFreshMethod
		f.Reasons = append(f.Reasons, "payment method created less than an hour ago")
	}
	if method.Kind == paymentmethod.KindCash && req.Amount.GreaterThan(e.cfg.LargeCashThreshold) {
		f.Score += riskLargeCash
		f.Reasons = append(f.Reasons, "large cash payment")
	}

	f.Score = clamp01(f.Score)
	return f, false
}

func (e *Engine) behaviorFactor(ctx context.Context, req Request) (Factor, bool) {
	f := Factor{Type: FactorUserBehavior}

	recent, err := e.history.RecentPayments(ctx, req.UserID, 10)
	if err != nil {
		e.logger.Warn("history query failed, scoring zero risk",
			"user_id", req.UserID, "error", err)
		return f, true
	}

	if len(recent) == 0 {
		f.Score = riskNewUser
		f.Reasons = append(f.Reasons, "no transaction history")
		return f, false
	}

	var failures int
	amounts := make([]float64, 0, len(recent))
	for _, p := range recent {
		if p.Status == payment.StatusFailed {
			failures++
		}
		amounts = append(amounts, p.Amount.InexactFloat64())
	}

	failureRate := float64(failures) / float64(len(recent))
	if failureRate > 0.3 {
		f.Score += riskHighFailureRate
		f.Reasons = append(f.Reasons, fmt.Sprintf("failure rate %.0f%% over last %d payments", failureRate*100, len(recent)))
	}

	refunds, err := e.history.CountRefundsByUser(ctx, req.UserID)
	if err != nil {
		e.logger.Warn("refund count query failed, scoring zero risk",
			"user_id", req.UserID, "error", err)
		f.Score = clamp01(f.Score)
		return f, true
	}
	if refunds > 3 {
		f.Score += riskManyRefunds
		f.Reasons = append(f.Reasons, fmt.Sprintf("%d historical refunds", refunds))
	}

	if cv := coefficientOfVariation(amounts); cv > 1.5 {
		f.Score += riskErraticAmounts
		f.Reasons = append(f.Reasons, "high variance in past payment amounts")
	}

	f.Score = clamp01(f.Score)
	return f, false
}

func (e *Engine) recommend(level RiskLevel, score float64) Recommendation {
	switch {
	case level == RiskLevelHigh || score > e.cfg.BlockThreshold:
		return RecommendationBlock
	case level == RiskLevelMedium || score > e.cfg.ReviewThreshold:
		return RecommendationReview
	default:
		return RecommendationProceed
	}
}

func levelFor(score float64) RiskLevel {
	switch {
	case score >= 0.6:
		return RiskLevelHigh
	case score >= 0.3:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(len(values)))
	return std / mean
}
