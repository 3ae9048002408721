package fraud

import (
	"time"

	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

type Recommendation string

const (
	RecommendationProceed Recommendation = "PROCEED"
	RecommendationReview  Recommendation = "REVIEW"
	RecommendationBlock   Recommendation = "BLOCK"
)

const (
	FactorAmount        = "amount"
	FactorFrequency     = "frequency"
	FactorTime          = "time"
	FactorPaymentMethod = "payment_method"
	FactorUserBehavior  = "user_behavior"
)

// Factor is one contributing risk dimension: its sub-score before
// weighting, and the human-readable reasons it fired.
type Factor struct {
	Type    string   `json:"type"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Assessment is the ephemeral result of one fraud analysis. It is attached
// to the payment record's metadata for audit, never persisted on its own.
// Degraded marks assessments where history data was unavailable and the
// engine failed open.
type Assessment struct {
	Score          float64        `json:"score"`
	Level          RiskLevel      `json:"level"`
	Factors        []Factor       `json:"factors"`
	Recommendation Recommendation `json:"recommendation"`
	RequiresReview bool           `json:"requires_review"`
	Degraded       bool           `json:"degraded,omitempty"`
	AssessedAt     time.Time      `json:"assessed_at"`
}

// Request is what the engine scores: the prospective payment before any
// provider simulation runs.
type Request struct {
	UserID    int64
	MethodID  int64
	Amount    decimal.Decimal
	Currency  string
	Timestamp time.Time
}

// Config holds the scoring thresholds. Zero values are replaced by
// DefaultConfig at construction.
type Config struct {
	VeryHighAmount     decimal.Decimal
	VeryLowAmount      decimal.Decimal
	LargeCashThreshold decimal.Decimal
	MaxPerMinute       int
	MaxPerHour         int
	MaxPerDay          int
	BlockThreshold     float64
	ReviewThreshold    float64
}

func DefaultConfig() Config {
	return Config{
		VeryHighAmount:     decimal.NewFromInt(50000),
		VeryLowAmount:      decimal.NewFromInt(1),
		LargeCashThreshold: decimal.NewFromInt(10000),
		MaxPerMinute:       5,
		MaxPerHour:         20,
		MaxPerDay:          100,
		BlockThreshold:     0.8,
		ReviewThreshold:    0.5,
	}
}
