package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	errors "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/shopspring/decimal"
)

// Rand is the randomness source behind failure draws and reference
// suffixes; tests swap it for a scripted one.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Sleeper models the simulated network delay. The context bounds the wait;
// cancellation surfaces as the context error.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewLockedRand() Rand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome is the result of one successful provider simulation. BalanceAfter
// is informational only; the demo ledger is never mutated.
type Outcome struct {
	ProviderCode                 string
	TransactionID                string
	ProviderRef                  string
	Fee                          decimal.Decimal
	Settlement                   string
	BalanceAfter                 *decimal.Decimal
	RequiresDeliveryConfirmation bool
}

// Settings carries the tunables for the simulations, parsed once from the
// payment config section.
type Settings struct {
	BankFailureRate   float64
	MobileFailureRate float64
	MinLatency        time.Duration
	MaxLatency        time.Duration
	RefundDelay       time.Duration
}

var bankFailureReasons = []string{
	"Insufficient bank reserves",
	"Bank network unavailable",
	"Transaction rejected by core banking system",
	"Daily transfer limit reached at bank",
}

var mobileFailureReasons = []string{
	"Mobile wallet service unavailable",
	"Subscriber not reachable",
	"Wallet transaction limit exceeded",
}

// Simulator mimics bank and mobile-money settlement against the demo
// registry. The balance check is read-then-decide with no locking:
// concurrent payments against the same demo account can both pass it. That
// is an accepted simulation limitation, since balances are static fixtures
// and never mutated.
type Simulator struct {
	registry *Registry
	settings Settings
	rng      Rand
	sleeper  Sleeper
	now      func() time.Time
	logger   *slog.Logger
}

func NewSimulator(registry *Registry, settings Settings, logger *slog.Logger) *Simulator {
	return &Simulator{
		registry: registry,
		settings: settings,
		rng:      NewLockedRand(),
		sleeper:  timerSleeper{},
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Simulator) WithRand(r Rand) *Simulator {
	s.rng = r
	return s
}

func (s *Simulator) WithSleeper(sl Sleeper) *Simulator {
	s.sleeper = sl
	return s
}

func (s *Simulator) WithClock(now func() time.Time) *Simulator {
	s.now = now
	return s
}

// ProcessBank simulates a bank transfer for the given details and amount.
func (s *Simulator) ProcessBank(ctx context.Context, details *paymentmethod.BankDetails, amount decimal.Decimal) (*Outcome, error) {
	cfg, ok := s.registry.Bank(details.BankCode)
	if !ok {
		return nil, errors.NewProviderError(fmt.Sprintf("unknown bank code: %s", details.BankCode), errors.ErrCodeBankError)
	}

	account, ok := cfg.FindAccount(details.AccountNumber)
	if !ok {
		return nil, errors.NewProviderError(fmt.Sprintf("account %s not found at %s", details.AccountNumber, cfg.Name), errors.ErrCodeAccountNotFound)
	}

	if account.Balance.LessThan(amount) {
		return nil, errors.NewProviderError("insufficient funds in account", errors.ErrCodeInsufficientFunds).
			WithDetails(map[string]interface{}{"available_balance": account.Balance.String()})
	}

	if err := s.checkBounds(cfg, amount); err != nil {
		return nil, err
	}

	if err := s.simulateLatency(ctx); err != nil {
		return nil, errors.NewProviderError("bank simulation timed out", errors.ErrCodeProviderTimeout).WithCause(err)
	}

	if s.rng.Float64() < s.settings.BankFailureRate {
		reason := bankFailureReasons[s.rng.Intn(len(bankFailureReasons))]
		s.logger.Warn("simulated bank failure", "bank", cfg.Code, "reason", reason)
		return nil, errors.NewProviderError(reason, errors.ErrCodeBankError)
	}

	fee := amount.Mul(cfg.FeeRate).Round(2)
	after := account.Balance.Sub(amount).Sub(fee)

	outcome := &Outcome{
		ProviderCode:  cfg.Code,
		TransactionID: s.transactionID(cfg.Code),
		ProviderRef:   s.providerRef(cfg.Code),
		Fee:           fee,
		Settlement:    cfg.Settlement,
		BalanceAfter:  &after,
	}

	s.logger.Info("bank payment simulated",
		"bank", cfg.Code,
		"transaction_id", outcome.TransactionID,
		"amount", amount.String(),
		"fee", fee.String())

	return outcome, nil
}

// ProcessMobile simulates a mobile-money payment keyed by phone number.
func (s *Simulator) ProcessMobile(ctx context.Context, details *paymentmethod.MobileDetails, amount decimal.Decimal) (*Outcome, error) {
	cfg, ok := s.registry.Mobile(details.ProviderCode)
	if !ok {
		return nil, errors.NewProviderError(fmt.Sprintf("unknown mobile provider code: %s", details.ProviderCode), errors.ErrCodeMobileError)
	}

	account, ok := cfg.FindAccount(details.PhoneNumber)
	if !ok {
		return nil, errors.NewProviderError(fmt.Sprintf("phone %s not registered with %s", details.PhoneNumber, cfg.Name), errors.ErrCodePhoneNotFound)
	}

	if account.Balance.LessThan(amount) {
		return nil, errors.NewProviderError("insufficient wallet balance", errors.ErrCodeInsufficientFunds).
			WithDetails(map[string]interface{}{"available_balance": account.Balance.String()})
	}

	if err := s.checkBounds(cfg, amount); err != nil {
		return nil, err
	}

	if err := s.simulateLatency(ctx); err != nil {
		return nil, errors.NewProviderError("mobile simulation timed out", errors.ErrCodeProviderTimeout).WithCause(err)
	}

	if s.rng.Float64() < s.settings.MobileFailureRate {
		reason := mobileFailureReasons[s.rng.Intn(len(mobileFailureReasons))]
		s.logger.Warn("simulated mobile failure", "provider", cfg.Code, "reason", reason)
		return nil, errors.NewProviderError(reason, errors.ErrCodeMobileError)
	}

	fee := amount.Mul(cfg.FeeRate).Round(2)
	after := account.Balance.Sub(amount).Sub(fee)

	outcome := &Outcome{
		ProviderCode:  cfg.Code,
		TransactionID: s.transactionID(cfg.Code),
		ProviderRef:   s.providerRef(cfg.Code),
		Fee:           fee,
		Settlement:    cfg.Settlement,
		BalanceAfter:  &after,
	}

	s.logger.Info("mobile payment simulated",
		"provider", cfg.Code,
		"transaction_id", outcome.TransactionID,
		"amount", amount.String(),
		"fee", fee.String())

	return outcome, nil
}

// ProcessCash always succeeds: no fee, settlement on delivery, and the
// order-fulfillment side confirms receipt downstream.
func (s *Simulator) ProcessCash(ctx context.Context, amount decimal.Decimal) (*Outcome, error) {
	outcome := &Outcome{
		ProviderCode:                 "cash",
		TransactionID:                s.transactionID("cash"),
		ProviderRef:                  s.providerRef("cash"),
		Fee:                          decimal.Zero,
		Settlement:                   "On Delivery",
		RequiresDeliveryConfirmation: true,
	}

	s.logger.Info("cash payment accepted",
		"transaction_id", outcome.TransactionID,
		"amount", amount.String())

	return outcome, nil
}

// ProcessRefund simulates the provider-side refund leg: a fixed short delay
// that always succeeds.
func (s *Simulator) ProcessRefund(ctx context.Context) error {
	if err := s.sleeper.Sleep(ctx, s.settings.RefundDelay); err != nil {
		return errors.NewProviderError("refund simulation timed out", errors.ErrCodeProviderTimeout).WithCause(err)
	}
	return nil
}

func (s *Simulator) checkBounds(cfg Config, amount decimal.Decimal) *errors.AppError {
	if amount.LessThan(cfg.MinAmount) {
		return errors.NewProviderError(
			fmt.Sprintf("amount below %s minimum of %s", cfg.Name, cfg.MinAmount.String()),
			errors.ErrCodeAmountTooLow)
	}
	if amount.GreaterThan(cfg.MaxAmount) {
		return errors.NewProviderError(
			fmt.Sprintf("amount above %s maximum of %s", cfg.Name, cfg.MaxAmount.String()),
			errors.ErrCodeAmountTooHigh)
	}
	return nil
}

func (s *Simulator) simulateLatency(ctx context.Context) error {
	delay := s.settings.MinLatency
	if spread := s.settings.MaxLatency - s.settings.MinLatency; spread > 0 {
		delay += time.Duration(s.rng.Intn(int(spread)))
	}
	return s.sleeper.Sleep(ctx, delay)
}

func (s *Simulator) transactionID(code string) string {
	return fmt.Sprintf("TXN-%s-%d-%04d", strings.ToUpper(code), s.now().Unix(), s.rng.Intn(10000))
}

func (s *Simulator) providerRef(code string) string {
	return fmt.Sprintf("%s-%s-%04d", strings.ToUpper(code), s.now().Format("20060102150405"), s.rng.Intn(10000))
}
