package provider_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	app "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/agromarket/payments/internal/provider"
	"github.com/shopspring/decimal"
)

// scriptedRand returns pre-programmed draws so failure outcomes are
// deterministic.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		return 1.0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRand) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

type instantSleeper struct {
	slept []time.Duration
}

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

type blockedSleeper struct{}

func (blockedSleeper) Sleep(ctx context.Context, d time.Duration) error {
	return context.DeadlineExceeded
}

var _ = Describe("Simulator", func() {
	var (
		simulator *provider.Simulator
		rng       *scriptedRand
		sleeper   *instantSleeper
		ctx       context.Context
	)

	settings := provider.Settings{
		BankFailureRate:   0.05,
		MobileFailureRate: 0.03,
		MinLatency:        time.Millisecond,
		MaxLatency:        2 * time.Millisecond,
		RefundDelay:       time.Millisecond,
	}

	BeforeEach(func() {
		rng = &scriptedRand{}
		sleeper = &instantSleeper{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		simulator = provider.NewSimulator(provider.NewRegistry(), settings, logger).
			WithRand(rng).
			WithSleeper(sleeper).
			WithClock(func() time.Time { return time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC) })
		ctx = context.Background()
	})

	Describe("ProcessBank", func() {
		details := &paymentmethod.BankDetails{AccountNumber: "1000123456789", BankCode: "cbe"}

		It("should settle a transfer with the bank's fee rate", func() {
			rng.floats = []float64{0.99}

			outcome, err := simulator.ProcessBank(ctx, details, decimal.RequireFromString("2500"))
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.ProviderCode).To(Equal("cbe"))
			Expect(outcome.Fee.Equal(decimal.RequireFromString("37.50"))).To(BeTrue())
			Expect(outcome.Settlement).To(Equal("T+1"))
			Expect(outcome.TransactionID).To(HavePrefix("TXN-CBE-"))
			Expect(outcome.BalanceAfter).ToNot(BeNil())
			Expect(outcome.BalanceAfter.Equal(decimal.RequireFromString("47462.50"))).To(BeTrue())
		})

		It("should reject an unknown bank code", func() {
			_, err := simulator.ProcessBank(ctx, &paymentmethod.BankDetails{
				AccountNumber: "1000123456789", BankCode: "zemen",
			}, decimal.RequireFromString("100"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeBankError))
		})

		It("should reject an unknown account number", func() {
			_, err := simulator.ProcessBank(ctx, &paymentmethod.BankDetails{
				AccountNumber: "0000000000000", BankCode: "cbe",
			}, decimal.RequireFromString("100"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeAccountNotFound))
		})

		It("should reject amounts above the account balance with the balance attached", func() {
			_, err := simulator.ProcessBank(ctx, details, decimal.RequireFromString("60000"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeInsufficientFunds))
			detailsMap := appErr.Details.(map[string]interface{})
			Expect(detailsMap["available_balance"]).To(Equal("50000"))
		})

		It("should enforce the bank's minimum amount", func() {
			_, err := simulator.ProcessBank(ctx, details, decimal.RequireFromString("5"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeAmountTooLow))
		})

		It("should fail the random draw below the failure rate", func() {
			rng.floats = []float64{0.01}
			rng.ints = []int{0, 0, 1}

			_, err := simulator.ProcessBank(ctx, details, decimal.RequireFromString("2500"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeBankError))
			Expect(appErr.Message).ToNot(BeEmpty())
		})

		It("should surface a timeout when the latency wait is cancelled", func() {
			simulator.WithSleeper(blockedSleeper{})

			_, err := simulator.ProcessBank(ctx, details, decimal.RequireFromString("2500"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeProviderTimeout))
		})
	})

	Describe("ProcessMobile", func() {
		details := &paymentmethod.MobileDetails{PhoneNumber: "+251911123456", ProviderCode: "telebirr"}

		It("should settle a wallet payment", func() {
			rng.floats = []float64{0.99}

			outcome, err := simulator.ProcessMobile(ctx, details, decimal.RequireFromString("500"))
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.ProviderCode).To(Equal("telebirr"))
			Expect(outcome.Fee.Equal(decimal.RequireFromString("5.00"))).To(BeTrue())
			Expect(outcome.Settlement).To(Equal("T+0"))
		})

		It("should reject an unregistered phone number", func() {
			_, err := simulator.ProcessMobile(ctx, &paymentmethod.MobileDetails{
				PhoneNumber: "+251900000000", ProviderCode: "telebirr",
			}, decimal.RequireFromString("100"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodePhoneNotFound))
		})

		It("should reject amounts above the provider maximum", func() {
			richer := &paymentmethod.MobileDetails{PhoneNumber: "+251911987654", ProviderCode: "telebirr"}

			_, err := simulator.ProcessMobile(ctx, richer, decimal.RequireFromString("15000"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeAmountTooHigh))
		})

		It("should reject amounts above the wallet balance before the limit check", func() {
			_, err := simulator.ProcessMobile(ctx, details, decimal.RequireFromString("9000"))

			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeInsufficientFunds))
		})
	})

	Describe("ProcessCash", func() {
		It("should always accept with no fee and delivery confirmation required", func() {
			outcome, err := simulator.ProcessCash(ctx, decimal.RequireFromString("700"))
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome.ProviderCode).To(Equal("cash"))
			Expect(outcome.Fee.IsZero()).To(BeTrue())
			Expect(outcome.Settlement).To(Equal("On Delivery"))
			Expect(outcome.RequiresDeliveryConfirmation).To(BeTrue())
		})
	})

	Describe("ProcessRefund", func() {
		It("should wait out the refund delay and succeed", func() {
			Expect(simulator.ProcessRefund(ctx)).To(Succeed())
			Expect(sleeper.slept).To(ContainElement(settings.RefundDelay))
		})

		It("should surface a timeout when the wait is cancelled", func() {
			simulator.WithSleeper(blockedSleeper{})

			err := simulator.ProcessRefund(ctx)
			appErr, ok := app.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(app.ErrCodeProviderTimeout))
		})
	})
})
