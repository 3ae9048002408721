package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	app "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/core/datamodel/analytics"
	"github.com/agromarket/payments/internal/core/datamodel/payment"
	"github.com/agromarket/payments/internal/core/datamodel/paymentmethod"
	"github.com/agromarket/payments/internal/core/events"
	"github.com/agromarket/payments/internal/fraud"
	paymentPkg "github.com/agromarket/payments/internal/payment"
	"github.com/agromarket/payments/internal/provider"
	"github.com/shopspring/decimal"
)

func TestPayment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Suite")
}

// Mock repository for testing
type mockRepository struct {
	payments map[string]*payment.Payment
	refunds  map[string][]*payment.Refund
	methods  map[int64]*paymentmethod.PaymentMethod

	createError       error
	getError          error
	updateStatusError error
	createRefundError error
	sumRefundsError   error
	getMethodError    error
	listError         error

	completedSince int64
	recent         []*payment.Payment
	refundCount    int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		payments: make(map[string]*payment.Payment),
		refunds:  make(map[string][]*payment.Refund),
		methods:  make(map[int64]*paymentmethod.PaymentMethod),
	}
}

func (m *mockRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.createError != nil {
		return m.createError
	}
	p.ID = int64(len(m.payments) + 1)
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.payments[p.PaymentID] = p
	return nil
}

func (m *mockRepository) GetByPaymentID(ctx context.Context, paymentID string) (*payment.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	p, exists := m.payments[paymentID]
	if !exists {
		return nil, errors.New("payment not found")
	}
	return p, nil
}

func (m *mockRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*payment.Payment
	for _, p := range m.payments {
		if p.UserID == userID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, paymentID string, status string, fields map[string]interface{}) error {
	if m.updateStatusError != nil {
		return m.updateStatusError
	}
	p, exists := m.payments[paymentID]
	if !exists {
		return errors.New("payment not found")
	}
	p.Status = status
	if v, ok := fields["transaction_id"].(string); ok {
		p.TransactionID = v
	}
	if v, ok := fields["provider_code"].(string); ok {
		p.ProviderCode = v
	}
	if v, ok := fields["fee"].(decimal.Decimal); ok {
		p.Fee = v
	}
	if v, ok := fields["failure_reason"].(string); ok {
		p.FailureReason = &v
	}
	return nil
}

func (m *mockRepository) CreateRefund(ctx context.Context, ref *payment.Refund) error {
	if m.createRefundError != nil {
		return m.createRefundError
	}
	ref.ID = int64(len(m.refunds[ref.PaymentID]) + 1)
	m.refunds[ref.PaymentID] = append(m.refunds[ref.PaymentID], ref)
	return nil
}

func (m *mockRepository) SumRefunds(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	if m.sumRefundsError != nil {
		return decimal.Zero, m.sumRefundsError
	}
	total := decimal.Zero
	for _, ref := range m.refunds[paymentID] {
		total = total.Add(ref.Amount)
	}
	return total, nil
}

func (m *mockRepository) GetMethod(ctx context.Context, id int64) (*paymentmethod.PaymentMethod, error) {
	if m.getMethodError != nil {
		return nil, m.getMethodError
	}
	method, exists := m.methods[id]
	if !exists {
		return nil, errors.New("payment method not found")
	}
	return method, nil
}

func (m *mockRepository) CountCompletedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return m.completedSince, nil
}

func (m *mockRepository) RecentPayments(ctx context.Context, userID int64, limit int) ([]*payment.Payment, error) {
	return m.recent, nil
}

func (m *mockRepository) CountRefundsByUser(ctx context.Context, userID int64) (int64, error) {
	return m.refundCount, nil
}

type mockFraudEngine struct {
	assessment fraud.Assessment
	requests   []fraud.Request
}

func (m *mockFraudEngine) Analyze(ctx context.Context, req fraud.Request) fraud.Assessment {
	m.requests = append(m.requests, req)
	return m.assessment
}

type mockSimulator struct {
	bankOutcome   *provider.Outcome
	bankError     error
	mobileOutcome *provider.Outcome
	mobileError   error
	cashOutcome   *provider.Outcome
	refundError   error

	bankCalls   int
	mobileCalls int
	cashCalls   int
	refundCalls int
}

func (m *mockSimulator) ProcessBank(ctx context.Context, details *paymentmethod.BankDetails, amount decimal.Decimal) (*provider.Outcome, error) {
	m.bankCalls++
	return m.bankOutcome, m.bankError
}

func (m *mockSimulator) ProcessMobile(ctx context.Context, details *paymentmethod.MobileDetails, amount decimal.Decimal) (*provider.Outcome, error) {
	m.mobileCalls++
	return m.mobileOutcome, m.mobileError
}

func (m *mockSimulator) ProcessCash(ctx context.Context, amount decimal.Decimal) (*provider.Outcome, error) {
	m.cashCalls++
	return m.cashOutcome, nil
}

func (m *mockSimulator) ProcessRefund(ctx context.Context) error {
	m.refundCalls++
	return m.refundError
}

type mockRecorder struct {
	metrics []analytics.PaymentMetric
}

func (m *mockRecorder) Record(metric analytics.PaymentMetric) {
	m.metrics = append(m.metrics, metric)
}

func bankMethod(id, userID int64) *paymentmethod.PaymentMethod {
	details, _ := json.Marshal(paymentmethod.BankDetails{AccountNumber: "1000123456789", BankCode: "cbe"})
	return &paymentmethod.PaymentMethod{
		ID:         id,
		UserID:     userID,
		Kind:       paymentmethod.KindBank,
		Details:    details,
		IsVerified: true,
		IsActive:   true,
	}
}

func mobileMethod(id, userID int64) *paymentmethod.PaymentMethod {
	details, _ := json.Marshal(paymentmethod.MobileDetails{PhoneNumber: "+251911123456", ProviderCode: "telebirr"})
	return &paymentmethod.PaymentMethod{
		ID:         id,
		UserID:     userID,
		Kind:       paymentmethod.KindMobile,
		Details:    details,
		IsVerified: true,
		IsActive:   true,
	}
}

var _ = Describe("Processor", func() {
	var (
		processor *paymentPkg.Processor
		repo      *mockRepository
		engine    *mockFraudEngine
		simulator *mockSimulator
		recorder  *mockRecorder
		logger    *slog.Logger
		ctx       context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		engine = &mockFraudEngine{
			assessment: fraud.Assessment{
				Score:          0.05,
				Level:          fraud.RiskLevelLow,
				Recommendation: fraud.RecommendationProceed,
			},
		}
		simulator = &mockSimulator{}
		recorder = &mockRecorder{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ctx = context.Background()

		eventBus := events.NewEventBus(logger)
		processor = paymentPkg.NewProcessor(repo, engine, simulator, recorder, eventBus, time.Second, logger)
	})

	Describe("ProcessPayment", func() {
		Context("when a bank payment succeeds", func() {
			BeforeEach(func() {
				repo.methods[1] = bankMethod(1, 42)
				after := decimal.RequireFromString("47462.50")
				simulator.bankOutcome = &provider.Outcome{
					ProviderCode:  "cbe",
					TransactionID: "TXN-CBE-1700000000-0042",
					ProviderRef:   "CBE-20250311140000-0042",
					Fee:           decimal.RequireFromString("37.50"),
					Settlement:    "T+1",
					BalanceAfter:  &after,
				}
			})

			It("should complete the payment and return provider details", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("2500"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeTrue())
				Expect(result.Status).To(Equal(paymentPkg.StatusSuccess))

				data, ok := result.Data.(*paymentPkg.PaymentData)
				Expect(ok).To(BeTrue())
				Expect(data.PaymentID).To(HavePrefix("PAY-"))
				Expect(data.TransactionID).To(Equal("TXN-CBE-1700000000-0042"))
				Expect(data.Fee.String()).To(Equal("37.5"))
				Expect(data.Settlement).To(Equal("T+1"))
				Expect(data.ProviderCode).To(Equal("cbe"))
				Expect(data.Status).To(Equal(payment.StatusCompleted))
				Expect(data.BalanceAfter).ToNot(BeNil())

				stored := repo.payments[data.PaymentID]
				Expect(stored).ToNot(BeNil())
				Expect(stored.Status).To(Equal(payment.StatusCompleted))
				Expect(stored.TransactionID).To(Equal("TXN-CBE-1700000000-0042"))
			})

			It("should record a success metric", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("2500"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeTrue())
				Expect(recorder.metrics).To(HaveLen(1))
				Expect(recorder.metrics[0].Success).To(BeTrue())
				Expect(recorder.metrics[0].ProviderCode).To(Equal("cbe"))
				Expect(recorder.metrics[0].Amount.String()).To(Equal("2500"))
			})

			It("should embed the fraud assessment in the payment metadata", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("2500"),
					Currency: "ETB",
					Metadata: map[string]interface{}{"order_id": "ORD-77"},
				})

				data := result.Data.(*paymentPkg.PaymentData)
				stored := repo.payments[data.PaymentID]

				var meta map[string]interface{}
				Expect(json.Unmarshal(stored.Metadata, &meta)).To(Succeed())
				Expect(meta).To(HaveKey("fraud"))
				Expect(meta["order_id"]).To(Equal("ORD-77"))
			})
		})

		Context("when validation fails", func() {
			It("should reject a non-positive amount without touching the repository", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.Zero,
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeValidationFailed)))
				Expect(result.Errors).ToNot(BeEmpty())
				Expect(repo.payments).To(BeEmpty())
				Expect(engine.requests).To(BeEmpty())
			})

			It("should reject amounts above the system ceiling", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("1000001"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeValidationFailed)))
			})

			It("should reject a malformed currency code", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("100"),
					Currency: "BIRR",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeValidationFailed)))
			})
		})

		Context("when fraud screening blocks the payment", func() {
			BeforeEach(func() {
				repo.methods[1] = bankMethod(1, 42)
				engine.assessment = fraud.Assessment{
					Score:          0.64,
					Level:          fraud.RiskLevelHigh,
					Recommendation: fraud.RecommendationBlock,
				}
			})

			It("should fail with FRAUD_DETECTED before any provider call", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("99999"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeFraudDetected)))
				Expect(repo.payments).To(BeEmpty())
				Expect(simulator.bankCalls).To(BeZero())
			})
		})

		Context("when the payment method cannot be resolved", func() {
			It("should fail when the method does not exist", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 99,
					Amount:   decimal.RequireFromString("100"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodePaymentMethodNotFound)))
			})

			It("should fail when the method belongs to another user", func() {
				repo.methods[1] = bankMethod(1, 7)

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("100"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodePaymentMethodNotFound)))
			})

			It("should fail when the method is inactive", func() {
				method := bankMethod(1, 42)
				method.IsActive = false
				repo.methods[1] = method

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("100"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodePaymentMethodNotFound)))
			})
		})

		Context("when the provider declines the payment", func() {
			BeforeEach(func() {
				repo.methods[2] = mobileMethod(2, 42)
				simulator.mobileError = app.NewProviderError(
					"amount above Telebirr maximum of 10000", app.ErrCodeAmountTooHigh)
			})

			It("should mark the payment failed and surface the provider code", func() {
				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 2,
					Amount:   decimal.RequireFromString("15000"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeAmountTooHigh)))
				Expect(result.Errors).To(ContainElement(ContainSubstring("Telebirr maximum")))

				Expect(repo.payments).To(HaveLen(1))
				for _, stored := range repo.payments {
					Expect(stored.Status).To(Equal(payment.StatusFailed))
					Expect(stored.FailureReason).ToNot(BeNil())
				}
			})

			It("should record a failure metric", func() {
				processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 2,
					Amount:   decimal.RequireFromString("15000"),
					Currency: "ETB",
				})

				Expect(recorder.metrics).To(HaveLen(1))
				Expect(recorder.metrics[0].Success).To(BeFalse())
			})

			It("should append provider details to the error messages", func() {
				simulator.mobileError = app.NewProviderError("insufficient wallet balance", app.ErrCodeInsufficientFunds).
					WithDetails(map[string]interface{}{"available_balance": "8000"})

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 2,
					Amount:   decimal.RequireFromString("9000"),
					Currency: "ETB",
				})

				Expect(result.Status).To(Equal(string(app.ErrCodeInsufficientFunds)))
				Expect(result.Errors).To(ContainElement("insufficient wallet balance"))
				Expect(result.Errors).To(ContainElement(ContainSubstring("available_balance")))
			})
		})

		Context("when the method kind is unsupported", func() {
			It("should fail with UNSUPPORTED_PAYMENT_TYPE", func() {
				repo.methods[3] = &paymentmethod.PaymentMethod{
					ID:       3,
					UserID:   42,
					Kind:     paymentmethod.Kind("crypto"),
					IsActive: true,
				}

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 3,
					Amount:   decimal.RequireFromString("100"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeUnsupportedPaymentType)))
			})
		})

		Context("when cash on delivery is selected", func() {
			It("should require delivery confirmation", func() {
				repo.methods[4] = &paymentmethod.PaymentMethod{
					ID:       4,
					UserID:   42,
					Kind:     paymentmethod.KindCash,
					IsActive: true,
				}
				simulator.cashOutcome = &provider.Outcome{
					ProviderCode:                 "cash",
					TransactionID:                "TXN-CASH-1700000000-0001",
					Fee:                          decimal.Zero,
					Settlement:                   "On Delivery",
					RequiresDeliveryConfirmation: true,
				}

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 4,
					Amount:   decimal.RequireFromString("700"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeTrue())
				data := result.Data.(*paymentPkg.PaymentData)
				Expect(data.RequiresDeliveryConfirmation).To(BeTrue())
				Expect(data.Fee.IsZero()).To(BeTrue())
			})
		})

		Context("when persistence fails", func() {
			It("should fail with PROCESSING_ERROR", func() {
				repo.methods[1] = bankMethod(1, 42)
				repo.createError = errors.New("connection reset")

				result := processor.ProcessPayment(ctx, &paymentPkg.ProcessPaymentRequest{
					UserID:   42,
					MethodID: 1,
					Amount:   decimal.RequireFromString("100"),
					Currency: "ETB",
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeProcessingError)))
			})
		})
	})

	Describe("RefundPayment", func() {
		var completed *payment.Payment

		BeforeEach(func() {
			completed = &payment.Payment{
				ID:         1,
				PaymentID:  "PAY-existing",
				UserID:     42,
				MethodID:   1,
				MethodKind: "bank",
				Amount:     decimal.RequireFromString("5000"),
				Currency:   "ETB",
				Status:     payment.StatusCompleted,
			}
			repo.payments[completed.PaymentID] = completed
		})

		Context("when the refund is valid", func() {
			It("should process a partial refund", func() {
				result := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("2500"),
					Reason: "late delivery",
				})

				Expect(result.Success).To(BeTrue())
				data, ok := result.Data.(*paymentPkg.RefundData)
				Expect(ok).To(BeTrue())
				Expect(data.RefundID).To(HavePrefix("REF-"))
				Expect(data.PaymentID).To(Equal("PAY-existing"))
				Expect(data.Amount.String()).To(Equal("2500"))

				Expect(simulator.refundCalls).To(Equal(1))
				Expect(completed.Status).To(Equal(payment.StatusRefunded))
			})

			It("should allow further refunds up to the original amount", func() {
				first := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("2500"),
				})
				Expect(first.Success).To(BeTrue())

				second := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("2500"),
				})
				Expect(second.Success).To(BeTrue())
			})
		})

		Context("when cumulative refunds would exceed the original amount", func() {
			It("should fail with INVALID_REFUND_AMOUNT", func() {
				first := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("2500"),
				})
				Expect(first.Success).To(BeTrue())

				second := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("3000"),
				})

				Expect(second.Success).To(BeFalse())
				Expect(second.Status).To(Equal(string(app.ErrCodeInvalidRefundAmount)))
				Expect(second.Errors).To(ContainElement(ContainSubstring("already refunded 2500")))
			})
		})

		Context("when the refund amount exceeds the original payment", func() {
			It("should fail with INVALID_REFUND_AMOUNT", func() {
				result := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("5001"),
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeInvalidRefundAmount)))
			})
		})

		Context("when the payment is not refundable", func() {
			It("should fail for a pending payment", func() {
				completed.Status = payment.StatusPending

				result := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("100"),
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeInvalidRefundStatus)))
			})

			It("should fail for a failed payment", func() {
				completed.Status = payment.StatusFailed

				result := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("100"),
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodeInvalidRefundStatus)))
			})
		})

		Context("when the payment belongs to another user", func() {
			It("should report PAYMENT_NOT_FOUND rather than leaking its existence", func() {
				result := processor.RefundPayment(ctx, "PAY-existing", &paymentPkg.RefundRequest{
					UserID: 7,
					Amount: decimal.RequireFromString("100"),
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodePaymentNotFound)))
			})
		})

		Context("when the payment does not exist", func() {
			It("should fail with PAYMENT_NOT_FOUND", func() {
				result := processor.RefundPayment(ctx, "PAY-missing", &paymentPkg.RefundRequest{
					UserID: 42,
					Amount: decimal.RequireFromString("100"),
				})

				Expect(result.Success).To(BeFalse())
				Expect(result.Status).To(Equal(string(app.ErrCodePaymentNotFound)))
			})
		})
	})

	Describe("GetPayment", func() {
		BeforeEach(func() {
			reason := "Insufficient bank reserves"
			repo.payments["PAY-failed"] = &payment.Payment{
				PaymentID:     "PAY-failed",
				UserID:        42,
				Amount:        decimal.RequireFromString("800"),
				Currency:      "ETB",
				MethodKind:    "bank",
				Status:        payment.StatusFailed,
				FailureReason: &reason,
			}
		})

		It("should return the stored payment including the failure reason", func() {
			result := processor.GetPayment(ctx, 42, "PAY-failed")

			Expect(result.Success).To(BeTrue())
			data := result.Data.(*paymentPkg.PaymentData)
			Expect(data.Status).To(Equal(payment.StatusFailed))
			Expect(data.FailureReason).To(Equal("Insufficient bank reserves"))
		})

		It("should hide payments owned by other users", func() {
			result := processor.GetPayment(ctx, 7, "PAY-failed")

			Expect(result.Success).To(BeFalse())
			Expect(result.Status).To(Equal(string(app.ErrCodePaymentNotFound)))
		})
	})

	Describe("ListPayments", func() {
		BeforeEach(func() {
			for _, id := range []string{"PAY-a", "PAY-b", "PAY-c"} {
				repo.payments[id] = &payment.Payment{
					PaymentID: id,
					UserID:    42,
					Amount:    decimal.RequireFromString("100"),
					Currency:  "ETB",
					Status:    payment.StatusCompleted,
				}
			}
		})

		It("should return the user's payments", func() {
			result := processor.ListPayments(ctx, 42, 10)

			Expect(result.Success).To(BeTrue())
			items := result.Data.([]*paymentPkg.PaymentData)
			Expect(items).To(HaveLen(3))
		})

		It("should fail with PROCESSING_ERROR when the repository errors", func() {
			repo.listError = errors.New("db gone")

			result := processor.ListPayments(ctx, 42, 10)

			Expect(result.Success).To(BeFalse())
			Expect(result.Status).To(Equal(string(app.ErrCodeProcessingError)))
		})
	})
})
