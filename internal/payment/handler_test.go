package payment_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	app "github.com/agromarket/payments/internal"
	"github.com/agromarket/payments/internal/auth"
	paymentPkg "github.com/agromarket/payments/internal/payment"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

type stubProcessor struct {
	processResult *paymentPkg.PaymentResult
	refundResult  *paymentPkg.PaymentResult
	getResult     *paymentPkg.PaymentResult
	listResult    *paymentPkg.PaymentResult

	lastProcessReq *paymentPkg.ProcessPaymentRequest
	lastRefundReq  *paymentPkg.RefundRequest
	lastPaymentID  string
	lastUserID     int64
	lastLimit      int
}

func (s *stubProcessor) ProcessPayment(ctx context.Context, req *paymentPkg.ProcessPaymentRequest) *paymentPkg.PaymentResult {
	s.lastProcessReq = req
	return s.processResult
}

func (s *stubProcessor) RefundPayment(ctx context.Context, paymentID string, req *paymentPkg.RefundRequest) *paymentPkg.PaymentResult {
	s.lastPaymentID = paymentID
	s.lastRefundReq = req
	return s.refundResult
}

func (s *stubProcessor) GetPayment(ctx context.Context, userID int64, paymentID string) *paymentPkg.PaymentResult {
	s.lastUserID = userID
	s.lastPaymentID = paymentID
	return s.getResult
}

func (s *stubProcessor) ListPayments(ctx context.Context, userID int64, limit int) *paymentPkg.PaymentResult {
	s.lastUserID = userID
	s.lastLimit = limit
	return s.listResult
}

func successPaymentResult(data interface{}) *paymentPkg.PaymentResult {
	return &paymentPkg.PaymentResult{
		Success:   true,
		Errors:    []string{},
		Data:      data,
		Status:    paymentPkg.StatusSuccess,
		Timestamp: time.Now(),
	}
}

func failedPaymentResult(status app.ErrorCode, messages ...string) *paymentPkg.PaymentResult {
	return &paymentPkg.PaymentResult{
		Success:   false,
		Errors:    messages,
		Status:    string(status),
		Timestamp: time.Now(),
	}
}

var _ = Describe("Handler", func() {
	var (
		handler   *paymentPkg.Handler
		processor *stubProcessor
		router    *chi.Mux
		user      *auth.User
	)

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		var reader *strings.Reader
		if body == "" {
			reader = strings.NewReader("")
		} else {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, reader)
		if user != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		processor = &stubProcessor{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = paymentPkg.NewHandler(processor, logger)
		user = &auth.User{ID: 42, Email: "abebe@agromarket.et"}

		router = chi.NewRouter()
		router.Post("/payments", handler.ProcessPayment)
		router.Get("/payments", handler.ListPayments)
		router.Get("/payments/{paymentID}", handler.GetPayment)
		router.Post("/payments/{paymentID}/refund", handler.RefundPayment)
	})

	Describe("ProcessPayment", func() {
		It("should return 200 with the result on success", func() {
			processor.processResult = successPaymentResult(&paymentPkg.PaymentData{
				PaymentID: "PAY-1",
				Amount:    decimal.RequireFromString("2500"),
				Currency:  "ETB",
			})

			rec := serve(http.MethodPost, "/payments",
				`{"payment_method_id":1,"amount":"2500","currency":"ETB"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var result paymentPkg.PaymentResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Success).To(BeTrue())
			Expect(result.Status).To(Equal(paymentPkg.StatusSuccess))

			Expect(processor.lastProcessReq.UserID).To(Equal(int64(42)))
		})

		It("should return 400 for a malformed body", func() {
			rec := serve(http.MethodPost, "/payments", `{"amount":`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(processor.lastProcessReq).To(BeNil())
		})

		It("should return 401 when no user is attached", func() {
			user = nil

			rec := serve(http.MethodPost, "/payments",
				`{"payment_method_id":1,"amount":"2500","currency":"ETB"}`)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should map validation failures to 400", func() {
			processor.processResult = failedPaymentResult(app.ErrCodeValidationFailed, "amount must be positive")

			rec := serve(http.MethodPost, "/payments",
				`{"payment_method_id":1,"amount":"-5","currency":"ETB"}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should map provider declines to 422", func() {
			processor.processResult = failedPaymentResult(app.ErrCodeInsufficientFunds, "insufficient funds in account")

			rec := serve(http.MethodPost, "/payments",
				`{"payment_method_id":1,"amount":"2500","currency":"ETB"}`)

			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("should map fraud blocks to 422", func() {
			processor.processResult = failedPaymentResult(app.ErrCodeFraudDetected, "transaction blocked by fraud screening")

			rec := serve(http.MethodPost, "/payments",
				`{"payment_method_id":1,"amount":"99999","currency":"ETB"}`)

			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
		})
	})

	Describe("RefundPayment", func() {
		It("should pass the path payment id and user to the processor", func() {
			processor.refundResult = successPaymentResult(&paymentPkg.RefundData{
				RefundID:  "REF-1",
				PaymentID: "PAY-1",
			})

			rec := serve(http.MethodPost, "/payments/PAY-1/refund",
				`{"amount":"1000","reason":"late delivery"}`)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(processor.lastPaymentID).To(Equal("PAY-1"))
			Expect(processor.lastRefundReq.UserID).To(Equal(int64(42)))
			Expect(processor.lastRefundReq.Amount.String()).To(Equal("1000"))
		})

		It("should map a non-refundable status to 409", func() {
			processor.refundResult = failedPaymentResult(app.ErrCodeInvalidRefundStatus, "payment in status pending cannot be refunded")

			rec := serve(http.MethodPost, "/payments/PAY-1/refund", `{"amount":"1000"}`)

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("should map an excessive refund amount to 400", func() {
			processor.refundResult = failedPaymentResult(app.ErrCodeInvalidRefundAmount, "refund amount exceeds the original payment amount")

			rec := serve(http.MethodPost, "/payments/PAY-1/refund", `{"amount":"9999999"}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GetPayment", func() {
		It("should return 404 for an unknown payment", func() {
			processor.getResult = failedPaymentResult(app.ErrCodePaymentNotFound, "payment not found")

			rec := serve(http.MethodGet, "/payments/PAY-missing", "")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(processor.lastPaymentID).To(Equal("PAY-missing"))
			Expect(processor.lastUserID).To(Equal(int64(42)))
		})
	})

	Describe("ListPayments", func() {
		It("should forward the limit query parameter", func() {
			processor.listResult = successPaymentResult([]*paymentPkg.PaymentData{})

			rec := serve(http.MethodGet, "/payments?limit=5", "")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(processor.lastLimit).To(Equal(5))
		})

		It("should reject a non-numeric limit", func() {
			rec := serve(http.MethodGet, "/payments?limit=abc", "")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
