package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/agromarket/payments/internal/analytics"
	"github.com/agromarket/payments/internal/auth"
	"github.com/agromarket/payments/internal/payment"
	"github.com/agromarket/payments/internal/provider"
	"github.com/agromarket/payments/internal/transport/middleware"
	"github.com/agromarket/payments/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes wires the gateway's HTTP surface under /api/v1.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	verifier auth.TokenVerifier,
	paymentHandler *payment.Handler,
	providerHandler *provider.Handler,
	analyticsHandler *analytics.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Provider catalog is public; it carries no account data.
		if providerHandler != nil {
			r.Get("/providers", providerHandler.ListProviders)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(auth.RequireAuth(verifier))

			if paymentHandler != nil {
				pr.Route("/payments", func(pmr chi.Router) {
					pmr.Post("/", paymentHandler.ProcessPayment)
					pmr.Get("/", paymentHandler.ListPayments)
					pmr.Get("/{paymentID}", paymentHandler.GetPayment)
					pmr.Post("/{paymentID}/refund", paymentHandler.RefundPayment)
				})
			}

			if analyticsHandler != nil {
				pr.Route("/analytics", func(ar chi.Router) {
					ar.Get("/dashboard", analyticsHandler.Dashboard)
					ar.Get("/trends", analyticsHandler.Trends)
					ar.Get("/providers", analyticsHandler.Providers)
					ar.Get("/top-users", analyticsHandler.TopUsers)
					ar.Get("/recent", analyticsHandler.RecentPayments)
					ar.Get("/fraud-report", analyticsHandler.FraudReport)
					ar.Get("/alerts", analyticsHandler.Alerts)
				})
			}
		})
	})
}
