/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require a staff session.
	r.Group(func(r chi.Router) {
		r.Use(StaffAuthMiddleware(jwtSecret))

		// Payment ledger endpoints
		r.Post("/payments", h.CreatePaymentHandler)
		r.Get("/payments", h.ListPaymentsHandler)
		r.Get("/payments/{paymentID}", h.GetPaymentHandler)
		r.Put("/payments/{paymentID}", h.UpdatePaymentHandler)
		r.Delete("/payments/{paymentID}", h.DeletePaymentHandler)

		// Validation workflow endpoints
		r.Post("/payments/status/bulk", h.BulkTransitionStatusHandler)
		r.Post("/payments/{paymentID}/status", h.TransitionStatusHandler)

		// Aggregation endpoints
		r.Get("/reports/summary", h.SummaryHandler)
		r.Get("/reports/monthly", h.MonthlyHandler)
		r.Get("/reports/top-category", h.TopCategoryHandler)

		// Fee type catalog endpoints
		r.Get("/fee-types", h.ListFeeTypesHandler)
		r.Post("/fee-types", h.CreateFeeTypeHandler)
		r.Post("/fee-types/{feeTypeID}/deactivate", h.DeactivateFeeTypeHandler)
		r.Delete("/fee-types/{feeTypeID}", h.DeleteFeeTypeHandler)

		// Destination account endpoints
		r.Get("/accounts", h.ListAccountsHandler)
		r.Post("/accounts", h.CreateAccountHandler)
		r.Delete("/accounts/{accountID}", h.DeleteAccountHandler)
	})

	return r
}
