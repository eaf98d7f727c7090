/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Wires URLs to handlers. The HTTP surface is a thin collaborator around
  the dispatch container: every write endpoint constructs exactly one
  action and dispatches it; every read endpoint renders a snapshot through
  the derivation functions.

ROUTER: chi
  Lightweight, context-based, RESTful route patterns.

MIDDLEWARE STACK:
  1. RequestID:  unique id per request for tracing
  2. Recoverer:  500 instead of crash
  3. requestLogger: zerolog access log
  4. CORS:       cross-origin requests for the frontend collaborator

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server: startup and shutdown
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Post("/reminders", h.SendReminders)
			r.Get("/{id}", h.GetInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/{id}/statement", h.CustomerStatement)
			r.Get("/{id}/receivables", h.CustomerReceivables)
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", h.ListVendors)
			r.Post("/payments", h.RecordVendorPayment)
			r.Get("/{id}/statement", h.VendorStatement)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Post("/invoiced", h.MarkBookingsInvoiced)
			r.Post("/{id}/complete", h.CompleteTrip)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Post("/{id}/approve", h.ApproveExpense)
		})

		r.Route("/bank", func(r chi.Router) {
			r.Post("/transactions/{id}/match", h.MatchBankTransaction)
		})

		r.Get("/audit", h.ListAudit)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Delete("/{id}", h.DismissNotification)
		})

		r.Post("/users/current", h.SetCurrentUser)
	})

	return r
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
