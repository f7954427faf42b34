/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the review frontend

ROUTE GROUPS:
  /api/stores/*         Configuration, ingestion, compute
  /api/shifts/*         Manual shift edits
  /api/tips/*           Payment-time corrections
  /api/calculations/*   Status toggles, results, export
  /api/results/*        Post-completion edits and audit
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. The X-Actor header is trusted as supplied
  by the identity layer in front of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", actorHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Route("/{storeID}", func(r chi.Router) {
				r.Get("/config", h.GetStoreConfig)
				r.Put("/config", h.PutStoreConfig)

				r.Post("/shifts", h.ImportShifts)
				r.Get("/shifts", h.ListShifts)
				r.Post("/tips", h.ImportTips)
				r.Get("/tips", h.ListTips)
				r.Post("/cash-tips", h.ImportCashTips)

				r.Post("/calculations", h.Compute)
				r.Get("/calculations/active", h.GetActiveCalculation)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.Put("/{id}", h.UpdateShift)
			r.Delete("/{id}", h.DeleteShift)
		})

		r.Patch("/tips/{id}/payment-time", h.CorrectPaymentTime)

		r.Route("/calculations/{id}", func(r chi.Router) {
			r.Get("/", h.GetCalculation)
			r.Get("/exceptions", h.GetOpenExceptions)
			r.Put("/employees/{name}/status", h.SetTipStatus)
			r.Get("/results", h.GetResults)
			r.Get("/export", h.ExportResults)
		})

		r.Route("/results/{id}", func(r chi.Router) {
			r.Put("/", h.EditResult)
			r.Post("/archive", h.ArchiveResult)
			r.Delete("/", h.DeleteResult)
			r.Get("/audit", h.GetAuditTrail)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
