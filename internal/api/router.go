package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/auth"
)

func NewRouter(handlers *Handlers, gate *auth.Gate, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", handlers.CreateOrder)

		r.Group(func(r chi.Router) {
			r.Use(OwnerOnly(gate))
			r.Get("/", handlers.ListOrders)
			r.Get("/{id}", handlers.GetOrder)
			r.Put("/{id}", handlers.UpdateOrder)
			r.Delete("/{id}", handlers.DeleteOrder)
			r.Post("/{id}/notes", handlers.AddNote)
			r.Post("/{id}/shipments", handlers.AddShipment)
			r.Post("/{id}/refunds", handlers.AddRefund)
		})
	})

	return r
}

// OwnerOnly rejects requests that fail the owner gate. Denial is reported as
// not-found, never forbidden, so an unauthorized caller cannot learn whether
// an order id exists.
func OwnerOnly(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Authorize(r) {
				respondNotFound(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
