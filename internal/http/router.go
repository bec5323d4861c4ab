package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the cart and catalog endpoints under /api/v1.
func NewRouter(cart *CartHandler, catalog *CatalogHandler, requestTimeout time.Duration, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			// Long-lived stream, no request timeout.
			r.Get("/events", cart.StreamCart)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(requestTimeout))
				r.Get("/", cart.GetCart)
				r.Delete("/", cart.ClearCart)
				r.Post("/items", cart.AddItem)
				r.Delete("/items/{product_id}", cart.RemoveItem)
				r.Post("/items/{product_id}/increment", cart.IncrementItem)
				r.Post("/items/{product_id}/decrement", cart.DecrementItem)
			})
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/", catalog.GetState)
			r.Put("/category", catalog.SelectCategory)
			r.Post("/refresh", catalog.Refresh)
		})
	})

	return r
}
