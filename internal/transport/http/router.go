package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/logistix/vintedsync/internal/transport/http/middleware"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/items", func(r chi.Router) {
			r.Get("/search", h.SearchItems)
			r.Get("/sold", h.SoldItems)
		})
		r.Get("/brands", h.Brands)
		r.Get("/catalogs", h.Catalogs)

		r.Route("/mapping", func(r chi.Router) {
			r.Post("/", h.RunMapping)
			r.Get("/", h.MappingStatus)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", h.SyncAll)
			r.Post("/{productID}", h.SyncProduct)
		})

		r.Route("/market", func(r chi.Router) {
			r.Post("/analyze/{productID}", h.AnalyzeProduct)
			r.Post("/search", h.AnalyzeSearch)
			r.Get("/history.csv", h.ExportHistory)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/bootstrap", h.BootstrapSession)
			r.Put("/{userID}", h.PutSession)
			r.Delete("/{userID}", h.DeleteSession)
		})
	})

	return r
}
