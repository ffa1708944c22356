package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/middleware"
)

// RouterOptions holds the transport-level settings for the router.
type RouterOptions struct {
	CORSAllowedOrigins []string

	// RateLimitRPS enables per-client rate limiting when > 0.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter assembles the REST routes over the handler.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Get("/healthz", h.health)

	r.Route("/api/v1/reference-tables", func(r chi.Router) {
		r.Get("/", h.listTables)
		r.Post("/", h.createTable)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.getTable)
			r.Delete("/", h.deleteTable)
			r.Get("/mapping", h.readMapping)
			r.Post("/sync", h.syncTable)
			r.Post("/map", h.mapRecord)
			r.Put("/rows/{key}", h.upsertRow)
			r.Post("/rows/{key}/classify", h.classifyRow)
		})
	})

	return r
}
