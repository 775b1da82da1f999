package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/visit-report-ai/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/visit-report-ai/internal/http/middleware"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Extractions        *handlers.ExtractionHandler
	Records            *handlers.RecordsHandler
	Clients            *handlers.ClientsHandler
	Options            *handlers.OptionsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RequestTimeout bounds every request. Zero disables it.
	RequestTimeout     time.Duration

	// Per-IP limit on extraction requests. Zero disables the limit.
	ExtractionRatePerMinute int
	ExtractionRateBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Extractions != nil {
			extract := api.With()
			if cfg.ExtractionRatePerMinute > 0 {
				extract = api.With(httpmiddleware.RateLimit(float64(cfg.ExtractionRatePerMinute), cfg.ExtractionRateBurst))
			}
			extract.Post("/extractions", cfg.Extractions.Create)
		}
		if cfg.Records != nil {
			api.Post("/records", cfg.Records.Create)
		}
		if cfg.Clients != nil {
			api.Get("/clients", cfg.Clients.List)
		}
		if cfg.Options != nil {
			api.Get("/options", cfg.Options.Get)
		}
	})

	return r
}
