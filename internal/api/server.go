// Package api provides the HTTP API server and handlers for memopack.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/memopack/internal/collector"
	"github.com/listenupapp/memopack/internal/config"
	"github.com/listenupapp/memopack/internal/export"
	"github.com/listenupapp/memopack/internal/locale"
	"github.com/listenupapp/memopack/internal/metrics"
	"github.com/listenupapp/memopack/internal/ratelimit"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	registry      *collector.Registry
	assembler     *export.Assembler
	metrics       *metrics.Metrics
	exportLimiter *ratelimit.KeyedRateLimiter
	upload        config.UploadConfig
	origins       []string
	fallback      locale.Catalog
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
}

// Deps groups what NewServer needs. Metrics and ExportLimiter are optional.
type Deps struct {
	Config        *config.Config
	Registry      *collector.Registry
	Assembler     *export.Assembler
	Metrics       *metrics.Metrics
	ExportLimiter *ratelimit.KeyedRateLimiter
	Logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps Deps) *Server {
	fallback, err := locale.Lookup(deps.Config.Export.Locale)
	if err != nil {
		fallback = locale.Default()
	}

	s := &Server{
		registry:      deps.Registry,
		assembler:     deps.Assembler,
		metrics:       deps.Metrics,
		exportLimiter: deps.ExportLimiter,
		upload:        deps.Config.Upload,
		origins:       deps.Config.Server.AllowedOrigins,
		fallback:      fallback,
		router:        chi.NewRouter(),
		logger:        deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("memopack API", "1.0.0")
	humaConfig.Info.Description = "Collects notes and images and packages them as a memo import archive."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(s.origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   archiveHeaderNames,
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerExportRoutes()

	// Multipart endpoints use chi directly.
	s.router.Put("/api/v1/sessions/{sessionID}/drafts/{draftID}/files", s.handleUploadDraftFiles)

	bulk := s.router.With()
	if s.exportLimiter != nil {
		bulk = bulk.With(RateLimitMiddleware(s.exportLimiter, s.logger))
	}
	bulk.Post("/api/v1/bulk/export", s.handleBulkExport)
}

// catalog picks the notices and category name for a request.
func (s *Server) catalog(acceptLanguage string) locale.Catalog {
	return locale.Match(acceptLanguage, s.fallback)
}
