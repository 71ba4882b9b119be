package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/pipeline"
)

// SearchService runs searches and holds the published property list of
// each client session.
type SearchService interface {
	RunQuery(ctx context.Context, session string, q pipeline.Query) (domain.SearchResult, error)
	Properties(session string) []domain.Property
	Published(session string) pipeline.Query
	CheckReadiness(ctx context.Context) error
}

// ListingService answers lookups that bypass the orchestrator.
type ListingService interface {
	GetByID(ctx context.Context, id string) domain.PropertyResult
	GeocodeAddress(ctx context.Context, text string) domain.GeocodeResult
	RateLimitStatus() pipeline.RateLimitStatus
}

// ElevationLookup resolves a single point's elevation in meters.
type ElevationLookup interface {
	GetElevation(ctx context.Context, at domain.LatLng) (*float64, error)
}

// Deps are the services behind the API routes.
type Deps struct {
	Searches  SearchService
	Listings  ListingService
	Elevation ElevationLookup
	RateLimit int // requests per minute per client IP; 0 disables
}

// Server exposes the search API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api/v1 routes, /healthz, /readyz,
// and /metrics.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      60 * time.Second, // a search may wait out the upstream throttle
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Searches))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimit > 0 {
			r.Use(httprate.LimitByIP(deps.RateLimit, time.Minute))
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(s.logRequests)

		r.Post("/search", s.handleSearchBody)
		r.Get("/search", s.handleSearchQuery)
		r.Get("/properties", s.handleProperties)
		r.Get("/properties/{id}", s.handleProperty)
		r.Get("/geocode", s.handleGeocode)
		r.Get("/elevation", s.handleElevation)
		r.Get("/status", s.handleStatus)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
