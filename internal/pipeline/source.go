package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
)

// Messages surfaced on unsuccessful results.
const (
	msgSearchFailed     = "Failed to fetch properties. Please try again."
	msgSearchCancelled  = "search cancelled"
	msgPropertyNotFound = "Property not found"
)

// ListingFetcher retrieves raw listing payloads from the upstream API.
type ListingFetcher interface {
	FetchListings(ctx context.Context, endpoint string, q domain.ListingQuery) ([]byte, error)
	FetchProperty(ctx context.Context, id string) ([]byte, error)
}

// SourceConfig tunes upstream acquisition.
type SourceConfig struct {
	Endpoints   []string // tried in order until one yields listings
	RadiusMiles float64
	Limit       int
	Interval    time.Duration // minimum spacing between upstream calls; 0 disables
	Cooldown    time.Duration // upstream pause after a 429
}

// RateLimitStatus is a snapshot of the upstream throttling state.
type RateLimitStatus struct {
	UpstreamEnabled bool      `json:"upstreamEnabled"`
	Limited         bool      `json:"limited"`
	LimitedUntil    time.Time `json:"limitedUntil,omitzero"`
	LastCall        time.Time `json:"lastCall,omitzero"`
	AuthFailed      bool      `json:"authFailed"`
}

// Source acquires listings for a location: upstream when it is available and
// cooperative, synthesized fallback data otherwise. Every upstream failure is
// absorbed here, so callers only see a successful result or a cancellation.
type Source struct {
	fetcher  ListingFetcher
	geocoder domain.Geocoder
	clock    clockwork.Clock
	rnd      *domain.Random
	cfg      SourceConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu           sync.Mutex
	limited      bool
	limitedUntil time.Time
	lastCall     time.Time
	authFailed   bool
	recent       map[string]domain.Property
}

// NewSource creates a Source. A nil fetcher disables upstream calls and a nil
// geocoder makes every location resolve to the default center.
func NewSource(fetcher ListingFetcher, geocoder domain.Geocoder, cfg SourceConfig, clock clockwork.Clock, rnd *domain.Random, logger *slog.Logger, metrics *observability.Metrics) *Source {
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Source{
		fetcher:  fetcher,
		geocoder: geocoder,
		clock:    clock,
		rnd:      rnd,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
		metrics:  metrics,
		recent:   make(map[string]domain.Property),
	}
}

// Search returns listings near location that satisfy filters.
func (s *Source) Search(ctx context.Context, location string, filters domain.Filters) (result domain.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search failed unexpectedly", "location", location, "panic", r)
			s.metrics.Searches.WithLabelValues("error").Inc()
			result = domain.SearchResult{Success: false, Properties: []domain.Property{}, Error: msgSearchFailed}
		}
	}()

	loc := domain.ResolveLocation(ctx, s.geocoder, location, s.logger)

	props, endpoint, ok := s.fetchUpstream(ctx, loc.Center, filters)
	if ctx.Err() != nil {
		return domain.SearchResult{Success: false, Properties: []domain.Property{}, Error: msgSearchCancelled}
	}

	source := domain.SourceUpstream
	if !ok {
		props = domain.GenerateFallback(loc.Center, location, s.clock.Now(), s.rnd)
		s.metrics.FallbackProperties.Add(float64(len(props)))
		source, endpoint = domain.SourceFallback, ""
	}

	props = filters.Apply(props)
	s.remember(props)
	s.metrics.Searches.WithLabelValues(source).Inc()
	s.logger.Info("search complete",
		"location", location,
		"source", source,
		"endpoint", endpoint,
		"count", len(props),
	)

	return domain.SearchResult{
		Success:    true,
		Properties: props,
		Total:      len(props),
		Source:     source,
		Endpoint:   endpoint,
	}
}

// fetchUpstream tries each endpoint in order and returns the first non-empty
// normalized listing set. ok is false when upstream was skipped or yielded
// nothing usable.
func (s *Source) fetchUpstream(ctx context.Context, center domain.LatLng, filters domain.Filters) (props []domain.Property, endpoint string, ok bool) {
	if !s.upstreamAllowed() {
		return nil, "", false
	}

	q := domain.ListingQuery{Center: center, RadiusMiles: s.cfg.RadiusMiles, Limit: s.cfg.Limit, Filters: filters}
	for _, ep := range s.cfg.Endpoints {
		body, err := s.call(ctx, func(ctx context.Context) ([]byte, error) {
			return s.fetcher.FetchListings(ctx, ep, q)
		})
		if err != nil {
			if s.stopAfter(ctx, ep, err) {
				return nil, "", false
			}
			continue
		}

		records, err := domain.DecodeListings(body, domain.ListingShapes)
		if err != nil {
			if errors.Is(err, domain.ErrNoResults) {
				s.logger.Info("upstream endpoint returned no listings", "endpoint", ep)
			} else {
				s.logger.Warn("upstream payload not recognized", "endpoint", ep, "error", err)
			}
			continue
		}

		nc := domain.NormalizeContext{Center: center, Now: s.clock.Now(), Rand: s.rnd}
		props = make([]domain.Property, 0, len(records))
		for i, r := range records {
			props = append(props, domain.NormalizeListing(r, i, nc))
		}
		return props, ep, true
	}

	s.logger.Warn("all upstream endpoints failed, using fallback data", "endpoints", s.cfg.Endpoints)
	return nil, "", false
}

// call waits for the throttle, records the call time and runs fn.
func (s *Source) call(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	if err := s.throttle(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastCall = s.clock.Now()
	s.mu.Unlock()
	return fn(ctx)
}

// stopAfter records the effect of an upstream failure and reports whether
// the remaining endpoints should be skipped.
func (s *Source) stopAfter(ctx context.Context, endpoint string, err error) bool {
	switch {
	case ctx.Err() != nil:
		return true
	case errors.Is(err, domain.ErrRateLimited):
		s.tripCooldown(endpoint)
		return true
	case errors.Is(err, domain.ErrAuthFailed):
		s.mu.Lock()
		s.authFailed = true
		s.mu.Unlock()
		s.logger.Error("upstream authentication failed, disabling upstream", "endpoint", endpoint, "error", err)
		return true
	default:
		s.logger.Warn("upstream endpoint failed", "endpoint", endpoint, "error", err)
		return false
	}
}

// throttle blocks until the limiter grants a call slot on the injected clock.
func (s *Source) throttle(ctx context.Context) error {
	now := s.clock.Now()
	r := s.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("throttle reservation refused")
	}
	d := r.DelayFrom(now)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		r.CancelAt(s.clock.Now())
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

// upstreamAllowed reports whether an upstream call may be attempted, clearing
// an expired cooldown.
func (s *Source) upstreamAllowed() bool {
	if s.fetcher == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authFailed {
		return false
	}
	if s.limited {
		if s.clock.Now().Before(s.limitedUntil) {
			return false
		}
		s.limited = false
		s.limitedUntil = time.Time{}
		s.metrics.UpstreamRateLimited.Set(0)
		s.logger.Info("upstream cooldown expired, resuming upstream calls")
	}
	return true
}

func (s *Source) tripCooldown(endpoint string) {
	s.mu.Lock()
	s.limited = true
	s.limitedUntil = s.clock.Now().Add(s.cfg.Cooldown)
	until := s.limitedUntil
	s.mu.Unlock()

	s.metrics.UpstreamRateLimited.Set(1)
	s.logger.Warn("upstream rate limited, pausing upstream calls",
		"endpoint", endpoint,
		"limited_until", until,
	)
}

// RateLimitStatus returns the current throttling state.
func (s *Source) RateLimitStatus() RateLimitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RateLimitStatus{
		UpstreamEnabled: s.fetcher != nil,
		Limited:         s.limited,
		LimitedUntil:    s.limitedUntil,
		LastCall:        s.lastCall,
		AuthFailed:      s.authFailed,
	}
}

// remember indexes the latest result set so its IDs resolve in GetByID.
func (s *Source) remember(props []domain.Property) {
	index := make(map[string]domain.Property, len(props))
	for _, p := range props {
		index[p.ID] = p
	}
	s.mu.Lock()
	s.recent = index
	s.mu.Unlock()
}

// GetByID looks a listing up upstream, then in the latest result set, then in
// the built-in sample set.
func (s *Source) GetByID(ctx context.Context, id string) domain.PropertyResult {
	if p, ok := s.fetchProperty(ctx, id); ok {
		return domain.PropertyResult{Success: true, Property: &p}
	}
	if ctx.Err() != nil {
		return domain.PropertyResult{Success: false, Error: msgSearchCancelled}
	}

	s.mu.Lock()
	p, ok := s.recent[id]
	s.mu.Unlock()
	if ok {
		return domain.PropertyResult{Success: true, Property: &p}
	}

	for _, sample := range domain.SampleProperties() {
		if sample.ID == id {
			return domain.PropertyResult{Success: true, Property: &sample}
		}
	}
	return domain.PropertyResult{Success: false, Error: msgPropertyNotFound}
}

func (s *Source) fetchProperty(ctx context.Context, id string) (domain.Property, bool) {
	if !s.upstreamAllowed() {
		return domain.Property{}, false
	}

	body, err := s.call(ctx, func(ctx context.Context) ([]byte, error) {
		return s.fetcher.FetchProperty(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.stopAfter(ctx, "property", err)
		}
		return domain.Property{}, false
	}

	records, err := domain.DecodeListings(body, domain.DetailShapes)
	if err != nil {
		s.logger.Warn("property detail not recognized", "id", id, "error", err)
		return domain.Property{}, false
	}
	nc := domain.NormalizeContext{Center: domain.DefaultCenter, Now: s.clock.Now(), Rand: s.rnd}
	return domain.NormalizeListing(records[0], 0, nc), true
}

// GeocodeAddress resolves text to map-order coordinates, degrading to the
// default center.
func (s *Source) GeocodeAddress(ctx context.Context, text string) domain.GeocodeResult {
	loc := domain.ResolveLocation(ctx, s.geocoder, text, s.logger)
	return domain.GeocodeResult{Success: true, Coordinates: loc.Center.LngLat(), Address: text}
}
