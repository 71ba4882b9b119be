package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
)

// ErrSuperseded is returned by RunSearch when a newer search replaced it
// before it could publish.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Searcher runs a property search.
type Searcher interface {
	Search(ctx context.Context, location string, filters domain.Filters) domain.SearchResult
}

// SnapshotPublisher forwards completed searches downstream.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap domain.SearchSnapshot) error
}

// Query is the location and filter set the next search will use.
type Query struct {
	Location string         `json:"location"`
	Filters  domain.Filters `json:"filters"`
}

// Orchestrator holds the current query and the last published property list.
// Starting a search cancels any search still in flight; only the newest one
// may publish.
type Orchestrator struct {
	searcher  Searcher
	elevation ElevationProvider
	publisher SnapshotPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu         sync.Mutex
	query      Query
	generation uint64
	cancel     context.CancelFunc
	published  Query
	properties []domain.Property
	closed     bool
}

// NewOrchestrator creates an Orchestrator. elevation and publisher may be nil
// to skip enrichment and publishing.
func NewOrchestrator(searcher Searcher, elevation ElevationProvider, publisher SnapshotPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		searcher:   searcher,
		elevation:  elevation,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		properties: []domain.Property{},
	}
}

// SetQuery replaces the query used by the next RunSearch.
func (o *Orchestrator) SetQuery(q Query) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.query = q
}

// Query returns the current query.
func (o *Orchestrator) Query() Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.query
}

// RunSearch searches with the current query, enriches the results with
// elevation data, and publishes them. Enrichment failures are logged and the
// unenriched results are still published.
func (o *Orchestrator) RunSearch(ctx context.Context) (domain.SearchResult, error) {
	return o.run(ctx, nil)
}

// RunQuery replaces the current query with q and runs it as one step, so a
// concurrent SetQuery cannot slip in between.
func (o *Orchestrator) RunQuery(ctx context.Context, q Query) (domain.SearchResult, error) {
	return o.run(ctx, &q)
}

func (o *Orchestrator) run(ctx context.Context, next *Query) (domain.SearchResult, error) {
	runCtx, gen, q := o.begin(ctx, next)
	defer o.finish(gen)

	searchID := uuid.NewString()
	start := o.clock.Now()
	logger := o.logger.With("search_id", searchID, "location", q.Location)

	result := o.searcher.Search(runCtx, q.Location, q.Filters)
	if runCtx.Err() != nil {
		return domain.SearchResult{}, o.abortErr(ctx, gen)
	}

	if result.Success && len(result.Properties) > 0 {
		enriched, err := EnrichWithElevation(runCtx, result.Properties, o.elevation)
		if runCtx.Err() != nil {
			return domain.SearchResult{}, o.abortErr(ctx, gen)
		}
		if err != nil {
			o.metrics.EnrichmentFailures.Inc()
			logger.Warn("elevation enrichment failed, publishing without elevation", "error", err)
		}
		result.Properties = enriched
	}

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return domain.SearchResult{}, ErrSuperseded
	}
	if result.Success {
		o.properties = result.Properties
		o.published = q
	}
	o.mu.Unlock()

	o.metrics.SearchDuration.Observe(o.clock.Since(start).Seconds())
	logger.Info("search published", "source", result.Source, "count", result.Total)

	if result.Success && o.publisher != nil {
		snap := domain.SearchSnapshot{
			SearchID:   searchID,
			Location:   q.Location,
			Filters:    q.Filters,
			Source:     result.Source,
			Properties: result.Properties,
			SearchedAt: start.UTC(),
		}
		if err := o.publisher.PublishSnapshot(ctx, snap); err != nil {
			logger.Warn("snapshot publish failed", "error", err)
		} else {
			o.metrics.SnapshotsPublished.Inc()
		}
	}

	return result, nil
}

// begin cancels any in-flight search and registers a new generation.
func (o *Orchestrator) begin(ctx context.Context, next *Query) (context.Context, uint64, Query) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if next != nil {
		o.query = *next
	}

	if o.cancel != nil {
		o.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.generation++
	o.cancel = cancel
	return runCtx, o.generation, o.query
}

func (o *Orchestrator) finish(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.generation && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) abortErr(parent context.Context, gen uint64) error {
	if err := parent.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return ErrSuperseded
	}
	return context.Canceled
}

// Properties returns a copy of the last published property list.
func (o *Orchestrator) Properties() []domain.Property {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.properties)
}

// Published returns the query behind the last published property list.
func (o *Orchestrator) Published() Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.published
}

// CheckReadiness returns an error once the orchestrator has been closed.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.New("orchestrator is shutting down")
	}
	return nil
}

// Close cancels any in-flight search.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}
