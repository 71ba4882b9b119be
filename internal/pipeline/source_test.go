package pipeline_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
	"github.com/couchcryptid/realty-search-service/internal/pipeline"
)

var denver = domain.GeocodingResult{Lat: 39.7392, Lon: -104.9903, DisplayName: "Denver, Colorado"}

const twoListings = `{"properties":[
	{"id":"u1","price":650000,"formattedAddress":"1 Main St, Denver, CO 80202","city":"Denver","state":"CO","bedrooms":3,"bathrooms":2,"squareFootage":2000,"propertyType":"Condo","latitude":39.74,"longitude":-104.99},
	{"id":"u2","price":350000,"formattedAddress":"2 Main St, Denver, CO 80202","city":"Denver","state":"CO","bedrooms":2,"bathrooms":1,"squareFootage":900,"propertyType":"Townhouse","latitude":39.75,"longitude":-104.98}
]}`

type sourceFixture struct {
	src     *pipeline.Source
	fetcher *mockFetcher
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
}

func newSourceFixture(fetcher *mockFetcher, interval time.Duration) sourceFixture {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	cfg := pipeline.SourceConfig{
		Endpoints:   []string{"properties", "comparables"},
		RadiusMiles: 5,
		Limit:       20,
		Interval:    interval,
		Cooldown:    10 * time.Minute,
	}
	var f pipeline.ListingFetcher
	if fetcher != nil {
		f = fetcher
	}
	src := pipeline.NewSource(f, fixedGeocoder{result: denver}, cfg, clock, domain.NewRandom(7), discardLogger(), metrics)
	return sourceFixture{src: src, fetcher: fetcher, clock: clock, metrics: metrics}
}

func assertFallbackNear(t *testing.T, result domain.SearchResult, center domain.LatLng) {
	t.Helper()
	require.True(t, result.Success)
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.Empty(t, result.Endpoint)
	assert.Equal(t, len(result.Properties), result.Total)
	for _, p := range result.Properties {
		assert.LessOrEqual(t, math.Abs(p.Coordinates.Lat()-center.Lat), domain.FallbackJitterDegrees)
		assert.LessOrEqual(t, math.Abs(p.Coordinates.Lng()-center.Lng), domain.FallbackJitterDegrees)
	}
}

func TestSource_Search_UpstreamFirstEndpoint(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{"properties": {body: twoListings}}}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{MinPrice: intPtr(500000)})

	require.True(t, result.Success)
	assert.Equal(t, domain.SourceUpstream, result.Source)
	assert.Equal(t, "properties", result.Endpoint)
	require.Len(t, result.Properties, 1)
	assert.Equal(t, "u1", result.Properties[0].ID)
	assert.Equal(t, domain.Condo, result.Properties[0].PropertyType)
	assert.Equal(t, 1, result.Total)

	assert.Equal(t, []string{"properties"}, fetcher.callList())
	q := fetcher.queries[0]
	assert.Equal(t, domain.LatLng{Lat: denver.Lat, Lng: denver.Lon}, q.Center)
	assert.InDelta(t, 5, q.RadiusMiles, 0)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 500000, *q.Filters.MinPrice)
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.Searches.WithLabelValues("upstream")), 0)
}

func TestSource_Search_FallsThroughEndpoints(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{
		"properties":  {err: domain.ErrUpstreamStatus},
		"comparables": {body: twoListings},
	}}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

	assert.Equal(t, domain.SourceUpstream, result.Source)
	assert.Equal(t, "comparables", result.Endpoint)
	assert.Len(t, result.Properties, 2)
	assert.Equal(t, []string{"properties", "comparables"}, fetcher.callList())
}

func TestSource_Search_ShapeMismatchTriesNext(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{
		"properties":  {body: `{"message":"upgrade your plan"}`},
		"comparables": {body: `[{"id":"c1","price":1}]`},
	}}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

	assert.Equal(t, "comparables", result.Endpoint)
	require.Len(t, result.Properties, 1)
	assert.Equal(t, "c1", result.Properties[0].ID)
}

func TestSource_Search_EmptyEverywhereFallsBack(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{
		"properties":  {body: `[]`},
		"comparables": {body: `{"comparables":[]}`},
	}}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

	assertFallbackNear(t, result, domain.LatLng{Lat: denver.Lat, Lng: denver.Lon})
	assert.GreaterOrEqual(t, len(result.Properties), domain.MinFallbackProperties)
	assert.LessOrEqual(t, len(result.Properties), domain.MaxFallbackProperties)
	assert.Equal(t, 2, fetcher.callCount())
	assert.False(t, fx.src.RateLimitStatus().Limited, "empty results must not trip the cooldown")
}

func TestSource_Search_FallbackHonoursMinPrice(t *testing.T) {
	fx := newSourceFixture(nil, 0)

	result := fx.src.Search(context.Background(), "Austin, TX", domain.Filters{MinPrice: intPtr(500000)})

	require.True(t, result.Success)
	assert.Equal(t, domain.SourceFallback, result.Source)
	for _, p := range result.Properties {
		assert.GreaterOrEqual(t, p.Price, 500000)
	}
	assert.False(t, fx.src.RateLimitStatus().UpstreamEnabled)
}

func TestSource_Search_RateLimitCooldown(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{
		"properties":  {err: domain.ErrRateLimited},
		"comparables": {body: twoListings},
	}}
	fx := newSourceFixture(fetcher, 0)
	ctx := context.Background()

	result := fx.src.Search(ctx, "Denver, CO", domain.Filters{})
	assertFallbackNear(t, result, domain.LatLng{Lat: denver.Lat, Lng: denver.Lon})
	assert.Equal(t, []string{"properties"}, fetcher.callList(), "a 429 stops the endpoint loop")

	status := fx.src.RateLimitStatus()
	assert.True(t, status.Limited)
	assert.Equal(t, fx.clock.Now().Add(10*time.Minute), status.LimitedUntil)
	assert.InDelta(t, 1, testutil.ToFloat64(fx.metrics.UpstreamRateLimited), 0)

	// Inside the window: no upstream call at all.
	fx.clock.Advance(9 * time.Minute)
	result = fx.src.Search(ctx, "Denver, CO", domain.Filters{})
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.Equal(t, 1, fetcher.callCount())

	// After the window: upstream resumes.
	fetcher.mu.Lock()
	fetcher.listings["properties"] = fetchResponse{body: twoListings}
	fetcher.mu.Unlock()
	fx.clock.Advance(time.Minute)

	result = fx.src.Search(ctx, "Denver, CO", domain.Filters{})
	assert.Equal(t, domain.SourceUpstream, result.Source)
	assert.Equal(t, 2, fetcher.callCount())
	assert.False(t, fx.src.RateLimitStatus().Limited)
	assert.InDelta(t, 0, testutil.ToFloat64(fx.metrics.UpstreamRateLimited), 0)
}

func TestSource_Search_AuthFailureIsSticky(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{
		"properties":  {err: domain.ErrAuthFailed},
		"comparables": {body: twoListings},
	}}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.True(t, fx.src.RateLimitStatus().AuthFailed)

	fx.clock.Advance(24 * time.Hour)
	result = fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})
	assert.Equal(t, domain.SourceFallback, result.Source)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestSource_Search_ThrottleSpacesCalls(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{"properties": {body: twoListings}}}
	fx := newSourceFixture(fetcher, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := fx.src.Search(ctx, "Denver, CO", domain.Filters{})
	require.Equal(t, domain.SourceUpstream, first.Source)
	assert.Equal(t, fx.clock.Now(), fx.src.RateLimitStatus().LastCall)

	done := make(chan domain.SearchResult, 1)
	go func() { done <- fx.src.Search(ctx, "Denver, CO", domain.Filters{}) }()

	require.NoError(t, fx.clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, fetcher.callCount(), "second call must wait for the interval")

	fx.clock.Advance(2 * time.Second)

	select {
	case second := <-done:
		assert.Equal(t, domain.SourceUpstream, second.Source)
	case <-ctx.Done():
		t.Fatal("throttled search never completed")
	}
	assert.Equal(t, 2, fetcher.callCount())
}

func TestSource_Search_Cancelled(t *testing.T) {
	fetcher := &mockFetcher{listings: map[string]fetchResponse{"properties": {body: twoListings}}}
	fx := newSourceFixture(fetcher, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the only token so the next call waits on the throttle.
	fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

	done := make(chan domain.SearchResult, 1)
	go func() { done <- fx.src.Search(ctx, "Denver, CO", domain.Filters{}) }()
	require.NoError(t, fx.clock.BlockUntilContext(context.Background(), 1))
	cancel()

	result := <-done
	assert.False(t, result.Success)
	assert.Equal(t, "search cancelled", result.Error)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestSource_Search_UnexpectedFailure(t *testing.T) {
	fetcher := &mockFetcher{
		listings:  map[string]fetchResponse{"properties": {body: twoListings}},
		onListing: func() { panic("boom") },
	}
	fx := newSourceFixture(fetcher, 0)

	result := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Properties)
}

func TestSource_Search_GeocodeFailureUsesAustin(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := pipeline.NewSource(nil, fixedGeocoder{err: errors.New("offline")}, pipeline.SourceConfig{}, clock,
		domain.NewRandom(1), discardLogger(), observability.NewMetricsForTesting())

	result := src.Search(context.Background(), "Somewhere", domain.Filters{})

	assertFallbackNear(t, result, domain.DefaultCenter)
}

func TestSource_GetByID(t *testing.T) {
	t.Run("upstream detail", func(t *testing.T) {
		fetcher := &mockFetcher{property: fetchResponse{body: `{"id":"x9","price":123000}`}}
		fx := newSourceFixture(fetcher, 0)

		res := fx.src.GetByID(context.Background(), "x9")
		require.True(t, res.Success)
		assert.Equal(t, "x9", res.Property.ID)
		assert.Equal(t, 123000, res.Property.Price)
	})

	t.Run("falls back to latest results", func(t *testing.T) {
		fetcher := &mockFetcher{property: fetchResponse{err: domain.ErrNotFound}}
		fx := newSourceFixture(fetcher, 0)
		search := fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})
		require.NotEmpty(t, search.Properties)
		id := search.Properties[0].ID

		res := fx.src.GetByID(context.Background(), id)
		require.True(t, res.Success)
		assert.Equal(t, search.Properties[0], *res.Property)
	})

	t.Run("falls back to samples", func(t *testing.T) {
		fx := newSourceFixture(nil, 0)

		res := fx.src.GetByID(context.Background(), "3")
		require.True(t, res.Success)
		assert.Equal(t, 675000, res.Property.Price)
	})

	t.Run("not found", func(t *testing.T) {
		fx := newSourceFixture(nil, 0)

		res := fx.src.GetByID(context.Background(), "nope")
		assert.False(t, res.Success)
		assert.Nil(t, res.Property)
		assert.Equal(t, "Property not found", res.Error)
	})

	t.Run("skips upstream during cooldown", func(t *testing.T) {
		fetcher := &mockFetcher{
			listings: map[string]fetchResponse{"properties": {err: domain.ErrRateLimited}},
			property: fetchResponse{body: `{"id":"1","price":1}`},
		}
		fx := newSourceFixture(fetcher, 0)
		fx.src.Search(context.Background(), "Denver, CO", domain.Filters{})

		res := fx.src.GetByID(context.Background(), "1")
		require.True(t, res.Success)
		assert.Equal(t, 450000, res.Property.Price, "sample record, not upstream")
		assert.Equal(t, []string{"properties"}, fetcher.callList())
	})

	t.Run("detail 429 trips cooldown", func(t *testing.T) {
		fetcher := &mockFetcher{property: fetchResponse{err: domain.ErrRateLimited}}
		fx := newSourceFixture(fetcher, 0)

		fx.src.GetByID(context.Background(), "1")
		assert.True(t, fx.src.RateLimitStatus().Limited)
	})
}

func TestSource_GeocodeAddress(t *testing.T) {
	fx := newSourceFixture(nil, 0)

	res := fx.src.GeocodeAddress(context.Background(), "Denver, CO")

	assert.True(t, res.Success)
	assert.Equal(t, domain.LngLat{denver.Lon, denver.Lat}, res.Coordinates)
	assert.Equal(t, "Denver, CO", res.Address)
}
