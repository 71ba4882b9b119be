package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/realty-search-service/internal/domain"
)

// --- mocks ---

type fetchResponse struct {
	body string
	err  error
}

// mockFetcher answers per endpoint and records every call.
type mockFetcher struct {
	mu        sync.Mutex
	listings  map[string]fetchResponse
	property  fetchResponse
	calls     []string
	queries   []domain.ListingQuery
	onListing func()
}

func (m *mockFetcher) FetchListings(_ context.Context, endpoint string, q domain.ListingQuery) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, endpoint)
	m.queries = append(m.queries, q)
	resp, ok := m.listings[endpoint]
	hook := m.onListing
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return []byte(`[]`), nil
	}
	return []byte(resp.body), resp.err
}

func (m *mockFetcher) FetchProperty(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "property:"+id)
	return []byte(m.property.body), m.property.err
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockFetcher) callList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type fixedGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (g fixedGeocoder) Geocode(context.Context, string) (domain.GeocodingResult, error) {
	return g.result, g.err
}

// mockElevation returns per-coordinate elevations from a lookup keyed by
// latitude, with the city center answered separately.
type mockElevation struct {
	byLat     map[float64]float64
	center    *float64
	batchErr  error
	centerErr error
	batches   int
}

func (m *mockElevation) GetElevation(_ context.Context, _ domain.LatLng) (*float64, error) {
	return m.center, m.centerErr
}

func (m *mockElevation) GetElevations(_ context.Context, coords []domain.LatLng) ([]*float64, error) {
	m.batches++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([]*float64, len(coords))
	for i, c := range coords {
		if v, ok := m.byLat[c.Lat]; ok {
			out[i] = &v
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
