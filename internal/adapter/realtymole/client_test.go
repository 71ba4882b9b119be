package realtymole

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "test-key"
	testHost = "realty.test"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testKey, testHost, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intPtr(v int) *int { return &v }

func TestFetchListings_RequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "30.2672", q.Get("latitude"))
		assert.Equal(t, "-97.7431", q.Get("longitude"))
		assert.Equal(t, "5", q.Get("radius"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "Active", q.Get("status"))
		assert.Equal(t, "500000", q.Get("minPrice"))
		assert.False(t, q.Has("maxPrice"), "unbounded max must not be forwarded")
		assert.Equal(t, testKey, r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, testHost, r.Header.Get("X-RapidAPI-Host"))

		_, _ = w.Write([]byte(`[{"id":"a"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	body, err := c.FetchListings(context.Background(), "properties", domain.ListingQuery{
		Center:      domain.LatLng{Lat: 30.2672, Lng: -97.7431},
		RadiusMiles: 5,
		Limit:       20,
		Filters:     domain.Filters{MinPrice: intPtr(500000), MaxPrice: intPtr(domain.UnboundedPrice)},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(body))
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("properties", "success")), 0)
}

func TestFetchListings_StatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		want    error
		outcome string
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited, "rate_limited"},
		{http.StatusUnauthorized, domain.ErrAuthFailed, "auth_failed"},
		{http.StatusForbidden, domain.ErrAuthFailed, "auth_failed"},
		{http.StatusNotFound, domain.ErrNotFound, "not_found"},
		{http.StatusInternalServerError, domain.ErrUpstreamStatus, "error"},
		{http.StatusBadRequest, domain.ErrUpstreamStatus, "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := testClient(srv.URL)
			_, err := c.FetchListings(context.Background(), "comparables", domain.ListingQuery{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues("comparables", tt.outcome)), 0)
		})
	}
}

func TestFetchListings_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).FetchListings(context.Background(), "properties", domain.ListingQuery{})
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestFetchListings_PayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxPayloadBytes+1)))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchListings(context.Background(), "properties", domain.ListingQuery{})
	assert.True(t, errors.Is(err, errPayloadTooLarge))
}

func TestFetchProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/property", r.URL.Path)
		assert.Equal(t, "abc 123", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"id":"abc 123","price":1}`))
	}))
	defer srv.Close()

	body, err := testClient(srv.URL).FetchProperty(context.Background(), "abc 123")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"price":1`)
}
