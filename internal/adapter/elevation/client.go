// Package elevation looks up ground elevation for coordinates from an
// Open-Elevation compatible service, with a positional cache.
package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/realty-search-service/internal/cache"
	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
)

// Client fetches elevations in meters. Lookup failures are absorbed: the
// affected positions come back nil and only context cancellation is
// reported as an error.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	cache    *cache.LRU[float64]
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates an elevation client. retryMax bounds the retries made
// for transport errors and 5xx responses.
func NewClient(endpoint string, timeout time.Duration, retryMax, cacheSize int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = retryMax
	rc.HTTPClient.Timeout = timeout
	if logger != nil {
		rc.Logger = logger
	}

	return &Client{
		endpoint: endpoint,
		http:     rc,
		cache:    cache.New[float64](cacheSize),
		metrics:  metrics,
		logger:   logger,
	}
}

func cacheKey(c domain.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// GetElevation returns the elevation at c, or nil when it is unavailable.
func (c *Client) GetElevation(ctx context.Context, coord domain.LatLng) (*float64, error) {
	key := cacheKey(coord)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ElevationCache.WithLabelValues("hit").Inc()
		return &v, nil
	}
	c.metrics.ElevationCache.WithLabelValues("miss").Inc()

	results, err := c.lookup(ctx, []string{key}, "single")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("elevation lookup failed", "lat", coord.Lat, "lng", coord.Lng, "error", err)
		return nil, nil
	}
	if results[0] == nil {
		return nil, nil
	}
	c.cache.Put(key, *results[0])
	return results[0], nil
}

// GetElevations returns one elevation per input coordinate, in input order.
// Cached positions are served locally and the rest are fetched in a single
// batch request. A failed batch is not all-or-nothing: the fetched positions
// come back nil while cached positions keep their values.
func (c *Client) GetElevations(ctx context.Context, coords []domain.LatLng) ([]*float64, error) {
	out := make([]*float64, len(coords))

	var missing []int
	var keys []string
	for i, coord := range coords {
		key := cacheKey(coord)
		if v, ok := c.cache.Get(key); ok {
			c.metrics.ElevationCache.WithLabelValues("hit").Inc()
			out[i] = &v
			continue
		}
		c.metrics.ElevationCache.WithLabelValues("miss").Inc()
		missing = append(missing, i)
		keys = append(keys, key)
	}
	if len(missing) == 0 {
		return out, nil
	}

	results, err := c.lookup(ctx, keys, "batch")
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		c.logger.Warn("batch elevation lookup failed", "count", len(keys), "error", err)
		return out, nil
	}

	for j, idx := range missing {
		if results[j] == nil {
			continue
		}
		c.cache.Put(keys[j], *results[j])
		out[idx] = results[j]
	}
	return out, nil
}

// lookup requests elevations for "lat,lng" keys and returns them positionally.
func (c *Client) lookup(ctx context.Context, keys []string, mode string) ([]*float64, error) {
	params := url.Values{"locations": {strings.Join(keys, "|")}}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ElevationRequests.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("%w: elevation request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ElevationRequests.WithLabelValues(mode, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: elevation status %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, body)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.ElevationRequests.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrShapeMismatch, err)
	}
	if len(payload.Results) != len(keys) {
		c.metrics.ElevationRequests.WithLabelValues(mode, "error").Inc()
		return nil, fmt.Errorf("%w: got %d results for %d locations", domain.ErrShapeMismatch, len(payload.Results), len(keys))
	}

	c.metrics.ElevationRequests.WithLabelValues(mode, "success").Inc()
	out := make([]*float64, len(keys))
	for i, r := range payload.Results {
		out[i] = r.Elevation
	}
	return out, nil
}

type lookupResponse struct {
	Results []struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}
