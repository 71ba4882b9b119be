// Package realtymole calls a RapidAPI-hosted property listing service and
// returns raw payloads for normalization.
package realtymole

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
)

// maxPayloadBytes guards against oversized upstream responses.
const maxPayloadBytes = 4 << 20

// Client fetches raw listing payloads. Each request is a single attempt;
// failures are classified with the domain error sentinels.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a listing API client.
func NewClient(baseURL, apiKey, apiHost string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		apiHost: apiHost,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchListings requests active listings from one search endpoint
// (for example "properties" or "comparables").
func (c *Client) FetchListings(ctx context.Context, endpoint string, q domain.ListingQuery) ([]byte, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(q.Center.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(q.Center.Lng, 'f', -1, 64)},
		"radius":    {strconv.FormatFloat(q.RadiusMiles, 'f', -1, 64)},
		"status":    {"Active"},
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	minPrice, hasMin, maxPrice, hasMax := q.Filters.PriceBounds()
	if hasMin {
		params.Set("minPrice", strconv.Itoa(minPrice))
	}
	if hasMax {
		params.Set("maxPrice", strconv.Itoa(maxPrice))
	}

	return c.get(ctx, endpoint, fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode()))
}

// FetchProperty requests the detail record for a single listing.
func (c *Client) FetchProperty(ctx context.Context, id string) ([]byte, error) {
	params := url.Values{"id": {id}}
	return c.get(ctx, "property", fmt.Sprintf("%s/property?%s", c.baseURL, params.Encode()))
}

func (c *Client) get(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: %s request: %w", domain.ErrTransport, endpoint, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcomeLabel(err)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("upstream error body", "endpoint", endpoint, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: %s status %d", err, endpoint, resp.StatusCode)
	}

	body, err := readAllLimit(resp.Body, maxPayloadBytes)
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: read %s body: %w", domain.ErrTransport, endpoint, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
	return body, nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrAuthFailed
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return domain.ErrUpstreamStatus
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

var errPayloadTooLarge = errors.New("payload too large")

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errPayloadTooLarge
	}
	return b, nil
}
