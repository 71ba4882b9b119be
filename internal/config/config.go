package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	APIRateLimit    int // requests per minute per client IP
	SessionLimit    int // client sessions kept, least recently used dropped first

	// Upstream listing API.
	UpstreamBaseURL   string
	UpstreamAPIKey    string
	UpstreamAPIHost   string
	UpstreamEnabled   bool
	UpstreamEndpoints []string
	UpstreamTimeout   time.Duration
	SearchRadiusMiles float64
	SearchLimit       int

	// Upstream throttling.
	RateLimitInterval time.Duration
	RateLimitCooldown time.Duration

	// Geocoding.
	GeocodingEndpoint  string
	GeocodingTimeout   time.Duration
	GeocodingCacheSize int
	GeocodingUserAgent string

	// Elevation.
	ElevationEndpoint  string
	ElevationTimeout   time.Duration
	ElevationRetryMax  int
	ElevationCacheSize int

	RandomSeed uint64

	// Snapshot publishing. Empty brokers disable it.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		UpstreamBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("UPSTREAM_BASE_URL", "https://realty-mole-property-api.p.rapidapi.com"), "/"),
		UpstreamAPIKey:    os.Getenv("UPSTREAM_API_KEY"),
		UpstreamEndpoints: splitList(sharedcfg.EnvOrDefault("UPSTREAM_ENDPOINTS", "properties,comparables")),

		GeocodingEndpoint:  sharedcfg.EnvOrDefault("GEOCODING_ENDPOINT", "https://nominatim.openstreetmap.org/search"),
		GeocodingUserAgent: sharedcfg.EnvOrDefault("GEOCODING_USER_AGENT", "realty-search-service/1.0"),
		ElevationEndpoint:  sharedcfg.EnvOrDefault("ELEVATION_ENDPOINT", "https://api.open-elevation.com/api/v1/lookup"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "property-listings"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	cfg.UpstreamEnabled = cfg.UpstreamAPIKey != ""
	if v := os.Getenv("UPSTREAM_ENABLED"); v != "" {
		cfg.UpstreamEnabled = v == "true"
	}

	u, err := url.Parse(cfg.UpstreamBaseURL)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid UPSTREAM_BASE_URL")
	}
	cfg.UpstreamAPIHost = sharedcfg.EnvOrDefault("UPSTREAM_API_HOST", u.Host)

	durations := []struct {
		key  string
		def  string
		dst  *time.Duration
		zero bool // zero allowed
	}{
		{"UPSTREAM_TIMEOUT", "10s", &cfg.UpstreamTimeout, false},
		{"RATE_LIMIT_INTERVAL", "2s", &cfg.RateLimitInterval, true},
		{"RATE_LIMIT_COOLDOWN", "10m", &cfg.RateLimitCooldown, true},
		{"GEOCODING_TIMEOUT", "5s", &cfg.GeocodingTimeout, false},
		{"ELEVATION_TIMEOUT", "10s", &cfg.ElevationTimeout, false},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.key, d.def, d.zero); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key  string
		def  int
		dst  *int
		zero bool
	}{
		{"SEARCH_LIMIT", 20, &cfg.SearchLimit, false},
		{"GEOCODING_CACHE_SIZE", 1000, &cfg.GeocodingCacheSize, false},
		{"ELEVATION_CACHE_SIZE", 10000, &cfg.ElevationCacheSize, false},
		{"ELEVATION_RETRY_MAX", 2, &cfg.ElevationRetryMax, true},
		{"API_RATE_LIMIT", 100, &cfg.APIRateLimit, false},
		{"SESSION_LIMIT", 1000, &cfg.SessionLimit, false},
	}
	for _, n := range ints {
		if *n.dst, err = parseInt(n.key, n.def, n.zero); err != nil {
			return nil, err
		}
	}

	if cfg.SearchRadiusMiles, err = strconv.ParseFloat(sharedcfg.EnvOrDefault("SEARCH_RADIUS_MILES", "5"), 64); err != nil || cfg.SearchRadiusMiles <= 0 {
		return nil, errors.New("invalid SEARCH_RADIUS_MILES")
	}
	if cfg.RandomSeed, err = strconv.ParseUint(sharedcfg.EnvOrDefault("RANDOM_SEED", "0"), 10, 64); err != nil {
		return nil, errors.New("invalid RANDOM_SEED")
	}

	if cfg.UpstreamEnabled && cfg.UpstreamAPIKey == "" {
		return nil, errors.New("UPSTREAM_ENABLED is true but UPSTREAM_API_KEY is not set")
	}
	if cfg.UpstreamEnabled && len(cfg.UpstreamEndpoints) == 0 {
		return nil, errors.New("UPSTREAM_ENDPOINTS is required when upstream is enabled")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int, allowZero bool) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.Trim(strings.TrimSpace(part), "/"); part != "" {
			out = append(out, part)
		}
	}
	return out
}
