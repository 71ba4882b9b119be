package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/realty-search-service/internal/adapter/http"
	"github.com/couchcryptid/realty-search-service/internal/adapter/elevation"
	kafkaadapter "github.com/couchcryptid/realty-search-service/internal/adapter/kafka"
	"github.com/couchcryptid/realty-search-service/internal/adapter/nominatim"
	"github.com/couchcryptid/realty-search-service/internal/adapter/realtymole"
	"github.com/couchcryptid/realty-search-service/internal/config"
	"github.com/couchcryptid/realty-search-service/internal/domain"
	"github.com/couchcryptid/realty-search-service/internal/observability"
	"github.com/couchcryptid/realty-search-service/internal/pipeline"
)

func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rnd := domain.NewRandom(seed)

	geocoder := nominatim.NewCachedGeocoder(
		nominatim.NewClient(cfg.GeocodingEndpoint, cfg.GeocodingUserAgent, cfg.GeocodingTimeout, metrics, logger),
		cfg.GeocodingCacheSize, metrics,
	)
	elevations := elevation.NewClient(cfg.ElevationEndpoint, cfg.ElevationTimeout, cfg.ElevationRetryMax, cfg.ElevationCacheSize, metrics, logger)

	// Leave the fetcher as a nil interface when upstream is off so the source
	// goes straight to fallback data.
	var fetcher pipeline.ListingFetcher
	if cfg.UpstreamEnabled {
		fetcher = realtymole.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, cfg.UpstreamAPIHost, cfg.UpstreamTimeout, metrics, logger)
		logger.Info("upstream listings enabled", "base_url", cfg.UpstreamBaseURL, "endpoints", cfg.UpstreamEndpoints)
	} else {
		logger.Info("upstream listings disabled, serving fallback data")
	}

	source := pipeline.NewSource(fetcher, geocoder, pipeline.SourceConfig{
		Endpoints:   cfg.UpstreamEndpoints,
		RadiusMiles: cfg.SearchRadiusMiles,
		Limit:       cfg.SearchLimit,
		Interval:    cfg.RateLimitInterval,
		Cooldown:    cfg.RateLimitCooldown,
	}, clock, rnd, logger, metrics)

	var publisher pipeline.SnapshotPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	sessions := pipeline.NewSessions(cfg.SessionLimit, func() *pipeline.Orchestrator {
		return pipeline.NewOrchestrator(source, elevations, publisher, clock, logger, metrics)
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Searches:  sessions,
		Listings:  source,
		Elevation: elevations,
		RateLimit: cfg.APIRateLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
