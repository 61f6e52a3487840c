// Command predictor serves used-car fair-value estimates.
//
// The predictor prices a car's value trajectory by:
//  1. Validating the caller's car selection (fuel type, brand, segment, body type)
//  2. Projecting the age/mileage trajectory from the current odometer reading
//  3. Querying the external model gateway for a value at every trajectory point
//  4. Deriving per-year and accumulated depreciation metrics
//  5. Optionally fanning out across brands or fuel types for comparisons
//
// The predictor serves an HTTP API on port 8082 (configurable) providing:
//   - POST /v1/estimate - Price a car's value trajectory
//   - POST /v1/compare/brands - Compare against the closest-priced brands
//   - POST /v1/compare/fuel-types - Compare across fuel types
//   - GET /v1/options - List selectable filter values
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	predictor \
//	  -gateway-url=http://model-gateway:9000 \
//	  -model-version=2026-02 \
//	  -options-db=./data/listings.db \
//	  -cache=redis -redis-addr=redis:6379
//
// Environment variables:
//
//	GATEWAY_URL     - Model gateway base URL (required)
//	GATEWAY_TIMEOUT - Gateway request timeout (default: 30s)
//	MODEL_VERSION   - Model version requested from the gateway
//	OPTIONS_DB      - Path to the listings SQLite file (required)
//	CACHE           - Prediction cache backend: memory or redis
//	REDIS_ADDR      - Redis server address
//	REDIS_PASSWORD  - Redis password
//	REDIS_DB        - Redis database number
//	REDIS_TTL       - Redis prediction TTL (default: 12h)
//	MILESTONE_AGES  - Ages brand summaries report values at (default: 5,10)
//	LISTEN          - HTTP listen address (default: :8082)
//	LOG_LEVEL       - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT      - Logging format: text, json (default: text)
package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zikzero/carvalue/cmd/predictor/config"
	"github.com/zikzero/carvalue/cmd/predictor/logger"
	"github.com/zikzero/carvalue/cmd/predictor/metrics"
	"github.com/zikzero/carvalue/cmd/predictor/pipeline"
	"github.com/zikzero/carvalue/cmd/predictor/router"
	"github.com/zikzero/carvalue/pkg/gateway"
	"github.com/zikzero/carvalue/pkg/httpx"
	"github.com/zikzero/carvalue/pkg/options"
	"github.com/zikzero/carvalue/pkg/pricecache"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting carvalue predictor",
		"version", version,
		"gateway", cfg.GatewayURL,
		"model_version", cfg.ModelVersion,
	)

	m := metrics.New(cfg.ModelVersion)

	cache, err := newCache(cfg)
	if err != nil {
		logger.Error("failed to create prediction cache", "error", err)
		os.Exit(1)
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close cache", "error", err)
			}
		}()
	}

	gw := gateway.NewHTTPGateway(cfg.GatewayURL, cfg.ModelVersion, cfg.GatewayTimeout)
	memo := gateway.Memoized(pipeline.TimedGateway(gw, m), cache, logger)
	memo.OnHit = m.RecordCacheHit
	memo.OnMiss = m.RecordCacheMiss

	opts, err := options.NewLoader().Load(cfg.OptionsDB)
	if err != nil {
		logger.Error("failed to load filter options", "path", cfg.OptionsDB, "error", err)
		os.Exit(1)
	}
	logger.Info("filter options loaded",
		"brands", len(opts.Brands),
		"fuel_types", len(opts.FuelTypes),
	)

	p := pipeline.New(memo, cfg.MilestoneAges, logger, m)

	mux := router.SetupRoutes(p, opts, logger)

	var handler http.Handler = mux
	handler = httpx.LoggingMiddleware(logger)(handler)
	handler = httpx.RecoveryMiddleware(logger)(handler)
	handler = httpx.RequestIDMiddleware()(handler)

	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newCache(cfg *config.Config) (pricecache.Cache, error) {
	if cfg.Cache == "redis" {
		return pricecache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	}
	return pricecache.NewMemoryCache(), nil
}
