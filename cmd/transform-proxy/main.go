package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mediastack/image-transform-proxy/internal/config"
	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/logging"
	"github.com/mediastack/image-transform-proxy/pkg/optionscache"
	"github.com/mediastack/image-transform-proxy/pkg/orchestrator"
	"github.com/mediastack/image-transform-proxy/pkg/storage"
	"github.com/mediastack/image-transform-proxy/pkg/strategy"
)

func main() {
	// Configuration: YAML file with env overrides.
	cfg, err := config.Load(getEnv("CONFIG_FILE", ""))
	if err != nil {
		fallbackLogger := logging.Setup(logging.DefaultConfig())
		fallbackLogger.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.Redis.Addr = getEnv("REDIS_URL", cfg.Redis.Addr)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.FallbackOrigin = getEnv("FALLBACK_ORIGIN", cfg.FallbackOrigin)

	logger := logging.Setup(cfg.LoggingSetup())

	// Object store.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	store := storage.NewRedisStore(redisClient)

	// Core components.
	optionsCache := optionscache.New(cfg.OptionsCacheSetup())
	resolver := cachepolicy.NewResolver(
		cfg.PolicyDefaults(),
		cfg.Cache.URLRules,
		cfg.DerivativeOverrides(),
		logging.NewLogger("cachepolicy"),
	)
	deps := strategy.Deps{
		Store:                store,
		Backend:              strategy.NewHTTPBackend(optionsCache, logging.NewLogger("backend")),
		OptionsCache:         optionsCache,
		Resolver:             resolver,
		TransformPathSegment: cfg.TransformPathSegment,
		Logger:               logging.NewLogger("strategy"),
	}
	registry := strategy.NewRegistry(cfg.Strategies, deps, logging.NewLogger("registry"))
	orch := orchestrator.New(registry, resolver, logging.NewLogger("orchestrator"))

	// HTTP server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", newImageHandler(orch, resolver, cfg))

	addr := ":" + cfg.Server.Port
	logger.Info().
		Str("addr", addr).
		Str("environment", cfg.Environment).
		Msg("Starting transform proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
