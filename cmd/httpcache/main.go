// Command httpcache serves the notes API behind the response cache.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wk755/httpserver/internal/notes"
	"github.com/wk755/httpserver/pkg/cache"
	"github.com/wk755/httpserver/pkg/config"
	"github.com/wk755/httpserver/pkg/logging"
	"github.com/wk755/httpserver/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	// Optional .env file; real environment variables win
	envErr := godotenv.Load()

	configPath := flag.String("config", getEnv("CONFIG_FILE", ""), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(cfg.Logging())
	logger := logging.NewLogger("server")
	if envErr == nil {
		logger.Info().Msg("Loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, redisClient, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	repo, err := notes.Open(cfg.Notes.DSN)
	if err != nil {
		return fmt.Errorf("open notes database: %w", err)
	}
	defer repo.Close()

	mw := cache.New(cfg.Policy(), store, cache.WithLogger(logging.NewLogger("httpcache")))
	notesHandler := notes.NewHandler(repo, mw, logging.NewLogger("notes"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(logger, mw, store, redisClient, notesHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("store", cfg.Cache.Store).
			Dur("ttl", cfg.Cache.TTL).
			Msg("Starting cache server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newStore builds the configured cache store. The Redis client is returned
// so readiness checks can ping it; it is nil for the memory store.
func newStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (cache.Store, *redis.Client, error) {
	if cfg.Cache.Store != config.StoreRedis {
		logger.Info().Int64("capacity_bytes", cfg.Cache.CapacityBytes).Msg("Using memory cache store")
		return cache.NewMemoryLRU(cfg.Cache.CapacityBytes), nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	return cache.NewRedisStore(redisClient, cfg.Redis.Namespace, cfg.Cache.CapacityBytes), redisClient, nil
}

// newRouter mounts the operational endpoints and, behind the cache, the notes API.
func newRouter(logger zerolog.Logger, mw *cache.Middleware, store cache.Store, redisClient *redis.Client, notesHandler *notes.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(redisClient))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Post("/purge", purgeHandler(mw))
		r.Get("/stats", statsHandler(store))
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Handler)
		r.Mount(notes.Prefix, notesHandler.Routes())
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// purgeHandler serves POST /admin/purge?prefix=/path.
func purgeHandler(mw *cache.Middleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			http.Error(w, "prefix is required", http.StatusBadRequest)
			return
		}
		if err := mw.PurgePrefix(r.Context(), prefix); err != nil {
			http.Error(w, "purge failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statsHandler reports memory store usage; other stores have no local stats.
func statsHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lru, ok := store.(*cache.MemoryLRU)
		if !ok {
			http.Error(w, "stats are only available for the memory store", http.StatusNotImplemented)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(lru.Stats())
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
