package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/cache"
	"github.com/iuslabs/lexdex/internal/config"
	dbRedis "github.com/iuslabs/lexdex/internal/db/redis"
	"github.com/iuslabs/lexdex/internal/dictionary"
	"github.com/iuslabs/lexdex/internal/domain"
	logpkg "github.com/iuslabs/lexdex/internal/logger"
	"github.com/iuslabs/lexdex/internal/metrics"
	analyticsrepo "github.com/iuslabs/lexdex/internal/repository/analytics"
	"github.com/iuslabs/lexdex/internal/repository/corpus"
	"github.com/iuslabs/lexdex/internal/repository/embcache"
	chiTransport "github.com/iuslabs/lexdex/internal/transport/chi"
	openaiEmb "github.com/iuslabs/lexdex/internal/transport/openai"
	analyticsuc "github.com/iuslabs/lexdex/internal/usecase/analytics"
	healthuc "github.com/iuslabs/lexdex/internal/usecase/health"
	"github.com/iuslabs/lexdex/internal/usecase/orchestrator"
	queryuc "github.com/iuslabs/lexdex/internal/usecase/query"
	rankinguc "github.com/iuslabs/lexdex/internal/usecase/ranking"
	retrievaluc "github.com/iuslabs/lexdex/internal/usecase/retrieval"
	"github.com/iuslabs/lexdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lexdex search engine",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Corpus store + shared cache tiers (Redis)
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to corpus store")

	// Analytics store (Postgres). Optional: search runs without it.
	var analyticsDB *sql.DB
	if cfg.Analytics.PostgresDSN != "" {
		analyticsDB, err = sql.Open("postgres", cfg.Analytics.PostgresDSN)
		if err != nil {
			logger.Fatal("Failed to open analytics database", zap.Error(err))
		}
		defer func() { _ = analyticsDB.Close() }()

		repo := analyticsrepo.New(analyticsDB)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to ensure analytics schema", zap.Error(err))
		}
		logger.Info("Connected to analytics store")
	} else {
		logger.Warn("Analytics DSN not configured, tracking disabled")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	// Embedder chain: OpenAI -> Cached
	var embedder domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:      cfg.Embedding.APIKey,
		BaseURL:     cfg.Embedding.BaseURL,
		Model:       cfg.Embedding.Model,
		Dimensions:  cfg.Embedding.Dimensions,
		Provider:    cfg.Embedding.Provider,
		MaxRetries:  cfg.Embedding.MaxRetries,
		RateEveryMS: cfg.Embedding.RateEveryMS,
		RateBurst:   cfg.Embedding.RateBurst,
		Logger:      logger,
	})
	embedder = embcache.New(
		embedder, store, time.Duration(cfg.Cache.L2TTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Entity dictionary with the default similarity strategy
	sim := dictionary.EditDistance{}
	dict := dictionary.New(sim, logger)

	// Cache tiers
	cacheManager := cache.NewManager(store, cache.Config{
		L1Size: cfg.Cache.L1Size,
		L1TTL:  time.Duration(cfg.Cache.L1TTLSec) * time.Second,
		L2TTL:  time.Duration(cfg.Cache.L2TTLSec) * time.Second,
		L3TTL:  time.Duration(cfg.Cache.L3TTLSec) * time.Second,
	}, logger)

	// Use case services
	querySvc := queryuc.New(dict, sim, cfg.Query, logger)
	retrievalSvc := retrievaluc.New(corpus.New(store), embedder, cfg.Retrieval, logger)
	rankingSvc := rankinguc.New(cfg.Ranking, logger)

	var analyticsSvc *analyticsuc.Service
	if analyticsDB != nil {
		analyticsSvc = analyticsuc.New(analyticsrepo.New(analyticsDB), logger)
	} else {
		analyticsSvc = analyticsuc.New(analyticsuc.NopRepository{}, logger)
	}

	searchSvc := orchestrator.New(
		querySvc, retrievalSvc, rankingSvc,
		cacheManager, analyticsSvc, dict,
		cfg.Search, logger,
	)

	// Health service
	var analyticsPinger healthuc.AnalyticsPinger
	if analyticsDB != nil {
		analyticsPinger = analyticsDB
	}
	healthSvc := healthuc.New(store, analyticsPinger, newEmbeddingHealthChecker(embedder))

	// HTTP server
	server := chiTransport.NewServer(searchSvc, analyticsSvc, dict, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
