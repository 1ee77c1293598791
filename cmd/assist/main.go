package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/config"
	"github.com/clinico-health/assist/internal/db"
	dbRedis "github.com/clinico-health/assist/internal/db/redis"
	"github.com/clinico-health/assist/internal/domain"
	logpkg "github.com/clinico-health/assist/internal/logger"
	"github.com/clinico-health/assist/internal/metrics"
	"github.com/clinico-health/assist/internal/monitor"
	"github.com/clinico-health/assist/internal/ratelimit"
	knowledgerepo "github.com/clinico-health/assist/internal/repository/knowledge"
	"github.com/clinico-health/assist/internal/transport/chatlog"
	chiTransport "github.com/clinico-health/assist/internal/transport/chi"
	"github.com/clinico-health/assist/internal/transport/directory"
	"github.com/clinico-health/assist/internal/transport/ollama"
	"github.com/clinico-health/assist/internal/transport/openai"
	agentsuc "github.com/clinico-health/assist/internal/usecase/agents"
	careuc "github.com/clinico-health/assist/internal/usecase/care"
	intentuc "github.com/clinico-health/assist/internal/usecase/intent"
	orchestratoruc "github.com/clinico-health/assist/internal/usecase/orchestrator"
	retrievaluc "github.com/clinico-health/assist/internal/usecase/retrieval"
	"github.com/clinico-health/assist/internal/version"
)

// generationBackend is what both generation transports provide.
type generationBackend interface {
	domain.Generator
	domain.VisionGenerator
	domain.HealthChecker
}

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting assist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("knowledge_addrs", cfg.Knowledge.Addrs),
		zap.Strings("collections", cfg.Knowledge.Collections),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Knowledge.Addrs,
		Password: cfg.Knowledge.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create knowledge store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Knowledge.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Knowledge store not ready", zap.Error(err))
	}
	logger.Info("Connected to knowledge store")

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	embedder := openai.NewEmbedder(&openai.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	generator := buildGenerator(cfg.Generation, logger)
	logger.Info("Generation backend created",
		zap.String("backend", cfg.Generation.Backend),
		zap.String("model", cfg.Generation.Model),
	)

	knowledge := knowledgerepo.New(store, cfg.Knowledge.KeyPrefix, cfg.Knowledge.Metric, cfg.Knowledge.Collections)

	dirClient := directory.New(&directory.Config{
		BaseURL:      cfg.Directory.BaseURL,
		ServiceToken: cfg.Auth.ServiceToken,
		Timeout:      time.Duration(cfg.Directory.TimeoutSec) * time.Second,
		Logger:       logger,
	})

	var chatLogger orchestratoruc.ChatLogger
	if cfg.ChatLog.Enabled {
		chatLogger = &chatLogAdapter{writer: chatlog.New(&chatlog.Config{
			BaseURL:      cfg.ChatLog.BaseURL,
			ServiceToken: cfg.Auth.ServiceToken,
			Timeout:      time.Duration(cfg.ChatLog.TimeoutSec) * time.Second,
			Logger:       logger,
		})}
	}

	collector := monitor.NewCollector(cfg.Monitoring.Enabled)

	// Use case services
	retriever := retrievaluc.New(knowledge, embedder, logger)
	classifier := intentuc.New(generator, knowledge.Collections(), logger)
	informational := agentsuc.NewInformational(retriever, generator, logger)
	wellness := agentsuc.NewWellness(retriever, generator, logger)
	imaging := agentsuc.NewImaging(retriever, generator, generator, logger)
	care := careuc.New(dirClient, generator, logger)

	orc := orchestratoruc.New(
		classifier, informational, wellness, imaging, care,
		collector, chatLogger, logger,
	)

	limiter := buildLimiter(cfg.RateLimit, store, cfg.Knowledge.KeyPrefix)

	health := monitor.NewHealth(5 * time.Second).
		Required("knowledge_store", monitor.ProbeFunc(knowledge.Ping)).
		Required("embedder", embedder).
		Optional("generator", generator)
	if cfg.Directory.BaseURL != "" {
		health = health.Optional("directory", dirClient)
	}

	server := chiTransport.NewServer(
		orc, imaging, health, knowledge, limiter, collector,
		chiTransport.ServiceInfo{
			Version:           version.Version,
			GenerationBackend: cfg.Generation.Backend,
			GenerationModel:   cfg.Generation.Model,
			VisionModel:       cfg.Generation.VisionModel,
			EmbeddingModel:    cfg.Embedding.Model,
			RateLimitEnabled:  cfg.RateLimit.Enabled,
			MonitoringEnabled: cfg.Monitoring.Enabled,
			ChatLogEnabled:    cfg.ChatLog.Enabled,
		},
		chiTransport.Auth{
			JWTSecret:    cfg.Auth.JWTSecret,
			ServiceToken: cfg.Auth.ServiceToken,
			AdminToken:   cfg.Auth.AdminToken,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Router())

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

// buildGenerator selects the generation transport. "hosted" talks to an
// OpenAI-compatible API, "local" to an Ollama instance.
func buildGenerator(cfg config.GenerationConfig, logger *zap.Logger) generationBackend {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.Backend == "local" {
		return ollama.New(&ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			VisionModel: cfg.VisionModel,
			Timeout:     timeout,
			Logger:      logger,
		})
	}
	return openai.NewGenerator(&openai.GeneratorConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		VisionModel: cfg.VisionModel,
		Timeout:     timeout,
		Logger:      logger,
	})
}

// buildLimiter selects the admission-control backend. The redis backend
// shares counters across instances; memory is per-process.
func buildLimiter(cfg config.RateLimitConfig, counters db.CounterStore, keyPrefix string) ratelimit.Limiter {
	if cfg.Backend == "redis" {
		return ratelimit.NewRedis(counters, keyPrefix, cfg.Enabled)
	}
	return ratelimit.NewMemory(cfg.Enabled)
}

// chatLogAdapter bridges the orchestrator's logging contract to the
// chat-history transport.
type chatLogAdapter struct {
	writer *chatlog.Writer
}

func (a *chatLogAdapter) Log(ctx context.Context, userID, query string, intent domain.Intent, resp domain.AgentResponse) {
	a.writer.Write(ctx, chatlog.Entry{
		UserID:         userID,
		Query:          query,
		Answer:         resp.Answer,
		Intent:         string(intent),
		CrisisDetected: resp.CrisisDetected,
		CrisisType:     resp.CrisisType,
	})
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

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

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
