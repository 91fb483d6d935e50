package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/config"
	"github.com/kailas-cloud/buyingguide/internal/db"
	dbRedis "github.com/kailas-cloud/buyingguide/internal/db/redis"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	domusage "github.com/kailas-cloud/buyingguide/internal/domain/usage"
	logpkg "github.com/kailas-cloud/buyingguide/internal/logger"
	"github.com/kailas-cloud/buyingguide/internal/metrics"
	budgetrepo "github.com/kailas-cloud/buyingguide/internal/repository/budget"
	"github.com/kailas-cloud/buyingguide/internal/repository/buildinfo"
	"github.com/kailas-cloud/buyingguide/internal/repository/plancache"
	chiTransport "github.com/kailas-cloud/buyingguide/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/buyingguide/internal/transport/openai"
	advisoruc "github.com/kailas-cloud/buyingguide/internal/usecase/advisor"
	cataloguc "github.com/kailas-cloud/buyingguide/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/buyingguide/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/buyingguide/internal/usecase/recommend"
	retrievaluc "github.com/kailas-cloud/buyingguide/internal/usecase/retrieval"
	usageuc "github.com/kailas-cloud/buyingguide/internal/usecase/usage"
	"github.com/kailas-cloud/buyingguide/internal/version"
)

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

	logger.Info("Starting buyingguide API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_path", cfg.Catalog.IndexPath),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterDBMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterCatalogMetrics()
	metrics.RegisterRetrievalMetrics()

	// Redis is optional: without it the plan cache, budget persistence and
	// build records are off.
	var store db.Store
	if cfg.Database.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")
		store = s
	} else {
		logger.Warn("No database configured, plan cache and build records disabled")
	}

	// Single BudgetTracker shared by the advisor chain and the usage service.
	budget := buildBudget(ctx, cfg.LLM, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker advisoruc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	advisor := buildAdvisor(cfg.LLM, store, budgetChecker, logger)
	logger.Info("Advisor created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("planner_model", cfg.LLM.PlannerModel),
		zap.String("explainer_model", cfg.LLM.ExplainerModel),
	)

	// Catalog snapshot
	holder := cataloguc.NewHolder(cataloguc.NewLoader(logger), cfg.Catalog.IndexPath, logger)
	if _, err := holder.Reload(ctx); err != nil {
		// Served as 503 until a reload succeeds.
		logger.Error("Initial catalog load failed", zap.Error(err))
	}

	var builds chiTransport.BuildReader
	if store != nil {
		repo := buildinfo.New(store)
		builds = repo
		if cfg.Catalog.WatchIntervalSec > 0 {
			watcher := cataloguc.NewWatcher(holder, repo, cfg.Catalog.WatchInterval(), logger)
			go watcher.Run(ctx)
		}
	}

	// Use case services
	retriever := retrievaluc.New(retrievaluc.NewScorer(cfg.Retrieval.DefaultTopK))
	recommendSvc := recommenduc.New(advisor, holder, retriever)
	usageSvc := usageuc.New(budgetReader)

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, advisor, holder)

	server := chiTransport.NewServer(recommendSvc, retriever, holder, builds, usageSvc, healthSvc,
		chiTransport.Options{
			IndexDir: filepath.Dir(cfg.Catalog.IndexPath),
			MaxTopK:  cfg.Retrieval.MaxTopK,
		},
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildBudget returns nil when no limit is configured.
func buildBudget(ctx context.Context, cfg config.LLMConfig, store db.Store, logger *zap.Logger) *advisoruc.BudgetTracker {
	b := cfg.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := advisoruc.BudgetActionWarn
	if b.Action == "reject" {
		action = advisoruc.BudgetActionReject
	}
	limits := advisoruc.Limits{
		domusage.PeriodDay:   b.DailyTokenLimit,
		domusage.PeriodMonth: b.MonthlyTokenLimit,
	}
	budget := advisoruc.NewBudgetTracker(cfg.Provider, limits, action, logger)
	if store != nil {
		// Loads the current counters from Redis.
		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}
	return budget
}

// buildAdvisor assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildAdvisor(
	cfg config.LLMConfig,
	store db.Store,
	budget advisoruc.BudgetChecker,
	logger *zap.Logger,
) *advisoruc.InstrumentedAdvisor {
	base := openaiTransport.NewAdvisor(&openaiTransport.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		PlannerModel:   cfg.PlannerModel,
		ExplainerModel: cfg.ExplainerModel,
		Temperature:    cfg.Temperature,
		Timeout:        cfg.Timeout(),
		Logger:         logger,
	})

	var advisor llm.Advisor = base
	if store != nil && cfg.PlanCacheTTL() > 0 {
		advisor = plancache.New(base, store, cfg.PlanCacheTTL(), metrics.PlanCacheTotal, logger)
	}

	return advisoruc.NewInstrumentedAdvisor(
		advisor, cfg.Provider, cfg.PlannerModel, budget,
		advisoruc.NewLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst), logger,
	)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logpkg.FromContext(r.Context()).Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if tokens := ww.Header().Get("X-LLM-Tokens"); tokens != "" {
				fields = append(fields, zap.String("llm_tokens", tokens))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
