package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopqa/shopqa/internal/api"
	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/nl2sql"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/pipeline"
	"github.com/shopqa/shopqa/internal/query"
	duckdbengine "github.com/shopqa/shopqa/internal/query/duckdb"
	"github.com/shopqa/shopqa/internal/query/sqldb"
	s3store "github.com/shopqa/shopqa/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("shopqa-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	engine, err := newEngine(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to initialize store engine", slog.String("engine", cfg.Store.Engine), slog.Any("error", err))
		os.Exit(1)
	}
	handler := newHandler(cfg, engine, logger)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine", cfg.Store.Engine),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// newHandler wires the question pipeline onto engine. Without a usable model the
// server still starts: /v1/ready reports the missing configuration and the
// question endpoints answer 501.
func newHandler(cfg config.Config, engine query.Engine, logger *slog.Logger) http.Handler {
	executor := query.NewExecutor(engine)
	deps := api.Dependencies{
		Logger:            logger,
		DependencyTimeout: cfg.Store.ConnectTimeout,
	}

	readiness := []api.ReadinessCheck{api.CheckStore(executor), api.CheckModelConfig(cfg)}
	if cfg.Store.Engine == config.EngineDuckDB {
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	model, err := nl2sql.NewOpenAIModel(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
		RateLimit:   cfg.AI.RateLimit,
		RateBurst:   cfg.AI.RateBurst,
	})
	if err != nil {
		logger.Warn("language model unavailable, question endpoints disabled", slog.Any("error", err))
		return api.NewHandler(cfg, deps)
	}
	translator := nl2sql.NewTranslator(model)

	service := &pipeline.Service{
		Synthesizer: translator,
		Executor:    executor,
		PageSize:    cfg.Pagination.PageSize,
		Logger:      logger,
	}
	if cfg.AI.InterpretEnabled {
		service.Interpreter = nl2sql.NewInterpreter(model, nil)
	}
	deps.Asker = service
	deps.Synthesizer = translator
	logger.Info("language model configured", slog.String("model", model.Name()), slog.Bool("interpret", cfg.AI.InterpretEnabled))
	return api.NewHandler(cfg, deps)
}

func newEngine(ctx context.Context, cfg config.Config) (query.Engine, error) {
	switch cfg.Store.Engine {
	case config.EngineSQL:
		return sqldb.NewEngine(cfg.Store)
	case config.EngineDuckDB:
		objectStore, err := s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		return duckdbengine.NewEngine(objectStore, cfg.Store.Snapshot), nil
	default:
		return nil, fmt.Errorf("unsupported store engine %q", cfg.Store.Engine)
	}
}
