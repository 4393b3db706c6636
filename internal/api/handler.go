package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/nl2sql"
	"github.com/shopqa/shopqa/internal/observability"
	"github.com/shopqa/shopqa/internal/pipeline"
)

type ReadinessCheck func(ctx context.Context) error

// Asker answers one page of a question. *pipeline.Service satisfies it.
type Asker interface {
	Answer(ctx context.Context, question string, page int) (pipeline.Payload, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Asker             Asker
	Synthesizer       nl2sql.Synthesizer
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	mux.HandleFunc("GET /v1/schema", handleSchema)
	mux.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		handlePageGet(deps, w, r)
	})
	mux.HandleFunc("POST /{$}", func(w http.ResponseWriter, r *http.Request) {
		handlePagePost(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// Pinger reports whether the relational store is reachable. *query.Executor
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

func CheckStore(pinger Pinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if pinger == nil {
			return errors.New("store is not configured")
		}
		if err := pinger.Ping(ctx); err != nil {
			return errors.New("store is unreachable: " + err.Error())
		}
		return nil
	}
}

func CheckModelConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if strings.TrimSpace(cfg.AI.BaseURL) == "" {
			return errors.New("model base url is not configured")
		}
		if strings.TrimSpace(cfg.AI.APIKey) == "" {
			return errors.New("model api key is not configured")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
