package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/query"
)

type pingEngine struct{}

func (pingEngine) Execute(context.Context, query.Request) (query.Result, error) {
	return query.Result{Columns: []string{"1"}, Rows: [][]any{{int64(1)}}}, nil
}

func loadConfig(t *testing.T, values map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("shopqa-api", func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func TestHandlerWithoutModelKeyReportsNotReady(t *testing.T) {
	cfg := loadConfig(t, map[string]string{})
	h := newHandler(cfg, pingEngine{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error_code"] != "NOT_READY" {
		t.Fatalf("body = %v", body)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"how many orders?"}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("ask status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHandlerWithModelKeyIsReady(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"SHOPQA_AI_API_KEY": "secret-key"})
	h := newHandler(cfg, pingEngine{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("ready status = %d body=%s", rr.Code, rr.Body.String())
	}
}
