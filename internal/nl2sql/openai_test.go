package nl2sql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"sql\": \"SELECT 1\"}\n```": `{"sql": "SELECT 1"}`,
		"```\n{\"sql\": \"SELECT 1\"}\n```":     `{"sql": "SELECT 1"}`,
		"```{\"sql\": \"SELECT 1\"}```":         `{"sql": "SELECT 1"}`,
		"  {\"sql\": \"SELECT 1\"}  ":           `{"sql": "SELECT 1"}`,
	}
	for input, want := range cases {
		if got := stripCodeFence(input); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestOpenAIModelRequestShape(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"sql\":\"SELECT 1\"}"}}]}`))
	}))
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	content, err := model.Complete(context.Background(), PurposeSynthesis, "hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content != `{"sql":"SELECT 1"}` {
		t.Fatalf("content = %q", content)
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", captured["model"])
	}
	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("response_format = %v", captured["response_format"])
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages = %v", captured["messages"])
	}
	message, _ := messages[0].(map[string]any)
	if message["role"] != "user" || message["content"] != "hello" {
		t.Fatalf("message = %v", message)
	}
}

func TestOpenAIModelErrors(t *testing.T) {
	responses := []struct {
		status int
		body   string
	}{
		{http.StatusTooManyRequests, `{"error":"slow down"}`},
		{http.StatusOK, `not json`},
		{http.StatusOK, `{"choices":[]}`},
	}
	for _, tc := range responses {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		model, err := NewOpenAIModel(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
		if err != nil {
			t.Fatalf("NewOpenAIModel() error = %v", err)
		}
		if _, err := model.Complete(context.Background(), PurposeSynthesis, "q"); err == nil {
			t.Fatalf("expected error for status=%d body=%s", tc.status, tc.body)
		}
		server.Close()
	}
}

func TestNewOpenAIModelValidation(t *testing.T) {
	if _, err := NewOpenAIModel(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error without base URL")
	}
	if _, err := NewOpenAIModel(OpenAIConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := NewOpenAIModel(OpenAIConfig{BaseURL: "http://localhost", APIKey: "k", RateLimit: -1}); err == nil {
		t.Fatal("expected error for negative rate limit")
	}
	model, err := NewOpenAIModel(OpenAIConfig{BaseURL: "http://localhost", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	if model.Name() != "gpt-4o-mini" {
		t.Fatalf("Name() = %q", model.Name())
	}
}

func TestOpenAIModelRateLimiterHonoursContext(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	model, err := NewOpenAIModel(OpenAIConfig{BaseURL: server.URL, APIKey: "k", RateLimit: 0.001, RateBurst: 1})
	if err != nil {
		t.Fatalf("NewOpenAIModel() error = %v", err)
	}
	if _, err := model.Complete(context.Background(), PurposeSynthesis, "first"); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = model.Complete(ctx, PurposeSynthesis, "second")
	if err == nil || !strings.Contains(err.Error(), "rate limiter") {
		t.Fatalf("second Complete() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
