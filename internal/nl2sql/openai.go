package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopqa/shopqa/internal/observability"
)

// Model is the language-model boundary: one prompt in, one JSON object out.
// Purpose labels the call for metrics ("synthesis", "interpretation").
type Model interface {
	Complete(ctx context.Context, purpose, prompt string) (string, error)
}

const (
	PurposeSynthesis      = "synthesis"
	PurposeInterpretation = "interpretation"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// RateLimit caps outbound calls per second; zero disables throttling.
	RateLimit float64
	RateBurst int
}

// OpenAIModel talks to an OpenAI-compatible chat completions endpoint and always
// requests a JSON-object response.
type OpenAIModel struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	limiter     *rate.Limiter
}

func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit must be >= 0")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &OpenAIModel{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
		limiter:     limiter,
	}, nil
}

func (m *OpenAIModel) Name() string { return m.model }

func (m *OpenAIModel) Complete(ctx context.Context, purpose, prompt string) (content string, err error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for model rate limiter: %w", err)
		}
	}
	start := time.Now()
	defer func() { observability.ObserveModelCall(purpose, time.Since(start), err) }()

	body, err := json.Marshal(buildOpenAIPayload(m.model, m.temperature, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildOpenAIPayload(model string, temperature float64, prompt string) map[string]any {
	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     temperature,
	}
}

// stripCodeFence removes a surrounding markdown code fence, which some
// compatible servers add even in JSON mode.
func stripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], "{}") {
			trimmed = trimmed[newline+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
