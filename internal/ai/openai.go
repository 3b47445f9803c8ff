package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIConfig holds OpenAI-compatible endpoint configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIGenerator calls the chat completions endpoint of an OpenAI-compatible API.
type OpenAIGenerator struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewOpenAIGenerator constructs a generator if the supplied configuration is usable.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIGenerator{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
	}, nil
}

// Enabled reports whether the generator can make outbound calls.
func (g *OpenAIGenerator) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// Generate sends one chat completion request and returns the raw message content.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(g.buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &StatusError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return decoded.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) buildPayload(req GenerateRequest) map[string]any {
	sampling := req.Sampling.withDefaults()
	messages := []map[string]string{
		{"role": "system", "content": systemPrompt(req)},
		{"role": "user", "content": req.Prompt},
	}
	// top_k has no chat completions equivalent
	return map[string]any{
		"model":           req.Model,
		"messages":        messages,
		"temperature":     sampling.Temperature,
		"top_p":           sampling.TopP,
		"max_tokens":      sampling.MaxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
