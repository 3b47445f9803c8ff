package ai

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicMessager is the slice of the Anthropic SDK used here; tests substitute it.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator serves claude-* models through the Messages API.
type AnthropicGenerator struct {
	messages AnthropicMessager
}

// NewAnthropicGenerator builds a generator backed by the official SDK client.
func NewAnthropicGenerator(apiKey string) (*AnthropicGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrDisabled
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &AnthropicGenerator{messages: &client.Messages}, nil
}

// NewAnthropicGeneratorWith wraps an existing messager.
func NewAnthropicGeneratorWith(messages AnthropicMessager) *AnthropicGenerator {
	return &AnthropicGenerator{messages: messages}
}

func (g *AnthropicGenerator) Enabled() bool {
	return g != nil && g.messages != nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	sampling := req.Sampling.withDefaults()
	resp, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(sampling.MaxTokens),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt(req)}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(clampFloat(sampling.Temperature, 0, 1)),
		TopK:        anthropic.Int(int64(sampling.TopK)),
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
