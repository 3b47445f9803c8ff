package ai

import (
	"errors"
	"sort"
	"strings"
)

// Provider identifies the backend that serves a model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// DefaultModel is used when neither the request nor the configuration names one.
const DefaultModel = "gpt-4.1-mini"

// ErrUnsupportedModel is returned for model identifiers outside the supported set.
var ErrUnsupportedModel = errors.New("unsupported model")

var supportedModels = map[string]Provider{
	"gpt-4.1-mini":             ProviderOpenAI,
	"gpt-4.1":                  ProviderOpenAI,
	"gpt-4o-mini":              ProviderOpenAI,
	"claude-sonnet-4-20250514": ProviderAnthropic,
	"claude-3-5-haiku-latest":  ProviderAnthropic,
}

// SupportedModels lists the accepted model identifiers in stable order.
func SupportedModels() []string {
	out := make([]string, 0, len(supportedModels))
	for name := range supportedModels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether model is in the supported set.
func IsSupported(model string) bool {
	_, ok := supportedModels[strings.TrimSpace(model)]
	return ok
}

// ProviderFor returns the provider serving model.
func ProviderFor(model string) (Provider, bool) {
	p, ok := supportedModels[strings.TrimSpace(model)]
	return p, ok
}
