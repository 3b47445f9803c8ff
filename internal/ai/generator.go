package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrDisabled is returned when no generator is configured for a provider.
var ErrDisabled = errors.New("reasoning service disabled")

// Sampling holds the generation parameters forwarded to the provider.
type Sampling struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultSampling mirrors the production defaults for structured judgements.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.2, TopP: 0.95, TopK: 40, MaxTokens: 2048}
}

func (s Sampling) withDefaults() Sampling {
	d := DefaultSampling()
	if s.TopP <= 0 || s.TopP > 1 {
		s.TopP = d.TopP
	}
	if s.TopK <= 0 {
		s.TopK = d.TopK
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = d.MaxTokens
	}
	if s.Temperature < 0 {
		s.Temperature = 0
	}
	return s
}

// Schema names the structured shape expected back and describes it to the model.
type Schema struct {
	Name       string
	Definition string
}

// GenerateRequest is one provider call.
type GenerateRequest struct {
	Model    string
	System   string
	Prompt   string
	Schema   Schema
	Sampling Sampling
}

// Generator produces raw text for a single prompt. Implementations perform exactly one
// upstream call per Generate and never retry.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// StatusError reports a non-success HTTP status from a provider.
type StatusError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Body)
}

const systemPreamble = "You are an experienced UK/EU trademark examiner assessing opposition proceedings. Reply with a single JSON object and nothing else."

func systemPrompt(req GenerateRequest) string {
	system := req.System
	if system == "" {
		system = systemPreamble
	}
	if req.Schema.Definition != "" {
		system += "\nThe JSON object must match this schema (" + req.Schema.Name + "):\n" + req.Schema.Definition
	}
	return system
}
