package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/util"
)

// Retry bounds for structured requests.
const (
	DefaultMaxAttempts     = 3
	DefaultTemperatureStep = 0.15
	DefaultMaxTemperature  = 1.0
)

// Config controls model resolution and the retry state machine.
type Config struct {
	DefaultModel    string
	MaxAttempts     int
	TemperatureStep float64
	MaxTemperature  float64
	// Backoff is the wait before retrying a transient failure. Defaults to attempt * 1s.
	Backoff func(attempt int) time.Duration
}

// Request is one structured judgement asked of the reasoning service.
type Request struct {
	Prompt   string
	System   string
	Schema   Schema
	Sampling Sampling
	// Model is optional; empty selects the configured default.
	Model string
}

// Validator is implemented by output shapes that carry their own invariants.
type Validator interface {
	Validate() error
}

// Client wraps a Generator with model resolution, bounded retries and output decoding.
// It is safe for concurrent use.
type Client struct {
	gen Generator
	cfg Config
}

// NewClient validates cfg and returns a Client over gen.
func NewClient(gen Generator, cfg Config) (*Client, error) {
	if gen == nil {
		return nil, errors.New("ai: generator is required")
	}
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if !IsSupported(cfg.DefaultModel) {
		return nil, fmt.Errorf("ai: default model: %w: %q", ErrUnsupportedModel, cfg.DefaultModel)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.TemperatureStep <= 0 {
		cfg.TemperatureStep = DefaultTemperatureStep
	}
	if cfg.MaxTemperature <= 0 {
		cfg.MaxTemperature = DefaultMaxTemperature
	}
	if cfg.Backoff == nil {
		cfg.Backoff = func(attempt int) time.Duration { return time.Duration(attempt) * time.Second }
	}
	return &Client{gen: gen, cfg: cfg}, nil
}

// Enabled reports whether the underlying generator can make calls.
func (c *Client) Enabled() bool {
	return c != nil && c.gen != nil && c.gen.Enabled()
}

// DefaultModel returns the model used when a request names none.
func (c *Client) DefaultModel() string {
	return c.cfg.DefaultModel
}

// ResolveModel returns the model to use for requested, failing fast on unknown names.
func (c *Client) ResolveModel(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return c.cfg.DefaultModel, nil
	}
	if !IsSupported(requested) {
		return "", apperr.Wrap(apperr.KindValidation, fmt.Errorf("%w: %q", ErrUnsupportedModel, requested),
			"model must be one of "+strings.Join(SupportedModels(), ", "))
	}
	return requested, nil
}

// RequestStructured asks for a JSON object matching req.Schema and decodes it into out.
//
// Empty output is retried with the temperature raised by TemperatureStep (capped at
// MaxTemperature). Transient failures are retried after Backoff. Other service errors
// fail immediately. Output that does not decode or validate is an invalid-output error
// and is not retried.
func (c *Client) RequestStructured(ctx context.Context, req Request, out any) error {
	if c == nil || c.gen == nil {
		return apperr.Wrap(apperr.KindService, ErrDisabled, "reasoning client not configured")
	}
	model, err := c.ResolveModel(req.Model)
	if err != nil {
		return err
	}

	callID := util.ShortID()
	entry := logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(ctx),
		"call_id":    callID,
		"schema":     req.Schema.Name,
		"model":      model,
	})

	sampling := req.Sampling.withDefaults()
	temperature := sampling.Temperature
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		sampling.Temperature = temperature
		timer := util.StartTimer()
		raw, genErr := c.gen.Generate(ctx, GenerateRequest{
			Model:    model,
			System:   req.System,
			Prompt:   req.Prompt,
			Schema:   req.Schema,
			Sampling: sampling,
		})
		attemptLog := entry.WithFields(logrus.Fields{
			"attempt":     attempt,
			"temperature": temperature,
			"duration_ms": timer.ElapsedMs(),
		})

		if genErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				attemptLog.WithError(genErr).Warn("reasoning request cancelled")
				return apperr.Wrapf(apperr.KindTransient, ctxErr, "reasoning call %s cancelled", callID)
			}
			if !IsTransient(genErr) {
				attemptLog.WithError(genErr).Error("reasoning service error")
				return apperr.Wrapf(apperr.KindService, genErr, "reasoning call %s failed", callID)
			}
			attemptLog.WithError(genErr).Warn("transient reasoning failure")
			lastErr = apperr.Wrapf(apperr.KindTransient, genErr, "reasoning call %s failed after %d attempts", callID, attempt)
			if attempt < c.cfg.MaxAttempts {
				if err := sleepContext(ctx, c.cfg.Backoff(attempt)); err != nil {
					return apperr.Wrapf(apperr.KindTransient, err, "reasoning call %s cancelled", callID)
				}
			}
			continue
		}

		content := normalizeJSONBlock(raw)
		if isEmptyPayload(content) {
			attemptLog.Warn("empty reasoning output; raising temperature")
			lastErr = apperr.New(apperr.KindInvalidOutput,
				fmt.Sprintf("reasoning call %s returned empty %s output after %d attempts", callID, req.Schema.Name, attempt))
			temperature = math.Min(temperature+c.cfg.TemperatureStep, c.cfg.MaxTemperature)
			continue
		}

		if err := json.Unmarshal([]byte(content), out); err != nil {
			attemptLog.WithError(err).Warn("reasoning output did not parse")
			return apperr.Wrapf(apperr.KindInvalidOutput, err, "parse %s output of call %s", req.Schema.Name, callID)
		}
		if v, ok := out.(Validator); ok {
			if err := v.Validate(); err != nil {
				attemptLog.WithError(err).Warn("reasoning output failed validation")
				return apperr.Wrapf(apperr.KindInvalidOutput, err, "validate %s output of call %s", req.Schema.Name, callID)
			}
		}
		attemptLog.Debug("reasoning call succeeded")
		return nil
	}
	return lastErr
}

// IsTransient reports whether err looks like rate limiting or a timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "rate_limit", "timeout", "timed out", "overloaded", "status 429"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout,
		529: // anthropic overloaded
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isEmptyPayload(content string) bool {
	switch strings.TrimSpace(content) {
	case "", "null", "{}", "[]", `""`:
		return true
	}
	return false
}

func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
