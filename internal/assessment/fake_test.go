package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
)

// schemaGenerator replies per schema name, in order, and records every request.
type schemaGenerator struct {
	mu       sync.Mutex
	replies  map[string][]string
	errs     map[string]error
	requests []ai.GenerateRequest
}

func newSchemaGenerator() *schemaGenerator {
	return &schemaGenerator{replies: map[string][]string{}, errs: map[string]error{}}
}

func (g *schemaGenerator) reply(schema string, texts ...string) *schemaGenerator {
	g.replies[schema] = append(g.replies[schema], texts...)
	return g
}

func (g *schemaGenerator) fail(schema string, err error) *schemaGenerator {
	g.errs[schema] = err
	return g
}

func (g *schemaGenerator) Enabled() bool { return true }

func (g *schemaGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if err := g.errs[req.Schema.Name]; err != nil {
		return "", err
	}
	queue := g.replies[req.Schema.Name]
	if len(queue) == 0 {
		return "", errors.New("no scripted reply for " + req.Schema.Name)
	}
	g.replies[req.Schema.Name] = queue[1:]
	return queue[0], nil
}

func (g *schemaGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func newReasoner(t *testing.T, gen ai.Generator) *ai.Client {
	t.Helper()
	client, err := ai.NewClient(gen, ai.Config{Backoff: func(int) time.Duration { return 0 }})
	require.NoError(t, err)
	return client
}

func newConceptual(t *testing.T, gen ai.Generator, strict bool) *ConceptualResolver {
	t.Helper()
	return NewConceptualResolver(newReasoner(t, gen), scoring.MustCoinedDetector(), prompts.MustDefaults(), strict)
}
