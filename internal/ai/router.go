package ai

import (
	"context"
	"fmt"
)

// Router dispatches each request to the generator serving the requested model's provider.
type Router struct {
	generators map[Provider]Generator
}

// NewRouter returns a router over the supplied generators. Nil or disabled generators
// are skipped so an unconfigured provider reports ErrDisabled at call time.
func NewRouter(generators map[Provider]Generator) *Router {
	r := &Router{generators: make(map[Provider]Generator, len(generators))}
	for provider, g := range generators {
		if g != nil && g.Enabled() {
			r.generators[provider] = g
		}
	}
	return r
}

// Enabled reports whether at least one provider is reachable.
func (r *Router) Enabled() bool {
	return r != nil && len(r.generators) > 0
}

// Serves reports whether a generator is configured for provider.
func (r *Router) Serves(provider Provider) bool {
	if r == nil {
		return false
	}
	_, ok := r.generators[provider]
	return ok
}

func (r *Router) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if r == nil {
		return "", ErrDisabled
	}
	provider, ok := ProviderFor(req.Model)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, req.Model)
	}
	g, ok := r.generators[provider]
	if !ok {
		return "", fmt.Errorf("%w: no %s credentials configured", ErrDisabled, provider)
	}
	return g.Generate(ctx, req)
}
