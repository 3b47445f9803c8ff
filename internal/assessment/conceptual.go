package assessment

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/util"
)

// NeutralConceptualScore is returned when the reasoning service cannot be used.
const NeutralConceptualScore = 0.5

// ConceptualResolver scores shared meaning between two wordmarks.
type ConceptualResolver struct {
	reasoner Reasoner
	coined   *scoring.CoinedDetector
	prompts  *prompts.Registry
	strict   bool
}

// NewConceptualResolver wires the resolver. In strict mode reasoning failures are
// returned instead of degrading to NeutralConceptualScore.
func NewConceptualResolver(reasoner Reasoner, coined *scoring.CoinedDetector, registry *prompts.Registry, strict bool) *ConceptualResolver {
	return &ConceptualResolver{reasoner: reasoner, coined: coined, prompts: registry, strict: strict}
}

// Score returns 0 when either mark is coined, otherwise the reasoning service's score.
// An unsupported model is a caller error and is returned in every mode.
func (r *ConceptualResolver) Score(ctx context.Context, a, b, model string) (float64, error) {
	if err := validateModel(model); err != nil {
		return 0, err
	}
	entry := logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(ctx),
		"mark_one":   a,
		"mark_two":   b,
	})
	if r.coined.IsCoined(a) || r.coined.IsCoined(b) {
		entry.Debug("coined mark; conceptual similarity is zero")
		return 0, nil
	}

	score, err := r.request(ctx, a, b, model)
	if err != nil {
		if r.strict || apperr.IsValidation(err) {
			return 0, err
		}
		entry.WithError(err).Warn("conceptual similarity unavailable; using neutral score")
		return NeutralConceptualScore, nil
	}
	return score, nil
}

func (r *ConceptualResolver) request(ctx context.Context, a, b, model string) (float64, error) {
	if r.reasoner == nil {
		return 0, errors.New("no reasoning service configured")
	}
	prompt, err := r.prompts.Render(prompts.ConceptualSimilarity, map[string]string{
		"mark_one": a,
		"mark_two": b,
	})
	if err != nil {
		return 0, err
	}
	var out conceptualOutput
	err = r.reasoner.RequestStructured(ctx, ai.Request{
		Prompt:   prompt,
		Schema:   conceptualSchema,
		Sampling: ai.Sampling{Temperature: 0.1, TopP: 0.95, TopK: 40, MaxTokens: 1000},
		Model:    model,
	}, &out)
	if err != nil {
		return 0, err
	}
	return *out.Score, nil
}
