package assessment

import (
	"context"
	"strconv"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/trademark"
)

// GoodsAssessor judges one applicant/opponent goods pair in light of the mark verdict.
type GoodsAssessor struct {
	reasoner Reasoner
	prompts  *prompts.Registry
}

func NewGoodsAssessor(reasoner Reasoner, registry *prompts.Registry) *GoodsAssessor {
	return &GoodsAssessor{reasoner: reasoner, prompts: registry}
}

// Assess returns the likelihood verdict for the pair. The confusion type is always
// cleared when no confusion is found, whatever the service returned.
func (g *GoodsAssessor) Assess(ctx context.Context, applicant, opponent trademark.GoodService, marks trademark.MarkSimilarity, model string) (trademark.GoodsServicesLikelihood, error) {
	if err := applicant.Validate(); err != nil {
		return trademark.GoodsServicesLikelihood{}, err
	}
	if err := opponent.Validate(); err != nil {
		return trademark.GoodsServicesLikelihood{}, err
	}
	if err := marks.Validate(); err != nil {
		return trademark.GoodsServicesLikelihood{}, err
	}

	prompt, err := g.prompts.Render(prompts.GoodsServices, map[string]string{
		"applicant_term":       applicant.Term,
		"applicant_nice_class": strconv.Itoa(applicant.NiceClass),
		"opponent_term":        opponent.Term,
		"opponent_nice_class":  strconv.Itoa(opponent.NiceClass),
		"mark_visual":          string(marks.Visual),
		"mark_aural":           string(marks.Aural),
		"mark_conceptual":      string(marks.Conceptual),
		"mark_overall":         string(marks.Overall),
	})
	if err != nil {
		return trademark.GoodsServicesLikelihood{}, err
	}

	var out goodsOutput
	if err := g.reasoner.RequestStructured(ctx, ai.Request{
		Prompt:   prompt,
		Schema:   goodsSchema,
		Sampling: ai.DefaultSampling(),
		Model:    model,
	}, &out); err != nil {
		return trademark.GoodsServicesLikelihood{}, err
	}
	return out.likelihood(), nil
}
