package assessment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/trademark"
)

// Reasoner is the structured-output seam to the reasoning service. *ai.Client satisfies it.
type Reasoner interface {
	RequestStructured(ctx context.Context, req ai.Request, out any) error
}

// validateModel rejects model names the reasoning client would refuse. Empty selects
// the default model.
func validateModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" || ai.IsSupported(model) {
		return nil
	}
	return apperr.Wrap(apperr.KindValidation, fmt.Errorf("%w: %q", ai.ErrUnsupportedModel, model),
		"model must be one of "+strings.Join(ai.SupportedModels(), ", "))
}

var (
	conceptualSchema = ai.Schema{
		Name:       "ConceptualSimilarityScore",
		Definition: `{"score": number between 0.0 and 1.0}`,
	}
	markSchema = ai.Schema{
		Name: "MarkSimilarity",
		Definition: `{"visual": level, "aural": level, "conceptual": level, "overall": level, "reasoning": string}
level is one of "dissimilar", "low", "moderate", "high", "identical"`,
	}
	goodsSchema = ai.Schema{
		Name: "GoodsServicesLikelihood",
		Definition: `{"are_competitive": boolean, "are_complementary": boolean, "similarity_score": number between 0.0 and 1.0,
"likelihood_of_confusion": boolean, "confusion_type": "direct" | "indirect" | null}
confusion_type is null unless likelihood_of_confusion is true`,
	}
)

type conceptualOutput struct {
	Score *float64 `json:"score"`
}

func (o *conceptualOutput) Validate() error {
	if o.Score == nil {
		return fmt.Errorf("score is missing")
	}
	if err := trademark.ValidateScore("score", *o.Score); err != nil {
		return err
	}
	return nil
}

type markOutput struct {
	Visual     string  `json:"visual"`
	Aural      string  `json:"aural"`
	Conceptual string  `json:"conceptual"`
	Overall    string  `json:"overall"`
	Reasoning  *string `json:"reasoning"`

	parsed trademark.MarkSimilarity
}

func (o *markOutput) Validate() error {
	axes := []struct {
		raw  string
		dest *trademark.SimilarityLevel
	}{
		{o.Visual, &o.parsed.Visual},
		{o.Aural, &o.parsed.Aural},
		{o.Conceptual, &o.parsed.Conceptual},
		{o.Overall, &o.parsed.Overall},
	}
	for _, axis := range axes {
		level, err := trademark.ParseSimilarityLevel(axis.raw)
		if err != nil {
			return err
		}
		*axis.dest = level
	}
	if o.Reasoning != nil {
		o.parsed.Reasoning = strings.TrimSpace(*o.Reasoning)
	}
	return nil
}

type goodsOutput struct {
	AreCompetitive        bool     `json:"are_competitive"`
	AreComplementary      bool     `json:"are_complementary"`
	SimilarityScore       *float64 `json:"similarity_score"`
	LikelihoodOfConfusion bool     `json:"likelihood_of_confusion"`
	ConfusionType         *string  `json:"confusion_type"`
}

// Validate checks only what cannot be repaired locally. A confusion type reported
// alongside "no confusion" is dropped later, not rejected.
func (o *goodsOutput) Validate() error {
	if o.SimilarityScore == nil {
		return fmt.Errorf("similarity_score is missing")
	}
	if err := trademark.ValidateScore("similarity_score", *o.SimilarityScore); err != nil {
		return err
	}
	if !o.LikelihoodOfConfusion {
		return nil
	}
	if o.ConfusionType == nil {
		return fmt.Errorf("confusion_type is required when likelihood_of_confusion is true")
	}
	if !trademark.ConfusionType(strings.ToLower(strings.TrimSpace(*o.ConfusionType))).Valid() {
		return fmt.Errorf("confusion_type %q is not recognised", *o.ConfusionType)
	}
	return nil
}

func (o *goodsOutput) likelihood() trademark.GoodsServicesLikelihood {
	out := trademark.GoodsServicesLikelihood{
		AreCompetitive:        o.AreCompetitive,
		AreComplementary:      o.AreComplementary,
		SimilarityScore:       *o.SimilarityScore,
		LikelihoodOfConfusion: o.LikelihoodOfConfusion,
	}
	if o.LikelihoodOfConfusion && o.ConfusionType != nil {
		out.ConfusionType = trademark.Confusion(trademark.ConfusionType(strings.ToLower(strings.TrimSpace(*o.ConfusionType))))
	}
	return out.Normalized()
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
