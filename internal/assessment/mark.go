package assessment

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/trademark"
	"trademark-opposition/backend/internal/util"
)

// MissingReasoningPlaceholder stands in when the reasoning service omits its explanation.
const MissingReasoningPlaceholder = "No reasoning was provided by the assessment service."

// MarkAssessor produces the four-axis similarity verdict for a mark pair.
type MarkAssessor struct {
	reasoner   Reasoner
	prompts    *prompts.Registry
	conceptual *ConceptualResolver
}

func NewMarkAssessor(reasoner Reasoner, registry *prompts.Registry, conceptual *ConceptualResolver) *MarkAssessor {
	return &MarkAssessor{reasoner: reasoner, prompts: registry, conceptual: conceptual}
}

// Assess asks the reasoning service for a global verdict using the caller's visual and
// aural scores as context. Reasoning failures are returned unchanged.
func (m *MarkAssessor) Assess(ctx context.Context, applicant, opponent trademark.Mark, visual, aural float64, model string) (trademark.MarkSimilarity, error) {
	if err := validateMarks(applicant, opponent); err != nil {
		return trademark.MarkSimilarity{}, err
	}
	if err := trademark.ValidateScore("visual_score", visual); err != nil {
		return trademark.MarkSimilarity{}, err
	}
	if err := trademark.ValidateScore("aural_score", aural); err != nil {
		return trademark.MarkSimilarity{}, err
	}

	prompt, err := m.prompts.Render(prompts.MarkSimilarity, map[string]string{
		"applicant_wordmark":     applicant.Wordmark,
		"applicant_status":       applicant.Status(),
		"applicant_reg_num_line": registrationLine(applicant),
		"opponent_wordmark":      opponent.Wordmark,
		"opponent_status":        opponent.Status(),
		"opponent_reg_num_line":  registrationLine(opponent),
		"visual_score":           formatScore(visual),
		"aural_score":            formatScore(aural),
	})
	if err != nil {
		return trademark.MarkSimilarity{}, err
	}

	var out markOutput
	if err := m.reasoner.RequestStructured(ctx, ai.Request{
		Prompt:   prompt,
		Schema:   markSchema,
		Sampling: ai.DefaultSampling(),
		Model:    model,
	}, &out); err != nil {
		return trademark.MarkSimilarity{}, err
	}

	verdict := out.parsed
	if verdict.Reasoning == "" {
		verdict.Reasoning = MissingReasoningPlaceholder
	}
	logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(ctx),
		"applicant":  applicant.Wordmark,
		"opponent":   opponent.Wordmark,
		"overall":    verdict.Overall,
	}).Info("mark similarity assessed")
	return verdict, nil
}

// Overall is the deterministic path: the three axis scores are computed locally and
// combined with fixed weights. The conceptual axis still consults the resolver, which
// degrades to a neutral score outside strict mode.
func (m *MarkAssessor) Overall(ctx context.Context, applicant, opponent string, model string) (trademark.MarkSimilarity, scoring.Scores, error) {
	if err := validateModel(model); err != nil {
		return trademark.MarkSimilarity{}, scoring.Scores{}, err
	}
	scores := scoring.Scores{
		Visual: scoring.Visual(applicant, opponent),
		Aural:  scoring.Aural(applicant, opponent),
	}
	conceptual, err := m.conceptual.Score(ctx, applicant, opponent, model)
	if err != nil {
		return trademark.MarkSimilarity{}, scores, err
	}
	scores.Conceptual = conceptual
	return scoring.CombineScores(scores), scores, nil
}

func registrationLine(mark trademark.Mark) string {
	if reg := strings.TrimSpace(mark.RegistrationNumber); reg != "" {
		return "- Registration Number: `" + reg + "`"
	}
	return ""
}

func validateMarks(marks ...trademark.Mark) error {
	for _, mark := range marks {
		if strings.TrimSpace(mark.Wordmark) == "" {
			return apperr.Validationf("wordmark is required")
		}
	}
	return nil
}
