package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/assessment"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/trademark"
	"trademark-opposition/backend/internal/util"
)

var outcomeSchema = ai.Schema{
	Name: "OppositionOutcome",
	Definition: `{"result": "Opposition likely to succeed" | "Opposition may partially succeed" | "Opposition likely to fail",
"confidence": number between 0.0 and 1.0, "reasoning": string}`,
}

type outcomeOutput struct {
	Result     string   `json:"result"`
	Confidence *float64 `json:"confidence"`
	Reasoning  *string  `json:"reasoning"`

	parsed trademark.OppositionOutcome
}

func (o *outcomeOutput) Validate() error {
	result, ok := matchOutcome(o.Result)
	if !ok {
		return fmt.Errorf("result %q is not one of the opposition outcomes", o.Result)
	}
	if o.Confidence == nil {
		return fmt.Errorf("confidence is missing")
	}
	if err := trademark.ValidateScore("confidence", *o.Confidence); err != nil {
		return err
	}
	o.parsed = trademark.OppositionOutcome{Result: result, Confidence: *o.Confidence}
	if o.Reasoning != nil {
		o.parsed.Reasoning = strings.TrimSpace(*o.Reasoning)
	}
	return nil
}

func matchOutcome(raw string) (trademark.OutcomeResult, bool) {
	cleaned := strings.TrimSpace(raw)
	for _, candidate := range []trademark.OutcomeResult{
		trademark.OutcomeLikelySucceed,
		trademark.OutcomePartialSucceed,
		trademark.OutcomeLikelyFail,
	} {
		if strings.EqualFold(cleaned, string(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// Predictor turns a mark verdict and per-pair likelihoods into an opposition outcome.
type Predictor struct {
	reasoner assessment.Reasoner
	prompts  *prompts.Registry
}

func NewPredictor(reasoner assessment.Reasoner, registry *prompts.Registry) *Predictor {
	return &Predictor{reasoner: reasoner, prompts: registry}
}

// Predict computes the case statistics and asks the reasoning service for the outcome.
// The statistics the prompt was built from are returned with it.
func (p *Predictor) Predict(ctx context.Context, marks trademark.MarkSimilarity, likelihoods []trademark.GoodsServicesLikelihood, model string) (trademark.OppositionOutcome, Stats, error) {
	if err := marks.Validate(); err != nil {
		return trademark.OppositionOutcome{}, Stats{}, err
	}
	summary, err := ComputeStats(likelihoods)
	if err != nil {
		return trademark.OppositionOutcome{}, Stats{}, err
	}

	normalized := make([]trademark.GoodsServicesLikelihood, len(likelihoods))
	for i, l := range likelihoods {
		normalized[i] = l.Normalized()
	}
	payload, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return trademark.OppositionOutcome{}, summary, fmt.Errorf("marshal likelihoods: %w", err)
	}

	reasoningLine := ""
	if r := strings.TrimSpace(marks.Reasoning); r != "" {
		reasoningLine = "- Examiner notes: " + r
	}
	prompt, err := p.prompts.Render(prompts.CasePrediction, map[string]string{
		"mark_visual":         string(marks.Visual),
		"mark_aural":          string(marks.Aural),
		"mark_conceptual":     string(marks.Conceptual),
		"mark_overall":        string(marks.Overall),
		"mark_reasoning_line": reasoningLine,
		"total_pairs":         strconv.Itoa(summary.TotalPairs),
		"confused_count":      strconv.Itoa(summary.ConfusedCount),
		"confused_percentage": strconv.FormatFloat(summary.ConfusedPercentage, 'f', 1, 64),
		"direct_count":        strconv.Itoa(summary.DirectCount),
		"indirect_count":      strconv.Itoa(summary.IndirectCount),
		"average_similarity":  strconv.FormatFloat(summary.AverageSimilarity, 'f', 2, 64),
		"likelihoods_json":    string(payload),
	})
	if err != nil {
		return trademark.OppositionOutcome{}, summary, err
	}

	var out outcomeOutput
	if err := p.reasoner.RequestStructured(ctx, ai.Request{
		Prompt:   prompt,
		Schema:   outcomeSchema,
		Sampling: ai.DefaultSampling(),
		Model:    model,
	}, &out); err != nil {
		return trademark.OppositionOutcome{}, summary, err
	}

	outcome := out.parsed
	if outcome.Reasoning == "" {
		outcome.Reasoning = assessment.MissingReasoningPlaceholder
	}
	logrus.WithFields(logrus.Fields{
		"request_id": util.RequestID(ctx),
		"pairs":      summary.TotalPairs,
		"confused":   summary.ConfusedCount,
		"result":     outcome.Result,
		"confidence": outcome.Confidence,
	}).Info("case prediction complete")
	return outcome, summary, nil
}
