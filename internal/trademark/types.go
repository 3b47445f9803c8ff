package trademark

import (
	"fmt"
	"math"
	"strings"

	"trademark-opposition/backend/internal/apperr"
)

// MinNiceClass and MaxNiceClass bound the Nice classification.
const (
	MinNiceClass = 1
	MaxNiceClass = 45
)

// Mark is one side of an opposition: the wordmark plus its register status.
type Mark struct {
	Wordmark           string `json:"wordmark"`
	IsRegistered       bool   `json:"is_registered"`
	RegistrationNumber string `json:"registration_number,omitempty"`
}

// Status renders the register status the way prompts present it.
func (m Mark) Status() string {
	if m.IsRegistered {
		return "Registered"
	}
	return "Application only"
}

// GoodService is a single goods/services term with its Nice class.
type GoodService struct {
	Term      string `json:"term"`
	NiceClass int    `json:"nice_class"`
}

// Validate rejects blank terms and classes outside 1-45.
func (g GoodService) Validate() error {
	if strings.TrimSpace(g.Term) == "" {
		return apperr.Validationf("goods/services term is required")
	}
	if g.NiceClass < MinNiceClass || g.NiceClass > MaxNiceClass {
		return apperr.Validationf("nice class %d outside %d-%d", g.NiceClass, MinNiceClass, MaxNiceClass)
	}
	return nil
}

func (g GoodService) String() string {
	return fmt.Sprintf("%s (class %d)", strings.TrimSpace(g.Term), g.NiceClass)
}

// ValidateScore checks that a caller-supplied similarity score sits in [0,1].
func ValidateScore(name string, value float64) error {
	if math.IsNaN(value) || value < 0 || value > 1 {
		return apperr.Validationf("%s must be between 0 and 1, got %v", name, value)
	}
	return nil
}

// MarkSimilarity is the four-axis verdict for one mark pair.
type MarkSimilarity struct {
	Visual     SimilarityLevel `json:"visual"`
	Aural      SimilarityLevel `json:"aural"`
	Conceptual SimilarityLevel `json:"conceptual"`
	Overall    SimilarityLevel `json:"overall"`
	Reasoning  string          `json:"reasoning,omitempty"`
}

// Validate ensures every axis holds a known level.
func (m MarkSimilarity) Validate() error {
	axes := []struct {
		name  string
		level SimilarityLevel
	}{
		{"visual", m.Visual},
		{"aural", m.Aural},
		{"conceptual", m.Conceptual},
		{"overall", m.Overall},
	}
	for _, axis := range axes {
		if !axis.level.Valid() {
			return apperr.Validationf("mark similarity %s level %q is not recognised", axis.name, axis.level)
		}
	}
	return nil
}

// ConfusionType distinguishes direct from indirect confusion.
type ConfusionType string

const (
	ConfusionDirect   ConfusionType = "direct"
	ConfusionIndirect ConfusionType = "indirect"
)

// Valid reports whether c is one of the known confusion types.
func (c ConfusionType) Valid() bool {
	return c == ConfusionDirect || c == ConfusionIndirect
}

// GoodsServicesLikelihood is the verdict for one applicant/opponent goods pair.
// ConfusionType is set iff LikelihoodOfConfusion is true.
type GoodsServicesLikelihood struct {
	AreCompetitive        bool           `json:"are_competitive"`
	AreComplementary      bool           `json:"are_complementary"`
	SimilarityScore       float64        `json:"similarity_score"`
	LikelihoodOfConfusion bool           `json:"likelihood_of_confusion"`
	ConfusionType         *ConfusionType `json:"confusion_type"`
}

// Normalized returns a copy with the confusion type cleared when no confusion is found.
func (g GoodsServicesLikelihood) Normalized() GoodsServicesLikelihood {
	out := g
	if !out.LikelihoodOfConfusion {
		out.ConfusionType = nil
		return out
	}
	if out.ConfusionType != nil {
		ct := *out.ConfusionType
		out.ConfusionType = &ct
	}
	return out
}

// Validate checks the score range and the confusion-type invariant.
func (g GoodsServicesLikelihood) Validate() error {
	if err := ValidateScore("similarity_score", g.SimilarityScore); err != nil {
		return err
	}
	if g.LikelihoodOfConfusion {
		if g.ConfusionType == nil {
			return apperr.Validationf("confusion_type required when likelihood_of_confusion is true")
		}
		if !g.ConfusionType.Valid() {
			return apperr.Validationf("confusion_type %q is not recognised", *g.ConfusionType)
		}
		return nil
	}
	if g.ConfusionType != nil {
		return apperr.Validationf("confusion_type must be empty when likelihood_of_confusion is false")
	}
	return nil
}

// Confusion returns a pointer to ct, for building likelihood literals.
func Confusion(ct ConfusionType) *ConfusionType {
	return &ct
}

// OutcomeResult is the three-way opposition result category.
type OutcomeResult string

const (
	OutcomeLikelySucceed  OutcomeResult = "Opposition likely to succeed"
	OutcomePartialSucceed OutcomeResult = "Opposition may partially succeed"
	OutcomeLikelyFail     OutcomeResult = "Opposition likely to fail"
)

// Valid reports whether r is one of the three categories.
func (r OutcomeResult) Valid() bool {
	switch r {
	case OutcomeLikelySucceed, OutcomePartialSucceed, OutcomeLikelyFail:
		return true
	}
	return false
}

// OppositionOutcome is the final case judgement.
type OppositionOutcome struct {
	Result     OutcomeResult `json:"result"`
	Confidence float64       `json:"confidence"`
	Reasoning  string        `json:"reasoning"`
}

// Validate checks the category, confidence range and reasoning presence.
func (o OppositionOutcome) Validate() error {
	if !o.Result.Valid() {
		return apperr.Validationf("opposition result %q is not recognised", o.Result)
	}
	if math.IsNaN(o.Confidence) || o.Confidence < 0 || o.Confidence > 1 {
		return apperr.Validationf("confidence must be between 0 and 1, got %v", o.Confidence)
	}
	if strings.TrimSpace(o.Reasoning) == "" {
		return apperr.Validationf("reasoning is required")
	}
	return nil
}

// CasePrediction aggregates the mark verdict, the per-pair likelihoods and the outcome.
type CasePrediction struct {
	MarkComparison           MarkSimilarity            `json:"mark_comparison"`
	GoodsServicesLikelihoods []GoodsServicesLikelihood `json:"goods_services_likelihoods"`
	OppositionOutcome        OppositionOutcome         `json:"opposition_outcome"`
}
