package assessment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trademark-opposition/backend/internal/ai"
	"trademark-opposition/backend/internal/apperr"
	"trademark-opposition/backend/internal/prompts"
	"trademark-opposition/backend/internal/scoring"
	"trademark-opposition/backend/internal/trademark"
)

func newMarkAssessor(t *testing.T, gen ai.Generator) *MarkAssessor {
	t.Helper()
	reasoner := newReasoner(t, gen)
	registry := prompts.MustDefaults()
	conceptual := NewConceptualResolver(reasoner, scoring.MustCoinedDetector(), registry, false)
	return NewMarkAssessor(reasoner, registry, conceptual)
}

func TestMarkAssess(t *testing.T) {
	gen := newSchemaGenerator().reply(markSchema.Name,
		`{"visual": "Moderate", "aural": "moderate", "conceptual": "high", "overall": "moderate", "reasoning": "Shared TECH prefix."}`)
	assessor := newMarkAssessor(t, gen)

	applicant := trademark.Mark{Wordmark: "TECHFLOW"}
	opponent := trademark.Mark{Wordmark: "TECHSTREAM", IsRegistered: true, RegistrationNumber: "UK00003123456"}
	visual := scoring.Visual(applicant.Wordmark, opponent.Wordmark)
	aural := scoring.Aural(applicant.Wordmark, opponent.Wordmark)

	verdict, err := assessor.Assess(context.Background(), applicant, opponent, visual, aural, "")
	require.NoError(t, err)
	assert.Equal(t, trademark.LevelModerate, verdict.Visual)
	assert.Equal(t, trademark.LevelHigh, verdict.Conceptual)
	assert.Contains(t, []trademark.SimilarityLevel{trademark.LevelModerate, trademark.LevelHigh}, verdict.Overall)
	assert.Equal(t, "Shared TECH prefix.", verdict.Reasoning)

	prompt := gen.requests[0].Prompt
	assert.Contains(t, prompt, "`TECHFLOW`")
	assert.Contains(t, prompt, "Application only")
	assert.Contains(t, prompt, "UK00003123456")
	assert.Contains(t, prompt, formatScore(visual))
}

func TestMarkAssessReasoningPlaceholder(t *testing.T) {
	for _, reply := range []string{
		`{"visual": "identical", "aural": "identical", "conceptual": "identical", "overall": "identical"}`,
		`{"visual": "identical", "aural": "identical", "conceptual": "identical", "overall": "identical", "reasoning": "  "}`,
	} {
		gen := newSchemaGenerator().reply(markSchema.Name, reply)
		verdict, err := newMarkAssessor(t, gen).Assess(context.Background(),
			trademark.Mark{Wordmark: "IDENTICAL"}, trademark.Mark{Wordmark: "IDENTICAL"}, 1, 1, "")
		require.NoError(t, err)
		assert.Equal(t, MissingReasoningPlaceholder, verdict.Reasoning)
	}
}

func TestMarkAssessValidation(t *testing.T) {
	gen := newSchemaGenerator()
	assessor := newMarkAssessor(t, gen)
	a, b := trademark.Mark{Wordmark: "A"}, trademark.Mark{Wordmark: "B"}

	_, err := assessor.Assess(context.Background(), a, b, 1.2, 0.5, "")
	assert.True(t, apperr.IsValidation(err))
	_, err = assessor.Assess(context.Background(), a, b, 0.5, -0.1, "")
	assert.True(t, apperr.IsValidation(err))
	_, err = assessor.Assess(context.Background(), trademark.Mark{Wordmark: " "}, b, 0.5, 0.5, "")
	assert.True(t, apperr.IsValidation(err))
	_, err = assessor.Assess(context.Background(), a, b, 0.5, 0.5, "not-a-model")
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, gen.calls())
}

func TestMarkAssessPropagatesFailures(t *testing.T) {
	gen := newSchemaGenerator().fail(markSchema.Name, &ai.StatusError{StatusCode: 403, Body: "quota"})
	_, err := newMarkAssessor(t, gen).Assess(context.Background(),
		trademark.Mark{Wordmark: "A"}, trademark.Mark{Wordmark: "B"}, 0.5, 0.5, "")
	assert.True(t, apperr.IsService(err))

	gen = newSchemaGenerator().reply(markSchema.Name,
		`{"visual": "similar-ish", "aural": "low", "conceptual": "low", "overall": "low"}`)
	_, err = newMarkAssessor(t, gen).Assess(context.Background(),
		trademark.Mark{Wordmark: "A"}, trademark.Mark{Wordmark: "B"}, 0.5, 0.5, "")
	assert.True(t, apperr.IsInvalidOutput(err))
}

func TestMarkOverallDeterministic(t *testing.T) {
	gen := newSchemaGenerator().reply(conceptualSchema.Name, `{"score": 1.0}`)
	verdict, scores, err := newMarkAssessor(t, gen).Overall(context.Background(), "IDENTICAL", "IDENTICAL", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, scores.Visual)
	assert.Equal(t, 1.0, scores.Aural)
	assert.Contains(t, []trademark.SimilarityLevel{trademark.LevelHigh, trademark.LevelIdentical}, verdict.Overall)
	require.NoError(t, verdict.Validate())

	gen = newSchemaGenerator().reply(conceptualSchema.Name, `{"score": 0.0}`)
	verdict, scores, err = newMarkAssessor(t, gen).Overall(context.Background(), "ZOOPLANKTON", "BUTTERFLY", "")
	require.NoError(t, err)
	assert.Less(t, scores.Visual, 0.3)
	assert.Less(t, scores.Aural, 0.5)
	assert.Contains(t, []trademark.SimilarityLevel{trademark.LevelDissimilar, trademark.LevelLow}, verdict.Overall)
}

func TestMarkOverallCoinedPair(t *testing.T) {
	gen := newSchemaGenerator()
	verdict, scores, err := newMarkAssessor(t, gen).Overall(context.Background(), "XQZPVY", "XQZPVN", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores.Conceptual)
	assert.Equal(t, trademark.LevelDissimilar, verdict.Conceptual)
	assert.Zero(t, gen.calls())
}

func TestMarkOverallRejectsUnsupportedModel(t *testing.T) {
	gen := newSchemaGenerator()
	_, _, err := newMarkAssessor(t, gen).Overall(context.Background(), "JAGUAR", "PANTHER", "gpt-2")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, gen.calls())
}
