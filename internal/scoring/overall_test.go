package scoring

import (
	"testing"

	"trademark-opposition/backend/internal/trademark"
)

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected trademark.SimilarityLevel
	}{
		{1.0, trademark.LevelIdentical},
		{0.91, trademark.LevelIdentical},
		{0.9, trademark.LevelHigh},
		{0.71, trademark.LevelHigh},
		{0.7, trademark.LevelModerate},
		{0.51, trademark.LevelModerate},
		{0.5, trademark.LevelLow},
		{0.31, trademark.LevelLow},
		{0.3, trademark.LevelDissimilar},
		{0.0, trademark.LevelDissimilar},
	}
	for _, tc := range tests {
		if got := LevelForScore(tc.score); got != tc.expected {
			t.Fatalf("score %.2f: expected %s got %s", tc.score, tc.expected, got)
		}
	}
}

func TestCombineScores(t *testing.T) {
	tests := []struct {
		name    string
		scores  Scores
		overall trademark.SimilarityLevel
	}{
		{"identical", Scores{Visual: 1, Aural: 1, Conceptual: 1}, trademark.LevelIdentical},
		{"dissimilar", Scores{Visual: 0.2, Aural: 0.1, Conceptual: 0}, trademark.LevelDissimilar},
		// 0.4*0.8 + 0.35*0.8 + 0.25*0.2 = 0.65
		{"weighted moderate", Scores{Visual: 0.8, Aural: 0.8, Conceptual: 0.2}, trademark.LevelModerate},
		// 0.4*0.9 + 0.35*0.6 + 0.25*0 = 0.57
		{"coined pair", Scores{Visual: 0.9, Aural: 0.6, Conceptual: 0}, trademark.LevelModerate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CombineScores(tc.scores)
			if result.Overall != tc.overall {
				t.Fatalf("expected overall %s got %s (weighted %.3f)", tc.overall, result.Overall, tc.scores.Weighted())
			}
			if result.Visual != LevelForScore(tc.scores.Visual) || result.Aural != LevelForScore(tc.scores.Aural) ||
				result.Conceptual != LevelForScore(tc.scores.Conceptual) {
				t.Fatalf("axis levels do not follow the level table: %+v", result)
			}
			if result.Reasoning == "" {
				t.Fatalf("expected reasoning to be populated")
			}
			if err := result.Validate(); err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := VisualWeight + AuralWeight + ConceptualWeight
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("weights sum to %.3f", sum)
	}
}

func TestConceptualCategory(t *testing.T) {
	tests := []struct {
		score    float64
		expected trademark.SimilarityLevel
	}{
		{0.95, trademark.LevelIdentical},
		{0.9, trademark.LevelIdentical},
		{0.7, trademark.LevelHigh},
		{0.5, trademark.LevelModerate},
		{0.4, trademark.LevelModerate},
		{0.1, trademark.LevelLow},
		{0.05, trademark.LevelDissimilar},
	}
	for _, tc := range tests {
		if got := ConceptualCategory(tc.score); got != tc.expected {
			t.Fatalf("score %.2f: expected %s got %s", tc.score, tc.expected, got)
		}
	}
}
