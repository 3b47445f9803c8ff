package scoring

import (
	"fmt"

	"trademark-opposition/backend/internal/trademark"
)

// Weights applied when the deterministic path blends the three axes.
const (
	VisualWeight     = 0.40
	AuralWeight      = 0.35
	ConceptualWeight = 0.25
)

// levelThresholds is the canonical score-to-level table. A score must strictly exceed
// the bound to earn the level; anything at or below 0.3 is dissimilar.
var levelThresholds = []struct {
	bound float64
	level trademark.SimilarityLevel
}{
	{0.9, trademark.LevelIdentical},
	{0.7, trademark.LevelHigh},
	{0.5, trademark.LevelModerate},
	{0.3, trademark.LevelLow},
}

// LevelForScore maps a [0,1] score onto the similarity scale.
func LevelForScore(score float64) trademark.SimilarityLevel {
	for _, t := range levelThresholds {
		if score > t.bound {
			return t.level
		}
	}
	return trademark.LevelDissimilar
}

// Scores holds the three raw axis scores for one mark pair.
type Scores struct {
	Visual     float64 `json:"visual"`
	Aural      float64 `json:"aural"`
	Conceptual float64 `json:"conceptual"`
}

// Weighted blends the axes with the fixed 0.40/0.35/0.25 weights.
func (s Scores) Weighted() float64 {
	return clampUnit(VisualWeight*s.Visual + AuralWeight*s.Aural + ConceptualWeight*s.Conceptual)
}

// CombineScores is the deterministic mark comparison: each axis and the weighted
// overall score go through the same level table.
func CombineScores(s Scores) trademark.MarkSimilarity {
	return trademark.MarkSimilarity{
		Visual:     LevelForScore(s.Visual),
		Aural:      LevelForScore(s.Aural),
		Conceptual: LevelForScore(s.Conceptual),
		Overall:    LevelForScore(s.Weighted()),
		Reasoning: fmt.Sprintf("Calculated from visual (%.2f), aural (%.2f), and conceptual (%.2f) similarities",
			s.Visual, s.Aural, s.Conceptual),
	}
}

// ConceptualCategory is the coarser banding used when a conceptual score is handed to
// the reasoning service as context. It is not the canonical level table.
func ConceptualCategory(score float64) trademark.SimilarityLevel {
	switch {
	case score >= 0.9:
		return trademark.LevelIdentical
	case score >= 0.7:
		return trademark.LevelHigh
	case score >= 0.4:
		return trademark.LevelModerate
	case score >= 0.1:
		return trademark.LevelLow
	default:
		return trademark.LevelDissimilar
	}
}
