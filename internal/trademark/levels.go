package trademark

import (
	"strings"

	"trademark-opposition/backend/internal/apperr"
)

// SimilarityLevel is the ordered scale used on every similarity axis.
type SimilarityLevel string

const (
	LevelDissimilar SimilarityLevel = "dissimilar"
	LevelLow        SimilarityLevel = "low"
	LevelModerate   SimilarityLevel = "moderate"
	LevelHigh       SimilarityLevel = "high"
	LevelIdentical  SimilarityLevel = "identical"
)

var levelOrder = []SimilarityLevel{LevelDissimilar, LevelLow, LevelModerate, LevelHigh, LevelIdentical}

// Levels returns the scale from weakest to strongest.
func Levels() []SimilarityLevel {
	out := make([]SimilarityLevel, len(levelOrder))
	copy(out, levelOrder)
	return out
}

// ParseSimilarityLevel accepts any casing and surrounding whitespace.
func ParseSimilarityLevel(raw string) (SimilarityLevel, error) {
	level := SimilarityLevel(strings.ToLower(strings.TrimSpace(raw)))
	if !level.Valid() {
		return "", apperr.Validationf("unknown similarity level %q", raw)
	}
	return level, nil
}

// Valid reports whether l is on the scale.
func (l SimilarityLevel) Valid() bool {
	return l.Rank() >= 0
}

// Rank is the position of l on the scale, or -1 when unknown.
func (l SimilarityLevel) Rank() int {
	for i, candidate := range levelOrder {
		if candidate == l {
			return i
		}
	}
	return -1
}

// AtLeast reports whether l is as strong as other.
func (l SimilarityLevel) AtLeast(other SimilarityLevel) bool {
	return l.Rank() >= other.Rank()
}
