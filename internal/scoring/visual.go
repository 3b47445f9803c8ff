package scoring

import (
	"github.com/antzucaro/matchr"

	"trademark-opposition/backend/internal/match"
)

// Visual scores how alike two wordmarks look: the normalized Levenshtein similarity of
// the trimmed, lower-cased marks. Two empty marks are identical; one empty mark scores 0.
func Visual(a, b string) float64 {
	return editRatio(match.Normalize(a), match.Normalize(b))
}

// editRatio returns 1 - distance/maxLen over runes, clamped to [0,1].
func editRatio(a, b string) float64 {
	aLen := len([]rune(a))
	bLen := len([]rune(b))
	if aLen == 0 && bLen == 0 {
		return 1
	}
	if aLen == 0 || bLen == 0 {
		return 0
	}
	maxLen := aLen
	if bLen > maxLen {
		maxLen = bLen
	}
	score := 1 - float64(matchr.Levenshtein(a, b))/float64(maxLen)
	return clampUnit(score)
}

func clampUnit(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
