package scoring

import (
	"strings"

	"github.com/antzucaro/matchr"

	"trademark-opposition/backend/internal/match"
)

// Aural scores how alike two wordmarks sound. Each mark is Double Metaphone encoded and
// the best edit ratio across primary/alternate code combinations wins, so marks sharing
// any plausible pronunciation are not penalised.
func Aural(a, b string) float64 {
	left := match.Profile(a)
	right := match.Profile(b)
	if left.Empty() && right.Empty() {
		return 1
	}
	if left.Empty() || right.Empty() {
		return 0
	}
	if left.Letters == "" || right.Letters == "" {
		// nothing pronounceable to encode (digits, symbols): fall back to spelling
		return editRatio(left.Normalized, right.Normalized)
	}

	primaryA, alternateA := matchr.DoubleMetaphone(strings.ToUpper(left.Letters))
	primaryB, alternateB := matchr.DoubleMetaphone(strings.ToUpper(right.Letters))

	best := editRatio(primaryA, primaryB)
	candidates := make([]float64, 0, 3)
	if alternateA != "" && alternateB != "" {
		candidates = append(candidates, editRatio(alternateA, alternateB))
	}
	if primaryA != "" && alternateB != "" {
		candidates = append(candidates, editRatio(primaryA, alternateB))
	}
	if alternateA != "" && primaryB != "" {
		candidates = append(candidates, editRatio(alternateA, primaryB))
	}
	for _, c := range candidates {
		if c > best {
			best = c
		}
	}
	return best
}

// PhoneticCodes exposes the Double Metaphone encoding used by Aural.
func PhoneticCodes(wordmark string) (primary, alternate string) {
	profile := match.Profile(wordmark)
	if profile.Letters == "" {
		return "", ""
	}
	return matchr.DoubleMetaphone(strings.ToUpper(profile.Letters))
}
