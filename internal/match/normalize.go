package match

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	separatorRun = regexp.MustCompile(`[\s\-_.+/&]+`)
	nonLetter    = regexp.MustCompile(`[^a-z]`)
)

// WordmarkProfile captures the normalization output for a wordmark.
type WordmarkProfile struct {
	Original string
	// Normalized is trimmed and lower-cased; this is what similarity scorers compare.
	Normalized string
	// Letters keeps only a-z, used by lexical heuristics.
	Letters string
	Tokens  []string
}

// Normalize trims and lower-cases a wordmark. Comparisons are case-insensitive and
// ignore leading/trailing whitespace, nothing more.
func Normalize(wordmark string) string {
	return strings.ToLower(strings.TrimSpace(wordmark))
}

// Profile normalizes and tokenizes the supplied wordmark.
func Profile(wordmark string) WordmarkProfile {
	normalized := Normalize(wordmark)
	return WordmarkProfile{
		Original:   wordmark,
		Normalized: normalized,
		Letters:    nonLetter.ReplaceAllString(foldAccents(normalized), ""),
		Tokens:     splitTokens(normalized),
	}
}

// Empty reports whether the wordmark has no content after normalization.
func (p WordmarkProfile) Empty() bool {
	return p.Normalized == ""
}

func splitTokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	parts := separatorRun.Split(normalized, -1)
	var out []string
	for _, part := range parts {
		part = nonLetter.ReplaceAllString(foldAccents(part), "")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var accentFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'ö': 'o', 'õ': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'ç': 'c', 'ñ': 'n', 'ý': 'y', 'ÿ': 'y',
}

func foldAccents(in string) string {
	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		if folded, ok := accentFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
