package scoring

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"trademark-opposition/backend/internal/match"
)

//go:embed lexicon.json
var defaultLexicon []byte

const (
	minSegment = 2
	// maxConsonantRun is the longest consonant cluster a readable token may carry.
	maxConsonantRun = 4
)

// CoinedDetector decides whether a wordmark is an invented word with no dictionary
// meaning. Coined marks skip the reasoning service and score 0 on the conceptual axis.
//
// The lexicon cannot hold every English word, so a token it misses only counts as
// invented when it also cannot be read aloud. Readable unknown words go to the
// reasoning service, which can still score them 0.
type CoinedDetector struct {
	words map[string]struct{}
}

// NewCoinedDetector builds a detector from the embedded lexicon plus an optional JSON
// word list (an array of strings) at extraPath.
func NewCoinedDetector(extraPath string) (*CoinedDetector, error) {
	words, err := parseLexicon(defaultLexicon)
	if err != nil {
		return nil, fmt.Errorf("embedded lexicon: %w", err)
	}
	if extraPath != "" {
		data, err := os.ReadFile(filepath.Clean(extraPath))
		if err != nil {
			return nil, fmt.Errorf("read lexicon: %w", err)
		}
		extra, err := parseLexicon(data)
		if err != nil {
			return nil, fmt.Errorf("unmarshal lexicon %s: %w", extraPath, err)
		}
		for w := range extra {
			words[w] = struct{}{}
		}
	}
	return &CoinedDetector{words: words}, nil
}

// MustCoinedDetector returns a detector over the embedded lexicon only.
func MustCoinedDetector() *CoinedDetector {
	d, err := NewCoinedDetector("")
	if err != nil {
		panic(err)
	}
	return d
}

func parseLexicon(data []byte) (map[string]struct{}, error) {
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		word := match.Profile(entry).Letters
		if len(word) >= minSegment {
			set[word] = struct{}{}
		}
	}
	return set, nil
}

// Size reports how many words the detector knows.
func (d *CoinedDetector) Size() int {
	if d == nil {
		return 0
	}
	return len(d.words)
}

// IsCoined reports whether no token of the wordmark carries dictionary meaning. A token
// is meaningful when it is a known word, a concatenation of known words
// (TECHFLOW = tech + flow) or a pronounceable letter sequence. Empty marks are
// treated as coined.
func (d *CoinedDetector) IsCoined(wordmark string) bool {
	for _, token := range match.Profile(wordmark).Tokens {
		if d.segmentable(token) || pronounceable(token) {
			return false
		}
	}
	return true
}

// pronounceable rejects letter strings no English reader could voice: no vowels, a
// q without its u, a letter tripled, or a consonant cluster longer than
// maxConsonantRun. Y counts as a vowel after the first letter. Tokens without
// letters are not pronounceable.
func pronounceable(token string) bool {
	letters := match.Profile(token).Letters
	if letters == "" {
		return false
	}
	vowels, run := 0, 0
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		if i >= 2 && ch == letters[i-1] && ch == letters[i-2] {
			return false
		}
		if ch == 'q' && i+1 < len(letters) && letters[i+1] != 'u' {
			return false
		}
		if isVowel(ch) || (ch == 'y' && i > 0) {
			vowels++
			run = 0
			continue
		}
		run++
		if run > maxConsonantRun {
			return false
		}
	}
	return vowels > 0
}

func isVowel(ch byte) bool {
	switch ch {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// segmentable runs a word-break check of token against the lexicon.
func (d *CoinedDetector) segmentable(token string) bool {
	if d == nil || len(d.words) == 0 {
		return false
	}
	if _, ok := d.words[token]; ok {
		return true
	}
	n := len(token)
	reach := make([]bool, n+1)
	reach[0] = true
	for end := minSegment; end <= n; end++ {
		for start := 0; start <= end-minSegment; start++ {
			if !reach[start] {
				continue
			}
			if _, ok := d.words[token[start:end]]; ok {
				reach[end] = true
				break
			}
		}
	}
	return reach[n]
}
