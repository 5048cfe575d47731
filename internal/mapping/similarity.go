package mapping

import (
	"strings"
	"unicode"
)

// minTokenLen drops short tokens ("T39", "XL" survive at 3+, articles and
// sizes like "de", "à" do not).
const minTokenLen = 3

// Normalize lowercases s, strips punctuation and returns its token set,
// keeping only tokens of at least three characters.
func Normalize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Similarity computes the Jaccard similarity of the token sets of a and b:
// |intersection| / |union|, in [0,1]. Empty token sets score 0. The measure
// is symmetric and 1.0 for strings identical after normalization.
func Similarity(a, b string) float64 {
	ta := Normalize(a)
	tb := Normalize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		set[tok] = struct{}{}
	}

	intersection := 0
	for _, tok := range tb {
		if _, ok := set[tok]; ok {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}
