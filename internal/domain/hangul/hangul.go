// Package hangul implements jamo-level comparison of Korean strings.
package hangul

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Jamo decomposes s into conjoining jamo (NFD), dropping whitespace and punctuation and
// lower-casing Latin letters.
func Jamo(s string) []rune {
	decomposed := norm.NFD.String(strings.ToLower(s))
	out := make([]rune, 0, len(decomposed))
	for _, r := range decomposed {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Distance is the Levenshtein distance between two rune sequences.
func Distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Similarity returns 1 - distance/max(len) over the jamo of a and b, in [0, 1].
func Similarity(a, b string) float64 {
	ja, jb := Jamo(a), Jamo(b)
	longest := max(len(ja), len(jb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Distance(ja, jb))/float64(longest)
}
