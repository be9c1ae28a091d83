package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Key identifies an exact retrieval request.
type Key struct {
	Route           string
	ScopePolicy     string
	NormalizedQuery string
	Filters         []string
	TopK            int
}

// Fingerprint is a stable hash of the canonical key; filters are sorted first.
func (k Key) Fingerprint() string {
	filters := slices.Clone(k.Filters)
	slices.Sort(filters)

	h := sha256.New()
	for _, part := range []string{
		k.Route, k.ScopePolicy, k.NormalizedQuery, strings.Join(filters, ","), strconv.Itoa(k.TopK),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeQuery lower-cases, strips punctuation and collapses whitespace.
func NormalizeQuery(q string) string {
	q = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) && r != '-' {
			return ' '
		}
		return unicode.ToLower(r)
	}, q)
	return strings.Join(strings.Fields(q), " ")
}
