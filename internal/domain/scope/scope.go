// Package scope defines the closed set of document-source filters.
package scope

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/document"
)

// Scope is a named predicate over document IDs restricting a search to a sub-corpus.
type Scope string

const (
	GuideMerged     Scope = "guide_merged"
	GuideGeneral    Scope = "guide_general"
	GuideWithTerms  Scope = "guide_with_terms"
	Terms           Scope = "terms"
	HyundaiApplePay Scope = "hyundai_applepay"
	CardProducts    Scope = "card_products"
)

// ID conventions used by the guide corpus.
const (
	MergedSuffix = "_merged"
	TermsPrefix  = "sinhan_terms_"
	WalletPrefix = "hyundai_applepay_"
)

var all = []Scope{GuideMerged, GuideGeneral, GuideWithTerms, Terms, HyundaiApplePay, CardProducts}

// All returns every member of the set in a stable order.
func All() []Scope {
	out := make([]Scope, len(all))
	copy(out, all)
	return out
}

// Parse validates a scope name.
func Parse(s string) (Scope, error) {
	sc := Scope(s)
	if !sc.Valid() {
		return "", fmt.Errorf("unknown scope filter %q", s)
	}
	return sc, nil
}

// Valid reports membership in the fixed set.
func (s Scope) Valid() bool {
	for _, m := range all {
		if s == m {
			return true
		}
	}
	return false
}

// MustValid panics for scopes outside the fixed set.
func (s Scope) MustValid() Scope {
	if !s.Valid() {
		panic(fmt.Sprintf("scope: unknown filter %q", string(s)))
	}
	return s
}

// Table returns the corpus the scope searches.
func (s Scope) Table() document.Table {
	if s.MustValid() == CardProducts {
		return document.CardProducts
	}
	return document.ServiceGuides
}

// IsCard reports whether the scope searches the card catalog.
func (s Scope) IsCard() bool {
	return s.MustValid() == CardProducts
}

// Matches reports whether a document ID of the scope's table belongs to the scope.
func (s Scope) Matches(id string) bool {
	switch s.MustValid() {
	case GuideMerged:
		return strings.HasSuffix(id, MergedSuffix)
	case GuideGeneral:
		return !strings.HasSuffix(id, MergedSuffix) &&
			!strings.HasPrefix(id, TermsPrefix) &&
			!strings.HasPrefix(id, WalletPrefix)
	case GuideWithTerms:
		return GuideMerged.Matches(id) || GuideGeneral.Matches(id) || Terms.Matches(id)
	case Terms:
		return strings.HasPrefix(id, TermsPrefix)
	case HyundaiApplePay:
		return strings.HasPrefix(id, WalletPrefix)
	default:
		return true
	}
}

// ScopesFor lists every scope a document belongs to. Used to tag documents at index time.
func ScopesFor(table document.Table, id string) []Scope {
	if table == document.CardProducts {
		return []Scope{CardProducts}
	}
	var out []Scope
	for _, s := range all {
		if s == CardProducts {
			continue
		}
		if s.Matches(id) {
			out = append(out, s)
		}
	}
	return out
}

// Join renders scopes as a comma-separated tag list.
func Join(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
