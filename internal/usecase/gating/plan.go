package gating

import (
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// PolicyRule names the source-policy branch that produced a plan.
type PolicyRule string

const (
	RuleWallet   PolicyRule = "wallet"
	RuleTerms    PolicyRule = "terms"
	RuleLoss     PolicyRule = "loss"
	RuleError    PolicyRule = "error"
	RuleCardInfo PolicyRule = "card_info"
	RuleDefault  PolicyRule = "default"
)

var (
	walletGuides   = []scope.Scope{scope.HyundaiApplePay, scope.GuideGeneral}
	walletExtras   = []scope.Scope{scope.Terms, scope.CardProducts}
	termsGuides    = []scope.Scope{scope.GuideWithTerms}
	defaultGuides  = []scope.Scope{scope.GuideMerged, scope.GuideGeneral}
	cardInfoGuides = []scope.Scope{scope.CardProducts, scope.GuideMerged, scope.GuideGeneral}
	termsOnly      = []scope.Scope{scope.Terms}
)

// Plan is the ordered list of sources to query.
type Plan struct {
	Rule   PolicyRule
	Guides []scope.Scope
	Extras []scope.Scope
	Narrow Narrow
}

// Sources returns guide sources followed by term/card sources, deduplicated.
// Every member is checked against the fixed scope set.
func (p Plan) Sources() []scope.Scope {
	seen := make(map[scope.Scope]bool, len(p.Guides)+len(p.Extras))
	out := make([]scope.Scope, 0, len(p.Guides)+len(p.Extras))
	for _, list := range [][]scope.Scope{p.Guides, p.Extras} {
		for _, s := range list {
			s.MustValid()
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Diverse reports whether the diversity rule applies: both source types are queried and the
// user did not narrow to one of them.
func (p Plan) Diverse() bool {
	if p.Narrow != NarrowNone {
		return false
	}
	var cards, guides bool
	for _, s := range p.Sources() {
		if s.IsCard() {
			cards = true
		} else {
			guides = true
		}
	}
	return cards && guides
}

// Key is a stable scope-policy fingerprint for cache keys.
func (p Plan) Key() string {
	var b strings.Builder
	b.WriteString(string(p.Rule))
	if p.Narrow != NarrowNone {
		b.WriteString("/" + string(p.Narrow))
	}
	b.WriteString(":")
	b.WriteString(scope.Join(p.Sources()))
	return b.String()
}

func (p Plan) narrowed() Plan {
	switch p.Narrow {
	case NarrowCards:
		p.Guides = []scope.Scope{scope.CardProducts}
		p.Extras = nil
	case NarrowGuides:
		p.Guides = withoutCards(p.Guides)
		p.Extras = withoutCards(p.Extras)
		if len(p.Guides)+len(p.Extras) == 0 {
			p.Guides = defaultGuides
		}
	}
	return p
}

func withoutCards(list []scope.Scope) []scope.Scope {
	var out []scope.Scope
	for _, s := range list {
		if !s.IsCard() {
			out = append(out, s)
		}
	}
	return out
}
