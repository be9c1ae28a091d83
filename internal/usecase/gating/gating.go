// Package gating decides whether an utterance is searched at all, in which retrieval mode,
// and over which document sources.
package gating

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
)

// Clarifier is returned when the utterance carries nothing searchable.
const Clarifier = "무엇을 도와드릴까요? (예: 분실/재발급/연회비/혜택)"

// DefaultHybridMinScore is the domain score from which vector search is added.
const DefaultHybridMinScore = 5

const (
	shortQueryRunes = 3
	cardWeight      = 2
	actionWeight    = 1
)

// Decision is the gating outcome for one utterance.
type Decision struct {
	NoSearch    bool
	Clarifier   string
	Code        domain.ErrorCode
	DomainScore int
	Mode        retrieval.Mode
}

// Gate is safe for concurrent use.
type Gate struct {
	vocab     *vocab.Vocabulary
	hybridMin int
}

// New creates a gate. hybridMin <= 0 selects DefaultHybridMinScore.
func New(v *vocab.Vocabulary, hybridMin int) *Gate {
	if hybridMin <= 0 {
		hybridMin = DefaultHybridMinScore
	}
	return &Gate{vocab: v, hybridMin: hybridMin}
}

// Decide computes the domain score and the search decision.
func (g *Gate) Decide(query string, kw keyword.Keywords) Decision {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Decision{NoSearch: true, Clarifier: Clarifier, Code: domain.CodeInputEmpty}
	}

	score := g.DomainScore(trimmed, kw)
	d := Decision{DomainScore: score}
	if score == 0 && (utf8.RuneCountInString(trimmed) <= shortQueryRunes || g.vocab.IsAcknowledgement(trimmed)) {
		d.NoSearch = true
		d.Clarifier = Clarifier
		return d
	}

	d.Mode = retrieval.KeywordOnly
	if score >= g.hybridMin {
		d.Mode = retrieval.Hybrid
	}
	return d
}

// DomainScore counts distinct domain-keyword hits, counts terms triggers once more,
// and adds 2 per matched card name and 1 per action.
func (g *Gate) DomainScore(query string, kw keyword.Keywords) int {
	text := strings.ToLower(kw.CorrectedText)
	if text == "" {
		text = strings.ToLower(query)
	}
	score := countHits(text, g.vocab.DomainKeywords)
	score += countHits(text, g.vocab.TermsTriggers)
	score += cardWeight * len(kw.CardNames)
	score += actionWeight * len(kw.Actions)
	return score
}

// Narrow is an explicit user restriction to one source type.
type Narrow string

const (
	NarrowNone   Narrow = ""
	NarrowCards  Narrow = "cards"
	NarrowGuides Narrow = "guides"
)

// Narrowing detects "카드만"-style restrictions in the query.
func (g *Gate) Narrowing(query string) Narrow {
	compact := strings.ReplaceAll(strings.ToLower(query), " ", "")
	for _, t := range g.vocab.NarrowCards {
		if strings.Contains(compact, t) {
			return NarrowCards
		}
	}
	for _, t := range g.vocab.NarrowGuides {
		if strings.Contains(compact, t) {
			return NarrowGuides
		}
	}
	return NarrowNone
}

// IsWallet reports an external mobile-wallet intent.
func (g *Gate) IsWallet(query string, kw keyword.Keywords) bool {
	text := strings.ToLower(query + " " + kw.CorrectedText)
	for _, w := range g.vocab.WalletKeywords {
		if strings.Contains(text, w) {
			return true
		}
	}
	for _, p := range kw.Payments {
		for _, w := range g.vocab.WalletKeywords {
			if strings.EqualFold(p, w) {
				return true
			}
		}
	}
	return false
}

// HasTermsTrigger reports rate/fee/revolving/cancellation/limit vocabulary in the query.
func (g *Gate) HasTermsTrigger(query string, kw keyword.Keywords) bool {
	text := strings.ToLower(query + " " + kw.CorrectedText)
	return countHits(text, g.vocab.TermsTriggers) > 0
}

// Policy selects the ordered document sources for a routed utterance.
func (g *Gate) Policy(query string, kw keyword.Keywords, r domroute.Route) Plan {
	p := g.basePolicy(query, kw, r)
	p.Narrow = g.Narrowing(query)
	return p.narrowed()
}

func (g *Gate) basePolicy(query string, kw keyword.Keywords, r domroute.Route) Plan {
	switch {
	case g.IsWallet(query, kw):
		return Plan{Rule: RuleWallet, Guides: walletGuides, Extras: walletExtras}
	case r.Name == domroute.CardUsage && g.HasTermsTrigger(query, kw):
		return Plan{Rule: RuleTerms, Guides: termsGuides}
	case kw.HasAction("분실") || kw.HasAction("분실신고") || kw.HasAction("도난"):
		return Plan{Rule: RuleLoss, Guides: defaultGuides, Extras: termsOnly}
	case kw.HasAction("오류") || kw.HasAction("등록"):
		return Plan{Rule: RuleError, Guides: defaultGuides, Extras: termsOnly}
	case r.Name == domroute.CardInfo:
		return Plan{Rule: RuleCardInfo, Guides: cardInfoGuides, Extras: termsOnly}
	default:
		return Plan{Rule: RuleDefault, Guides: defaultGuides, Extras: termsOnly}
	}
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, strings.ToLower(w)) {
			n++
		}
	}
	return n
}
