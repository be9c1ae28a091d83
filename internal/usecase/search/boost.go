package search

import (
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
)

// cardGuideWindow is how high a matching card product must rank before generic guides are
// penalized.
const cardGuideWindow = 3

// Signals are the query-side inputs to boosting.
type Signals struct {
	Route        domroute.Name
	CardNames    []string
	Actions      []string
	Payments     []string
	Nouns        []string
	IntentTokens []string
}

// applyBoosts adds the preset boosts and penalty to fused items and re-sorts them.
// Per-item boosts apply first; card_top_bonus and penalty_card_guide depend on the
// resulting order.
func applyBoosts(items []retrieval.Item, sig Signals, p Preset) {
	for i := range items {
		items[i].Score += itemBoost(&items[i], sig, p)
	}
	retrieval.Sort(items)

	if sig.Route == domroute.CardInfo {
		for i := range items {
			if items[i].IsCard() {
				items[i].Score += p.CardTopBonus
				break
			}
		}
	}

	if len(sig.CardNames) > 0 && cardRanksHigh(items, sig.CardNames) {
		for i := range items {
			if !items[i].IsCard() && !mentionsAny(items[i].Document, sig.CardNames) {
				items[i].Score -= p.PenaltyCardGuide
			}
		}
	}
	retrieval.Sort(items)
}

func itemBoost(it *retrieval.Item, sig Signals, p Preset) float64 {
	var boost float64
	title := strings.ToLower(it.Title)
	content := strings.ToLower(it.Content)

	if mentionsAny(it.Document, sig.CardNames) {
		boost += p.BoostCard
	}
	if containsAny(title, sig.IntentTokens) {
		boost += p.BoostIntent
	}
	if containsAny(title, sig.Payments) || containsAny(content, sig.Payments) {
		boost += p.BoostPayment
	}
	if cat := strings.ToLower(it.Metadata[document.MetaCategory]); cat != "" &&
		(containsAny(cat, sig.Actions) || containsAny(cat, sig.Nouns)) {
		boost += p.BoostCategory
	}
	if !containsAny(title, sig.Nouns) && containsAny(content, sig.Nouns) {
		boost += p.BoostWeak
	}
	if !it.IsCard() {
		covered := 0
		for _, t := range sig.IntentTokens {
			if strings.Contains(content, strings.ToLower(t)) {
				covered++
			}
		}
		boost += float64(covered) * p.BoostGuideCoverage
	}
	return boost
}

// cardRanksHigh reports whether a card product naming one of the matched cards sits in the
// top window.
func cardRanksHigh(items []retrieval.Item, cards []string) bool {
	for i := 0; i < len(items) && i < cardGuideWindow; i++ {
		if items[i].IsCard() && mentionsAny(items[i].Document, cards) {
			return true
		}
	}
	return false
}

// mentionsAny checks title and the card_name metadata.
func mentionsAny(d document.Document, names []string) bool {
	if len(names) == 0 {
		return false
	}
	title := strings.ToLower(d.Title)
	card := strings.ToLower(d.Metadata[document.MetaCardName])
	for _, n := range names {
		n = strings.ToLower(n)
		if strings.Contains(title, n) || (card != "" && strings.Contains(card, n)) {
			return true
		}
	}
	return false
}

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
