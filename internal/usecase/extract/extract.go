// Package extract turns a raw utterance into structured keywords: corrected text, nouns,
// card names, actions, payment methods and an intent tag.
package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/hangul"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
)

// DefaultPhoneticThreshold is the minimum jamo similarity for a fuzzy card-name match.
const DefaultPhoneticThreshold = 0.85

// minPhoneticJamo skips candidates too short to compare reliably.
const minPhoneticJamo = 6

const cardSuffix = "카드"

// Extractor is deterministic and safe for concurrent use.
type Extractor struct {
	vocab     *vocab.Vocabulary
	seg       *Segmenter
	threshold float64
}

// New creates an extractor. threshold <= 0 selects DefaultPhoneticThreshold.
func New(v *vocab.Vocabulary, threshold float64) *Extractor {
	if threshold <= 0 {
		threshold = DefaultPhoneticThreshold
	}
	return &Extractor{vocab: v, seg: NewSegmenter(v), threshold: threshold}
}

// Correct applies the correction map in a single left-to-right pass, longest key first,
// and collapses adjacent duplicate tokens. Correct(Correct(x)) == Correct(x).
func (e *Extractor) Correct(text string) string {
	keys := e.vocab.CorrectionKeys()
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		replaced := false
		for _, k := range keys {
			if !strings.HasPrefix(text[i:], k) {
				continue
			}
			v := e.vocab.Corrections[k]
			if suffix, ok := strings.CutPrefix(v, k); ok && suffix != "" {
				rest := strings.TrimLeftFunc(text[i+len(k):], unicode.IsSpace)
				if strings.HasPrefix(rest, suffix) {
					b.WriteString(k)
					i += len(k)
					replaced = true
					break
				}
			}
			b.WriteString(v)
			i += len(k)
			replaced = true
			break
		}
		if replaced {
			continue
		}
		r, size := nextRune(text[i:])
		b.WriteRune(r)
		i += size
	}
	return collapseDuplicates(b.String())
}

// Extract never fails on user input. A broken internal invariant is recovered and reported
// as domain.ErrExtractionFailed alongside degraded keywords (query tokens as nouns).
func (e *Extractor) Extract(text string) (kw keyword.Keywords, err error) {
	if strings.TrimSpace(text) == "" {
		return keyword.Empty(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			kw = degraded(text)
			err = fmt.Errorf("%w: %v", domain.ErrExtractionFailed, r)
		}
	}()
	return e.extract(text), nil
}

func (e *Extractor) extract(text string) keyword.Keywords {
	corrected := e.Correct(strings.TrimSpace(text))
	lower := strings.ToLower(corrected)
	morphs := e.seg.Segment(corrected)

	cards := newSet()
	payments := newSet()
	for _, m := range morphs {
		switch m.Kind {
		case vocab.KindCard, vocab.KindAlias:
			cards.add(m.Canonical)
		case vocab.KindPayment:
			payments.add(m.Canonical)
		}
	}
	for _, c := range e.phoneticCards(morphs) {
		cards.add(c)
	}

	actions := newSet()
	for _, a := range e.vocab.Actions {
		if a.Match(lower) {
			actions.add(a.Name)
		}
	}
	for _, m := range morphs {
		if m.IsNoun() && isActionName(e.vocab, m.Lemma) {
			actions.add(m.Lemma)
		}
	}

	ctx := map[string]bool{}
	if cards.len() > 0 {
		ctx[vocab.CtxCard] = true
	}
	if actions.len() > 0 {
		ctx[vocab.CtxAction] = true
	}
	if payments.len() > 0 {
		ctx[vocab.CtxPayment] = true
	}
	for _, m := range morphs {
		ctx[m.Lemma] = true
	}

	var nouns []string
	seen := map[string]bool{}
	for _, m := range morphs {
		if !m.IsNoun() {
			continue
		}
		lemma := m.Lemma
		if m.Canonical != "" {
			lemma = m.Canonical
		}
		if seen[lemma] || e.vocab.DropNoun(lemma, ctx) {
			continue
		}
		seen[lemma] = true
		nouns = append(nouns, lemma)
	}

	return keyword.Keywords{
		CorrectedText: corrected,
		Nouns:         nouns,
		CardNames:     cards.sorted(),
		Actions:       actions.sorted(),
		Payments:      payments.sorted(),
		Intent:        e.intent(lower),
	}
}

// phoneticCards matches plain noun tokens, token+"카드" and adjacent noun bigrams against the
// canonical card list by jamo similarity. Dictionary hits and payment names are excluded.
func (e *Extractor) phoneticCards(morphs []Morpheme) []string {
	var tokens []string
	for _, m := range morphs {
		if m.POS != Noun || e.vocab.IsStopword(m.Lemma) {
			continue
		}
		tokens = append(tokens, m.Lemma)
	}

	var candidates []string
	for i, t := range tokens {
		candidates = append(candidates, t)
		if !strings.HasSuffix(t, cardSuffix) {
			candidates = append(candidates, t+cardSuffix)
		}
		if i+1 < len(tokens) {
			candidates = append(candidates, t+tokens[i+1])
		}
	}

	var out []string
	for _, c := range candidates {
		if len(hangul.Jamo(c)) < minPhoneticJamo || e.vocab.IsPayment(c) {
			continue
		}
		for _, card := range e.vocab.CardNames {
			if hangul.Similarity(c, card) >= e.threshold {
				out = append(out, card)
			}
		}
	}
	return out
}

func (e *Extractor) intent(lower string) keyword.Intent {
	joined := strings.ReplaceAll(lower, " ", "")
	for _, f := range e.vocab.Intents {
		for _, t := range f.Tokens {
			if strings.Contains(lower, t) || strings.Contains(joined, t) {
				return f.Intent
			}
		}
	}
	return keyword.IntentNone
}

func isActionName(v *vocab.Vocabulary, lemma string) bool {
	for _, a := range v.Actions {
		if a.Name == lemma {
			return true
		}
	}
	return false
}

func degraded(text string) keyword.Keywords {
	kw := keyword.Empty()
	kw.CorrectedText = strings.TrimSpace(text)
	kw.Nouns = strings.Fields(kw.CorrectedText)
	return kw
}

func collapseDuplicates(s string) string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(out) > 0 && out[len(out)-1] == f {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

func nextRune(s string) (rune, int) {
	for _, r := range s {
		return r, len(string(r))
	}
	return 0, 0
}

type set map[string]struct{}

func newSet() set { return set{} }

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) len() int { return len(s) }

func (s set) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
