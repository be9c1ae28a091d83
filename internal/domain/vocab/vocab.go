// Package vocab holds the static, versioned vocabulary used to normalize noisy call-center
// utterances: STT corrections, card and payment synonyms, colloquial action patterns, stopwords
// and the keyword families that drive gating and intent tagging.
//
// A Vocabulary is built once at startup and is read-only afterwards, so it is safe for
// concurrent use.
package vocab

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/keyword"
)

// Context markers usable in conditional stopword rules.
const (
	CtxCard    = "@card"
	CtxAction  = "@action"
	CtxPayment = "@payment"
)

// Rule drops a token when any of RequireAnyOf and none of RequireNoneOf is present in the
// utterance context. An empty RequireAnyOf always matches.
type Rule struct {
	RequireAnyOf  []string
	RequireNoneOf []string
}

// Applies evaluates the rule against the context set.
func (r Rule) Applies(ctx map[string]bool) bool {
	for _, t := range r.RequireNoneOf {
		if ctx[t] {
			return false
		}
	}
	if len(r.RequireAnyOf) == 0 {
		return true
	}
	for _, t := range r.RequireAnyOf {
		if ctx[t] {
			return true
		}
	}
	return false
}

// ActionPattern maps colloquial surface forms to an action token.
type ActionPattern struct {
	Name string
	Expr string

	re *regexp.Regexp
}

// Match reports whether the pattern fires on text.
func (a ActionPattern) Match(text string) bool {
	return a.re != nil && a.re.MatchString(text)
}

// IntentFamily is a fixed keyword family for one intent.
type IntentFamily struct {
	Intent keyword.Intent
	Tokens []string
}

// EntryKind classifies a user-dictionary entry.
type EntryKind int

const (
	KindCard EntryKind = iota + 1
	KindAlias
	KindPayment
)

// Entry is a user-dictionary surface form with its canonical value.
type Entry struct {
	Surface   string
	Canonical string
	Kind      EntryKind
}

// Vocabulary is the complete set of lexical tables.
type Vocabulary struct {
	Version string

	// Corrections maps STT misspellings and abbreviated product names to their correct form.
	Corrections map[string]string
	// CardNames is the canonical card list used for exact and phonetic matching.
	CardNames []string
	// CardAliases maps nicknames and abbreviations to a canonical card name.
	CardAliases map[string]string
	// PaymentSynonyms maps payment-method surface forms to a canonical payment name.
	PaymentSynonyms map[string]string
	Actions         []ActionPattern
	Stopwords       []string
	Conditional     map[string][]Rule
	DomainKeywords  []string
	TermsTriggers   []string
	WalletKeywords  []string
	// Intents are evaluated in order; the first family with a hit wins.
	Intents          []IntentFamily
	Acknowledgements []string
	NarrowCards      []string
	NarrowGuides     []string

	correctionKeys []string
	dictionary     []Entry
	stop           map[string]bool
	ack            map[string]bool
}

// New validates v and compiles its lookup structures.
func New(v Vocabulary) (*Vocabulary, error) {
	if err := validateCorrections(v.Corrections); err != nil {
		return nil, err
	}
	for i := range v.Actions {
		a := &v.Actions[i]
		if a.Name == "" || a.Expr == "" {
			return nil, fmt.Errorf("vocab: action %d has empty name or pattern", i)
		}
		re, err := regexp.Compile(a.Expr)
		if err != nil {
			return nil, fmt.Errorf("vocab: action %s: %w", a.Name, err)
		}
		a.re = re
	}
	for alias, card := range v.CardAliases {
		if alias == "" {
			return nil, fmt.Errorf("vocab: empty card alias")
		}
		if !contains(v.CardNames, card) {
			return nil, fmt.Errorf("vocab: alias %q points to unknown card %q", alias, card)
		}
	}
	for syn, canon := range v.PaymentSynonyms {
		if syn == "" || canon == "" {
			return nil, fmt.Errorf("vocab: empty payment synonym")
		}
	}

	v.correctionKeys = make([]string, 0, len(v.Corrections))
	for k := range v.Corrections {
		v.correctionKeys = append(v.correctionKeys, k)
	}
	sortLongestFirst(v.correctionKeys)

	v.dictionary = v.dictionary[:0]
	for _, c := range v.CardNames {
		v.dictionary = append(v.dictionary, Entry{Surface: strings.ToLower(c), Canonical: c, Kind: KindCard})
	}
	for a, c := range v.CardAliases {
		v.dictionary = append(v.dictionary, Entry{Surface: strings.ToLower(a), Canonical: c, Kind: KindAlias})
	}
	for s, c := range v.PaymentSynonyms {
		v.dictionary = append(v.dictionary, Entry{Surface: strings.ToLower(s), Canonical: c, Kind: KindPayment})
	}
	sort.SliceStable(v.dictionary, func(i, j int) bool {
		a, b := v.dictionary[i].Surface, v.dictionary[j].Surface
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	v.stop = toSet(v.Stopwords)
	v.ack = toSet(v.Acknowledgements)
	return &v, nil
}

// MustNew is New that panics on invalid tables.
func MustNew(v Vocabulary) *Vocabulary {
	out, err := New(v)
	if err != nil {
		panic(err)
	}
	return out
}

// validateCorrections enforces the single-pass property: no correction value may contain
// another key, except the value's own key as a prefix (e.g. 나라사랑 → 나라사랑카드).
func validateCorrections(m map[string]string) error {
	for k, v := range m {
		if k == "" || v == "" {
			return fmt.Errorf("vocab: empty correction %q → %q", k, v)
		}
		for other := range m {
			if other == k && strings.HasPrefix(v, k) {
				if strings.Contains(v[len(k):], k) {
					return fmt.Errorf("vocab: correction %q → %q repeats its key", k, v)
				}
				continue
			}
			if strings.Contains(v, other) {
				return fmt.Errorf("vocab: correction %q → %q contains key %q", k, v, other)
			}
		}
	}
	return nil
}

// CorrectionKeys returns the correction keys ordered longest first.
func (v *Vocabulary) CorrectionKeys() []string { return v.correctionKeys }

// Dictionary returns user-dictionary entries ordered longest surface first.
func (v *Vocabulary) Dictionary() []Entry { return v.dictionary }

// IsStopword reports unconditional stopwords.
func (v *Vocabulary) IsStopword(token string) bool { return v.stop[token] }

// DropNoun reports whether token is removed from the noun list given the utterance context.
func (v *Vocabulary) DropNoun(token string, ctx map[string]bool) bool {
	if v.stop[token] {
		return true
	}
	for _, r := range v.Conditional[token] {
		if r.Applies(ctx) {
			return true
		}
	}
	return false
}

// IsAcknowledgement reports short backchannel replies such as "네" or "ㅋㅋ".
func (v *Vocabulary) IsAcknowledgement(s string) bool {
	s = strings.ToLower(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".!?~…")))
	if s == "" {
		return false
	}
	if v.ack[s] {
		return true
	}
	for _, r := range s {
		if r != 'ㅋ' && r != 'ㅎ' {
			return false
		}
	}
	return true
}

// IsPayment reports whether s is a known payment surface form.
func (v *Vocabulary) IsPayment(s string) bool {
	_, ok := v.PaymentSynonyms[strings.ToLower(s)]
	return ok
}

// IntentTokens returns the keyword family of intent, or nil.
func (v *Vocabulary) IntentTokens(intent keyword.Intent) []string {
	for _, f := range v.Intents {
		if f.Intent == intent {
			return f.Tokens
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func sortLongestFirst(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
}
