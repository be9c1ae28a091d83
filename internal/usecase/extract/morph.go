package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/callrag/internal/domain/vocab"
)

// POS is a coarse part-of-speech tag.
type POS string

const (
	ProperNoun POS = "NNP"
	Noun       POS = "NNG"
	Verb       POS = "VV"
	Particle   POS = "J"
	Foreign    POS = "SL"
	Number     POS = "SN"
)

// Morpheme is a lemma with its part of speech.
type Morpheme struct {
	Lemma string
	POS   POS
	// Canonical is set for dictionary hits (card, alias or payment).
	Canonical string
	Kind      vocab.EntryKind
}

// IsNoun reports nominal morphemes.
func (m Morpheme) IsNoun() bool {
	return m.POS == Noun || m.POS == ProperNoun || m.POS == Foreign
}

// josa ordered longest first.
var josa = []string{
	"에서는", "으로는", "이에요", "에서", "으로", "에게", "한테", "까지", "부터", "이랑", "처럼", "보다",
	"은", "는", "이", "가", "을", "를", "에", "의", "도", "로", "와", "과", "만", "요", "들", "랑",
}

// verbEndings are endings that follow a verbal noun stem (신청+하려구요, 등록+됐어요),
// ordered longest first by init.
var verbEndings = []struct{ end, lemma string }{
	{"하려구요", "하다"}, {"하려고요", "하다"}, {"하려고", "하다"}, {"하려는데", "하다"}, {"하려면", "하다"},
	{"하고", "하다"}, {"하면", "하다"}, {"하는", "하다"}, {"하는데", "하다"}, {"하나요", "하다"}, {"하세요", "하다"},
	{"합니다", "하다"}, {"해요", "하다"}, {"해주세요", "하다"}, {"해줘", "하다"}, {"해줘요", "하다"},
	{"했어요", "하다"}, {"했는데", "하다"}, {"했어", "하다"}, {"할게요", "하다"}, {"할래요", "하다"},
	{"할까요", "하다"}, {"하고싶어요", "하다"}, {"하다", "하다"}, {"해", "하다"},
	{"되나요", "되다"}, {"돼요", "되다"}, {"되요", "되다"}, {"됐어요", "되다"}, {"됐는데", "되다"},
	{"되는", "되다"}, {"되면", "되다"}, {"된", "되다"}, {"되다", "되다"}, {"돼", "되다"}, {"안돼요", "되다"},
}

// eomi are sentence-final endings that mark a whole word as predicate.
var eomi = []string{
	"었어요", "았어요", "였어요", "겠어요", "려구요", "려고요", "어요", "아요", "세요", "해요", "돼요", "워요",
	"인가요", "예요", "에요", "가요", "네요", "나요", "니다", "는데", "려고", "죠", "다",
}

func init() {
	sort.SliceStable(verbEndings, func(i, j int) bool {
		return len(verbEndings[i].end) > len(verbEndings[j].end)
	})
}

// wordPunct is punctuation kept inside words (K-패스, 5,000원, 1.5%).
const wordPunct = "-,.%"

// Segmenter splits utterances into morphemes using a user dictionary seeded from the vocabulary.
type Segmenter struct {
	dict []vocab.Entry
	// keys are the dict surfaces with whitespace removed, index-aligned with dict.
	keys []string
	// heads are compacted texts after which a dictionary match may skip whitespace
	// ("나라사랑 카드" → 나라사랑카드).
	heads map[string]bool
}

// NewSegmenter builds a segmenter over the vocabulary dictionary.
func NewSegmenter(v *vocab.Vocabulary) *Segmenter {
	s := &Segmenter{dict: v.Dictionary(), heads: map[string]bool{}}
	for _, e := range s.dict {
		s.keys = append(s.keys, compact(e.Surface))
		s.heads[compact(e.Surface)] = true
		for i, r := range e.Surface {
			if unicode.IsSpace(r) {
				s.heads[compact(e.Surface[:i])] = true
			}
		}
	}
	for k := range v.Corrections {
		s.heads[strings.ToLower(k)] = true
	}
	return s
}

// Segment returns morphemes for text. Dictionary spans are matched on the lower-cased text
// before word splitting so multi-word names ("samsung pay", "나라사랑 카드") stay single lemmas.
func (s *Segmenter) Segment(text string) []Morpheme {
	lower := strings.ToLower(text)
	var out []Morpheme
	for lower != "" {
		start, end, e := s.findEntry(lower)
		if start < 0 {
			out = append(out, s.segmentChunk(lower)...)
			break
		}
		out = append(out, s.segmentChunk(lower[:start])...)
		out = append(out, Morpheme{Lemma: e.Surface, POS: ProperNoun, Canonical: e.Canonical, Kind: e.Kind})
		lower = lower[end:]
	}
	return out
}

// findEntry returns the byte span of the leftmost dictionary hit, preferring the longest
// surface at that offset. start is -1 when nothing matches.
func (s *Segmenter) findEntry(text string) (start, end int, entry vocab.Entry) {
	for i, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		best := -1
		bestLen := 0
		for n, key := range s.keys {
			j, ok := s.matchAt(text, i, key)
			if ok && len(key) > bestLen {
				best, bestLen, entry = j, len(key), s.dict[n]
			}
		}
		if best >= 0 {
			return i, best, entry
		}
	}
	return -1, -1, vocab.Entry{}
}

// matchAt matches a compacted key against text[i:] ignoring whitespace. A gap in the text is
// only skipped right after a known head, so "처음 카드" never becomes 처음카드.
func (s *Segmenter) matchAt(text string, i int, want string) (int, bool) {
	j := 0
	for j < len(want) {
		if i >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if j == 0 || !s.heads[want[:j]] {
				return 0, false
			}
			i += size
			continue
		}
		w, wsize := utf8.DecodeRuneInString(want[j:])
		if r != w {
			return 0, false
		}
		i += size
		j += wsize
	}
	return i, true
}

// isSurfacePrefix reports whether w starts some dictionary surface.
func (s *Segmenter) isSurfacePrefix(w string) bool {
	for _, key := range s.keys {
		if strings.HasPrefix(key, w) {
			return true
		}
	}
	return false
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func (s *Segmenter) segmentChunk(chunk string) []Morpheme {
	words := strings.FieldsFunc(chunk, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && !strings.ContainsRune(wordPunct, r))
	})
	var out []Morpheme
	for _, w := range words {
		out = append(out, s.segmentWord(w)...)
	}
	return out
}

func (s *Segmenter) segmentWord(w string) []Morpheme {
	w = strings.Trim(w, wordPunct)
	if w == "" {
		return nil
	}
	if isNumber(w) {
		return []Morpheme{{Lemma: w, POS: Number}}
	}
	if isLatin(w) {
		return []Morpheme{{Lemma: w, POS: Foreign}}
	}
	for _, j := range josa {
		if w == j {
			return []Morpheme{{Lemma: w, POS: Particle}}
		}
	}

	// verbal noun + 하/되 ending
	for _, v := range verbEndings {
		if !strings.HasSuffix(w, v.end) {
			continue
		}
		stem := strings.TrimSuffix(w, v.end)
		if utf8.RuneCountInString(stem) >= 2 {
			return []Morpheme{{Lemma: stem, POS: Noun}, {Lemma: v.lemma, POS: Verb}}
		}
	}
	for _, e := range eomi {
		if strings.HasSuffix(w, e) && utf8.RuneCountInString(w) > utf8.RuneCountInString(e) {
			return []Morpheme{{Lemma: w, POS: Verb}}
		}
	}

	stem := w
	for range 2 {
		// 나라사랑 is a card name head, not 나라사 + 랑.
		if s.isSurfacePrefix(stem) {
			break
		}
		next, j := stripJosa(stem)
		if j == "" {
			break
		}
		n := utf8.RuneCountInString(next)
		if n == 1 && (j == "는" || j == "은") {
			return []Morpheme{{Lemma: w, POS: Verb}}
		}
		if n < 2 {
			break
		}
		stem = next
	}
	return []Morpheme{{Lemma: stem, POS: Noun}}
}

func stripJosa(w string) (string, string) {
	for _, j := range josa {
		if strings.HasSuffix(w, j) && len(w) > len(j) {
			return strings.TrimSuffix(w, j), j
		}
	}
	return w, ""
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) && r != ',' && r != '.' {
			return false
		}
	}
	return true
}

func isLatin(w string) bool {
	for _, r := range w {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
