package answer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSentences caps every generated or templated script.
const MaxSentences = 3

// minTitleRunes keeps short generic titles ("분실신고") from being stripped out of prose.
const minTitleRunes = 6

var (
	reSpeaker  = regexp.MustCompile(`(?i)(?:고객|상담사|상담원|customer|agent)\s*[:：]\s*`)
	reBullet   = regexp.MustCompile(`(?m)^\s*(?:[-*•·▪◦]|\d{1,2}[.)])\s+`)
	reInline   = regexp.MustCompile(`([.?!]\s+)[-*•·▪◦]\s+`)
	reBrackets = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}|<[^>]*>|【[^】]*】|〔[^〕]*〕`)
	// reSlots matches digit-free parentheses, which are template slots like (카드명).
	reSlots    = regexp.MustCompile(`\([^()\d]*\)|（[^（）\d]*）`)
	reQuotes   = regexp.MustCompile("[\"'“”‘’「」『』`]")
	reURL      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	reEmail    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+`)
	reResident = regexp.MustCompile(`\b\d{6}\s?-\s?[1-4]\d{6}\b`)
	reCard     = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	rePhone    = regexp.MustCompile(`(?:\+?82[-\s]?)?(?:\(0\d{1,2}\)|\b0\d{1,2})[-\s.)]?\d{3,4}[-\s.]?\d{4}\b|\b1[5-9]\d{2}[-\s.]?\d{4}\b`)
	reEmpty    = regexp.MustCompile(`\(\s*[,.]?\s*\)`)
	reSpace    = regexp.MustCompile(`\s+`)

	// reDetail finds concrete figures (amounts, rates, periods) worth citing.
	reDetail = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s?(?:만원|영업일|개월|시간|포인트|%|원|일|년|분|회|세)`)
)

// redact removes contact details and personal identifiers.
func redact(s string) string {
	s = reURL.ReplaceAllString(s, "")
	s = reEmail.ReplaceAllString(s, "")
	s = reResident.ReplaceAllString(s, "")
	s = reCard.ReplaceAllString(s, "")
	s = rePhone.ReplaceAllString(s, "")
	return s
}

// clean strips every forbidden construct and collapses whitespace. Sentence structure is kept.
func clean(s string, titles []string) string {
	s = reSpeaker.ReplaceAllString(s, "")
	s = reBullet.ReplaceAllString(s, "")
	s = reInline.ReplaceAllString(s, "${1}")
	s = reBrackets.ReplaceAllString(s, "")
	s = reSlots.ReplaceAllString(s, "")
	s = reQuotes.ReplaceAllString(s, "")
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) >= minTitleRunes {
			s = strings.ReplaceAll(s, t, "")
		}
	}
	s = redact(s)
	s = reEmpty.ReplaceAllString(s, "")
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

// Sanitize cleans s and caps it at MaxSentences sentences.
func Sanitize(s string, titles []string) string {
	sentences := splitSentences(clean(s, titles))
	if len(sentences) > MaxSentences {
		sentences = sentences[:MaxSentences]
	}
	return strings.Join(sentences, " ")
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!' || r == '。'
}

// splitSentences splits on terminators followed by whitespace, a letter or end of text.
// "1.5%" stays intact. A trailing fragment without a terminator gets a period.
func splitSentences(s string) []string {
	rs := []rune(s)
	var out []string
	start := 0
	for i := 0; i < len(rs); i++ {
		if !isTerminator(rs[i]) {
			continue
		}
		j := i
		for j+1 < len(rs) && isTerminator(rs[j+1]) {
			j++
		}
		i = j
		if j+1 < len(rs) && !unicode.IsSpace(rs[j+1]) && !unicode.IsLetter(rs[j+1]) {
			continue
		}
		if sent := strings.TrimSpace(string(rs[start : j+1])); hasContent(sent) {
			out = append(out, sent)
		}
		start = j + 1
	}
	if tail := strings.TrimSpace(string(rs[start:])); hasContent(tail) {
		tail = strings.TrimRight(tail, ",;: ")
		out = append(out, tail+".")
	}
	return out
}

func hasContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// neutralize turns internal sentence breaks into commas so a snippet reads as one sentence.
func neutralize(s string) string {
	sentences := splitSentences(s)
	for i, sent := range sentences {
		sentences[i] = strings.TrimRightFunc(sent, isTerminator)
	}
	return strings.Join(sentences, ", ")
}

// details lists concrete figures found in the documents, in document order.
func details(texts []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range texts {
		for _, d := range reDetail.FindAllString(redact(t), -1) {
			d = strings.TrimSpace(d)
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// containsDetail reports whether msg already cites one of the details.
func containsDetail(msg string, ds []string) bool {
	m := compact(msg)
	for _, d := range ds {
		if strings.Contains(m, compact(d)) {
			return true
		}
	}
	return false
}

// spliceDetail appends "관련 기준은 <detail>입니다" to the second sentence,
// or adds it as the second sentence when the message has only one.
func spliceDetail(msg, detail string) string {
	sentences := splitSentences(msg)
	switch len(sentences) {
	case 0:
		return msg
	case 1:
		sentences = append(sentences, "관련 기준은 "+detail+"입니다.")
	default:
		body := strings.TrimRightFunc(sentences[1], isTerminator)
		sentences[1] = body + ", 관련 기준은 " + detail + "입니다."
	}
	if len(sentences) > MaxSentences {
		sentences = sentences[:MaxSentences]
	}
	return strings.Join(sentences, " ")
}
