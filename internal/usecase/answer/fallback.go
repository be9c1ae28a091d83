package answer

import (
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
)

const maxSnippetRunes = 240

var templates = map[keyword.Intent][2]string{
	keyword.IntentLoss: {
		"카드를 잃어버리셔서 많이 당황하셨겠어요.",
		"부정 사용을 막기 위해 지금 바로 분실신고를 접수해 드리겠습니다.",
	},
	keyword.IntentReissue: {
		"카드 재발급이 필요하신 상황이시군요.",
		"본인 확인 후 재발급 신청을 도와드리겠습니다.",
	},
	keyword.IntentLoan: {
		"대출 이용이 가능하신지 궁금하시군요.",
		"이용 가능 여부와 한도는 회원님의 이용 실적과 심사 결과에 따라 안내해 드리겠습니다.",
	},
}

var defaultTemplate = [2]string{
	"문의하신 내용 확인해 드리겠습니다.",
	"관련 안내를 확인하여 정확히 도와드리겠습니다.",
}

// Fallback builds the deterministic script: an intent-templated sentence pair plus,
// when any document has usable content, a redacted snippet.
func Fallback(intent keyword.Intent, items []retrieval.Item) string {
	tpl, ok := templates[intent]
	if !ok {
		tpl = defaultTemplate
	}
	parts := []string{tpl[0], tpl[1]}

	titles := titlesOf(items)
	for _, it := range items {
		snippet := neutralize(clean(it.Content, titles))
		if snippet == "" {
			continue
		}
		snippet = strings.TrimRight(truncateRunes(snippet, maxSnippetRunes), ", ")
		parts = append(parts, "관련 안내: "+snippet+".")
		break
	}
	return Sanitize(strings.Join(parts, " "), titles)
}

func titlesOf(items []retrieval.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Title != "" {
			out = append(out, it.Title)
		}
	}
	return out
}
