package answer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
)

const (
	refStart     = "<<REF>>"
	refEnd       = "<<END>>"
	maxRefDocs   = 3
	maxRefRunes  = 600
	noResultText = "(참고 문서 없음)"
)

const systemRules = `당신은 카드사 콜센터 상담원이 고객에게 그대로 읽어 줄 안내 문장을 만듭니다.
규칙:
1. 정확히 세 문장으로 답합니다. 첫 문장은 공감과 고객 상황 요약, 두 번째 문장은 참고 문서에 있는 구체적인 절차나 기준, 세 번째 문장은 확인 질문 하나입니다.
2. 참고 문서에 있는 내용만 사용하고, 없는 수치나 절차는 만들지 않습니다.
3. 목록 기호, 따옴표, 괄호 자리표시자, 화자 표시, 문서 제목을 쓰지 않습니다.
4. 전화번호, 웹 주소, 이메일, 주민등록번호, 카드번호를 쓰지 않습니다.`

// buildMessages assembles the system prompt with a reference block over the top documents
// and the user turn carrying the agent query.
func buildMessages(query string, kw keyword.Keywords, items []retrieval.Item) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: buildSystemMessage(buildContextText(items))},
		{Role: domain.RoleUser, Content: buildUserMessage(query, kw)},
	}
}

func buildContextText(items []retrieval.Item) string {
	var b strings.Builder
	n := 0
	for _, it := range items {
		if n == maxRefDocs {
			break
		}
		snippet := strings.TrimSpace(redact(it.Content))
		if snippet == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "[%d] %s\n", n, truncateRunes(snippet, maxRefRunes))
	}
	return b.String()
}

func buildSystemMessage(contextText string) string {
	var sys strings.Builder
	sys.WriteString(systemRules)
	sys.WriteString("\n\n")
	sys.WriteString(refStart)
	sys.WriteString("\n")
	if contextText != "" {
		sys.WriteString(contextText)
	} else {
		sys.WriteString(noResultText)
		sys.WriteString("\n")
	}
	sys.WriteString(refEnd)
	return sys.String()
}

func buildUserMessage(query string, kw keyword.Keywords) string {
	text := kw.CorrectedText
	if text == "" {
		text = query
	}
	var b strings.Builder
	fmt.Fprintf(&b, "문의 내용: %s", text)
	if kw.Intent != "" && kw.Intent != keyword.IntentNone {
		fmt.Fprintf(&b, "\n문의 유형: %s", kw.Intent)
	}
	if len(kw.CardNames) > 0 {
		fmt.Fprintf(&b, "\n카드: %s", strings.Join(kw.CardNames, ", "))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
