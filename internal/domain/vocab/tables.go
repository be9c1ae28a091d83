package vocab

import "github.com/kailas-cloud/callrag/internal/domain/keyword"

// DefaultVersion names the bundled table revision.
const DefaultVersion = "2024.11-card-cs"

// Default returns the bundled card call-center vocabulary.
func Default() *Vocabulary {
	return MustNew(Vocabulary{
		Version: DefaultVersion,
		Corrections: map[string]string{
			"삼송페이": "삼성페이",
			"삼숭페이": "삼성페이",
			"애플패이": "애플페이",
			"결채":   "결제",
			"겔제":   "결제",
			"재발금":  "재발급",
			"재발굽":  "재발급",
			"리보빙":  "리볼빙",
			"리볼링":  "리볼빙",
			"연희비":  "연회비",
			"연해비":  "연회비",
			"국민행복": "국민행복카드",
			"나라사랑": "나라사랑카드",
		},
		CardNames: []string{
			"국민행복카드",
			"나라사랑카드",
			"아이행복카드",
			"K-패스카드",
			"딥드림카드",
			"청춘대로카드",
			"더모아카드",
			"처음카드",
		},
		CardAliases: map[string]string{
			"군인카드":  "나라사랑카드",
			"군인":    "나라사랑카드",
			"장병카드":  "나라사랑카드",
			"바우처카드": "국민행복카드",
			"케이패스":  "K-패스카드",
			"k패스":   "K-패스카드",
			"딥드림":   "딥드림카드",
			"더모아":   "더모아카드",
		},
		PaymentSynonyms: map[string]string{
			"삼성페이":        "삼성페이",
			"삼페":          "삼성페이",
			"samsung pay": "삼성페이",
			"samsungpay":  "삼성페이",
			"애플페이":        "애플페이",
			"apple pay":   "애플페이",
			"applepay":    "애플페이",
			"카카오페이":       "카카오페이",
			"네이버페이":       "네이버페이",
			"페이코":         "페이코",
			"토스페이":        "토스페이",
		},
		Actions: []ActionPattern{
			{Name: "분실신고", Expr: `막아\s?주|정지\s?해\s?주|분실\s?신고`},
			{Name: "분실", Expr: `잃어버|분실|잊어버렸|없어졌`},
			{Name: "도난", Expr: `도난|도둑|훔쳐`},
			{Name: "재발급", Expr: `재발급|재발행|다시\s?발급|새로\s?발급`},
			{Name: "신청", Expr: `신청|만들고\s?싶|가입`},
			{Name: "발급", Expr: `(?:^|[^재])발급`},
			{Name: "해지", Expr: `해지|탈회|없애고\s?싶`},
			{Name: "등록", Expr: `등록|연결`},
			{Name: "오류", Expr: `안\s?[돼되]|오류|에러|먹통|실패|결제\s?거절|승인\s?거절`},
			{Name: "취소", Expr: `취소`},
			{Name: "변경", Expr: `변경|바꾸`},
			{Name: "조회", Expr: `조회|확인하고\s?싶|얼마예요|얼마에요`},
			{Name: "납부", Expr: `납부|갚`},
			{Name: "리볼빙", Expr: `리볼빙|일부\s?결제\s?금액\s?이월`},
			{Name: "한도", Expr: `한도`},
		},
		Stopwords: []string{
			"거", "것", "좀", "뭐", "뭐시기", "그거", "이거", "저거", "어떻게", "문의", "관련",
			"수", "때", "저", "제", "네", "예", "혹시", "지금", "그냥", "요",
		},
		Conditional: map[string][]Rule{
			"카드": {{RequireAnyOf: []string{CtxCard}}},
			"방법": {{RequireAnyOf: []string{CtxAction}}},
			"페이": {{RequireAnyOf: []string{CtxPayment}}},
		},
		DomainKeywords: []string{
			"카드", "분실", "재발급", "발급", "신청", "연회비", "혜택", "할인", "적립", "포인트",
			"결제", "한도", "이자", "리볼빙", "수수료", "금리", "해지", "정지", "도난", "등록",
			"페이", "대출", "카드론", "현금서비스", "약관", "납부", "청구", "승인", "오류",
		},
		TermsTriggers: []string{
			"이자", "금리", "이율", "수수료", "연회비", "리볼빙", "해지", "한도", "연체", "약관",
		},
		WalletKeywords: []string{"애플페이", "apple pay", "applepay"},
		Intents: []IntentFamily{
			{Intent: keyword.IntentLoss, Tokens: []string{"분실", "도난", "잃어버", "분실신고", "정지"}},
			{Intent: keyword.IntentReissue, Tokens: []string{"재발급", "재발행"}},
			{Intent: keyword.IntentProcedure, Tokens: []string{"신청", "발급", "등록", "해지", "방법", "절차", "변경"}},
			{Intent: keyword.IntentRevolving, Tokens: []string{"리볼빙", "일부결제", "일부 결제"}},
			{Intent: keyword.IntentFees, Tokens: []string{"연회비", "수수료", "이자", "금리", "이율"}},
			{Intent: keyword.IntentLoan, Tokens: []string{"카드론", "현금서비스", "대출"}},
			{Intent: keyword.IntentBenefit, Tokens: []string{"혜택", "할인", "적립", "포인트", "캐시백", "바우처"}},
			{Intent: keyword.IntentDefinition, Tokens: []string{"뭐예요", "뭔가요", "무엇", "무슨", "이란"}},
		},
		Acknowledgements: []string{
			"네", "넵", "예", "응", "어", "음", "아", "네네", "알겠습니다", "감사합니다", "그렇군요",
			"ok", "오케이",
		},
		NarrowCards:  []string{"카드만", "상품만"},
		NarrowGuides: []string{"약관만", "안내만", "가이드만"},
	})
}
