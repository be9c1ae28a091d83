package gating

import (
	"testing"

	"github.com/kailas-cloud/callrag/internal/domain"
	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	"github.com/kailas-cloud/callrag/internal/domain/retrieval"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
	"github.com/kailas-cloud/callrag/internal/domain/vocab"
)

func newGate() *Gate { return New(vocab.Default(), 0) }

func TestDecide_Acknowledgement(t *testing.T) {
	d := newGate().Decide("네", keyword.Keywords{CorrectedText: "네", Intent: keyword.IntentNone})
	if !d.NoSearch {
		t.Fatal("expected no_search for 네")
	}
	if d.Clarifier != "무엇을 도와드릴까요? (예: 분실/재발급/연회비/혜택)" {
		t.Errorf("Clarifier = %q", d.Clarifier)
	}
	if d.DomainScore != 0 {
		t.Errorf("DomainScore = %d", d.DomainScore)
	}
}

func TestDecide_LongAcknowledgement(t *testing.T) {
	d := newGate().Decide("알겠습니다", keyword.Keywords{CorrectedText: "알겠습니다"})
	if !d.NoSearch {
		t.Error("acknowledgement longer than 3 runes should still gate")
	}
}

func TestDecide_Empty(t *testing.T) {
	d := newGate().Decide("  ", keyword.Empty())
	if !d.NoSearch || d.Code != domain.CodeInputEmpty {
		t.Errorf("Decide(blank) = %+v", d)
	}
}

func TestDecide_ShortDomainQuerySearches(t *testing.T) {
	d := newGate().Decide("분실", keyword.Keywords{CorrectedText: "분실", Actions: []string{"분실"}})
	if d.NoSearch {
		t.Fatal("short query with domain hits must be searched")
	}
	if d.Mode != retrieval.KeywordOnly {
		t.Errorf("Mode = %s", d.Mode)
	}
}

func TestDecide_RevolvingInterestIsHybrid(t *testing.T) {
	kw := keyword.Keywords{CorrectedText: "리볼빙 이자", Actions: []string{"리볼빙"}}
	d := newGate().Decide("리볼빙 이자", kw)
	if d.DomainScore < 5 {
		t.Fatalf("DomainScore = %d, want >= 5", d.DomainScore)
	}
	if d.Mode != retrieval.Hybrid {
		t.Errorf("Mode = %s, want hybrid", d.Mode)
	}
}

func TestPolicy(t *testing.T) {
	g := newGate()
	tests := []struct {
		name  string
		query string
		kw    keyword.Keywords
		route domroute.Name
		want  []scope.Scope
		rule  PolicyRule
	}{
		{
			name: "wallet", query: "애플페이 등록이 안돼요",
			kw:    keyword.Keywords{Payments: []string{"애플페이"}, Actions: []string{"등록", "오류"}},
			route: domroute.CardUsage, rule: RuleWallet,
			want: []scope.Scope{scope.HyundaiApplePay, scope.GuideGeneral, scope.Terms, scope.CardProducts},
		},
		{
			name: "terms trigger", query: "리볼빙 이자",
			kw:    keyword.Keywords{Actions: []string{"리볼빙"}},
			route: domroute.CardUsage, rule: RuleTerms,
			want: []scope.Scope{scope.GuideWithTerms},
		},
		{
			name: "loss", query: "카드를 잃어버렸어요",
			kw:    keyword.Keywords{Actions: []string{"분실"}},
			route: domroute.CardUsage, rule: RuleLoss,
			want: []scope.Scope{scope.GuideMerged, scope.GuideGeneral, scope.Terms},
		},
		{
			name: "card info", query: "나라사랑카드",
			kw:    keyword.Keywords{CardNames: []string{"나라사랑카드"}},
			route: domroute.CardInfo, rule: RuleCardInfo,
			want: []scope.Scope{scope.CardProducts, scope.GuideMerged, scope.GuideGeneral, scope.Terms},
		},
		{
			name: "default", query: "포인트 적립",
			route: domroute.NoRoute, rule: RuleDefault,
			want: []scope.Scope{scope.GuideMerged, scope.GuideGeneral, scope.Terms},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := g.Policy(tc.query, tc.kw, domroute.Route{Name: tc.route})
			if p.Rule != tc.rule {
				t.Errorf("Rule = %s, want %s", p.Rule, tc.rule)
			}
			got := p.Sources()
			if len(got) != len(tc.want) {
				t.Fatalf("Sources = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Sources = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestPolicy_Narrowing(t *testing.T) {
	g := newGate()
	r := domroute.Route{Name: domroute.CardInfo}
	kw := keyword.Keywords{CardNames: []string{"더모아카드"}}

	cards := g.Policy("더모아 카드만 보여줘", kw, r)
	if src := cards.Sources(); len(src) != 1 || src[0] != scope.CardProducts {
		t.Errorf("cards-only sources = %v", src)
	}
	if cards.Diverse() {
		t.Error("narrowed plan must not enforce diversity")
	}

	guides := g.Policy("더모아 약관만", kw, r)
	for _, s := range guides.Sources() {
		if s.IsCard() {
			t.Errorf("guides-only plan contains %s", s)
		}
	}

	full := g.Policy("더모아카드", kw, r)
	if !full.Diverse() {
		t.Error("card_info plan queries both types and should be diverse")
	}
	if full.Key() == cards.Key() {
		t.Error("narrowing must change the policy key")
	}
}
