package route

import (
	"testing"

	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		kw   keyword.Keywords
		hint domroute.Name
		want domroute.Name
	}{
		{"card and action", keyword.Keywords{CardNames: []string{"국민행복카드"}, Actions: []string{"신청"}}, "", domroute.CardUsage},
		{"card and payment", keyword.Keywords{CardNames: []string{"더모아카드"}, Payments: []string{"삼성페이"}}, "", domroute.CardUsage},
		{"card only", keyword.Keywords{CardNames: []string{"나라사랑카드"}}, "", domroute.CardInfo},
		{"action only", keyword.Keywords{Actions: []string{"오류"}}, "", domroute.CardUsage},
		{"payment only", keyword.Keywords{Payments: []string{"삼성페이"}}, "", domroute.CardUsage},
		{"nothing", keyword.Keywords{Nouns: []string{"안녕"}}, "", domroute.NoRoute},
		{"hint overrides", keyword.Keywords{}, domroute.CardInfo, domroute.CardInfo},
		{"no_route hint ignored", keyword.Keywords{Actions: []string{"분실"}}, domroute.NoRoute, domroute.CardUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.kw, tc.hint); got.Name != tc.want {
				t.Errorf("Resolve = %s, want %s", got.Name, tc.want)
			}
		})
	}
}

func TestResolve_CopiesMatched(t *testing.T) {
	kw := keyword.Keywords{CardNames: []string{"처음카드"}, Actions: []string{"해지"}}
	r := Resolve(kw, "")
	r.Matched.CardNames[0] = "changed"
	if kw.CardNames[0] != "처음카드" {
		t.Error("matched sets must be copies")
	}
	if len(r.Matched.Actions) != 1 || r.Matched.Actions[0] != "해지" {
		t.Errorf("Matched.Actions = %v", r.Matched.Actions)
	}
}
