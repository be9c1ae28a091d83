package pin

import (
	"strings"

	"github.com/kailas-cloud/callrag/internal/domain/document"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
)

// Request lists documents of one table to inject.
type Request struct {
	Table document.Table
	IDs   []string
}

// Input carries everything a pin predicate may look at.
type Input struct {
	Route     domroute.Name
	Query     string
	Matched   domroute.Matched
	AllowPins bool
}

// Rule injects Pins when Match fires. Always rules ignore AllowPins.
type Rule struct {
	Name   string
	Always bool
	Match  func(Input) bool
	Pins   []Request
}

// Well-known pinned documents.
const (
	DocNarasarangReissue = "narasarang_faq_006"
	DocCreditTerms       = "sinhan_terms_credit_신용카드_개인회원_약관_039"
	DocFeesRates         = "card_fees_rates_merged"
	DocLossReport        = "card_loss_report_merged"
	DocApplePayRegister  = "hyundai_applepay_faq_001"
)

var walletTokens = []string{"애플페이", "apple pay", "applepay"}

// DefaultRules is the code-resident pin table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "narasarang_reissue",
			Always: true,
			Match: func(in Input) bool {
				return in.Route == domroute.CardUsage &&
					has(in.Matched.CardNames, "나라사랑카드") &&
					strings.Contains(in.Query, "재발급")
			},
			Pins: []Request{{Table: document.ServiceGuides, IDs: []string{DocNarasarangReissue}}},
		},
		{
			Name:   "revolving_terms",
			Always: true,
			Match: func(in Input) bool {
				return in.Route == domroute.CardUsage &&
					(strings.Contains(in.Query, "리볼빙") || strings.Contains(in.Query, "이자"))
			},
			Pins: []Request{{Table: document.ServiceGuides, IDs: []string{DocCreditTerms, DocFeesRates}}},
		},
		{
			Name: "loss_report",
			Match: func(in Input) bool {
				return has(in.Matched.Actions, "분실") || has(in.Matched.Actions, "분실신고")
			},
			Pins: []Request{{Table: document.ServiceGuides, IDs: []string{DocLossReport}}},
		},
		{
			Name: "applepay_register",
			Match: func(in Input) bool {
				wallet := has(in.Matched.Payments, "애플페이")
				for _, t := range walletTokens {
					wallet = wallet || strings.Contains(strings.ToLower(in.Query), t)
				}
				return wallet && (has(in.Matched.Actions, "오류") || has(in.Matched.Actions, "등록"))
			},
			Pins: []Request{{Table: document.ServiceGuides, IDs: []string{DocApplePayRegister}}},
		},
	}
}

// Fire evaluates rules in order and returns the requests of every rule that fired.
func Fire(rules []Rule, in Input) []Request {
	var out []Request
	for _, r := range rules {
		if !r.Always && !in.AllowPins {
			continue
		}
		if r.Match(in) {
			out = append(out, r.Pins...)
		}
	}
	return out
}

func has(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
