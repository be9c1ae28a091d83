// Package route maps extracted keywords to a route.
package route

import (
	"slices"

	"github.com/kailas-cloud/callrag/internal/domain/keyword"
	domroute "github.com/kailas-cloud/callrag/internal/domain/route"
)

// Resolve applies the routing rules:
//   - card names with actions or payments → card_usage
//   - card names only → card_info
//   - actions or payments only → card_usage (implicit entity)
//   - otherwise → no_route
//
// A non-empty hint overrides the computed name; matched sets are copied regardless.
func Resolve(kw keyword.Keywords, hint domroute.Name) domroute.Route {
	r := domroute.Route{
		Matched: domroute.Matched{
			CardNames: slices.Clone(kw.CardNames),
			Actions:   slices.Clone(kw.Actions),
			Payments:  slices.Clone(kw.Payments),
		},
	}

	hasCard := len(kw.CardNames) > 0
	hasUsage := len(kw.Actions) > 0 || len(kw.Payments) > 0
	switch {
	case hasCard && hasUsage:
		r.Name = domroute.CardUsage
	case hasCard:
		r.Name = domroute.CardInfo
	case hasUsage:
		r.Name = domroute.CardUsage
	default:
		r.Name = domroute.NoRoute
	}

	if hint == domroute.CardInfo || hint == domroute.CardUsage {
		r.Name = hint
	}
	return r
}
