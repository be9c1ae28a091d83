// Package route describes the routing decision for an utterance.
package route

import "fmt"

// Name is the route label.
type Name string

const (
	CardInfo  Name = "card_info"
	CardUsage Name = "card_usage"
	NoRoute   Name = "no_route"
)

// ParseName validates a route name. An empty string is accepted and yields "".
func ParseName(s string) (Name, error) {
	switch n := Name(s); n {
	case "", CardInfo, CardUsage, NoRoute:
		return n, nil
	default:
		return "", fmt.Errorf("unknown route %q", s)
	}
}

// Matched carries copies of the entity sets used downstream for scoring.
type Matched struct {
	CardNames []string `json:"card_names"`
	Actions   []string `json:"actions"`
	Payments  []string `json:"payments"`
}

// Route is the router output.
type Route struct {
	Name    Name    `json:"name"`
	Matched Matched `json:"matched"`
}
