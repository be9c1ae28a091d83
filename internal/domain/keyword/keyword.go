// Package keyword holds the structured result of keyword extraction.
package keyword

// Intent is a coarse user-goal label used for ranking boosts and template selection.
type Intent string

const (
	IntentLoss       Intent = "loss"
	IntentReissue    Intent = "reissue"
	IntentLoan       Intent = "loan"
	IntentFees       Intent = "fees"
	IntentRevolving  Intent = "revolving"
	IntentBenefit    Intent = "benefit"
	IntentProcedure  Intent = "procedure"
	IntentDefinition Intent = "definition"
	IntentNone       Intent = "none"
)

// Keywords is the extractor output for one utterance.
// CardNames, Actions and Payments are sorted sets.
type Keywords struct {
	CorrectedText string   `json:"corrected_text"`
	Nouns         []string `json:"nouns"`
	CardNames     []string `json:"card_names"`
	Actions       []string `json:"actions"`
	Payments      []string `json:"payments"`
	Intent        Intent   `json:"intent"`
}

// Empty returns the zero extraction for blank input.
func Empty() Keywords {
	return Keywords{Intent: IntentNone}
}

// HasCard reports whether name is among the matched card names.
func (k Keywords) HasCard(name string) bool { return contains(k.CardNames, name) }

// HasAction reports whether action is among the matched actions.
func (k Keywords) HasAction(action string) bool { return contains(k.Actions, action) }

// HasPayment reports whether payment is among the matched payment methods.
func (k Keywords) HasPayment(payment string) bool { return contains(k.Payments, payment) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
