// internal/models/intent.go
package models

// Intent tags the kind of evidence a question needs.
type Intent string

const (
	IntentTechnical      Intent = "technical"
	IntentPricing        Intent = "pricing"
	IntentDiagnostic     Intent = "diagnostic"
	IntentDatabaseLookup Intent = "database-lookup"
	IntentSafety         Intent = "safety"
	IntentGeneral        Intent = "general"
	// IntentWebSearch marks questions asking for an explanation found outside the garage data.
	IntentWebSearch Intent = "web-search"
)

type Intents []Intent

func (in Intents) Has(i Intent) bool {
	for _, x := range in {
		if x == i {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of want is present.
func (in Intents) HasAny(want ...Intent) bool {
	for _, w := range want {
		if in.Has(w) {
			return true
		}
	}
	return false
}

func (in Intents) Strings() []string {
	out := make([]string, len(in))
	for i, x := range in {
		out[i] = string(x)
	}
	return out
}
