// internal/assistant/synthesize-response/models.go
package synthesizeresponse

import (
	"garage-assistant/internal/models"
)

// Input is everything the synthesizer merges into an Answer. Completion is nil
// when the completion chain ended in FALLBACK_STRATEGY.
type Input struct {
	Intents     models.Intents
	DB          []models.ContextRecord
	Web         []models.SearchResult
	Completion  *models.CompletionResult
	Transitions []models.Transition
}

// advisoryPriority orders the advisory notes when several intents match.
var advisoryPriority = []models.Intent{
	models.IntentSafety,
	models.IntentDiagnostic,
	models.IntentPricing,
	models.IntentTechnical,
}

const ellipsis = "…"
