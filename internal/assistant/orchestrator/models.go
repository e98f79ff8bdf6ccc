// internal/assistant/orchestrator/models.go
package orchestrator

import (
	llmcompletion "garage-assistant/internal/assistant/llm-completion"
	retrievecontext "garage-assistant/internal/assistant/retrieve-context"
	websearch "garage-assistant/internal/assistant/web-search"
	"garage-assistant/internal/common/observability"
	"garage-assistant/internal/models"
)

// Dependencies are the outbound adapters. A nil SearchProvider disables web
// search and a nil Store disables table lookups; the pipeline still answers.
type Dependencies struct {
	SearchProvider websearch.Provider
	SearchCache    websearch.Cache
	Store          retrievecontext.RecordStore
	Index          retrievecontext.IndexSearcher
	LLMProvider    llmcompletion.Provider
	Observability  *observability.Observability
}

// evidence is whatever search and retrieval settled before the join.
type evidence struct {
	web      []models.SearchResult
	db       retrievecontext.Result
	timedOut bool
}
