// internal/models/evidence.go
package models

import "time"

// SearchResult is one web hit, cached per normalized query.
type SearchResult struct {
	Query     string    `json:"query"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ContextRecord is a table-qualified row, count or aggregate read from the record store.
type ContextRecord struct {
	Table string                 `json:"table"`
	Kind  string                 `json:"kind"`
	Name  string                 `json:"name,omitempty"`
	Value interface{}            `json:"value,omitempty"`
	Row   map[string]interface{} `json:"row,omitempty"`
}

type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// CompletionResult is produced at most once per request by the LLM client.
type CompletionResult struct {
	Text         string     `json:"text"`
	ModelUsed    string     `json:"modelUsed"`
	TokenUsage   TokenUsage `json:"tokenUsage"`
	UsedFallback bool       `json:"usedFallback"`
}

// PromptSpec is the system prompt plus generation parameters chosen for a question.
type PromptSpec struct {
	Intent         Intent  `json:"intent"`
	Template       string  `json:"template"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	PreferAdvanced bool    `json:"preferAdvanced,omitempty"`
}
