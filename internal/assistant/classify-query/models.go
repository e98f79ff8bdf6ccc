// internal/assistant/classify-query/models.go
package classifyquery

import "garage-assistant/internal/models"

// Analysis is the classifier's full reading of a question.
type Analysis struct {
	Intents models.Intents `json:"intents"`
	// DomainKeywords are canonical domain terms in order of first appearance in the tables.
	DomainKeywords []string `json:"domainKeywords"`
	// Tables are the record-store tables the question refers to.
	Tables     []string `json:"tables"`
	Normalized string   `json:"normalized"`
}

type domainTerm struct {
	canonical string
	variants  []string
}

type entityNouns struct {
	table string
	nouns []string
}
