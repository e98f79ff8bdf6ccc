// internal/models/answer.go
package models

type Provenance string

const (
	ProvenanceWeb  Provenance = "web"
	ProvenanceDB   Provenance = "db"
	ProvenanceBoth Provenance = "both"
	ProvenanceNone Provenance = "none"
)

// ProvenanceOf derives the evidence combination from result counts.
func ProvenanceOf(webCount, dbCount int) Provenance {
	switch {
	case webCount > 0 && dbCount > 0:
		return ProvenanceBoth
	case webCount > 0:
		return ProvenanceWeb
	case dbCount > 0:
		return ProvenanceDB
	}
	return ProvenanceNone
}

// Answer strategies.
const (
	StrategyLLM           = "llm"
	StrategyFallbackModel = "fallback-model"
	StrategyEvidenceOnly  = "evidence-only"
)

type Sources struct {
	Web []SearchResult  `json:"web,omitempty"`
	DB  []ContextRecord `json:"db,omitempty"`
}

// Transition records one step of the completion fallback chain.
type Transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

type ModelMeta struct {
	Model        string       `json:"model,omitempty"`
	Strategy     string       `json:"strategy"`
	TokenUsage   TokenUsage   `json:"tokenUsage"`
	UsedFallback bool         `json:"usedFallback"`
	DegradedNote string       `json:"degradedNote,omitempty"`
	Transitions  []Transition `json:"transitions,omitempty"`
}

// Answer is the orchestrator's only output.
type Answer struct {
	RequestID    string     `json:"requestId"`
	Text         string     `json:"text"`
	Sources      Sources    `json:"sources"`
	ModelMeta    ModelMeta  `json:"modelMeta"`
	AdvisoryNote string     `json:"advisoryNote,omitempty"`
	Provenance   Provenance `json:"provenance"`
	AI           bool       `json:"ai"`
	Intents      []Intent   `json:"intents"`
}
