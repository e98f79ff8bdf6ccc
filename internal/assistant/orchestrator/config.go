// internal/assistant/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"time"

	classifyquery "garage-assistant/internal/assistant/classify-query"
	expandquery "garage-assistant/internal/assistant/expand-query"
	llmcompletion "garage-assistant/internal/assistant/llm-completion"
	retrievecontext "garage-assistant/internal/assistant/retrieve-context"
	selectprompt "garage-assistant/internal/assistant/select-prompt"
	synthesizeresponse "garage-assistant/internal/assistant/synthesize-response"
	websearch "garage-assistant/internal/assistant/web-search"
	"garage-assistant/internal/common/config"
	apperrors "garage-assistant/internal/common/errors"
)

const defaultDeadline = 25 * time.Second

// Config bundles the per-component configuration derived from the
// application config and knowledge tables.
type Config struct {
	Deadline  time.Duration
	Classify  *classifyquery.Config
	Expand    *expandquery.Config
	Search    *websearch.Config
	Retrieve  *retrievecontext.Config
	Prompt    *selectprompt.Config
	LLM       *llmcompletion.Config
	Synthesis *synthesizeresponse.Config
}

func LoadConfig(cfg *config.Config, k *config.Knowledge) *Config {
	deadline := config.GetDuration(cfg.Assistant.Deadline)
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Config{
		Deadline:  deadline,
		Classify:  classifyquery.LoadConfig(k),
		Expand:    expandquery.LoadConfig(k, cfg),
		Search:    websearch.LoadConfig(cfg),
		Retrieve:  retrievecontext.LoadConfig(cfg),
		Prompt:    selectprompt.LoadConfig(k),
		LLM:       llmcompletion.LoadConfig(cfg),
		Synthesis: synthesizeresponse.LoadConfig(k, cfg),
	}
}

func (c *Config) validate() error {
	var problem string
	switch {
	case c == nil:
		problem = "orchestrator config is nil"
	case c.Deadline <= 0:
		problem = "assistant.deadline must be positive"
	case c.Classify == nil || c.Expand == nil || c.Search == nil || c.Retrieve == nil ||
		c.Prompt == nil || c.LLM == nil || c.Synthesis == nil:
		problem = "every component config is required"
	case c.LLM.PrimaryModel == "":
		problem = "apis.llm.models.primary is required"
	case c.LLM.Timeout <= 0:
		problem = "apis.llm.timeout must be positive"
	case c.Search.Timeout <= 0:
		problem = "apis.web_search.timeout must be positive"
	case c.Search.MaxRetries < 0:
		problem = "apis.web_search.max_retries must not be negative"
	case c.Synthesis.MaxLength <= 0:
		problem = "assistant.max_answer_length must be positive"
	case c.Synthesis.Synthesis.NoResults == "":
		problem = "synthesis.no_results is required"
	case len(c.Prompt.Prompts.Templates) == 0:
		problem = "prompts.templates must not be empty"
	}
	if problem == "" {
		return nil
	}
	return apperrors.NewConfigInvalidError(fmt.Sprintf("orchestrator: %s", problem))
}
