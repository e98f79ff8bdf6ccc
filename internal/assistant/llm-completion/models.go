// internal/assistant/llm-completion/models.go
package llmcompletion

import (
	"context"
	"errors"
	"fmt"

	apperrors "garage-assistant/internal/common/errors"
	"garage-assistant/internal/models"
)

var (
	ErrLLMFailed       = errors.New("LLM_FAILED")
	ErrMissingAPIKey   = errors.New("missing LLM API key")
	ErrEmptyCompletion = errors.New("empty completion")
)

// State is a node of the completion fallback machine.
type State string

const (
	StatePrimary          State = "PRIMARY"
	StateFallbackModel    State = "FALLBACK_MODEL"
	StateFallbackStrategy State = "FALLBACK_STRATEGY"
	StateSuccess          State = "SUCCESS"
)

func (s State) terminal() bool {
	return s == StateSuccess || s == StateFallbackStrategy
}

type FailureClass string

const (
	ClassRateLimited FailureClass = "rate-limited"
	ClassTimeout     FailureClass = "timeout"
	ClassServerError FailureClass = "server-error"
	ClassUnavailable FailureClass = "unavailable"
)

// LLMFailure is one failed completion attempt.
type LLMFailure struct {
	Class      FailureClass
	Model      string
	StatusCode int
	Err        error
}

func (f *LLMFailure) Error() string {
	msg := fmt.Sprintf("llm %s on model %s", f.Class, f.Model)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *LLMFailure) Unwrap() []error {
	if f.Err == nil {
		return []error{ErrLLMFailed}
	}
	return []error{ErrLLMFailed, f.Err}
}

func (f *LLMFailure) Standard() *apperrors.StandardError {
	return apperrors.NewLLMError(string(f.Class), f.Model, f.Err)
}

// ChatRequest is the provider-neutral completion request.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type ChatResponse struct {
	Text  string
	Model string
	Usage models.TokenUsage
}

// Provider performs a single completion call with no retries of its own.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Outcome is the result of running the fallback machine once. Completion is
// nil when State is FALLBACK_STRATEGY.
type Outcome struct {
	Completion  *models.CompletionResult
	State       State
	Transitions []models.Transition
	Failures    []*LLMFailure
}

// Strategy names how the answer text will be produced.
func (o Outcome) Strategy() string {
	switch {
	case o.Completion == nil:
		return models.StrategyEvidenceOnly
	case o.Completion.UsedFallback:
		return models.StrategyFallbackModel
	}
	return models.StrategyLLM
}
