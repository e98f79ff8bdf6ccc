// internal/assistant/llm-completion/handler.go
package llmcompletion

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	apphttp "garage-assistant/internal/common/http"
	"garage-assistant/internal/common/logger"
	"garage-assistant/internal/common/metrics"
	"garage-assistant/internal/models"
)

const (
	ComponentName = "llm-completion"

	reasonDeadline = "deadline"
)

// Client runs the PRIMARY -> FALLBACK_MODEL -> FALLBACK_STRATEGY chain, one
// attempt per model.
type Client struct {
	config   *Config
	provider Provider
	policy   policy
	logger   logger.Logger
}

func NewClient(config *Config, provider Provider, log logger.Logger) *Client {
	return &Client{
		config:   config,
		provider: provider,
		policy:   policy{fallbackModel: config.usesFallbackModel()},
		logger:   logger.ForComponent(log, ComponentName),
	}
}

// Complete never returns an error: every failure ends in FALLBACK_STRATEGY
// with a nil Completion, and the caller falls back to evidence-only text.
func (c *Client) Complete(ctx context.Context, prompt models.PromptSpec, contextBlob string) Outcome {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(ComponentName).Observe(time.Since(start).Seconds())
	}()

	var out Outcome
	state := StatePrimary

	for !state.terminal() {
		if ctx.Err() != nil {
			state = c.transition(&out, state, StateFallbackStrategy, reasonDeadline)
			break
		}

		model := c.modelFor(state, prompt)
		resp, failure := c.attempt(ctx, model, prompt, contextBlob)
		if failure != nil {
			out.Failures = append(out.Failures, failure)
		}

		expired := ctx.Err() != nil
		nextState := c.policy.next(state, failure, expired)

		reason := ""
		if failure != nil {
			reason = string(failure.Class)
			if expired {
				reason = reasonDeadline
			}
		}

		if nextState == StateSuccess {
			out.Completion = &models.CompletionResult{
				Text:         resp.Text,
				ModelUsed:    resp.Model,
				TokenUsage:   resp.Usage,
				UsedFallback: state == StateFallbackModel,
			}
		}
		state = c.transition(&out, state, nextState, reason)
	}

	out.State = state
	return out
}

func (c *Client) transition(out *Outcome, from, to State, reason string) State {
	out.Transitions = append(out.Transitions, models.Transition{From: string(from), To: string(to), Reason: reason})
	metrics.LLMTransitions.WithLabelValues(string(from), string(to), reason).Inc()

	fields := map[string]interface{}{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	}
	if to == StateSuccess {
		c.logger.Info("llm transition", fields)
	} else {
		c.logger.Warn("llm transition", fields)
	}
	return to
}

func (c *Client) modelFor(state State, prompt models.PromptSpec) string {
	if state == StateFallbackModel {
		return c.config.FallbackModel
	}
	if prompt.PreferAdvanced && c.config.AdvancedModel != "" {
		return c.config.AdvancedModel
	}
	return c.config.PrimaryModel
}

func (c *Client) attempt(ctx context.Context, model string, prompt models.PromptSpec, contextBlob string) (*ChatResponse, *LLMFailure) {
	if c.provider == nil {
		return nil, &LLMFailure{Class: ClassUnavailable, Model: model, Err: errors.New("no llm provider configured")}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.provider.Complete(attemptCtx, ChatRequest{
		Model:        model,
		SystemPrompt: prompt.Template,
		UserPrompt:   contextBlob,
		Temperature:  prompt.Temperature,
		MaxTokens:    prompt.MaxTokens,
	})
	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = ErrEmptyCompletion
	}
	if err != nil {
		return nil, classify(model, err)
	}
	return resp, nil
}

// classify maps a provider error onto a failure class. Anything unrecognized
// is a server error.
func classify(model string, err error) *LLMFailure {
	f := &LLMFailure{Class: ClassServerError, Model: model, Err: err}

	var statusErr *apphttp.StatusError
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.As(err, &statusErr):
		f.StatusCode = statusErr.StatusCode
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests:
			f.Class = ClassRateLimited
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			f.Class = ClassUnavailable
		}
	case errors.Is(err, ErrMissingAPIKey):
		f.Class = ClassUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		f.Class = ClassTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		f.Class = ClassTimeout
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &opErr) && opErr.Op == "dial":
		f.Class = ClassUnavailable
	}
	return f
}
