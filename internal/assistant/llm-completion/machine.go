// internal/assistant/llm-completion/machine.go
package llmcompletion

// policy holds the static part of the transition function.
type policy struct {
	fallbackModel bool
}

// next is the fallback machine's transition function. failure is nil for a
// successful attempt; deadlineExpired means the caller's budget is spent.
func (p policy) next(s State, failure *LLMFailure, deadlineExpired bool) State {
	if s.terminal() {
		return s
	}
	if failure == nil {
		return StateSuccess
	}
	if deadlineExpired {
		return StateFallbackStrategy
	}
	if s == StatePrimary && p.fallbackModel {
		return StateFallbackModel
	}
	return StateFallbackStrategy
}
