// Package errors provides the standardized error shape shared by the assistant pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeWebSearchTimeout     ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeWebSearchHTTP        ErrorCode = "WEB_SEARCH_HTTP"
	ErrCodeWebSearchRateLimited ErrorCode = "WEB_SEARCH_RATE_LIMITED"

	ErrCodeRetrievalFailed          ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeIndexSearchFailed        ErrorCode = "INDEX_SEARCH_FAILED"

	ErrCodeLLMRateLimited ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMTimeout     ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMServerError ErrorCode = "LLM_SERVER_ERROR"
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"

	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebSearchTimeoutError creates a retryable search timeout error.
func NewWebSearchTimeoutError(query string) *StandardError {
	return newError(ErrCodeWebSearchTimeout, "Web search timed out", fmt.Sprintf("query: %s", query), true)
}

// NewWebSearchHTTPError creates a search transport or status error.
func NewWebSearchHTTPError(status int, err error) *StandardError {
	details := fmt.Sprintf("status: %d", status)
	if err != nil {
		details = fmt.Sprintf("status: %d, error: %s", status, err.Error())
	}
	return newError(ErrCodeWebSearchHTTP, "Web search provider error", details, status >= 500 || status == 0)
}

// NewWebSearchRateLimitedError creates a retryable provider throttling error.
func NewWebSearchRateLimitedError(retryAfter string) *StandardError {
	return newError(ErrCodeWebSearchRateLimited, "Web search provider rate limited the request", fmt.Sprintf("retryAfter: %s", retryAfter), true)
}

// NewRetrievalFailedError creates a non-fatal per-table lookup error.
func NewRetrievalFailedError(table string, err error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Record store lookup failed", fmt.Sprintf("table: %s, error: %s", table, err.Error()), true).
		WithMetadata("table", table)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(table string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("table: %s", table), true)
}

// NewIndexSearchFailedError creates a non-fatal Elasticsearch lookup error.
func NewIndexSearchFailedError(index string, err error) *StandardError {
	return newError(ErrCodeIndexSearchFailed, "Search index lookup failed", fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewLLMError maps a failure class of the completion chain onto a StandardError.
func NewLLMError(class, model string, err error) *StandardError {
	code := ErrCodeLLMServerError
	switch class {
	case "rate-limited":
		code = ErrCodeLLMRateLimited
	case "timeout":
		code = ErrCodeLLMTimeout
	case "unavailable":
		code = ErrCodeLLMUnavailable
	}
	details := fmt.Sprintf("model: %s", model)
	if err != nil {
		details = fmt.Sprintf("model: %s, error: %s", model, err.Error())
	}
	return newError(code, "LLM completion failed", details, code != ErrCodeLLMUnavailable)
}

// NewConfigInvalidError creates the only fatal error surfaced to callers.
func NewConfigInvalidError(details string) *StandardError {
	return newError(ErrCodeConfigInvalid, "Invalid assistant configuration", details, false)
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns how many times an operation failing with code may be retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeWebSearchTimeout, ErrCodeWebSearchRateLimited:
		return 3
	case ErrCodeWebSearchHTTP, ErrCodeDatabaseConnectionFailed, ErrCodeQueryTimeout:
		return 2
	case ErrCodeLLMRateLimited, ErrCodeLLMTimeout, ErrCodeLLMServerError:
		// one attempt per model, the fallback model is the retry
		return 0
	default:
		return 0
	}
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	return Normalize(err).Retryable
}
