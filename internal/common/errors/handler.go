// internal/common/errors/handler.go
package errors

import (
	"context"
	stderrors "errors"
	"time"
)

// Standarder is implemented by component failures that carry their own classification.
type Standarder interface {
	Standard() *StandardError
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var s Standarder
	if stderrors.As(err, &s) {
		if std := s.Standard(); std != nil {
			return std
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return &StandardError{
			Code:      ErrCodeQueryTimeout,
			Message:   "Operation deadline exceeded",
			Details:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
	}

	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Code returns the normalized error code of err, or "" for nil.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// LogFields renders err as structured logging fields.
func LogFields(err error) map[string]interface{} {
	std := Normalize(err)
	if std == nil {
		return nil
	}
	fields := map[string]interface{}{
		"errorCode":    string(std.Code),
		"errorMessage": std.Message,
		"retryable":    std.Retryable,
	}
	if std.Details != "" {
		fields["errorDetails"] = std.Details
	}
	for k, v := range std.Metadata {
		fields[k] = v
	}
	return fields
}
