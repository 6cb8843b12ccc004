// Package errors provides standardized error handling for the assistant core.
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
	// Configuration errors: always degrade to a deterministic fallback path.
	ErrCodeModelNotConfigured ErrorCode = "MODEL_NOT_CONFIGURED"

	// Transport/model errors: caught per orchestrator step, replaced by a
	// fixed fallback value, never surfaced raw to the end user.
	ErrCodeModelCallFailed ErrorCode = "MODEL_CALL_FAILED"
	ErrCodeModelTimeout    ErrorCode = "MODEL_TIMEOUT"

	// Validation errors: malformed model output, treated like transport errors.
	ErrCodeModelOutputInvalid ErrorCode = "MODEL_OUTPUT_INVALID"

	// Policy errors: distinct user-visible outcome from technical failure.
	ErrCodeContentRejected       ErrorCode = "CONTENT_REJECTED"
	ErrCodeClassifierCallFailed  ErrorCode = "CLASSIFIER_CALL_FAILED"

	// Quota errors: communicated before any model call is attempted.
	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed ErrorCode = "QUOTA_CHECK_FAILED"

	// Agent configuration state.
	ErrCodeAgentNotFound ErrorCode = "AGENT_NOT_FOUND"
	ErrCodeAgentInactive ErrorCode = "AGENT_INACTIVE"

	// Storage errors: the one class allowed to propagate after a successful
	// model call (quota increment, conversation append).
	ErrCodeStorageQueryFailed  ErrorCode = "STORAGE_QUERY_FAILED"
	ErrCodeStorageWriteFailed  ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeSearchIndexFailed   ErrorCode = "SEARCH_INDEX_FAILED"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewModelNotConfiguredError marks the model integration as absent.
func NewModelNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeModelNotConfigured,
		Message:   "Language model integration is not configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelCallFailedError creates a retryable transport error.
func NewModelCallFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelCallFailed,
		Message:   "Language model call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelOutputInvalidError creates a non-retryable validation error.
func NewModelOutputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelOutputInvalid,
		Message:   "Language model returned malformed output",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaExceededError creates a non-retryable quota error.
func NewQuotaExceededError(businessID string, used, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExceeded,
		Message:   "Monthly query allowance exhausted",
		Details:   fmt.Sprintf("businessId: %s, used: %d, limit: %d", businessID, used, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentNotFoundError creates a non-retryable lookup error.
func NewAgentNotFoundError(businessID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgentNotFound,
		Message:   "No assistant configured for business",
		Details:   fmt.Sprintf("businessId: %s", businessID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageWriteFailedError creates a retryable persistence error.
func NewStorageWriteFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   "Persistence operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageQueryFailedError creates a retryable storage read error.
func NewStorageQueryFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageQueryFailed,
		Message:   "Storage query failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
