// Package errors provides standardized error handling for sync cycles.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Retrieval path
	ErrCodeRetrievalUnavailable ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrCodeDiscoveryFailed      ErrorCode = "DISCOVERY_FAILED"

	// Delivery path
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Persistence
	ErrCodeStoreError ErrorCode = "STORE_ERROR"

	// Startup only; never produced by a running cycle
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRetrievalUnavailableError marks a source that returned no usable data.
// Not fatal: the engine falls back or reports NoData.
func NewRetrievalUnavailableError(sourceID string, cause error) *StandardError {
	details := fmt.Sprintf("sourceId: %s", sourceID)
	if cause != nil {
		details = fmt.Sprintf("sourceId: %s, error: %s", sourceID, cause.Error())
	}
	return &StandardError{
		Code:      ErrCodeRetrievalUnavailable,
		Message:   "Source returned no usable data",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewDiscoveryFailedError marks a source with no linked fallback target.
// Terminal for the cycle; the engine reports NoData.
func NewDiscoveryFailedError(sourceID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDiscoveryFailed,
		Message:   "No linked fallback target for source",
		Details:   fmt.Sprintf("sourceId: %s", sourceID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaMismatchError marks a required export column that is absent.
// Fails the cycle for that source only.
func NewSchemaMismatchError(column string, available []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaMismatch,
		Message:   "Required export column absent",
		Details:   fmt.Sprintf("column: %s", column),
		Retryable: false,
		Metadata:  map[string]interface{}{"availableColumns": available},
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError marks a sink I/O failure. The dedup state is left
// unmodified so the affected rows retry on the next cycle.
func NewDeliveryFailedError(sink string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Delivery sink failed",
		Details:   fmt.Sprintf("sink: %s, error: %s", sink, cause.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewStoreError marks the dedup persistence as unavailable. Fatal to the
// cycle; dedup checks are never silently skipped.
func NewStoreError(op string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreError,
		Message:   "Dedup store unavailable",
		Details:   fmt.Sprintf("op: %s, error: %s", op, cause.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewConfigInvalidError aborts startup on a bad configuration.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Inspection Helpers
// ==========================

// CodeOf extracts the ErrorCode from err, walking the wrap chain.
// Returns "" when err carries no StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is worth retrying on a later cycle.
// Unknown errors default to retryable: at-least-once delivery means a
// transient failure must never permanently drop rows.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}
