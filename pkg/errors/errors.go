// Package errors provides structured error types for FitGlue Media.
//
// Errors carry a code for categorization and for mapping to HTTP status
// codes, a retry hint, and optional metadata for logging.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error identifier for categorization.
type ErrorCode string

const (
	// Validation errors: reported to the user, no state mutated
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeNoMediaFiles      ErrorCode = "NO_MEDIA_FILES"
	CodeNoMatchSelected   ErrorCode = "NO_MATCH_SELECTED"
	CodeCandidateNotFound ErrorCode = "CANDIDATE_NOT_FOUND"
	CodeCandidateLocked   ErrorCode = "CANDIDATE_LOCKED"
	CodeEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"
	CodeBatchInProgress   ErrorCode = "BATCH_IN_PROGRESS"

	// Boundary errors
	CodeCatalogFetchError  ErrorCode = "CATALOG_FETCH_ERROR"
	CodeCatalogUpdateError ErrorCode = "CATALOG_UPDATE_ERROR"
	CodeStorageError       ErrorCode = "STORAGE_ERROR"
	CodePubSubError        ErrorCode = "PUBSUB_ERROR"
	CodeSecretError        ErrorCode = "SECRET_ERROR"

	// General errors
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeTimeoutError  ErrorCode = "TIMEOUT_ERROR"
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError is the base error type for FitGlue Media.
type AppError struct {
	Code      ErrorCode         // Unique error code for categorization
	Message   string            // Human-readable error message
	Cause     error             // Underlying error (if any)
	Retryable bool              // Whether the operation can be retried
	Metadata  map[string]string // Additional context
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code, so derived errors still
// compare equal to the sentinels below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	return &AppError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMessage replaces the message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:      e.Code,
		Message:   msg,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  e.Metadata,
	}
}

// WithMetadata adds contextual metadata.
func (e *AppError) WithMetadata(key, value string) *AppError {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	return &AppError{
		Code:      e.Code,
		Message:   e.Message,
		Cause:     e.Cause,
		Retryable: e.Retryable,
		Metadata:  meta,
	}
}

// Pre-defined sentinel errors for common cases.
// Use these with errors.Is() or derive from them with .WithCause().
var (
	ErrValidation        = &AppError{Code: CodeValidationError, Message: "validation error"}
	ErrNoMediaFiles      = &AppError{Code: CodeNoMediaFiles, Message: "no recognized media files in selection"}
	ErrNoMatchSelected   = &AppError{Code: CodeNoMatchSelected, Message: "select exercises for all GIFs"}
	ErrCandidateNotFound = &AppError{Code: CodeCandidateNotFound, Message: "candidate not found"}
	ErrCandidateLocked   = &AppError{Code: CodeCandidateLocked, Message: "candidate can no longer be changed"}
	ErrEntryNotFound     = &AppError{Code: CodeEntryNotFound, Message: "exercise not found in catalog"}
	ErrBatchInProgress   = &AppError{Code: CodeBatchInProgress, Message: "batch upload already running"}

	ErrCatalogFetch  = &AppError{Code: CodeCatalogFetchError, Message: "failed to load exercise catalog", Retryable: true}
	ErrCatalogUpdate = &AppError{Code: CodeCatalogUpdateError, Message: "failed to update exercise media", Retryable: true}
	ErrStorage       = &AppError{Code: CodeStorageError, Message: "storage error", Retryable: true}
	ErrPubSub        = &AppError{Code: CodePubSubError, Message: "pubsub error", Retryable: true}
	ErrSecret        = &AppError{Code: CodeSecretError, Message: "secret access error", Retryable: true}

	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrTimeout      = &AppError{Code: CodeTimeoutError, Message: "timeout", Retryable: true}
	ErrInternal     = &AppError{Code: CodeInternalError, Message: "internal error"}
)

// New creates a new AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapRetryable wraps an error with a retryable AppError.
func WrapRetryable(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// IsValidation reports whether err is one of the user-facing validation
// errors that leave state untouched.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case CodeValidationError, CodeNoMediaFiles, CodeNoMatchSelected,
		CodeCandidateNotFound, CodeCandidateLocked, CodeEntryNotFound,
		CodeBatchInProgress:
		return true
	}
	return false
}
