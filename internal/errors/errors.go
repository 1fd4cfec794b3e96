package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a presetvault error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrContentTooLarge      ErrorCode = "CONTENT_TOO_LARGE"     // 413
	ErrSerializationFailure ErrorCode = "SERIALIZATION_FAILURE" // 422
	ErrIOFailure            ErrorCode = "IO_FAILURE"            // 500
	ErrInternal             ErrorCode = "INTERNAL"              // 500
	ErrUnavailable          ErrorCode = "UNAVAILABLE"           // 503
)

// VaultError represents a structured error with code, status, and details.
type VaultError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error, if any. Not exposed to transports.
	cause error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *VaultError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an id with no metadata entry.
func NewNotFound(identifier string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("preset not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewCollectionNotFound creates a 404 error for an unknown collection.
func NewCollectionNotFound(id string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("collection not found: %s", id),
		Details: map[string]any{"identifier": id},
	}
}

// NewFileNotFound creates a 404 error for a missing external file.
func NewFileNotFound(path string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewContentTooLarge creates a 413 error when preset content exceeds the size limit.
func NewContentTooLarge(max, actual int) *VaultError {
	return &VaultError{
		Code:    ErrContentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("preset content exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewContentMissing creates an IO failure for metadata whose content blob is gone.
func NewContentMissing(id string) *VaultError {
	return &VaultError{
		Code:    ErrIOFailure,
		Status:  500,
		Message: fmt.Sprintf("preset content missing: %s", id),
		Details: map[string]any{"identifier": id},
	}
}

// NewIOFailure creates a 500 error for a failed file or store read/write.
func NewIOFailure(op string, err error) *VaultError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &VaultError{
		Code:    ErrIOFailure,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewSerializationFailure creates a 422 error for a stored record that cannot be decoded.
func NewSerializationFailure(what string, err error) *VaultError {
	msg := fmt.Sprintf("cannot decode %s", what)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &VaultError{
		Code:    ErrSerializationFailure,
		Status:  422,
		Message: msg,
		cause:   err,
	}
}

// NewUnavailable creates a 503 error for a capability missing on this device.
func NewUnavailable(capability string) *VaultError {
	return &VaultError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: fmt.Sprintf("%s is not available on this device", capability),
		Details: map[string]any{"capability": capability},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *VaultError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// As returns the first VaultError in err's chain.
func As(err error) (*VaultError, bool) {
	var vErr *VaultError
	if stderrors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// Is checks if an error (or anything it wraps) is a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := As(err); ok {
		return vErr.Code == code
	}
	return false
}
