package knowledge

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling by the MCP adapter.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeNoActiveCase       = "NO_ACTIVE_CASE"
	CodeNoLayerFound       = "NO_LAYER_FOUND"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
)

// StoreError is a structured error with a machine-readable code.
type StoreError struct {
	Code    string // e.g. NOT_FOUND
	Message string // human-readable description
	Err     error  // wrapped underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches against another StoreError by code.
func (e *StoreError) Is(target error) bool {
	var se *StoreError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// AsCode extracts the StoreError code from an error, or "" if it isn't one.
func AsCode(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return AsCode(err) == code
}

func notFoundf(format string, args ...any) *StoreError {
	return &StoreError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func noActiveCase() *StoreError {
	return &StoreError{Code: CodeNoActiveCase, Message: "no active case and no case_id given"}
}

func noLayerFound(start string) *StoreError {
	return &StoreError{
		Code:    CodeNoLayerFound,
		Message: fmt.Sprintf("no knowledge layer found from %s upward and no global layer exists", start),
	}
}

func validationErr(field, reason string) *StoreError {
	return &StoreError{Code: CodeValidationFailed, Message: fmt.Sprintf("%s: %s", field, reason)}
}

func invariantf(format string, args ...any) *StoreError {
	return &StoreError{Code: CodeInvariantViolation, Message: fmt.Sprintf(format, args...)}
}
