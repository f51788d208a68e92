// Package errors provides structured error handling for zmapd operations.
// It defines error codes and typed errors for each failure class so that
// callers can distinguish bad input from environment problems from engine
// failures without parsing message strings.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	CodeUnknown     ErrorCode = "UNKNOWN"
	CodeConfig      ErrorCode = "CONFIG"
	CodeTranslation ErrorCode = "TRANSLATION"
	CodeExecution   ErrorCode = "EXECUTION"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodePermission  ErrorCode = "PERMISSION"
	CodeParse       ErrorCode = "PARSE"
)

// ConfigError reports an invalid scan configuration field. It is always
// caller-correctable and never retried.
type ConfigError struct {
	Field      string
	Value      interface{}
	Constraint string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("[%s] invalid %s: %v (%s)", CodeConfig, e.Field, e.Value, e.Constraint)
}

// NewConfigError creates a configuration error for a specific field.
func NewConfigError(field string, value interface{}, constraint string) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
	}
}

// TranslationError reports a defensive invariant violation detected while
// translating a configuration into engine arguments. It indicates a
// programming error (a configuration mutated out-of-band), not bad caller
// input.
type TranslationError struct {
	Message string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("[%s] %s", CodeTranslation, e.Message)
}

// NewTranslationError creates a new translation error.
func NewTranslationError(format string, args ...interface{}) *TranslationError {
	return &TranslationError{Message: fmt.Sprintf(format, args...)}
}

// ExecError reports a nonzero exit from the scanning engine. It carries the
// exit code, captured stderr, and the full argument list for diagnosability.
type ExecError struct {
	ExitCode int
	Stderr   string
	Args     []string
	Cause    error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" {
		return fmt.Sprintf("[%s] engine exited with code %d: %s (args: %s)",
			CodeExecution, e.ExitCode, stderr, strings.Join(e.Args, " "))
	}
	return fmt.Sprintf("[%s] engine exited with code %d (args: %s)",
		CodeExecution, e.ExitCode, strings.Join(e.Args, " "))
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExecError) Unwrap() error {
	return e.Cause
}

// NewExecError creates a new execution error.
func NewExecError(exitCode int, stderr string, args []string, cause error) *ExecError {
	return &ExecError{
		ExitCode: exitCode,
		Stderr:   stderr,
		Args:     args,
		Cause:    cause,
	}
}

// TimeoutError reports that an engine invocation exceeded the caller's
// deadline. The subprocess has been forcibly terminated; Partial holds
// whatever output was captured before termination.
type TimeoutError struct {
	Elapsed time.Duration
	Partial string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("[%s] engine invocation timed out after %s", CodeTimeout, e.Elapsed)
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(elapsed time.Duration, partial string) *TimeoutError {
	return &TimeoutError{Elapsed: elapsed, Partial: partial}
}

// PermissionError reports an OS privilege or capability denial, distinct
// from a generic engine failure so callers can tell "scan tool broken"
// from "insufficient privilege".
type PermissionError struct {
	Message string
	Cause   error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("[%s] %s", CodePermission, e.Message)
}

// Unwrap returns the underlying error.
func (e *PermissionError) Unwrap() error {
	return e.Cause
}

// NewPermissionError creates a new permission error.
func NewPermissionError(message string, cause error) *PermissionError {
	return &PermissionError{Message: message, Cause: cause}
}

// ParseError reports an unreadable or corrupt result destination. The
// documented zero-results case (engine wrote no file because nothing was
// found) is not a ParseError.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s (path: %s)", CodeParse, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", CodeParse, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new result parsing error.
func NewParseError(path, message string, cause error) *ParseError {
	return &ParseError{Path: path, Message: message, Cause: cause}
}

// Utility functions for common error operations

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch err.(type) {
	case *ConfigError:
		return CodeConfig
	case *TranslationError:
		return CodeTranslation
	case *ExecError:
		return CodeExecution
	case *TimeoutError:
		return CodeTimeout
	case *PermissionError:
		return CodePermission
	case *ParseError:
		return CodeParse
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// HTTPStatus maps an error to the HTTP status code the API layer should
// return for it. Caller-input mistakes map to 4xx, environment and engine
// failures to 5xx.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeConfig:
		return http.StatusBadRequest
	case CodeExecution, CodeParse:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
