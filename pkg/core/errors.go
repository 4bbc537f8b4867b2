// Package core holds the error model shared by the jyn packages.
package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: remote_call_failed, launcher_not_found, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError carrying the same code, so derived copies
// still compare equal to the predefined values below.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	ErrForegroundMismatch = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "foreground_mismatch",
		Message:  "expected app is not in the foreground",
	}
	ErrLauncherNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "launcher_not_found",
		Message:  "launcher package could not be resolved",
	}

	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// ErrRemoteCall is raised when a call into the device fails at the
	// transport level (adb or the UIAutomator2 server).
	ErrRemoteCall = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "remote_call_failed",
		Message:  "remote call to device failed",
	}
	ErrSessionUnavailable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "session_unavailable",
		Message:  "no automation session available",
	}

	ErrLaunchIntentNotFound = &ExecutionError{
		Category: ErrCategoryApp,
		Code:     "launch_intent_not_found",
		Message:  "no launch intent for package",
	}
	ErrActivityStart = &ExecutionError{
		Category: ErrCategoryApp,
		Code:     "activity_start_failed",
		Message:  "activity could not be started",
	}

	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)
