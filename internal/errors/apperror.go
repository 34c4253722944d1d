package errors

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypeSequencing ErrorType = "sequencing"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorSeverity represents the severity level of errors
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"      // Minor issues, the session continues normally
	SeverityMedium   ErrorSeverity = "medium"   // Notable issues that may affect the player
	SeverityHigh     ErrorSeverity = "high"     // The current session cannot continue
	SeverityCritical ErrorSeverity = "critical" // The client is misconfigured or broken
)

// AppError represents a structured application error
type AppError struct {
	Type        ErrorType     `json:"type"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     string        `json:"details,omitempty"`
	Severity    ErrorSeverity `json:"severity"`
	Timestamp   time.Time     `json:"timestamp"`
	StatusCode  int           `json:"status_code,omitempty"`
	UserMessage string        `json:"user_message,omitempty"`
	Cause       error         `json:"-"`
	StackTrace  string        `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap implements the Unwrap interface for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError with stack trace capture
func New(errorType ErrorType, code string, message string) *AppError {
	return &AppError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Severity:   SeverityMedium,
		Timestamp:  time.Now(),
		StackTrace: captureStackTrace(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errorType ErrorType, code string, message string) *AppError {
	appErr := New(errorType, code, message)
	appErr.Cause = err
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// WithSeverity sets the severity level of an error
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithDetails adds additional details to an error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithUserMessage sets a user-friendly message
func (e *AppError) WithUserMessage(message string) *AppError {
	e.UserMessage = message
	return e
}

// WithStatusCode records the HTTP status an upstream call answered with.
func (e *AppError) WithStatusCode(code int) *AppError {
	e.StatusCode = code
	return e
}

// As returns the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *AppError in err's chain, or "".
func CodeOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ""
}

// UserMessage returns the message meant for the player.
func UserMessage(err error) string {
	appErr, ok := As(err)
	if !ok {
		return err.Error()
	}
	if appErr.UserMessage != "" {
		return appErr.UserMessage
	}

	switch appErr.Type {
	case ErrorTypeValidation:
		return "The request contains invalid data. Please check your input and try again."
	case ErrorTypeProtocol:
		return "The server sent a message this client does not understand."
	case ErrorTypeNetwork:
		return "A network error occurred. Please check your connection and try again."
	case ErrorTypeTimeout:
		return "The request timed out. Please try again."
	case ErrorTypeUpstream:
		return "The game server rejected the request."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
