package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
)

// Client-specific error constructors

// SocketOpenError is raised when the transport refuses to create a socket,
// e.g. a malformed address or a refused dial.
func SocketOpenError(address string, cause error) *AppError {
	return Wrap(cause, ErrorTypeNetwork, "SOCKET_OPEN_FAILED", fmt.Sprintf("Opening socket to %s failed", address)).
		WithSeverity(SeverityHigh).
		WithUserMessage("Could not open a connection to the game server.")
}

// WebSocketError creates an error for WebSocket-related issues
func WebSocketError(operation string, cause error) *AppError {
	var code string
	var severity ErrorSeverity
	var userMessage string

	if websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		code = "WS_NORMAL_CLOSURE"
		severity = SeverityLow
		userMessage = "Connection closed normally."
	} else if websocket.IsCloseError(cause, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		code = "WS_ABNORMAL_CLOSURE"
		severity = SeverityMedium
		userMessage = "Connection lost unexpectedly."
	} else if websocket.IsUnexpectedCloseError(cause, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		code = "WS_UNEXPECTED_CLOSURE"
		severity = SeverityMedium
		userMessage = "Connection closed unexpectedly."
	} else {
		code = "WS_ERROR"
		severity = SeverityMedium
		userMessage = "WebSocket connection error occurred."
	}

	return Wrap(cause, ErrorTypeNetwork, code, fmt.Sprintf("WebSocket %s failed", operation)).
		WithSeverity(severity).
		WithUserMessage(userMessage)
}

// IsNormalClosure reports whether err is the peer closing the socket on purpose.
func IsNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// WireDecodeError creates an error for frames that match no known message.
func WireDecodeError(reason string) *AppError {
	return New(ErrorTypeProtocol, "WIRE_DECODE_FAILED", fmt.Sprintf("Decoding message failed: %s", reason)).
		WithSeverity(SeverityLow).
		WithDetails(reason).
		WithUserMessage("Received a message that could not be understood.")
}

// WireEncodeError creates an error for messages that cannot be serialized.
func WireEncodeError(cause error) *AppError {
	return Wrap(cause, ErrorTypeProtocol, "WIRE_ENCODE_FAILED", "Encoding message failed").
		WithSeverity(SeverityMedium)
}

// UpstreamStatusError is returned when the game server answers with a non-2xx status.
func UpstreamStatusError(operation string, status int, body string) *AppError {
	severity := SeverityMedium
	if status >= 500 {
		severity = SeverityHigh
	}
	appErr := New(ErrorTypeUpstream, "UPSTREAM_HTTP_STATUS", fmt.Sprintf("%s returned status %d", operation, status)).
		WithSeverity(severity).
		WithStatusCode(status).
		WithUserMessage(fmt.Sprintf("The game server answered with status %d.", status))
	if body = strings.TrimSpace(body); body != "" {
		appErr.Details = body
	}
	return appErr
}

// UpstreamDecodeError is returned when a 2xx response body is not what was expected.
func UpstreamDecodeError(operation string, cause error) *AppError {
	return Wrap(cause, ErrorTypeUpstream, "UPSTREAM_BAD_RESPONSE", fmt.Sprintf("%s returned an unreadable body", operation)).
		WithSeverity(SeverityMedium).
		WithUserMessage("The game server sent an unexpected response.")
}

// ImpossibleTransitionError records an event that makes no sense in the current state.
func ImpossibleTransitionError(state, event string) *AppError {
	return New(ErrorTypeSequencing, "IMPOSSIBLE_TRANSITION", fmt.Sprintf("Impossible transition from %s on %s", state, event)).
		WithSeverity(SeverityHigh)
}

// ConfigurationError creates an error for configuration issues
func ConfigurationError(field, reason string) *AppError {
	return New(ErrorTypeValidation, "CONFIGURATION_ERROR", fmt.Sprintf("Configuration error in %s: %s", field, reason)).
		WithSeverity(SeverityCritical).
		WithUserMessage("The client is misconfigured.")
}

// NetworkError creates an error for network-related issues
func NetworkError(operation string, cause error) *AppError {
	var code string
	severity := SeverityMedium
	userMessage := "Network error occurred. Please check your connection."

	var opErr *net.OpError
	var netErr net.Error
	var errno syscall.Errno

	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		return Wrap(cause, ErrorTypeTimeout, "NETWORK_TIMEOUT", fmt.Sprintf("Network %s timed out", operation)).
			WithUserMessage("Network operation timed out. Please try again.")
	case errors.Is(cause, context.Canceled):
		code = "NETWORK_CANCELED"
		severity = SeverityLow
		userMessage = "The request was canceled."
	case errors.As(cause, &errno):
		switch errno {
		case syscall.ECONNREFUSED:
			code = "CONNECTION_REFUSED"
			severity = SeverityHigh
			userMessage = "Connection refused by remote server."
		case syscall.ECONNRESET:
			code = "CONNECTION_RESET"
			userMessage = "Connection was reset by remote server."
		case syscall.ETIMEDOUT:
			code = "CONNECTION_TIMEOUT"
			userMessage = "Connection timed out."
		default:
			code = "SYSTEM_ERROR"
		}
	case errors.As(cause, &netErr) && netErr.Timeout():
		return Wrap(cause, ErrorTypeTimeout, "NETWORK_TIMEOUT", fmt.Sprintf("Network %s timed out", operation)).
			WithUserMessage("Network operation timed out. Please try again.")
	case errors.As(cause, &opErr):
		switch opErr.Op {
		case "dial":
			code = "NETWORK_DIAL_FAILED"
			severity = SeverityHigh
			userMessage = "Failed to establish network connection."
		case "read":
			code = "NETWORK_READ_FAILED"
			userMessage = "Failed to read from network connection."
		case "write":
			code = "NETWORK_WRITE_FAILED"
			userMessage = "Failed to write to network connection."
		default:
			code = "NETWORK_OP_FAILED"
		}
	case isTemporaryNetError(cause):
		code = "NETWORK_TEMPORARY"
		severity = SeverityLow
		userMessage = "Temporary network error. Please try again."
	default:
		code = "NETWORK_UNKNOWN"
	}

	return Wrap(cause, ErrorTypeNetwork, code, fmt.Sprintf("Network %s failed", operation)).
		WithSeverity(severity).
		WithUserMessage(userMessage)
}

// IsRecoverable determines if an error is recoverable (can be retried)
func IsRecoverable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case ErrorTypeTimeout, ErrorTypeNetwork:
		return appErr.Severity != SeverityCritical
	case ErrorTypeUpstream:
		// 5xx may clear up, 4xx will not without a different request
		return appErr.StatusCode >= 500
	case ErrorTypeProtocol:
		// a bad frame does not end the session
		return true
	case ErrorTypeValidation, ErrorTypeSequencing:
		return false
	case ErrorTypeInternal:
		return appErr.Severity == SeverityLow || appErr.Severity == SeverityMedium
	}
	return false
}

// isTemporaryNetError checks if a network error is temporary
// This replaces the deprecated netErr.Temporary() method
func isTemporaryNetError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	temporaryPatterns := []string{
		"connection refused",
		"no route to host",
		"network is unreachable",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
	}

	for _, pattern := range temporaryPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
