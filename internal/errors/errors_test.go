package errors

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(cause, ErrorTypeNetwork, "X", "wrapped")

	if err.Details != "boom" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the cause")
	}
	if got := err.Error(); got != "[network:X] wrapped: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAsFindsWrappedAppError(t *testing.T) {
	inner := UpstreamStatusError("join round", 404, "no such round")
	outer := fmt.Errorf("joining: %w", inner)

	appErr, ok := As(outer)
	if !ok {
		t.Fatal("As() did not find the AppError")
	}
	if appErr.StatusCode != 404 || CodeOf(outer) != "UPSTREAM_HTTP_STATUS" {
		t.Errorf("got status %d code %q", appErr.StatusCode, CodeOf(outer))
	}
	if appErr.Details != "no such round" {
		t.Errorf("Details = %q", appErr.Details)
	}
}

func TestWebSocketErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  string
	}{
		{"normal", &websocket.CloseError{Code: websocket.CloseNormalClosure}, "WS_NORMAL_CLOSURE"},
		{"going away", &websocket.CloseError{Code: websocket.CloseGoingAway}, "WS_ABNORMAL_CLOSURE"},
		{"policy", &websocket.CloseError{Code: websocket.ClosePolicyViolation}, "WS_UNEXPECTED_CLOSURE"},
		{"other", fmt.Errorf("broken"), "WS_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WebSocketError("read", tt.cause).Code; got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  string
		typ   ErrorType
	}{
		{"deadline", context.DeadlineExceeded, "NETWORK_TIMEOUT", ErrorTypeTimeout},
		{"canceled", context.Canceled, "NETWORK_CANCELED", ErrorTypeNetwork},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, "CONNECTION_REFUSED", ErrorTypeNetwork},
		{"dial", &net.OpError{Op: "dial", Err: fmt.Errorf("no such host")}, "NETWORK_DIAL_FAILED", ErrorTypeNetwork},
		{"pattern", fmt.Errorf("write: broken pipe"), "NETWORK_TEMPORARY", ErrorTypeNetwork},
		{"unknown", fmt.Errorf("mystery"), "NETWORK_UNKNOWN", ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NetworkError("join round", tt.cause)
			if err.Code != tt.code || err.Type != tt.typ {
				t.Errorf("got %s/%s, want %s/%s", err.Type, err.Code, tt.typ, tt.code)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", UpstreamStatusError("join", 503, ""), true},
		{"client error", UpstreamStatusError("join", 404, ""), false},
		{"decode", WireDecodeError("not json"), true},
		{"sequencing", ImpossibleTransitionError("Joining", "Connected"), false},
		{"network", NetworkError("join", fmt.Errorf("x")), true},
		{"plain", fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(fmt.Errorf("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
	if got := UserMessage(UpstreamStatusError("join", 500, "")); got != "The game server answered with status 500." {
		t.Errorf("UserMessage(status) = %q", got)
	}
	if got := UserMessage(New(ErrorTypeTimeout, "T", "t")); got != "The request timed out. Please try again." {
		t.Errorf("UserMessage(timeout) = %q", got)
	}
}

func TestHandlerLogsBySeverity(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewHandler(zap.New(core))

	if h.Handle("noop", nil) != nil {
		t.Error("Handle(nil) should return nil")
	}

	h.Handle("decode frame", WireDecodeError("bad"))
	h.Handle("join round", UpstreamStatusError("join round", 502, ""))
	plain := h.Handle("mystery", fmt.Errorf("boom"))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("low severity logged at %v", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["status_code"] != int64(502) {
		t.Errorf("upstream entry = %v %v", entries[1].Level, entries[1].ContextMap())
	}
	if plain.Code != "INTERNAL_ERROR" {
		t.Errorf("plain error classified as %q", plain.Code)
	}
	if entries[1].ContextMap()["recoverable"] != true || entries[2].ContextMap()["recoverable"] != false {
		t.Errorf("recoverable = %v, %v", entries[1].ContextMap()["recoverable"], entries[2].ContextMap()["recoverable"])
	}
}
