package connection

import (
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/errors"
	"github.com/cardtable/cards-client/internal/wire"
	"github.com/tidwall/gjson"
)

// Event is one broadcast from the manager. The set is closed: Connecting,
// Connected, Closed, FailedToConnect, ErrorOccurred, Received and
// ReceivedError.
type Event interface {
	eventName() string
}

// Connecting is broadcast when a socket for Identity starts its handshake.
type Connecting struct{ Identity domain.ConnectionIdentity }

// Connected is broadcast when the socket for Identity is live.
type Connected struct{ Identity domain.ConnectionIdentity }

// Closed is broadcast when the transport confirms the socket is gone.
type Closed struct{}

// FailedToConnect is broadcast when the transport refused to create a socket.
type FailedToConnect struct{ Reason string }

// ErrorOccurred is broadcast when the socket broke.
type ErrorOccurred struct{}

// Received carries one well-formed JSON frame.
type Received struct{ Payload Payload }

// ReceivedError reports a frame that was not JSON; the socket stays live.
type ReceivedError struct{ Description string }

func (Connecting) eventName() string      { return "connecting" }
func (Connected) eventName() string       { return "connected" }
func (Closed) eventName() string          { return "closed" }
func (FailedToConnect) eventName() string { return "failed_to_connect" }
func (ErrorOccurred) eventName() string   { return "error_occurred" }
func (Received) eventName() string        { return "received" }
func (ReceivedError) eventName() string   { return "received_error" }

// EventName returns the snake_case name of e, as used in metrics and logs.
func EventName(e Event) string {
	if e == nil {
		return "none"
	}
	return e.eventName()
}

// Payload is a JSON document exchanged over the socket. The manager does not
// interpret it.
type Payload []byte

// NewPayload checks that data is one JSON document.
func NewPayload(data []byte) (Payload, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.WireDecodeError("not valid JSON")
	}
	return Payload(data), nil
}

// PayloadOf encodes m.
func PayloadOf(m wire.Message) (Payload, error) {
	data, err := wire.Encode(m)
	if err != nil {
		return nil, err
	}
	return Payload(data), nil
}

// Message decodes the payload as a protocol message.
func (p Payload) Message() (wire.Message, error) {
	return wire.Decode(p)
}

func (p Payload) String() string {
	return string(p)
}
