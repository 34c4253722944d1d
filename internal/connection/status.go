package connection

import (
	"fmt"

	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/metrics"
)

// StateKind is the tag of the connection state.
type StateKind int

const (
	Idle StateKind = iota
	Pending
	Live
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Live:
		return "live"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// Status is a snapshot of the connection state. Identity is the zero value
// when Kind is Idle.
type Status struct {
	Kind     StateKind
	Identity domain.ConnectionIdentity
}

func (s Status) String() string {
	if s.Kind == Idle {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Identity)
}

// connState is the manager's state. The socket handle only exists inside
// the pending and live variants.
type connState interface {
	status() Status
}

type idleState struct{}

type pendingState struct{ sock *socketHandle }

type liveState struct{ sock *socketHandle }

func (idleState) status() Status { return Status{Kind: Idle} }

func (s pendingState) status() Status {
	return Status{Kind: Pending, Identity: s.sock.identity}
}

func (s liveState) status() Status {
	return Status{Kind: Live, Identity: s.sock.identity}
}

// handleOf returns the socket held by st, if any.
func handleOf(st connState) *socketHandle {
	switch s := st.(type) {
	case pendingState:
		return s.sock
	case liveState:
		return s.sock
	}
	return nil
}

func gaugeValue(k StateKind) int {
	switch k {
	case Pending:
		return metrics.StatePending
	case Live:
		return metrics.StateLive
	}
	return metrics.StateIdle
}
