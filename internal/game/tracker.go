// Package game follows the connection of the session being played and
// reports changes of its status and the protocol messages it receives.
package game

import (
	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/wire"
	"github.com/cardtable/cards-client/internal/workers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Connector is the part of the connection manager a Tracker uses.
type Connector interface {
	EnsureConnected(id domain.ConnectionIdentity) connection.Status
	GetStatus() connection.Status
	SendMessage(msg wire.Message) error
	Subscribe(id connection.SubscriberID, listen connection.Listener)
	Unsubscribe(id connection.SubscriberID)
}

// Handlers receive tracker updates on the tracker's goroutine. Either may
// be nil.
type Handlers struct {
	Status  func(connection.Status)
	Message func(wire.Message)
}

type trackerSubscriber struct {
	id uuid.UUID
	h  Handlers
}

// Tracker keeps the last known connection status and only reports real
// changes of it.
type Tracker struct {
	loop   *workers.Loop
	conn   Connector
	subID  connection.SubscriberID
	logger *zap.Logger

	status connection.Status
	subs   []trackerSubscriber
}

// NewTracker subscribes to conn and picks up its current status.
func NewTracker(conn Connector, l *zap.Logger) *Tracker {
	if l == nil {
		l = logger.New("game")
	}
	t := &Tracker{
		loop:   workers.NewLoop(),
		conn:   conn,
		subID:  connection.NewSubscriberID(),
		logger: l,
	}
	conn.Subscribe(t.subID, func(e connection.Event) {
		t.loop.Post(func() { t.onEvent(e) })
	})
	t.loop.Post(func() { t.update(conn.GetStatus()) })
	return t
}

// EnsureConnected asks the manager for a socket for id without waiting.
func (t *Tracker) EnsureConnected(id domain.ConnectionIdentity) {
	t.loop.Post(func() { t.conn.EnsureConnected(id) })
}

// Send encodes msg and hands it to the manager, which drops it unless the
// session is live. Only encoding errors are returned.
func (t *Tracker) Send(msg wire.Message) error {
	return t.conn.SendMessage(msg)
}

// Status returns the last known status.
func (t *Tracker) Status() connection.Status {
	var st connection.Status
	t.loop.Call(func() { st = t.status })
	return st
}

// Subscribe registers h and returns its handle.
func (t *Tracker) Subscribe(h Handlers) uuid.UUID {
	id := uuid.New()
	t.loop.Post(func() {
		t.subs = append(t.subs, trackerSubscriber{id: id, h: h})
	})
	return id
}

// Unsubscribe removes id if present.
func (t *Tracker) Unsubscribe(id uuid.UUID) {
	t.loop.Post(func() {
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
				return
			}
		}
	})
}

// Close detaches the tracker from the manager.
func (t *Tracker) Close() {
	t.conn.Unsubscribe(t.subID)
	t.loop.Stop()
}

func (t *Tracker) onEvent(e connection.Event) {
	switch ev := e.(type) {
	case connection.Connecting:
		t.update(connection.Status{Kind: connection.Pending, Identity: ev.Identity})
	case connection.Connected:
		t.update(connection.Status{Kind: connection.Live, Identity: ev.Identity})
	case connection.Closed, connection.FailedToConnect, connection.ErrorOccurred:
		t.update(connection.Status{Kind: connection.Idle})
	case connection.Received:
		msg, err := ev.Payload.Message()
		if err != nil {
			metrics.IncrementDecodeErrors()
			t.logger.Warn("Received message could not be decoded", zap.Error(err))
			return
		}
		t.logger.Debug("Received", zap.String("type", string(msg.Type())))
		for _, s := range t.subs {
			if s.h.Message != nil {
				s.h.Message(msg)
			}
		}
	case connection.ReceivedError:
	}
}

func (t *Tracker) update(st connection.Status) {
	if st == t.status {
		return
	}
	t.status = st
	t.logger.Debug("Connection status changed", zap.Stringer("status", st))
	for _, s := range t.subs {
		if s.h.Status != nil {
			s.h.Status(st)
		}
	}
}
