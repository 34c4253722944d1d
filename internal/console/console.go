// Package console is the model behind the WebSocket debug console: a
// numbered, newest-first history of everything that happened on the
// connection, plus commands to connect, ping, send raw JSON and close.
package console

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/wire"
	"github.com/cardtable/cards-client/internal/workers"
	"go.uber.org/zap"
)

// MaxHistory is the number of lines the console keeps.
const MaxHistory = 500

// Connector is the part of the connection manager the console drives.
type Connector interface {
	EnsureConnected(id domain.ConnectionIdentity) connection.Status
	GetStatus() connection.Status
	Send(payload connection.Payload)
	CloseSocket()
	Subscribe(id connection.SubscriberID, listen connection.Listener)
	Unsubscribe(id connection.SubscriberID)
}

// Entry is one history line.
type Entry struct {
	ID   uint64
	Line string
}

func (e Entry) String() string {
	return fmt.Sprintf("%d. %s", e.ID, e.Line)
}

// Model holds the console state. Every method is safe for concurrent use.
type Model struct {
	loop     *workers.Loop
	conn     Connector
	subID    connection.SubscriberID
	logger   *zap.Logger
	onChange func(Entry)

	history  []Entry // newest first
	lastID   uint64
	status   connection.Status
	gameID   string
	playerID string
}

// New attaches a console to conn. onChange, if set, sees every new line on
// the console's goroutine.
func New(conn Connector, onChange func(Entry), l *zap.Logger) *Model {
	if l == nil {
		l = logger.New("console")
	}
	m := &Model{
		loop:     workers.NewLoop(),
		conn:     conn,
		subID:    connection.NewSubscriberID(),
		logger:   l,
		onChange: onChange,
		history:  make([]Entry, 0, MaxHistory),
	}
	conn.Subscribe(m.subID, func(e connection.Event) {
		m.loop.Post(func() { m.onEvent(e) })
	})
	m.loop.Post(func() { m.changeStatus(conn.GetStatus()) })
	return m
}

// Connect opens the socket for (gameID, playerID).
func (m *Model) Connect(gameID, playerID string) {
	m.loop.Post(func() {
		m.gameID, m.playerID = gameID, playerID
		m.conn.EnsureConnected(domain.ConnectionIdentity{GameID: gameID, PlayerID: playerID})
	})
}

// Ping sends a PING message.
func (m *Model) Ping() {
	m.loop.Post(func() {
		payload, err := connection.PayloadOf(wire.Ping{})
		if err != nil {
			m.push(fmt.Sprintf("ERROR: %v", err))
			return
		}
		m.send(payload)
	})
}

// SendRaw sends text if it is JSON; otherwise the error goes to the history.
func (m *Model) SendRaw(text string) {
	m.loop.Post(func() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(text)); err != nil {
			m.push(fmt.Sprintf("ERROR: Message is not correct JSON: %v", err))
			return
		}
		m.send(connection.Payload(buf.Bytes()))
	})
}

// Close closes the socket.
func (m *Model) Close() {
	m.conn.CloseSocket()
}

// History returns the lines, newest first.
func (m *Model) History() []Entry {
	var out []Entry
	m.loop.Call(func() { out = append(out, m.history...) })
	return out
}

// Status returns the connection status as last seen by the console.
func (m *Model) Status() connection.Status {
	var st connection.Status
	m.loop.Call(func() { st = m.status })
	return st
}

// Session returns the game and player ids the console is set to.
func (m *Model) Session() (gameID, playerID string) {
	m.loop.Call(func() { gameID, playerID = m.gameID, m.playerID })
	return gameID, playerID
}

// StatusLine describes the status for display.
func StatusLine(st connection.Status) string {
	switch st.Kind {
	case connection.Pending:
		return fmt.Sprintf("Connecting to game %s as %s", st.Identity.GameID, st.Identity.PlayerID)
	case connection.Live:
		return fmt.Sprintf("Connected to game %s as %s", st.Identity.GameID, st.Identity.PlayerID)
	}
	return "Not connected"
}

// Stop detaches the console from the manager.
func (m *Model) Stop() {
	m.conn.Unsubscribe(m.subID)
	m.loop.Stop()
}

func (m *Model) send(payload connection.Payload) {
	m.push(constants.HistoryOutgoing + payload.String())
	m.conn.Send(payload)
}

func (m *Model) onEvent(e connection.Event) {
	switch ev := e.(type) {
	case connection.Connecting:
		m.changeStatus(connection.Status{Kind: connection.Pending, Identity: ev.Identity})
		m.push("Connecting...")
	case connection.Connected:
		m.changeStatus(connection.Status{Kind: connection.Live, Identity: ev.Identity})
		m.push("Connected")
	case connection.Closed:
		m.changeStatus(connection.Status{Kind: connection.Idle})
		m.push("Disconnected")
	case connection.FailedToConnect:
		m.changeStatus(connection.Status{Kind: connection.Idle})
		m.push(fmt.Sprintf("Failed to connect: %s", ev.Reason))
	case connection.ErrorOccurred:
		m.push("An unknown error occurred.")
		m.changeStatus(connection.Status{Kind: connection.Idle})
	case connection.Received:
		m.push(constants.HistoryIncoming + ev.Payload.String())
	case connection.ReceivedError:
		m.push(fmt.Sprintf("Failed to decode received data: %q", ev.Description))
	}
}

func (m *Model) changeStatus(st connection.Status) {
	if st.Kind != connection.Idle {
		m.gameID, m.playerID = st.Identity.GameID, st.Identity.PlayerID
	}
	m.status = st
}

func (m *Model) push(line string) {
	if len(m.history) >= MaxHistory {
		m.history = m.history[:MaxHistory-1]
	}
	m.lastID++
	e := Entry{ID: m.lastID, Line: line}
	m.history = append(m.history, Entry{})
	copy(m.history[1:], m.history)
	m.history[0] = e
	m.logger.Debug("Console", zap.String("line", line))
	if m.onChange != nil {
		m.onChange(e)
	}
}
