package connection

import (
	"fmt"

	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/errors"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/transport"
	"github.com/cardtable/cards-client/internal/wire"
	"github.com/cardtable/cards-client/internal/workers"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Listener receives manager broadcasts. It runs on the manager's loop.
type Listener func(Event)

// SubscriberID identifies one registration with a Manager.
type SubscriberID uuid.UUID

// NewSubscriberID returns a fresh, unique handle.
func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.New())
}

func (id SubscriberID) String() string {
	return uuid.UUID(id).String()
}

type subscriber struct {
	id     SubscriberID
	listen Listener
}

// socketHandle is one socket together with the session it was opened for.
type socketHandle struct {
	socket   domain.Socket
	gen      uint64
	identity domain.ConnectionIdentity
	url      string
	closed   bool
}

func (h *socketHandle) close() {
	if h.closed {
		return
	}
	h.closed = true
	_ = h.socket.Close()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithHistorySize bounds the activity history.
func WithHistorySize(n int) Option {
	return func(m *Manager) { m.history = NewHistory(n) }
}

// WithSendRate limits outbound frames to r per second with the given burst.
// A non-positive rate disables the limit.
func WithSendRate(r float64, burst int) Option {
	return func(m *Manager) {
		if r <= 0 {
			m.limiter = nil
			return
		}
		m.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// Manager owns the connection to the game server.
type Manager struct {
	loop    *workers.Loop
	dialer  domain.Dialer
	origin  string
	logger  *zap.Logger
	errs    *errors.Handler
	limiter *rate.Limiter
	history *History

	state       connState
	closing     map[*socketHandle]struct{}
	subscribers []subscriber
	nextGen     uint64
}

// New creates an idle manager that dials through dialer. origin is the
// page origin socket addresses are derived from.
func New(dialer domain.Dialer, origin string, opts ...Option) *Manager {
	m := &Manager{
		dialer:  dialer,
		origin:  origin,
		logger:  logger.New("connection"),
		history: NewHistory(constants.DefaultHistorySize),
		state:   idleState{},
		closing: make(map[*socketHandle]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.errs = errors.NewHandler(m.logger)
	m.loop = workers.NewLoop()
	metrics.SetConnectionState(metrics.StateIdle)
	return m
}

// EnsureConnected makes sure a socket exists for id and returns the status
// after the call. A pending or live socket for the same id is kept as is.
func (m *Manager) EnsureConnected(id domain.ConnectionIdentity) Status {
	st := Status{Kind: Idle}
	m.loop.Call(func() { st = m.ensureConnected(id) })
	return st
}

// Send writes payload on the live socket. Anything else drops it.
func (m *Manager) Send(payload Payload) {
	m.loop.Post(func() { m.send(payload) })
}

// SendMessage encodes msg and sends it.
func (m *Manager) SendMessage(msg wire.Message) error {
	payload, err := PayloadOf(msg)
	if err != nil {
		return err
	}
	m.Send(payload)
	return nil
}

// CloseSocket drops any socket. Subscribers see Closed once the transport
// confirms it.
func (m *Manager) CloseSocket() {
	m.loop.Post(m.closeSocket)
}

// GetStatus returns the current status to the caller only.
func (m *Manager) GetStatus() Status {
	st := Status{Kind: Idle}
	m.loop.Call(func() { st = m.state.status() })
	return st
}

// History returns the activity log, oldest first.
func (m *Manager) History() []string {
	var lines []string
	m.loop.Call(func() { lines = m.history.Lines() })
	return lines
}

// Subscribe registers listen under id. It only sees events emitted after
// the registration is processed. Registering the same id again is a no-op.
func (m *Manager) Subscribe(id SubscriberID, listen Listener) {
	m.loop.Post(func() {
		for _, s := range m.subscribers {
			if s.id == id {
				m.logger.Debug("Subscriber already registered", zap.Stringer("subscriber", id))
				return
			}
		}
		m.subscribers = append(m.subscribers, subscriber{id: id, listen: listen})
		metrics.SetSubscribers(len(m.subscribers))
	})
}

// Unsubscribe removes id. Removing an unknown id does nothing.
func (m *Manager) Unsubscribe(id SubscriberID) {
	m.loop.Post(func() {
		for i, s := range m.subscribers {
			if s.id == id {
				m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
				metrics.SetSubscribers(len(m.subscribers))
				return
			}
		}
		m.logger.Warn("Unsubscribe of unknown subscriber", zap.Stringer("subscriber", id))
	})
}

// Close drops the socket and stops the manager. Later calls are ignored.
func (m *Manager) Close() {
	m.loop.Post(func() {
		if h := handleOf(m.state); h != nil {
			h.close()
		}
		m.setState(idleState{})
	})
	m.loop.Stop()
}

func (m *Manager) ensureConnected(id domain.ConnectionIdentity) Status {
	current := m.state.status()
	if current.Kind != Idle && current.Identity == id {
		m.logger.Debug("Already connected or connecting", zap.Stringer("status", current))
		return current
	}

	if h := handleOf(m.state); h != nil {
		m.logger.Info("Switching session, closing previous socket",
			zap.Stringer("from", h.identity), zap.Stringer("to", id))
		h.close()
		m.setState(idleState{})
	}

	url, err := transport.SocketURL(m.origin, id)
	if err != nil {
		m.failToConnect(errors.SocketOpenError(m.origin, err))
		return m.state.status()
	}

	m.nextGen++
	h := &socketHandle{gen: m.nextGen, identity: id, url: url}
	sock, err := m.dialer.Dial(url, &sink{m: m, h: h})
	if err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.SocketOpenError(url, err)
		}
		m.failToConnect(err)
		return m.state.status()
	}
	h.socket = sock

	// Confirmations of sockets closed earlier would arrive after Connecting
	// and contradict the new status.
	for old := range m.closing {
		m.logger.Debug("Forgetting close confirmation of a replaced socket", zap.Uint64("generation", old.gen))
		delete(m.closing, old)
	}

	m.setState(pendingState{sock: h})
	m.history.Add(fmt.Sprintf("Connecting to %s...", url))
	metrics.IncrementConnectionsOpened()
	m.logger.Info("Connecting", zap.String("url", url), zap.Uint64("generation", h.gen))
	m.broadcast(Connecting{Identity: id})
	return m.state.status()
}

func (m *Manager) failToConnect(err error) {
	appErr := m.errs.Handle("open socket", err)
	reason := appErr.Message
	if appErr.Details != "" {
		reason = fmt.Sprintf("%s: %s", appErr.Message, appErr.Details)
	}
	m.history.Add(fmt.Sprintf("WebSocket connection failed: %s", reason))
	m.broadcast(FailedToConnect{Reason: reason})
}

func (m *Manager) send(payload Payload) {
	live, ok := m.state.(liveState)
	if !ok {
		m.drop(metrics.DropNotLive, "Tried to send on non-opened WebSocket. Ignoring.", payload)
		return
	}
	if m.limiter != nil && !m.limiter.Allow() {
		m.drop(metrics.DropRateLimited, "Send rate exceeded, dropping frame", payload)
		return
	}
	if err := live.sock.socket.Send(payload); err != nil {
		m.drop(metrics.DropWriteFailed, "Send failed, dropping frame", payload, zap.Error(err))
		return
	}
	metrics.IncrementFramesSent()
	m.history.Add(constants.HistoryOutgoing + payload.String())
}

func (m *Manager) drop(reason, msg string, payload Payload, fields ...zap.Field) {
	metrics.IncrementFramesDropped(reason)
	fields = append(fields,
		zap.String("reason", reason),
		zap.Stringer("status", m.state.status()),
		zap.Int("size", len(payload)))
	m.logger.Warn(msg, fields...)
}

func (m *Manager) closeSocket() {
	h := handleOf(m.state)
	if h == nil {
		m.logger.Debug("Close requested with no socket")
		return
	}
	m.closing[h] = struct{}{}
	h.close()
	m.setState(idleState{})
	m.logger.Info("Socket closed on request", zap.Stringer("identity", h.identity))
}

func (m *Manager) onOpened(h *socketHandle) {
	current := handleOf(m.state)
	if h == current {
		if _, ok := m.state.(pendingState); ok {
			m.setState(liveState{sock: h})
			m.logger.Info("Connected", zap.Stringer("identity", h.identity))
			m.broadcast(Connected{Identity: h.identity})
			return
		}
		m.unexpectedOpen(h)
		return
	}
	if h.closed {
		m.logger.Debug("Ignoring open of an abandoned socket", zap.Uint64("generation", h.gen))
		return
	}
	if current != nil {
		h.close()
		return
	}
	m.unexpectedOpen(h)
}

// unexpectedOpen handles an open signal that no pending state asked for.
// The socket is closed so that it cannot linger.
func (m *Manager) unexpectedOpen(h *socketHandle) {
	m.logger.Error("Socket opened while not pending",
		zap.Uint64("generation", h.gen),
		zap.Stringer("status", m.state.status()))
	h.close()
	m.setState(idleState{})
	m.broadcast(ErrorOccurred{})
}

func (m *Manager) onClosed(h *socketHandle, err error) {
	if _, ok := m.closing[h]; ok {
		delete(m.closing, h)
		m.history.Add("Closed")
		m.broadcast(Closed{})
		return
	}
	if h != handleOf(m.state) {
		m.logger.Debug("Ignoring close of a superseded socket", zap.Uint64("generation", h.gen))
		return
	}
	h.closed = true
	m.setState(idleState{})
	m.history.Add("Closed")
	m.logger.Info("Socket closed by peer", zap.Stringer("identity", h.identity), zap.Error(err))
	m.broadcast(Closed{})
}

func (m *Manager) onFailed(h *socketHandle, err error) {
	if _, ok := m.closing[h]; ok {
		delete(m.closing, h)
		m.history.Add("Closed")
		m.broadcast(Closed{})
		return
	}
	if h != handleOf(m.state) {
		m.logger.Debug("Ignoring failure of a superseded socket", zap.Uint64("generation", h.gen), zap.Error(err))
		return
	}
	h.close()
	m.setState(idleState{})
	m.history.Add(fmt.Sprintf("WebSocket connection failed: %v", err))
	m.errs.Handle("socket", err, zap.Stringer("identity", h.identity))
	m.broadcast(ErrorOccurred{})
}

func (m *Manager) onFrame(h *socketHandle, data []byte) {
	live, ok := m.state.(liveState)
	if !ok || live.sock != h {
		m.logger.Debug("Ignoring frame from a socket that is not live", zap.Uint64("generation", h.gen))
		return
	}
	metrics.IncrementFramesReceived()
	m.history.Add(constants.HistoryIncoming + string(data))

	payload, err := NewPayload(data)
	if err != nil {
		metrics.IncrementDecodeErrors()
		m.logger.Warn("Received frame is not JSON", zap.Int("size", len(data)), zap.Error(err))
		m.broadcast(ReceivedError{Description: fmt.Sprintf("frame is not valid JSON: %q", truncate(data, 128))})
		return
	}
	m.broadcast(Received{Payload: payload})
}

func (m *Manager) setState(st connState) {
	m.state = st
	metrics.SetConnectionState(gaugeValue(st.status().Kind))
}

func (m *Manager) broadcast(e Event) {
	metrics.IncrementBroadcasts(EventName(e))
	for _, s := range m.subscribers {
		m.deliver(s, e)
	}
}

func (m *Manager) deliver(s subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Listener panicked",
				zap.Stringer("subscriber", s.id),
				zap.String("event", EventName(e)),
				zap.Any("panic", r))
		}
	}()
	s.listen(e)
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}

// sink forwards the signals of one socket to the manager's loop.
type sink struct {
	m *Manager
	h *socketHandle
}

func (s *sink) Opened()           { s.m.loop.Post(func() { s.m.onOpened(s.h) }) }
func (s *sink) Closed(err error)  { s.m.loop.Post(func() { s.m.onClosed(s.h, err) }) }
func (s *sink) Failed(err error)  { s.m.loop.Post(func() { s.m.onFailed(s.h, err) }) }
func (s *sink) Frame(data []byte) { s.m.loop.Post(func() { s.m.onFrame(s.h, data) }) }
