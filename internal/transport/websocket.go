package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketDialer opens gorilla/websocket client connections.
type WebSocketDialer struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	readLimit    int64
	sendBuffer   int
	logger       *zap.Logger
}

// Option configures a WebSocketDialer.
type Option func(*WebSocketDialer)

func WithHandshakeTimeout(d time.Duration) Option {
	return func(w *WebSocketDialer) { w.dialer.HandshakeTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(w *WebSocketDialer) { w.writeTimeout = d }
}

func WithReadLimit(n int64) Option {
	return func(w *WebSocketDialer) { w.readLimit = n }
}

func WithSendBuffer(n int) Option {
	return func(w *WebSocketDialer) { w.sendBuffer = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(w *WebSocketDialer) { w.logger = l }
}

// NewDialer creates a dialer with the package defaults.
func NewDialer(opts ...Option) *WebSocketDialer {
	d := &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: constants.DefaultHandshakeTime,
		},
		writeTimeout: constants.DefaultWriteTimeout,
		readLimit:    constants.DefaultReadLimit,
		sendBuffer:   constants.DefaultSendBuffer,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial validates rawURL and starts the handshake in the background. The
// outcome reaches sink as Opened or Failed.
func (d *WebSocketDialer) Dial(rawURL string, sink domain.SocketSink) (domain.Socket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.SocketOpenError(rawURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.SocketOpenError(rawURL, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, errors.SocketOpenError(rawURL, fmt.Errorf("missing host"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &wsSocket{
		url:    rawURL,
		sink:   sink,
		sendCh: make(chan []byte, d.sendBuffer),
		ctx:    ctx,
		cancel: cancel,
		cfg:    d,
		logger: d.logger.With(zap.String("url", rawURL)),
	}
	go s.connect()
	return s, nil
}

// wsSocket is one client connection. Its sink sees exactly one of
// Closed/Failed, after at most one Opened.
type wsSocket struct {
	url    string
	sink   domain.SocketSink
	sendCh chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *WebSocketDialer
	logger *zap.Logger

	mu     sync.Mutex
	opened bool
	closed bool

	closeOnce sync.Once
	endOnce   sync.Once
}

func (s *wsSocket) connect() {
	conn, _, err := s.cfg.dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		if s.isClosed() {
			s.end(func() { s.sink.Closed(nil) })
			return
		}
		s.logger.Debug("Handshake failed", zap.Error(err))
		s.end(func() { s.sink.Failed(errors.NetworkError("socket handshake", err)) })
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		s.end(func() { s.sink.Closed(nil) })
		return
	}
	s.opened = true
	s.mu.Unlock()

	conn.SetReadLimit(s.cfg.readLimit)
	s.sink.Opened()

	go s.writeLoop(conn)
	s.readLoop(conn)
}

func (s *wsSocket) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			s.cancel()
			switch {
			case s.isClosed():
				s.end(func() { s.sink.Closed(nil) })
			case errors.IsNormalClosure(err):
				s.end(func() { s.sink.Closed(err) })
			default:
				s.end(func() { s.sink.Failed(errors.WebSocketError("read", err)) })
			}
			return
		}
		if mt != websocket.TextMessage {
			s.logger.Debug("Dropping non-text frame", zap.Int("message_type", mt), zap.Int("size", len(data)))
			continue
		}
		s.sink.Frame(data)
	}
}

// writeLoop is the only writer of conn, close frame included.
func (s *wsSocket) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case <-s.ctx.Done():
			if s.isClosed() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.closeTimeout()))
				_ = conn.Close()
			}
			return
		case data := <-s.sendCh:
			if s.cfg.writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout))
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("Write failed, dropping connection", zap.Error(err))
				// the read loop observes the broken connection and reports it
				_ = conn.Close()
				return
			}
		}
	}
}

// Send queues one text frame. It never waits for the network.
func (s *wsSocket) Send(data []byte) error {
	s.mu.Lock()
	opened, closed := s.opened, s.closed
	s.mu.Unlock()

	switch {
	case closed:
		return fmt.Errorf("socket closed")
	case !opened:
		return fmt.Errorf("socket not open yet")
	}

	select {
	case s.sendCh <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close abandons the socket in whatever state it is and returns at once.
// An open connection gets its close frame from the write loop; the sink
// later sees Closed(nil).
func (s *wsSocket) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
	})
	return nil
}

func (s *wsSocket) closeTimeout() time.Duration {
	if s.cfg.writeTimeout > 0 {
		return s.cfg.writeTimeout
	}
	return time.Second
}

func (s *wsSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *wsSocket) end(signal func()) {
	s.endOnce.Do(signal)
}
