package domain

import "fmt"

// ConnectionIdentity names the logical session a socket belongs to.
type ConnectionIdentity struct {
	GameID   string
	PlayerID string
}

func (id ConnectionIdentity) String() string {
	return fmt.Sprintf("%s/%s", id.GameID, id.PlayerID)
}

// Socket is one opened (or opening) transport connection.
// Send and Close must not block the caller on network I/O.
type Socket interface {
	Send(data []byte) error
	Close() error
}

// SocketSink receives the asynchronous signals of exactly one socket.
// Implementations must return quickly; they are called from transport
// goroutines.
type SocketSink interface {
	// Opened fires once the handshake completed.
	Opened()
	// Closed fires once after the socket is gone, whoever closed it.
	// err is nil for a close requested locally.
	Closed(err error)
	// Failed fires instead of Closed when the socket broke abnormally,
	// including a handshake that never completed.
	Failed(err error)
	// Frame delivers one received text frame.
	Frame(data []byte)
}

// Dialer creates sockets. Dial must return without waiting for the
// handshake; it errors only when the address is rejected outright.
type Dialer interface {
	Dial(url string, sink SocketSink) (Socket, error)
}
