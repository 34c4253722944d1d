package constants

import "time"

// Game server routes
const (
	// JoinRoundPath takes the game id; the HTTP join call adds ?username=
	// and the socket address adds ?playerId=.
	JoinRoundPath = "/api/round/%s/join"
	// CreateRoundPath takes the game name.
	CreateRoundPath = "/api/round/create/%s"

	UsernameParam = "username"
	PlayerIDParam = "playerId"
)

// Connection defaults
const (
	DefaultHistorySize   = 500
	DefaultSettleDelay   = 3 * time.Second
	DefaultSendBuffer    = 256
	DefaultReadLimit     = 1 << 20
	DefaultWriteTimeout  = 10 * time.Second
	DefaultHandshakeTime = 10 * time.Second
)

// HealthCheckTimeout bounds a single /healthz evaluation, in seconds.
const HealthCheckTimeout = 5

// Frame prefixes used in the connection history.
const (
	HistoryOutgoing = "-> "
	HistoryIncoming = "<- "
)
