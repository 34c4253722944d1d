package application

import (
	"context"
	"fmt"

	"github.com/cardtable/cards-client/internal/config"
	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/game"
	"github.com/cardtable/cards-client/internal/gameserver"
	"github.com/cardtable/cards-client/internal/health"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/notify"
	"github.com/cardtable/cards-client/internal/transport"

	"go.uber.org/zap"
)

// ClientBuilder is used to incrementally construct a Client instance.
type ClientBuilder struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config

	dialer        domain.Dialer
	manager       *connection.Manager
	gameServer    *gameserver.Client
	notifications *notify.Bus
	tracker       *game.Tracker
	health        *health.Checker
	metricsServer *metrics.Server
}

// NewClientBuilder creates a new ClientBuilder with its own cancelable context.
func NewClientBuilder(ctx context.Context, cfg *config.Config) *ClientBuilder {
	c, cancel := context.WithCancel(ctx)
	return &ClientBuilder{
		ctx:    c,
		cancel: cancel,
		config: cfg,
	}
}

// WithDialer replaces the WebSocket transport, e.g. with a fake in tests.
func (b *ClientBuilder) WithDialer(d domain.Dialer) *ClientBuilder {
	b.dialer = d
	return b
}

// BuildTransport sets up the WebSocket dialer unless one was supplied.
func (b *ClientBuilder) BuildTransport() {
	if b.dialer != nil {
		return
	}
	t := b.config.Transport
	b.dialer = transport.NewDialer(
		transport.WithHandshakeTimeout(t.HandshakeTimeout),
		transport.WithWriteTimeout(t.WriteTimeout),
		transport.WithReadLimit(t.ReadLimit),
		transport.WithLogger(logger.New("transport")),
	)
}

// BuildConnection sets up the connection manager.
func (b *ClientBuilder) BuildConnection() {
	c := b.config.Connection
	b.manager = connection.New(b.dialer, b.config.Server.Origin,
		connection.WithHistorySize(c.HistorySize),
		connection.WithSendRate(c.SendRate, c.SendBurst),
		connection.WithLogger(logger.New("connection")),
	)
}

// BuildGameServer sets up the HTTP client for the round endpoints.
func (b *ClientBuilder) BuildGameServer() error {
	gs, err := gameserver.NewClient(b.config.Server.Origin,
		gameserver.WithTimeout(b.config.Server.HTTPTimeout),
		gameserver.WithLogger(logger.New("gameserver")),
	)
	if err != nil {
		return err
	}
	b.gameServer = gs
	return nil
}

// BuildSession sets up the notification bus and the session tracker.
func (b *ClientBuilder) BuildSession() {
	b.notifications = notify.NewBus(logger.New("notify"))
	b.tracker = game.NewTracker(b.manager, logger.New("game"))
}

// BuildMetrics sets up the health checker and, when enabled, the metrics
// server.
func (b *ClientBuilder) BuildMetrics() {
	b.health = health.NewChecker(b.manager, logger.New("cards-client"), config.Version)
	if !b.config.Metrics.Enabled {
		return
	}
	metrics.RegisterMetrics()
	b.metricsServer = metrics.NewServer(b.config.Metrics.Port, b.health, logger.New("metrics"))
}

// Build finalizes the client construction.
func (b *ClientBuilder) Build() (*Client, error) {
	if b.dialer == nil {
		return nil, fmt.Errorf("transport must be built before calling Build()")
	}
	if b.manager == nil {
		return nil, fmt.Errorf("connection manager must be built before calling Build()")
	}
	if b.gameServer == nil {
		return nil, fmt.Errorf("game server client must be built before calling Build()")
	}
	if b.notifications == nil || b.tracker == nil {
		return nil, fmt.Errorf("session must be built before calling Build()")
	}
	if b.health == nil {
		return nil, fmt.Errorf("metrics must be built before calling Build()")
	}

	logger.Debug("Client initialized successfully via builder",
		zap.String("origin", b.config.Server.Origin))
	return &Client{
		ctx:           b.ctx,
		cancel:        b.cancel,
		config:        b.config,
		Manager:       b.manager,
		GameServer:    b.gameServer,
		Notifications: b.notifications,
		Tracker:       b.tracker,
		health:        b.health,
		metricsServer: b.metricsServer,
	}, nil
}
