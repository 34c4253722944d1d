package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cardtable/cards-client/internal/config"
	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/console"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/game"
	"github.com/cardtable/cards-client/internal/gameserver"
	"github.com/cardtable/cards-client/internal/health"
	"github.com/cardtable/cards-client/internal/join"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/notify"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Client ties together the components of the game client.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config

	Manager       *connection.Manager
	GameServer    *gameserver.Client
	Notifications *notify.Bus
	Tracker       *game.Tracker

	health        *health.Checker
	metricsServer *metrics.Server
}

// New creates and configures a Client using the ClientBuilder pattern.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	return build(NewClientBuilder(ctx, cfg))
}

func build(builder *ClientBuilder) (*Client, error) {
	builder.BuildTransport()
	builder.BuildConnection()
	if err := builder.BuildGameServer(); err != nil {
		builder.manager.Close()
		return nil, fmt.Errorf("failed building game server client: %w", err)
	}
	builder.BuildSession()
	builder.BuildMetrics()

	client, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build client: %w", err)
	}
	return client, nil
}

// Start starts the metrics server when it is enabled.
func (c *Client) Start() error {
	if c.metricsServer == nil {
		return nil
	}
	return c.metricsServer.Start()
}

// Join starts a join workflow for gameID as username. Failures are also
// sent to the notification bus.
func (c *Client) Join(gameID, username string, nav domain.Navigator, opts ...join.Option) *join.Workflow {
	opts = append([]join.Option{
		join.WithSettleDelay(c.config.Join.SettleDelay),
		join.WithNotifier(c.Notifications),
		join.WithLogger(logger.New("join")),
	}, opts...)
	return join.New(c.GameServer, c.Manager, nav, gameID, username, opts...)
}

// Console attaches a debug console to the connection.
func (c *Client) Console(onChange func(console.Entry)) *console.Model {
	return console.New(c.Manager, onChange, logger.New("console"))
}

// Health returns the health checker.
func (c *Client) Health() *health.Checker {
	return c.health
}

// Config returns the client's configuration.
func (c *Client) Config() *config.Config {
	return c.config
}

// Context is canceled once Shutdown starts.
func (c *Client) Context() context.Context {
	return c.ctx
}

// Shutdown closes the socket and stops every component.
func (c *Client) Shutdown() {
	logger.Info("Shutting down client...")
	c.cancel()

	c.Tracker.Close()
	c.Manager.Close()
	c.Notifications.Close()

	if c.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
	logger.Info("Client shutdown complete")
}
