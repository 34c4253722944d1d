// Package gameserver calls the game server's HTTP round endpoints.
package gameserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/errors"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/transport"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// RoundResponse describes a round after joining or creating it.
type RoundResponse struct {
	ID         string   `json:"id" validate:"required"`
	PlayerID   string   `json:"playerId" validate:"required"`
	GameID     string   `json:"gameId" validate:"required"`
	Status     string   `json:"status"`
	CreatedOn  string   `json:"createdOn"`
	CreatedBy  string   `json:"createdBy"`
	MinPlayers uint32   `json:"minPlayers"`
	MaxPlayers uint32   `json:"maxPlayers" validate:"gtefield=MinPlayers"`
	Public     bool     `json:"public"`
	Players    []string `json:"players"`
}

// Client talks to one game server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the client's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at origin.
func NewClient(origin string, opts ...Option) (*Client, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, errors.ConfigurationError("server.origin", err.Error())
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, errors.ConfigurationError("server.origin", fmt.Sprintf("%q is not an absolute http(s) URL", origin))
	}

	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		validate:   validator.New(),
		logger:     logger.New("gameserver"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// JoinRound joins gameID under username. A non-2xx answer is an
// *errors.AppError with code UPSTREAM_HTTP_STATUS carrying the status.
func (c *Client) JoinRound(ctx context.Context, gameID, username string) (*RoundResponse, error) {
	path := fmt.Sprintf(constants.JoinRoundPath, url.PathEscape(gameID))
	query := url.Values{constants.UsernameParam: {username}}

	start := time.Now()
	resp, err := c.call(ctx, "join round", http.MethodGet, path, query, nil)
	metrics.ObserveJoinHTTPDuration(time.Since(start))
	return resp, err
}

// CreateRound opens a new round of game with username as its creator.
func (c *Client) CreateRound(ctx context.Context, game, username string) (*RoundResponse, error) {
	path := fmt.Sprintf(constants.CreateRoundPath, url.PathEscape(game))
	body := map[string]string{constants.UsernameParam: username}
	return c.call(ctx, "create round", http.MethodPost, path, nil, body)
}

func (c *Client) call(ctx context.Context, operation, method, path string, query url.Values, body any) (*RoundResponse, error) {
	target, err := transport.Resolve(c.base, path, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "BAD_REQUEST_URL", operation+": building URL failed")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "BAD_REQUEST_BODY", operation+": encoding body failed")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "BAD_REQUEST", operation+": building request failed")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Calling game server", zap.String("operation", operation), zap.String("url", target))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.UpstreamStatusError(operation, resp.StatusCode, string(data))
	}

	var round RoundResponse
	if err := json.NewDecoder(resp.Body).Decode(&round); err != nil {
		return nil, errors.UpstreamDecodeError(operation, err)
	}
	if err := c.validate.Struct(&round); err != nil {
		return nil, errors.UpstreamDecodeError(operation, err)
	}

	c.logger.Info("Game server answered",
		zap.String("operation", operation),
		zap.String("game_id", round.GameID),
		zap.String("player_id", round.PlayerID),
		zap.Int("players", len(round.Players)))
	return &round, nil
}
