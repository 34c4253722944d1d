// Package join drives the act of joining a game: the HTTP join call, the
// socket for the returned player, a short settle delay, then navigation into
// the game.
package join

import (
	"context"
	"fmt"
	"time"

	"github.com/cardtable/cards-client/internal/connection"
	"github.com/cardtable/cards-client/internal/constants"
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/errors"
	"github.com/cardtable/cards-client/internal/gameserver"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/metrics"
	"github.com/cardtable/cards-client/internal/workers"
	"go.uber.org/zap"
)

// RoundJoiner performs the HTTP join call.
type RoundJoiner interface {
	JoinRound(ctx context.Context, gameID, username string) (*gameserver.RoundResponse, error)
}

// Connector is the part of the connection manager a workflow uses.
type Connector interface {
	EnsureConnected(id domain.ConnectionIdentity) connection.Status
	Subscribe(id connection.SubscriberID, listen connection.Listener)
	Unsubscribe(id connection.SubscriberID)
}

// Observer is told about every step change. It runs on the workflow's loop
// and must not call Close.
type Observer func(gameID string, step Step)

// Option configures a Workflow.
type Option func(*Workflow)

// WithSettleDelay sets the wait between the socket going live and navigation.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Workflow) { w.settle = d }
}

// WithNotifier reports failures to n.
func WithNotifier(n domain.Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// WithObserver registers o before the workflow starts.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observers = append(w.observers, o) }
}

// WithLogger sets the workflow's logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) { w.base = l }
}

// Workflow is one join attempt, restartable with Reset.
type Workflow struct {
	loop      *workers.Loop
	joiner    RoundJoiner
	conn      Connector
	nav       domain.Navigator
	notifier  domain.Notifier
	settle    time.Duration
	base      *zap.Logger
	logger    *zap.Logger
	errs      *errors.Handler
	observers []Observer
	subID     connection.SubscriberID
	ctx       context.Context
	cancel    context.CancelFunc

	gameID   string
	username string
	step     Step
	gen      uint64
	timer    *time.Timer
	closed   bool
}

// New subscribes to conn and starts joining gameID as username.
func New(joiner RoundJoiner, conn Connector, nav domain.Navigator, gameID, username string, opts ...Option) *Workflow {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workflow{
		joiner: joiner,
		conn:   conn,
		nav:    nav,
		settle: constants.DefaultSettleDelay,
		base:   logger.New("join"),
		subID:  connection.NewSubscriberID(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.base
	w.errs = errors.NewHandler(w.base)
	w.loop = workers.NewLoop()

	conn.Subscribe(w.subID, func(e connection.Event) {
		w.loop.Post(func() { w.onEvent(e) })
	})
	w.loop.Post(func() { w.begin(gameID, username) })
	return w
}

// Reset restarts the workflow when gameID or username changed. Results of
// the abandoned attempt are ignored when they arrive.
func (w *Workflow) Reset(gameID, username string) {
	w.loop.Post(func() {
		if gameID == w.gameID && username == w.username {
			return
		}
		w.begin(gameID, username)
	})
}

// Step returns the current step.
func (w *Workflow) Step() Step {
	var s Step = WantToJoin{}
	w.loop.Call(func() { s = w.step })
	return s
}

// Close tears the workflow down. Late callbacks become no-ops.
func (w *Workflow) Close() {
	w.conn.Unsubscribe(w.subID)
	w.cancel()
	w.loop.Post(func() {
		w.closed = true
		w.stopTimer()
	})
	w.loop.Stop()
}

func (w *Workflow) begin(gameID, username string) {
	w.gen++
	w.stopTimer()
	w.gameID, w.username = gameID, username
	w.logger = w.base.With(zap.Uint64("generation", w.gen))
	w.setStep(WantToJoin{GameID: gameID, Username: username})

	gen := w.gen
	go func() {
		round, err := w.joiner.JoinRound(w.ctx, gameID, username)
		w.loop.Post(func() { w.onJoined(gen, round, err) })
	}()
	w.setStep(Joining{GameID: gameID, Username: username})
}

func (w *Workflow) onJoined(gen uint64, round *gameserver.RoundResponse, err error) {
	if w.closed || gen != w.gen {
		w.logger.Debug("Dropping result of an abandoned join call", zap.Uint64("result_generation", gen))
		return
	}
	if _, ok := w.step.(Joining); !ok {
		w.impossible("join_result")
		return
	}

	if err != nil {
		appErr := w.errs.Handle("join round", err, zap.String("game_id", w.gameID))
		metrics.IncrementJoinOutcome(metrics.OutcomeHTTPFailed)
		w.fail(nil, fmt.Sprintf("error joining the round: %s", errors.UserMessage(appErr)))
		return
	}

	id := domain.ConnectionIdentity{GameID: w.gameID, PlayerID: round.PlayerID}
	w.setStep(SocketPending{PlayerID: round.PlayerID})
	st := w.conn.EnsureConnected(id)

	// a socket that is already live for this session will not announce
	// Connected again
	if st.Kind == connection.Live && st.Identity == id {
		w.goLive(round.PlayerID)
	}
}

func (w *Workflow) onEvent(e connection.Event) {
	if w.closed {
		return
	}

	switch e.(type) {
	case connection.Connected, connection.FailedToConnect, connection.ErrorOccurred:
	default:
		// status chatter and frames are not ours to handle
		return
	}
	if Terminal(w.step) {
		w.ignoreAfterEnd(e)
		return
	}

	switch ev := e.(type) {
	case connection.Connected:
		s, ok := w.step.(SocketPending)
		if !ok {
			w.impossible(connection.EventName(e))
			return
		}
		if ev.Identity != (domain.ConnectionIdentity{GameID: w.gameID, PlayerID: s.PlayerID}) {
			w.logger.Debug("Ignoring connection of another session", zap.Stringer("identity", ev.Identity))
			return
		}
		w.goLive(s.PlayerID)

	case connection.FailedToConnect:
		w.socketFailed(e, fmt.Sprintf("Failed to connect: %s", ev.Reason))

	case connection.ErrorOccurred:
		w.socketFailed(e, "Unknown error occurred while connecting.")
	}
}

func (w *Workflow) socketFailed(e connection.Event, msg string) {
	switch s := w.step.(type) {
	case SocketPending, SocketLive:
		w.stopTimer()
		metrics.IncrementJoinOutcome(metrics.OutcomeSocketFailed)
		w.fail(playerIDOf(s), msg)
	default:
		w.impossible(connection.EventName(e))
	}
}

func (w *Workflow) goLive(playerID string) {
	w.setStep(SocketLive{PlayerID: playerID})
	gen := w.gen
	w.timer = time.AfterFunc(w.settle, func() {
		w.loop.Post(func() { w.onSettled(gen) })
	})
}

func (w *Workflow) onSettled(gen uint64) {
	if w.closed || gen != w.gen {
		return
	}
	live, ok := w.step.(SocketLive)
	if !ok {
		w.impossible("settled")
		return
	}
	w.timer = nil
	w.setStep(Redirecting{PlayerID: live.PlayerID})
	metrics.IncrementJoinOutcome(metrics.OutcomeRedirected)
	w.logger.Info("Joined game", zap.String("game_id", w.gameID), zap.String("player_id", live.PlayerID))
	w.nav.PlayGame(w.gameID, live.PlayerID)
}

func (w *Workflow) fail(playerID *string, msg string) {
	w.setStep(Failed{PlayerID: playerID, Error: msg})
	w.logger.Warn("Join failed", zap.String("game_id", w.gameID), zap.String("error", msg))
	if w.notifier != nil {
		w.notifier.Notify(domain.LevelError, msg)
	}
}

func (w *Workflow) impossible(event string) {
	w.errs.Handle("join workflow", errors.ImpossibleTransitionError(w.step.Name(), event),
		zap.String("game_id", w.gameID))
}

func (w *Workflow) ignoreAfterEnd(e connection.Event) {
	w.logger.Debug("Ignoring event after the workflow ended",
		zap.String("step", w.step.Name()),
		zap.String("event", connection.EventName(e)))
}

func (w *Workflow) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Workflow) setStep(s Step) {
	w.step = s
	w.logger.Debug("Join step", zap.String("step", s.Name()))
	for _, o := range w.observers {
		o(w.gameID, s)
	}
}
