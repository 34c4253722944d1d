// Package notify carries short messages meant for the player to whoever
// displays them.
package notify

import (
	"github.com/cardtable/cards-client/internal/domain"
	"github.com/cardtable/cards-client/internal/logger"
	"github.com/cardtable/cards-client/internal/workers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is one message for the player.
type Notification struct {
	Level domain.NotificationLevel
	Text  string
}

type busSubscriber struct {
	id     uuid.UUID
	listen func(Notification)
}

// Bus fans notifications out to its subscribers. Notify never waits.
type Bus struct {
	loop   *workers.Loop
	logger *zap.Logger
	subs   []busSubscriber
}

// NewBus creates an empty bus. A nil logger uses the package logger.
func NewBus(l *zap.Logger) *Bus {
	if l == nil {
		l = logger.New("notify")
	}
	return &Bus{loop: workers.NewLoop(), logger: l}
}

// Notify implements domain.Notifier.
func (b *Bus) Notify(level domain.NotificationLevel, text string) {
	b.loop.Post(func() {
		b.log(level, text)
		n := Notification{Level: level, Text: text}
		for _, s := range b.subs {
			s.listen(n)
		}
	})
}

// Success, Info, Warn and Error are shorthands for Notify.
func (b *Bus) Success(text string) { b.Notify(domain.LevelSuccess, text) }
func (b *Bus) Info(text string)    { b.Notify(domain.LevelInfo, text) }
func (b *Bus) Warn(text string)    { b.Notify(domain.LevelWarning, text) }
func (b *Bus) Error(text string)   { b.Notify(domain.LevelError, text) }

// Subscribe registers listen; it runs on the bus goroutine.
func (b *Bus) Subscribe(listen func(Notification)) uuid.UUID {
	id := uuid.New()
	b.loop.Post(func() {
		b.subs = append(b.subs, busSubscriber{id: id, listen: listen})
	})
	return id
}

// Unsubscribe removes id if present.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.loop.Post(func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	})
}

// Close delivers what is queued and stops the bus.
func (b *Bus) Close() {
	b.loop.Stop()
}

func (b *Bus) log(level domain.NotificationLevel, text string) {
	field := zap.String("text", text)
	switch level {
	case domain.LevelSuccess:
		b.logger.Debug("Success notification", field)
	case domain.LevelInfo:
		b.logger.Info("Info notification", field)
	case domain.LevelWarning:
		b.logger.Warn("Warning notification", field)
	default:
		b.logger.Error("Error notification", field)
	}
}
