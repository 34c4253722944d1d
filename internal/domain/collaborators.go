package domain

// Navigator moves the host front end to the in-game view.
type Navigator interface {
	PlayGame(gameID, playerID string)
}

// NotificationLevel ranks a notification shown to the player.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notifier is a fire-and-forget sink for messages meant for the player.
type Notifier interface {
	Notify(level NotificationLevel, message string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(gameID, playerID string)

func (f NavigatorFunc) PlayGame(gameID, playerID string) { f(gameID, playerID) }
