package join

import "fmt"

// Step is the progress of one join attempt. The set is closed: WantToJoin,
// Joining, SocketPending, SocketLive, Redirecting and Failed.
type Step interface {
	Name() string
	isStep()
}

// WantToJoin is the initial step.
type WantToJoin struct {
	GameID   string
	Username string
}

// Joining waits for the HTTP join call.
type Joining struct {
	GameID   string
	Username string
}

// SocketPending waits for the socket of PlayerID to open.
type SocketPending struct{ PlayerID string }

// SocketLive waits out the settle delay.
type SocketLive struct{ PlayerID string }

// Redirecting is terminal success; the player was sent to the game.
type Redirecting struct{ PlayerID string }

// Failed is terminal failure. PlayerID is nil when the HTTP call failed.
type Failed struct {
	PlayerID *string
	Error    string
}

func (WantToJoin) Name() string    { return "want_to_join" }
func (Joining) Name() string       { return "joining" }
func (SocketPending) Name() string { return "socket_pending" }
func (SocketLive) Name() string    { return "socket_live" }
func (Redirecting) Name() string   { return "redirecting" }
func (Failed) Name() string        { return "failed" }

func (WantToJoin) isStep()    {}
func (Joining) isStep()       {}
func (SocketPending) isStep() {}
func (SocketLive) isStep()    {}
func (Redirecting) isStep()   {}
func (Failed) isStep()        {}

// playerIDOf returns the player id carried by s, if any.
func playerIDOf(s Step) *string {
	switch s := s.(type) {
	case SocketPending:
		return &s.PlayerID
	case SocketLive:
		return &s.PlayerID
	case Redirecting:
		return &s.PlayerID
	case Failed:
		return s.PlayerID
	}
	return nil
}

// Terminal reports whether s ends the workflow.
func Terminal(s Step) bool {
	switch s.(type) {
	case Redirecting, Failed:
		return true
	}
	return false
}

// Progress is how a step is shown to the player.
type Progress struct {
	Title  string
	Done   int
	Total  int
	Failed bool
}

func (p Progress) String() string {
	return fmt.Sprintf("[%d/%d] %s", p.Done, p.Total, p.Title)
}

const progressSteps = 5

// Describe maps s to its progress display.
func Describe(s Step) Progress {
	switch s.(type) {
	case WantToJoin:
		return Progress{Title: "Joining game...", Done: 1, Total: progressSteps}
	case Joining:
		return Progress{Title: "Joining game...", Done: 2, Total: progressSteps}
	case SocketPending:
		return Progress{Title: "Starting session...", Done: 3, Total: progressSteps}
	case SocketLive:
		return Progress{Title: "Connected! Almost there...", Done: 4, Total: progressSteps}
	case Redirecting:
		return Progress{Title: "Enjoy :)", Done: 5, Total: progressSteps}
	case Failed:
		return Progress{Title: "Failed to connect.", Done: progressSteps, Total: progressSteps, Failed: true}
	}
	return Progress{Title: "Couldn't join, please retry later.", Done: progressSteps, Total: progressSteps, Failed: true}
}
