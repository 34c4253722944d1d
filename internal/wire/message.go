package wire

// Type is the value of a message's "type" member.
type Type string

const (
	TypePing              Type = "PING"
	TypePong              Type = "PONG"
	TypeClose             Type = "CLOSE"
	TypePlayerConnected   Type = "PLAYER_CONNECTED"
	TypeStartGame         Type = "START_GAME"
	TypeGameStarted       Type = "GAME_STARTED"
	TypeGameFinished      Type = "GAME_FINISHED"
	TypeError             Type = "ERROR"
	TypeActionAwaited     Type = "ACTION_AWAITED"
	TypeInterfaceUpdate   Type = "INTERFACE_UPDATE"
	TypeComponentsUpdates Type = "COMPONENTS_UPDATES"
)

// Message is one of the variants below; the set is closed.
type Message interface {
	Type() Type
	isMessage()
}

type (
	Ping        struct{}
	Pong        struct{}
	Close       struct{}
	StartGame   struct{}
	GameStarted struct{}
)

type PlayerConnected struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type GameFinished struct {
	Winners []string `json:"winners"`
}

// Error carries error messages from the server.
type Error struct {
	Messages []string `json:"messages"`
}

// ActionAwaited tells the player which actions the server waits for; all of
// them are required.
type ActionAwaited struct {
	AllOf []AwaitedAction `json:"all_of"`
}

type InterfaceUpdate struct {
	Components []InterfaceComponent `json:"components"`
}

// ComponentsUpdates is serialized with its list under "components".
type ComponentsUpdates struct {
	Updates []ComponentUpdate `json:"components"`
}

func (Ping) Type() Type              { return TypePing }
func (Pong) Type() Type              { return TypePong }
func (Close) Type() Type             { return TypeClose }
func (StartGame) Type() Type         { return TypeStartGame }
func (GameStarted) Type() Type       { return TypeGameStarted }
func (PlayerConnected) Type() Type   { return TypePlayerConnected }
func (GameFinished) Type() Type      { return TypeGameFinished }
func (Error) Type() Type             { return TypeError }
func (ActionAwaited) Type() Type     { return TypeActionAwaited }
func (InterfaceUpdate) Type() Type   { return TypeInterfaceUpdate }
func (ComponentsUpdates) Type() Type { return TypeComponentsUpdates }

func (Ping) isMessage()              {}
func (Pong) isMessage()              {}
func (Close) isMessage()             {}
func (StartGame) isMessage()         {}
func (GameStarted) isMessage()       {}
func (PlayerConnected) isMessage()   {}
func (GameFinished) isMessage()      {}
func (Error) isMessage()             {}
func (ActionAwaited) isMessage()     {}
func (InterfaceUpdate) isMessage()   {}
func (ComponentsUpdates) isMessage() {}

// AwaitedAction is an action the server waits for. Only OnClick exists.
type AwaitedAction interface {
	isAwaitedAction()
}

type OnClick struct {
	TargetComponent string `json:"target_component"`
}

func (OnClick) isAwaitedAction() {}

// Position places a component on the table.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionCenter Position = "center"
)

// Valid reports whether p is one of the known positions.
func (p Position) Valid() bool {
	switch p {
	case PositionTop, PositionBottom, PositionLeft, PositionRight, PositionCenter:
		return true
	}
	return false
}

type InterfaceComponent struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

// ComponentUpdate changes the set of components on the table. Only Create
// exists.
type ComponentUpdate interface {
	isComponentUpdate()
}

type Create struct {
	ID        string    `json:"id"`
	Component Component `json:"component"`
}

func (Create) isComponentUpdate() {}

// Component is a Card or a Hand.
type Component interface {
	isComponent()
}

type Card struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	FrontImage  *string   `json:"front_image"`
	BackImage   *string   `json:"back_image"`
	State       CardState `json:"state"`
}

type CardState struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// Hand lists the ids of the cards it holds.
type Hand struct {
	Cards []string `json:"cards"`
}

func (Card) isComponent() {}
func (Hand) isComponent() {}
