package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/cardtable/cards-client/internal/errors"
)

// Encode serializes m. It fails for values outside the closed variant sets,
// e.g. a nil Component inside a Create, and for strings that are not valid
// UTF-8.
func Encode(m Message) ([]byte, error) {
	if err := check(m); err != nil {
		return nil, errors.WireEncodeError(err)
	}
	data, err := marshal(m)
	if err != nil {
		return nil, errors.WireEncodeError(err)
	}
	return data, nil
}

// marshal is json.Marshal without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type tag struct {
	Type string `json:"type"`
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (Ping) MarshalJSON() ([]byte, error)        { return marshal(tag{string(TypePing)}) }
func (Pong) MarshalJSON() ([]byte, error)        { return marshal(tag{string(TypePong)}) }
func (Close) MarshalJSON() ([]byte, error)       { return marshal(tag{string(TypeClose)}) }
func (StartGame) MarshalJSON() ([]byte, error)   { return marshal(tag{string(TypeStartGame)}) }
func (GameStarted) MarshalJSON() ([]byte, error) { return marshal(tag{string(TypeGameStarted)}) }

// The variants below embed a method-less copy of themselves after the tag so
// that "type" comes first and the fields follow in declaration order.

func (m PlayerConnected) MarshalJSON() ([]byte, error) {
	type fields PlayerConnected
	return marshal(struct {
		tag
		fields
	}{tag{string(TypePlayerConnected)}, fields(m)})
}

func (m GameFinished) MarshalJSON() ([]byte, error) {
	type fields GameFinished
	m.Winners = orEmpty(m.Winners)
	return marshal(struct {
		tag
		fields
	}{tag{string(TypeGameFinished)}, fields(m)})
}

func (m Error) MarshalJSON() ([]byte, error) {
	type fields Error
	m.Messages = orEmpty(m.Messages)
	return marshal(struct {
		tag
		fields
	}{tag{string(TypeError)}, fields(m)})
}

func (m ActionAwaited) MarshalJSON() ([]byte, error) {
	type fields ActionAwaited
	m.AllOf = orEmpty(m.AllOf)
	return marshal(struct {
		tag
		fields
	}{tag{string(TypeActionAwaited)}, fields(m)})
}

func (m InterfaceUpdate) MarshalJSON() ([]byte, error) {
	type fields InterfaceUpdate
	m.Components = orEmpty(m.Components)
	return marshal(struct {
		tag
		fields
	}{tag{string(TypeInterfaceUpdate)}, fields(m)})
}

func (m ComponentsUpdates) MarshalJSON() ([]byte, error) {
	type fields ComponentsUpdates
	m.Updates = orEmpty(m.Updates)
	return marshal(struct {
		tag
		fields
	}{tag{string(TypeComponentsUpdates)}, fields(m)})
}

func (a OnClick) MarshalJSON() ([]byte, error) {
	type fields OnClick
	return marshal(struct {
		tag
		fields
	}{tag{"OnClick"}, fields(a)})
}

func (u Create) MarshalJSON() ([]byte, error) {
	type fields Create
	return marshal(struct {
		tag
		fields
	}{tag{"Create"}, fields(u)})
}

func (c Card) MarshalJSON() ([]byte, error) {
	type fields Card
	return marshal(struct {
		tag
		fields
	}{tag{"Card"}, fields(c)})
}

func (c Hand) MarshalJSON() ([]byte, error) {
	type fields Hand
	c.Cards = orEmpty(c.Cards)
	return marshal(struct {
		tag
		fields
	}{tag{"Hand"}, fields(c)})
}

// check walks m and rejects what encoding/json would let through silently:
// nil or pointer variants, and strings it would rewrite.
func check(m Message) error {
	switch v := m.(type) {
	case Ping, Pong, Close, StartGame, GameStarted:
		return nil
	case PlayerConnected:
		return checkStrings("message", v.Message, "username", v.Username)
	case GameFinished:
		return checkList("winners", v.Winners)
	case Error:
		return checkList("messages", v.Messages)
	case ActionAwaited:
		for i, a := range v.AllOf {
			click, ok := a.(OnClick)
			if !ok {
				return fmt.Errorf("all_of[%d]: unsupported awaited action %T", i, a)
			}
			if err := checkStrings("target_component", click.TargetComponent); err != nil {
				return fmt.Errorf("all_of[%d]: %w", i, err)
			}
		}
		return nil
	case InterfaceUpdate:
		for i, c := range v.Components {
			if err := checkStrings("id", c.ID, "position", string(c.Position)); err != nil {
				return fmt.Errorf("components[%d]: %w", i, err)
			}
		}
		return nil
	case ComponentsUpdates:
		for i, u := range v.Updates {
			if err := checkUpdate(u); err != nil {
				return fmt.Errorf("components[%d]: %w", i, err)
			}
		}
		return nil
	case nil:
		return fmt.Errorf("nil message")
	default:
		return fmt.Errorf("unsupported message %T", m)
	}
}

func checkUpdate(u ComponentUpdate) error {
	create, ok := u.(Create)
	if !ok {
		return fmt.Errorf("unsupported component update %T", u)
	}
	if err := checkStrings("id", create.ID); err != nil {
		return err
	}
	switch c := create.Component.(type) {
	case Card:
		if err := checkStrings("name", c.Name, "description", c.Description,
			"suit", c.State.Suit, "value", c.State.Value); err != nil {
			return err
		}
		if err := checkOptional("front_image", c.FrontImage); err != nil {
			return err
		}
		return checkOptional("back_image", c.BackImage)
	case Hand:
		return checkList("cards", c.Cards)
	default:
		return fmt.Errorf("unsupported component %T", create.Component)
	}
}

// checkStrings takes name/value pairs.
func checkStrings(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if !utf8.ValidString(pairs[i+1]) {
			return fmt.Errorf("field %q: invalid UTF-8", pairs[i])
		}
	}
	return nil
}

func checkOptional(name string, v *string) error {
	if v == nil {
		return nil
	}
	return checkStrings(name, *v)
}

func checkList(name string, values []string) error {
	for i, s := range values {
		if !utf8.ValidString(s) {
			return fmt.Errorf("%s[%d]: invalid UTF-8", name, i)
		}
	}
	return nil
}
