package wire

import (
	"fmt"

	"github.com/cardtable/cards-client/internal/errors"
	"github.com/tidwall/gjson"
)

// Decode parses one message. Empty lists decode to nil slices. Failures are *errors.AppError values with code
// WIRE_DECODE_FAILED.
func Decode(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.WireDecodeError("not valid JSON")
	}
	m, err := decodeMessage(gjson.ParseBytes(data))
	if err != nil {
		return nil, errors.WireDecodeError(err.Error())
	}
	return m, nil
}

func decodeMessage(obj gjson.Result) (Message, error) {
	tag, err := tagOf(obj)
	if err != nil {
		return nil, err
	}

	switch Type(tag) {
	case TypePing:
		return Ping{}, nil
	case TypePong:
		return Pong{}, nil
	case TypeClose:
		return Close{}, nil
	case TypeStartGame:
		return StartGame{}, nil
	case TypeGameStarted:
		return GameStarted{}, nil
	case TypePlayerConnected:
		var m PlayerConnected
		if m.Message, err = str(obj, "message"); err != nil {
			return nil, err
		}
		if m.Username, err = str(obj, "username"); err != nil {
			return nil, err
		}
		return m, nil
	case TypeGameFinished:
		winners, err := strList(obj, "winners")
		if err != nil {
			return nil, err
		}
		return GameFinished{Winners: winners}, nil
	case TypeError:
		messages, err := strList(obj, "messages")
		if err != nil {
			return nil, err
		}
		return Error{Messages: messages}, nil
	case TypeActionAwaited:
		items, err := list(obj, "all_of")
		if err != nil {
			return nil, err
		}
		var m ActionAwaited
		for i, item := range items {
			a, err := decodeAwaitedAction(item)
			if err != nil {
				return nil, fmt.Errorf("all_of[%d]: %w", i, err)
			}
			m.AllOf = append(m.AllOf, a)
		}
		return m, nil
	case TypeInterfaceUpdate:
		items, err := list(obj, "components")
		if err != nil {
			return nil, err
		}
		var m InterfaceUpdate
		for i, item := range items {
			c, err := decodeInterfaceComponent(item)
			if err != nil {
				return nil, fmt.Errorf("components[%d]: %w", i, err)
			}
			m.Components = append(m.Components, c)
		}
		return m, nil
	case TypeComponentsUpdates:
		items, err := list(obj, "components")
		if err != nil {
			return nil, err
		}
		var m ComponentsUpdates
		for i, item := range items {
			u, err := decodeComponentUpdate(item)
			if err != nil {
				return nil, fmt.Errorf("components[%d]: %w", i, err)
			}
			m.Updates = append(m.Updates, u)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", tag)
	}
}

func decodeAwaitedAction(obj gjson.Result) (AwaitedAction, error) {
	tag, err := tagOf(obj)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "OnClick":
		target, err := str(obj, "target_component")
		if err != nil {
			return nil, err
		}
		return OnClick{TargetComponent: target}, nil
	default:
		return nil, fmt.Errorf("unknown awaited action %q", tag)
	}
}

func decodeInterfaceComponent(obj gjson.Result) (InterfaceComponent, error) {
	var c InterfaceComponent
	if !obj.IsObject() {
		return c, fmt.Errorf("expected an object")
	}
	id, err := str(obj, "id")
	if err != nil {
		return c, err
	}
	pos, err := str(obj, "position")
	if err != nil {
		return c, err
	}
	if !Position(pos).Valid() {
		return c, fmt.Errorf("unknown position %q", pos)
	}
	return InterfaceComponent{ID: id, Position: Position(pos)}, nil
}

func decodeComponentUpdate(obj gjson.Result) (ComponentUpdate, error) {
	tag, err := tagOf(obj)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "Create":
		id, err := str(obj, "id")
		if err != nil {
			return nil, err
		}
		inner, err := object(obj, "component")
		if err != nil {
			return nil, err
		}
		c, err := decodeComponent(inner)
		if err != nil {
			return nil, fmt.Errorf("component: %w", err)
		}
		return Create{ID: id, Component: c}, nil
	default:
		return nil, fmt.Errorf("unknown component update %q", tag)
	}
}

func decodeComponent(obj gjson.Result) (Component, error) {
	tag, err := tagOf(obj)
	if err != nil {
		return nil, err
	}
	switch tag {
	case "Card":
		var c Card
		if c.Name, err = str(obj, "name"); err != nil {
			return nil, err
		}
		if c.Description, err = str(obj, "description"); err != nil {
			return nil, err
		}
		if c.FrontImage, err = optStr(obj, "front_image"); err != nil {
			return nil, err
		}
		if c.BackImage, err = optStr(obj, "back_image"); err != nil {
			return nil, err
		}
		state, err := object(obj, "state")
		if err != nil {
			return nil, err
		}
		if c.State.Suit, err = str(state, "suit"); err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
		if c.State.Value, err = str(state, "value"); err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
		return c, nil
	case "Hand":
		cards, err := strList(obj, "cards")
		if err != nil {
			return nil, err
		}
		return Hand{Cards: cards}, nil
	default:
		return nil, fmt.Errorf("unknown component %q", tag)
	}
}

// tagOf returns the "type" member of an object.
func tagOf(obj gjson.Result) (string, error) {
	if !obj.IsObject() {
		return "", fmt.Errorf("expected an object")
	}
	return str(obj, "type")
}

// member looks a key up without gjson path syntax so that keys are matched
// literally.
func member(obj gjson.Result, name string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(key, value gjson.Result) bool {
		if key.Str == name {
			found = value
			return false
		}
		return true
	})
	return found
}

func str(obj gjson.Result, name string) (string, error) {
	r := member(obj, name)
	switch {
	case !r.Exists():
		return "", fmt.Errorf("missing field %q", name)
	case r.Type != gjson.String:
		return "", fmt.Errorf("field %q: expected a string", name)
	}
	return r.Str, nil
}

func optStr(obj gjson.Result, name string) (*string, error) {
	r := member(obj, name)
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return nil, nil
	case r.Type != gjson.String:
		return nil, fmt.Errorf("field %q: expected a string or null", name)
	}
	s := r.Str
	return &s, nil
}

func list(obj gjson.Result, name string) ([]gjson.Result, error) {
	r := member(obj, name)
	switch {
	case !r.Exists():
		return nil, fmt.Errorf("missing field %q", name)
	case !r.IsArray():
		return nil, fmt.Errorf("field %q: expected a list", name)
	}
	return r.Array(), nil
}

func strList(obj gjson.Result, name string) ([]string, error) {
	items, err := list(obj, name)
	if err != nil {
		return nil, err
	}
	var out []string
	for i, item := range items {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("%s[%d]: expected a string", name, i)
		}
		out = append(out, item.Str)
	}
	return out, nil
}

func object(obj gjson.Result, name string) (gjson.Result, error) {
	r := member(obj, name)
	switch {
	case !r.Exists():
		return r, fmt.Errorf("missing field %q", name)
	case !r.IsObject():
		return r, fmt.Errorf("field %q: expected an object", name)
	}
	return r, nil
}
