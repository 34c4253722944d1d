package wire

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cardtable/cards-client/internal/errors"
)

// compact strips the whitespace used to lay the expected JSON out readably.
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func assertRoundTrip(t *testing.T, msg Message, want string) {
	t.Helper()

	encoded, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(encoded) != want {
		t.Errorf("Encode() =\n  %s\nwant\n  %s", encoded, want)
	}

	decoded, err := Decode([]byte(want))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, msg) {
		t.Errorf("Decode() = %#v, want %#v", decoded, msg)
	}
}

func TestFieldlessMessages(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{Ping{}, `{"type":"PING"}`},
		{Pong{}, `{"type":"PONG"}`},
		{Close{}, `{"type":"CLOSE"}`},
		{StartGame{}, `{"type":"START_GAME"}`},
		{GameStarted{}, `{"type":"GAME_STARTED"}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.msg.Type()), func(t *testing.T) {
			assertRoundTrip(t, tt.msg, tt.want)
		})
	}
}

func TestPlayerConnected(t *testing.T) {
	assertRoundTrip(t,
		PlayerConnected{Message: "Say hello to Toto.", Username: "Toto"},
		`{"type":"PLAYER_CONNECTED","message":"Say hello to Toto.","username":"Toto"}`,
	)
}

func TestGameFinished(t *testing.T) {
	assertRoundTrip(t,
		GameFinished{Winners: []string{"Toto", "Tata"}},
		`{"type":"GAME_FINISHED","winners":["Toto","Tata"]}`,
	)
}

func TestError(t *testing.T) {
	assertRoundTrip(t,
		Error{Messages: []string{"You are dumb.", "The cake is a lie."}},
		`{"type":"ERROR","messages":["You are dumb.","The cake is a lie."]}`,
	)
}

func TestActionAwaited(t *testing.T) {
	assertRoundTrip(t,
		ActionAwaited{AllOf: []AwaitedAction{OnClick{TargetComponent: "hand"}}},
		compact(`{
			"type": "ACTION_AWAITED",
			"all_of": [
				{"type": "OnClick", "target_component": "hand"}
			]
		}`),
	)
}

func TestInterfaceUpdate(t *testing.T) {
	assertRoundTrip(t,
		InterfaceUpdate{Components: []InterfaceComponent{
			{ID: "played_cards", Position: PositionBottom},
			{ID: "hand", Position: PositionCenter},
		}},
		compact(`{
			"type": "INTERFACE_UPDATE",
			"components": [
				{"id": "played_cards", "position": "bottom"},
				{"id": "hand", "position": "center"}
			]
		}`),
	)
}

func TestComponentsUpdates(t *testing.T) {
	assertRoundTrip(t,
		ComponentsUpdates{Updates: []ComponentUpdate{
			Create{
				ID: "hand",
				Component: Hand{Cards: []string{
					"773b57de804b4067a27b9650d077d470",
					"3a618ae83d664b43b1096738f559978a",
					"bd5b40c1a4c342539dbc3165982ccf31",
				}},
			},
			Create{
				ID: "bd5b40c1a4c342539dbc3165982ccf31",
				Component: Card{
					Name:  "H2",
					State: CardState{Suit: "H", Value: "2"},
				},
			},
		}},
		compact(`{
			"type": "COMPONENTS_UPDATES",
			"components": [
				{
					"type": "Create",
					"id": "hand",
					"component": {
						"type": "Hand",
						"cards": [
							"773b57de804b4067a27b9650d077d470",
							"3a618ae83d664b43b1096738f559978a",
							"bd5b40c1a4c342539dbc3165982ccf31"
						]
					}
				},
				{
					"type": "Create",
					"id": "bd5b40c1a4c342539dbc3165982ccf31",
					"component": {
						"type": "Card",
						"name": "H2",
						"description": "",
						"front_image": null,
						"back_image": null,
						"state": {"suit": "H", "value": "2"}
					}
				}
			]
		}`),
	)
}

func TestCardWithImages(t *testing.T) {
	front, back := "h2.png", "back.png"
	msg := ComponentsUpdates{Updates: []ComponentUpdate{
		Create{ID: "c1", Component: Card{
			Name:        "H2",
			Description: "Two of hearts",
			FrontImage:  &front,
			BackImage:   &back,
			State:       CardState{Suit: "H", Value: "2"},
		}},
	}}

	encoded, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, msg) {
		t.Errorf("round trip = %#v, want %#v", decoded, msg)
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	got, err := Encode(PlayerConnected{Message: "<b>&</b>", Username: "Toto"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"type":"PLAYER_CONNECTED","message":"<b>&</b>","username":"Toto"}`
	if string(got) != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestEncodeNilListAsEmpty(t *testing.T) {
	got, err := Encode(GameFinished{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != `{"type":"GAME_FINISHED","winners":[]}` {
		t.Errorf("Encode() = %s", got)
	}
}

func TestEmptyValuesRoundTrip(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{GameFinished{}, `{"type":"GAME_FINISHED","winners":[]}`},
		{Error{}, `{"type":"ERROR","messages":[]}`},
		{ActionAwaited{}, `{"type":"ACTION_AWAITED","all_of":[]}`},
		{InterfaceUpdate{}, `{"type":"INTERFACE_UPDATE","components":[]}`},
		{ComponentsUpdates{}, `{"type":"COMPONENTS_UPDATES","components":[]}`},
		{
			ComponentsUpdates{Updates: []ComponentUpdate{Create{ID: "hand", Component: Hand{}}}},
			`{"type":"COMPONENTS_UPDATES","components":[{"type":"Create","id":"hand","component":{"type":"Hand","cards":[]}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.msg.Type()), func(t *testing.T) {
			assertRoundTrip(t, tt.msg, tt.want)
		})
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	bad := "\xff"
	tests := []struct {
		name string
		msg  Message
	}{
		{"string field", PlayerConnected{Message: bad, Username: "Toto"}},
		{"list element", GameFinished{Winners: []string{"Toto", bad}}},
		{"nested field", ActionAwaited{AllOf: []AwaitedAction{OnClick{TargetComponent: bad}}}},
		{"optional field", ComponentsUpdates{Updates: []ComponentUpdate{
			Create{ID: "c", Component: Card{Name: "H2", BackImage: &bad}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if errors.CodeOf(err) != "WIRE_ENCODE_FAILED" {
				t.Errorf("Encode() = %s, %v, want WIRE_ENCODE_FAILED", got, err)
			}
		})
	}
}

func TestEncodeRejectsOpenValues(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"nil message", nil},
		{"pointer variant", &Ping{}},
		{"nil component", ComponentsUpdates{Updates: []ComponentUpdate{Create{ID: "x"}}}},
		{"nil awaited action", ActionAwaited{AllOf: []AwaitedAction{nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.msg)
			if errors.CodeOf(err) != "WIRE_ENCODE_FAILED" {
				t.Errorf("Encode() error = %v, want WIRE_ENCODE_FAILED", err)
			}
		})
	}
}

func TestDecodeIgnoresExtraFields(t *testing.T) {
	got, err := Decode([]byte(`{"type":"PLAYER_CONNECTED","message":"hi","username":"Toto","avatar":"x.png"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := PlayerConnected{Message: "hi", Username: "Toto"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode() = %#v, want %#v", got, want)
	}
}

func TestDecodeMissingOptionalIsNil(t *testing.T) {
	got, err := Decode([]byte(`{"type":"COMPONENTS_UPDATES","components":[{"type":"Create","id":"c","component":{"type":"Card","name":"H2","description":"","state":{"suit":"H","value":"2"}}}]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	card := got.(ComponentsUpdates).Updates[0].(Create).Component.(Card)
	if card.FrontImage != nil || card.BackImage != nil {
		t.Errorf("images = %v %v, want nil", card.FrontImage, card.BackImage)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{"type":`},
		{"not an object", `["PING"]`},
		{"missing type", `{"message":"hi"}`},
		{"type not a string", `{"type":1}`},
		{"unknown type", `{"type":"DANCE"}`},
		{"missing field", `{"type":"PLAYER_CONNECTED","message":"hi"}`},
		{"null field", `{"type":"PLAYER_CONNECTED","message":null,"username":"Toto"}`},
		{"wrong field type", `{"type":"GAME_FINISHED","winners":"Toto"}`},
		{"wrong element type", `{"type":"ERROR","messages":["ok",3]}`},
		{"unknown position", `{"type":"INTERFACE_UPDATE","components":[{"id":"hand","position":"middle"}]}`},
		{"unknown awaited action", `{"type":"ACTION_AWAITED","all_of":[{"type":"OnDrag","target_component":"hand"}]}`},
		{"unknown component", `{"type":"COMPONENTS_UPDATES","components":[{"type":"Create","id":"x","component":{"type":"Deck"}}]}`},
		{"unknown update", `{"type":"COMPONENTS_UPDATES","components":[{"type":"Delete","id":"x"}]}`},
		{"bad optional", `{"type":"COMPONENTS_UPDATES","components":[{"type":"Create","id":"x","component":{"type":"Card","name":"n","description":"","front_image":1,"state":{"suit":"H","value":"2"}}}]}`},
		{"missing card state", `{"type":"COMPONENTS_UPDATES","components":[{"type":"Create","id":"x","component":{"type":"Card","name":"n","description":""}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatalf("Decode() = %#v, want error", m)
			}
			if errors.CodeOf(err) != "WIRE_DECODE_FAILED" {
				t.Errorf("error code = %q", errors.CodeOf(err))
			}
		})
	}
}

func TestDecodeMatchesKeysLiterally(t *testing.T) {
	// gjson path syntax must not apply to member names
	_, err := Decode([]byte(`{"type":"PLAYER_CONNECTED","message":"hi","user*":"Toto"}`))
	if err == nil {
		t.Fatal("wildcard key must not satisfy the username field")
	}
}
