package messages

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nrawrx3/unolink"
)

type MessageType string

const (
	TypeGameState MessageType = "GAME_STATE"
	TypePlayCard  MessageType = "PLAY_CARD"
	TypeDrawCard  MessageType = "DRAW_CARD"
	TypeShoutUno  MessageType = "SHOUT_UNO"
	TypeRoomInfo  MessageType = "ROOM_INFO"
	TypeKicked    MessageType = "KICKED"

	// Host-local signals. They never go over the wire.
	TypePlayerJoined MessageType = "PLAYER_JOINED"
	TypePlayerLeft   MessageType = "PLAYER_LEFT"
)

func (t MessageType) IsLocalOnly() bool {
	return t == TypePlayerJoined || t == TypePlayerLeft
}

// Envelope is the wire form of every message.
type Envelope struct {
	Type     MessageType     `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	PlayerID *int            `json:"player_id,omitempty"`
}

// Message is the closed set of protocol messages. Only types in this package
// implement it.
type Message interface {
	Type() MessageType
	validate() error
}

// ActionMessage is a client request that the host turns into an engine
// action.
type ActionMessage interface {
	Message
	Sender() int
	Action() unolink.Action
}

// Sent by the host to every client after each accepted action.
type GameStateMessage struct {
	State       unolink.GameState `json:"state"`
	LastActor   int               `json:"last_actor"`
	Description string            `json:"description"`
}

func (*GameStateMessage) Type() MessageType { return TypeGameState }

func (m *GameStateMessage) validate() error {
	if m.LastActor != unolink.NoPlayer {
		if _, ok := m.State.PlayerByID(m.LastActor); !ok {
			return errors.Errorf("last actor %d is not a player", m.LastActor)
		}
	}
	if m.State.Status != unolink.StatusPlaying && m.State.Status != unolink.StatusGameOver {
		return errors.Errorf("unknown status %q", m.State.Status)
	}

	seen := make(map[int]bool, len(m.State.Players))
	for _, p := range m.State.Players {
		if p.ID < 0 || p.ID >= unolink.MaxPlayers {
			return errors.Errorf("player id %d out of range", p.ID)
		}
		if seen[p.ID] {
			return errors.Errorf("duplicate player id %d", p.ID)
		}
		seen[p.ID] = true
	}
	if m.State.WinnerID != unolink.NoPlayer && !seen[m.State.WinnerID] {
		return errors.Errorf("winner %d is not a player", m.State.WinnerID)
	}
	return m.State.CheckInvariants()
}

type PlayCardMessage struct {
	PlayerID      int           `json:"-"`
	CardID        uuid.UUID     `json:"card_id"`
	DeclaredColor unolink.Color `json:"declared_color,omitempty"`
}

func (*PlayCardMessage) Type() MessageType { return TypePlayCard }

func (m *PlayCardMessage) validate() error {
	if m.CardID == uuid.Nil {
		return errors.New("missing card_id")
	}
	return nil
}

func (m *PlayCardMessage) Sender() int { return m.PlayerID }

func (m *PlayCardMessage) Action() unolink.Action {
	return unolink.NewPlayCardAction(m.PlayerID, m.CardID, m.DeclaredColor)
}

type DrawCardMessage struct {
	PlayerID int `json:"-"`
}

func (*DrawCardMessage) Type() MessageType { return TypeDrawCard }
func (*DrawCardMessage) validate() error   { return nil }
func (m *DrawCardMessage) Sender() int     { return m.PlayerID }

func (m *DrawCardMessage) Action() unolink.Action {
	return unolink.NewDrawCardAction(m.PlayerID)
}

type ShoutUnoMessage struct {
	PlayerID int `json:"-"`
}

func (*ShoutUnoMessage) Type() MessageType { return TypeShoutUno }
func (*ShoutUnoMessage) validate() error   { return nil }
func (m *ShoutUnoMessage) Sender() int     { return m.PlayerID }

func (m *ShoutUnoMessage) Action() unolink.Action {
	return unolink.NewShoutUnoAction(m.PlayerID)
}

// Sent once to a client right after it joins.
type RoomInfoMessage struct {
	RoomName         string   `json:"room_name"`
	RoomCode         string   `json:"room_code"`
	HostName         string   `json:"host_name"`
	AssignedPlayerID int      `json:"assigned_player_id"`
	Players          []string `json:"players"`
}

func (*RoomInfoMessage) Type() MessageType { return TypeRoomInfo }

func (m *RoomInfoMessage) validate() error {
	if m.RoomName == "" {
		return errors.New("missing room_name")
	}
	if m.AssignedPlayerID < 0 || m.AssignedPlayerID >= unolink.MaxPlayers {
		return errors.Errorf("assigned_player_id %d out of range", m.AssignedPlayerID)
	}
	return nil
}

// Sent to a single client right before the host closes its connection.
type KickedMessage struct {
	Reason string `json:"reason"`
}

func (*KickedMessage) Type() MessageType { return TypeKicked }
func (*KickedMessage) validate() error   { return nil }

type PlayerJoinedMessage struct {
	PlayerID        int    `json:"player_id"`
	PlayerName      string `json:"player_name"`
	ConnectionCount int    `json:"connection_count"`
}

func (*PlayerJoinedMessage) Type() MessageType { return TypePlayerJoined }
func (*PlayerJoinedMessage) validate() error   { return nil }

type PlayerLeftMessage struct {
	PlayerID        int    `json:"player_id"`
	PlayerName      string `json:"player_name"`
	ConnectionCount int    `json:"connection_count"`
	Kicked          bool   `json:"kicked"`
}

func (*PlayerLeftMessage) Type() MessageType { return TypePlayerLeft }
func (*PlayerLeftMessage) validate() error   { return nil }

// FromAction wraps a client action kind into its request message.
func FromAction(action unolink.Action) (ActionMessage, error) {
	switch action.Kind {
	case unolink.ActionPlayCard:
		return &PlayCardMessage{PlayerID: action.PlayerID, CardID: action.CardID, DeclaredColor: action.DeclaredColor}, nil
	case unolink.ActionDrawCard:
		return &DrawCardMessage{PlayerID: action.PlayerID}, nil
	case unolink.ActionShoutUno:
		return &ShoutUnoMessage{PlayerID: action.PlayerID}, nil
	default:
		return nil, errors.Wrapf(unolink.ErrUnknownAction, "%q cannot be sent to the host", action.Kind)
	}
}

// Encode builds the wire bytes of msg. Action messages carry their sender in
// the envelope's player_id.
func Encode(msg Message) ([]byte, error) {
	if msg.Type().IsLocalOnly() {
		return nil, errors.Errorf("%s is a local signal", msg.Type())
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s payload", msg.Type())
	}

	env := Envelope{Type: msg.Type(), Payload: payload}
	if am, ok := msg.(ActionMessage); ok {
		sender := am.Sender()
		env.PlayerID = &sender
	}
	return json.Marshal(&env)
}

// Decode parses and validates one wire message. Anything that is not a well
// formed message of a known, remote type yields a *MalformedMessageError.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &MalformedMessageError{Reason: "invalid envelope", Err: err}
	}

	var msg Message
	switch env.Type {
	case TypeGameState:
		msg = &GameStateMessage{}
	case TypePlayCard:
		msg = &PlayCardMessage{}
	case TypeDrawCard:
		msg = &DrawCardMessage{}
	case TypeShoutUno:
		msg = &ShoutUnoMessage{}
	case TypeRoomInfo:
		msg = &RoomInfoMessage{}
	case TypeKicked:
		msg = &KickedMessage{}
	case TypePlayerJoined, TypePlayerLeft:
		return nil, &MalformedMessageError{Type: env.Type, Reason: "local signal received from the wire"}
	case "":
		return nil, &MalformedMessageError{Reason: "missing type"}
	default:
		return nil, &MalformedMessageError{Type: env.Type, Reason: "unknown type"}
	}

	if len(env.Payload) != 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, &MalformedMessageError{Type: env.Type, Reason: "invalid payload", Err: err}
		}
	} else if env.Type == TypeGameState || env.Type == TypePlayCard || env.Type == TypeRoomInfo {
		return nil, &MalformedMessageError{Type: env.Type, Reason: "missing payload"}
	}

	if _, isAction := msg.(ActionMessage); isAction {
		if env.PlayerID == nil {
			return nil, &MalformedMessageError{Type: env.Type, Reason: "missing player_id"}
		}
		switch m := msg.(type) {
		case *PlayCardMessage:
			m.PlayerID = *env.PlayerID
		case *DrawCardMessage:
			m.PlayerID = *env.PlayerID
		case *ShoutUnoMessage:
			m.PlayerID = *env.PlayerID
		}
	}

	if err := msg.validate(); err != nil {
		return nil, &MalformedMessageError{Type: env.Type, Reason: "invalid content", Err: err}
	}
	return msg, nil
}

var ErrMalformedMessage = errors.New("malformed message")

type MalformedMessageError struct {
	Type   MessageType
	Reason string
	Err    error
}

func (e *MalformedMessageError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrMalformedMessage, e.Reason)
	if e.Type != "" {
		msg = fmt.Sprintf("%s (type %s)", msg, e.Type)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// RoomStatus is the body of the host's GET /room/{code} response. It is
// plain JSON, not an enveloped message.
type RoomStatus struct {
	RoomName     string   `json:"room_name"`
	RoomCode     string   `json:"room_code"`
	HostName     string   `json:"host_name"`
	TotalPlayers int      `json:"total_players"`
	Players      []string `json:"players"`
	MatchRunning bool     `json:"match_running"`
}

type UnwrappedErrorPayload struct {
	Errors []string `json:"errors"`
}

func (payload *UnwrappedErrorPayload) Add(err error) {
	if payload.Errors == nil {
		payload.Errors = make([]string, 0, 4)
	}
	payload.Errors = append(payload.Errors, err.Error())
	for {
		err = errors.Unwrap(err)
		if err == nil {
			break
		}
		payload.Errors = append(payload.Errors, err.Error())
	}
}

// WriteErrorPayload is used by the host's plain HTTP routes.
func WriteErrorPayload(w io.Writer, err error) {
	payload := UnwrappedErrorPayload{}
	payload.Add(err)
	json.NewEncoder(w).Encode(&payload)
}
