package messages

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrawrx3/unolink"
)

func newState(t *testing.T) unolink.GameState {
	t.Helper()
	engine := unolink.NewEngine(rand.New(rand.NewSource(7)), unolink.DefaultRules())
	state, err := engine.NewGame([]unolink.Seat{{Name: "host"}, {Name: "guest"}})
	require.NoError(t, err)
	return state
}

func TestGameStateRoundTripIsIdempotent(t *testing.T) {
	state := newState(t)
	data, err := Encode(&GameStateMessage{State: state, LastActor: 1, Description: "guest drew a card"})
	require.NoError(t, err)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, `"GAME_STATE"`, string(env["type"]))
	assert.NotContains(t, env, "player_id")

	first, err := Decode(data)
	require.NoError(t, err)
	second, err := Decode(data)
	require.NoError(t, err)

	gs := first.(*GameStateMessage)
	assert.Equal(t, state.Generation, gs.State.Generation)
	assert.Equal(t, state.TopDiscard(), gs.State.TopDiscard())
	assert.Equal(t, state.Players[1].Hand, gs.State.Players[1].Hand)
	assert.Equal(t, 1, gs.LastActor)
	assert.Equal(t, first, second)
}

func TestActionMessages(t *testing.T) {
	cardID := uuid.New()
	actions := []unolink.Action{
		unolink.NewPlayCardAction(2, cardID, unolink.ColorGreen),
		unolink.NewPlayCardAction(1, cardID, unolink.ColorWild),
		unolink.NewDrawCardAction(3),
		unolink.NewShoutUnoAction(0),
	}

	for _, action := range actions {
		msg, err := FromAction(action)
		require.NoError(t, err)
		data, err := Encode(msg)
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		require.NotNil(t, env.PlayerID)
		assert.Equal(t, action.PlayerID, *env.PlayerID)

		decoded, err := Decode(data)
		require.NoError(t, err)
		am, ok := decoded.(ActionMessage)
		require.True(t, ok)
		assert.Equal(t, action, am.Action())
		assert.Equal(t, action.PlayerID, am.Sender())
	}

	_, err := FromAction(unolink.Action{Kind: unolink.ActionClearUnoBanner})
	assert.ErrorIs(t, err, unolink.ErrUnknownAction)
}

func TestRoomInfoAndKicked(t *testing.T) {
	data, err := Encode(&RoomInfoMessage{RoomName: "den", RoomCode: "AB12CD", HostName: "host", AssignedPlayerID: 1, Players: []string{"host", "guest"}})
	require.NoError(t, err)
	msg, err := Decode(data)
	require.NoError(t, err)
	info := msg.(*RoomInfoMessage)
	assert.Equal(t, "den", info.RoomName)
	assert.Equal(t, 1, info.AssignedPlayerID)

	data, err = Encode(&KickedMessage{Reason: "bye"})
	require.NoError(t, err)
	msg, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeKicked, msg.Type())
}

func TestLocalSignalsStayLocal(t *testing.T) {
	_, err := Encode(&PlayerJoinedMessage{PlayerID: 1})
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"PLAYER_LEFT","payload":{"player_id":1}}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	state := newState(t)
	state.Players[0].Hand = state.Players[0].Hand[1:]
	broken, err := json.Marshal(&GameStateMessage{State: state, LastActor: unolink.NoPlayer})
	require.NoError(t, err)

	encodeState := func(mutate func(*unolink.GameState)) string {
		state := newState(t)
		mutate(&state)
		data, err := json.Marshal(&GameStateMessage{State: state, LastActor: unolink.NoPlayer})
		require.NoError(t, err)
		return string(data)
	}
	duplicateID := encodeState(func(s *unolink.GameState) { s.Players[1].ID = s.Players[0].ID })
	idOutOfRange := encodeState(func(s *unolink.GameState) { s.Players[1].ID = unolink.MaxPlayers })
	unseatedWinner := encodeState(func(s *unolink.GameState) {
		s.Status = unolink.StatusGameOver
		s.WinnerID = unolink.MaxPlayers - 1
	})

	inputs := map[string]string{
		"duplicate player id":  `{"type":"GAME_STATE","payload":` + duplicateID + `}`,
		"player id too large":  `{"type":"GAME_STATE","payload":` + idOutOfRange + `}`,
		"unseated winner":      `{"type":"GAME_STATE","payload":` + unseatedWinner + `}`,
		"not json":             `{{`,
		"missing type":         `{"payload":{}}`,
		"unknown type":         `{"type":"TELEPORT"}`,
		"play without player":  `{"type":"PLAY_CARD","payload":{"card_id":"` + uuid.NewString() + `"}}`,
		"play without card":    `{"type":"PLAY_CARD","payload":{},"player_id":1}`,
		"play with bad color":  `{"type":"PLAY_CARD","payload":{"card_id":"` + uuid.NewString() + `","declared_color":"purple"},"player_id":1}`,
		"draw without player":  `{"type":"DRAW_CARD"}`,
		"payload wrong shape":  `{"type":"ROOM_INFO","payload":[1,2]}`,
		"room info no name":    `{"type":"ROOM_INFO","payload":{"assigned_player_id":1}}`,
		"game state no body":   `{"type":"GAME_STATE"}`,
		"game state lost card": `{"type":"GAME_STATE","payload":` + string(broken) + `}`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedMessage)

			var malformed *MalformedMessageError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestUnwrappedErrorPayload(t *testing.T) {
	payload := UnwrappedErrorPayload{}
	payload.Add(errors.Wrap(unolink.ErrNotYourTurn, "play_card"))
	require.GreaterOrEqual(t, len(payload.Errors), 2)
	assert.Equal(t, "play_card: "+unolink.ErrNotYourTurn.Error(), payload.Errors[0])
	assert.Equal(t, unolink.ErrNotYourTurn.Error(), payload.Errors[len(payload.Errors)-1])
}
