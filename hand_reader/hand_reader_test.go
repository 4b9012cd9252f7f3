package hand_reader

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrawrx3/unolink"
)

var testSeats = []unolink.Seat{
	{Name: "alice"},
	{Name: "bot-1", IsBot: true},
	{Name: "jane"},
}

func TestLoadConfig(t *testing.T) {
	config := []byte(`{
		"player.alice": {
			"red": [1, 2, "skip"],
			"wild": ["wild_draw_4"],
			"draw_upto": {"total": 6}
		},
		"player.jane": {
			"blue": [7, "reverse"]
		},
		"top_discard": {"color": "green", "number": 3},
		"discarded_pile_size": 4,
		"player_of_next_turn": "jane"
	}`)

	state, err := LoadConfig(config, testSeats, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, state.CheckInvariants())

	alice := state.Players[0].Hand
	require.Equal(t, 6, alice.Len())
	assert.Equal(t, unolink.Card{ID: alice[0].ID, Color: unolink.ColorRed, Number: 1}, alice[0])
	assert.Equal(t, unolink.NumberSkip, alice[2].Number)
	assert.Equal(t, unolink.NumberWildDrawFour, alice[3].Number)

	assert.Equal(t, unolink.DefaultStartingHandSize, state.Players[1].Hand.Len())
	assert.True(t, state.Players[1].IsBot)

	jane := state.Players[2].Hand
	require.Equal(t, 2, jane.Len())
	assert.Equal(t, unolink.NumberReverse, jane[1].Number)

	assert.Equal(t, 5, state.DiscardPile.Len())
	assert.Equal(t, unolink.ColorGreen, state.TopDiscard().Color)
	assert.Equal(t, unolink.Number(3), state.TopDiscard().Number)
	assert.Equal(t, unolink.ColorGreen, state.ActiveColor)
	assert.Equal(t, 2, state.CurrentPlayerIndex)
	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, unolink.StatusPlaying, state.Status)
}

func TestLoadConfigDefaultsAndSeed(t *testing.T) {
	config := []byte(`{"shuffle_seed": 42}`)

	a, err := LoadConfig(config, testSeats, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	b, err := LoadConfig(config, testSeats, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	for i := range testSeats {
		assert.Equal(t, unolink.DefaultStartingHandSize, a.Players[i].Hand.Len())
		for j := range a.Players[i].Hand {
			assert.Equal(t, a.Players[i].Hand[j].Kind(), b.Players[i].Hand[j].Kind())
		}
	}
	assert.False(t, a.TopDiscard().IsWild())
	assert.Equal(t, 0, a.CurrentPlayerIndex)
}

func TestLoadConfigErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := LoadConfig([]byte(`{"player.nobody": {"red": [1]}}`), testSeats, rng)
	assert.ErrorIs(t, err, ErrUnknownPlayerName)

	_, err = LoadConfig([]byte(`{"colour": 1}`), testSeats, rng)
	assert.ErrorIs(t, err, ErrUnknownKey)

	// A color has only one zero.
	_, err = LoadConfig([]byte(`{"player.alice": {"red": [0, 0]}}`), testSeats, rng)
	assert.ErrorIs(t, err, ErrCouldNotRemoveCard)

	_, err = LoadConfig([]byte(`{"top_discard": {"color": "wild", "number": "wild"}}`), testSeats, rng)
	assert.ErrorIs(t, err, ErrWildTopDiscard)

	_, err = LoadConfig([]byte(`{"player.alice": {"red": ["wild"]}}`), testSeats, rng)
	assert.ErrorIs(t, err, unolink.ErrInvalidCardColor)

	_, err = LoadConfig([]byte(`{"player.alice": {"red": [12]}}`), testSeats, rng)
	assert.ErrorIs(t, err, unolink.ErrInvalidCardNumber)

	_, err = LoadConfig([]byte(`{}`), testSeats[:1], rng)
	assert.ErrorIs(t, err, unolink.ErrTooFewPlayers)

	_, err = LoadConfig([]byte(`[1, 2]`), testSeats, rng)
	assert.Error(t, err)
}

func TestPresetStateIsPlayable(t *testing.T) {
	config := []byte(`{
		"player.alice": {"red": [5]},
		"top_discard": {"color": "red", "number": 3}
	}`)
	state, err := LoadConfig(config, testSeats, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	engine := unolink.NewEngine(rand.New(rand.NewSource(3)), unolink.DefaultRules())
	card := state.Players[0].Hand[0]
	next, _, err := engine.Apply(state, unolink.NewPlayCardAction(0, card.ID, unolink.ColorWild))
	require.NoError(t, err)
	assert.True(t, next.IsOver())
	assert.Equal(t, 0, next.WinnerID)
}
