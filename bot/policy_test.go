package bot

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrawrx3/unolink"
)

func card(number unolink.Number, color unolink.Color) unolink.Card {
	return unolink.Card{ID: uuid.New(), Color: color, Number: number}
}

func wild() unolink.Card {
	return card(unolink.NumberWild, unolink.ColorWild)
}

func TestChooseMoveMustDraw(t *testing.T) {
	hand := unolink.Deck{card(3, unolink.ColorBlue), card(7, unolink.ColorGreen)}
	_, ok := ChooseMove(hand, card(2, unolink.ColorRed), unolink.ColorRed)
	assert.False(t, ok)

	_, ok = ChooseMove(nil, card(2, unolink.ColorRed), unolink.ColorRed)
	assert.False(t, ok)
}

func TestChooseMovePreferences(t *testing.T) {
	top := card(2, unolink.ColorRed)

	cases := []struct {
		name string
		hand unolink.Deck
		want int
	}{
		{
			name: "action card over number",
			hand: unolink.Deck{card(5, unolink.ColorRed), card(unolink.NumberSkip, unolink.ColorRed)},
			want: 1,
		},
		{
			name: "active color over number match",
			hand: unolink.Deck{card(2, unolink.ColorBlue), card(9, unolink.ColorRed)},
			want: 1,
		},
		{
			name: "number match when no color match",
			hand: unolink.Deck{wild(), card(2, unolink.ColorGreen)},
			want: 1,
		},
		{
			name: "wild only as last resort",
			hand: unolink.Deck{card(4, unolink.ColorGreen), wild()},
			want: 1,
		},
		{
			name: "first in hand order within a tier",
			hand: unolink.Deck{card(unolink.NumberDrawTwo, unolink.ColorRed), card(unolink.NumberReverse, unolink.ColorRed)},
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ChooseMove(tc.hand, top, unolink.ColorRed)
			require.True(t, ok)
			assert.Equal(t, tc.hand[tc.want].ID, got.ID)
		})
	}
}

func TestChooseColor(t *testing.T) {
	hand := unolink.Deck{
		card(1, unolink.ColorGreen),
		card(2, unolink.ColorGreen),
		card(3, unolink.ColorBlue),
		wild(),
		card(unolink.NumberWildDrawFour, unolink.ColorWild),
	}
	assert.Equal(t, unolink.ColorGreen, ChooseColor(hand))

	tied := unolink.Deck{card(1, unolink.ColorYellow), card(2, unolink.ColorBlue)}
	assert.Equal(t, unolink.ColorBlue, ChooseColor(tied))

	assert.Equal(t, unolink.ColorRed, ChooseColor(unolink.Deck{wild()}))
}

func TestAgentPlaysWholeGames(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		engine := unolink.NewEngine(rand.New(rand.NewSource(seed)), unolink.Rules{UnoPolicy: unolink.UnoPolicyStrict})
		state, err := engine.NewGame([]unolink.Seat{{Name: "a", IsBot: true}, {Name: "b", IsBot: true}, {Name: "c", IsBot: true}})
		require.NoError(t, err)

		agents := []*Agent{NewAgent(0), NewAgent(1), NewAgent(2)}
		for step := 0; step < 3000 && !state.IsOver(); step++ {
			var action unolink.Action
			decided := 0
			for _, agent := range agents {
				if a, ok := agent.Decide(&state); ok {
					action = a
					decided++
				}
			}
			require.Equal(t, 1, decided, "exactly one agent acts per state")

			state, _, err = engine.Apply(state, action)
			require.NoError(t, err, "seed %d step %d: %s", seed, step, action)
			require.NoError(t, state.CheckInvariants())
		}

		if state.IsOver() {
			_, ok := agents[0].Decide(&state)
			assert.False(t, ok)
		}
	}
}

func TestAgentShoutsBeforeSecondToLastCard(t *testing.T) {
	state := unolink.GameState{
		Players: []unolink.Player{
			{ID: 0, Name: "bot", Hand: unolink.Deck{card(5, unolink.ColorRed), card(6, unolink.ColorBlue)}, IsBot: true},
			{ID: 1, Name: "human", Hand: unolink.Deck{card(1, unolink.ColorBlue)}},
		},
		DiscardPile: unolink.Deck{card(2, unolink.ColorRed)},
		Direction:   1,
		ActiveColor: unolink.ColorRed,
		Status:      unolink.StatusPlaying,
		WinnerID:    unolink.NoPlayer,
	}

	agent := NewAgent(0)
	action, ok := agent.Decide(&state)
	require.True(t, ok)
	assert.Equal(t, unolink.ActionShoutUno, action.Kind)

	state.Players[0].HasUno = true
	action, ok = agent.Decide(&state)
	require.True(t, ok)
	assert.Equal(t, unolink.ActionPlayCard, action.Kind)
	assert.Equal(t, state.Players[0].Hand[0].ID, action.CardID)

	_, ok = NewAgent(1).Decide(&state)
	assert.False(t, ok)
}

func TestAgentDeclaresColorForWild(t *testing.T) {
	state := unolink.GameState{
		Players: []unolink.Player{
			{ID: 0, Hand: unolink.Deck{wild(), card(3, unolink.ColorYellow), card(4, unolink.ColorYellow)}},
			{ID: 1, Hand: unolink.Deck{card(1, unolink.ColorBlue)}},
		},
		DiscardPile: unolink.Deck{card(2, unolink.ColorRed)},
		Direction:   1,
		ActiveColor: unolink.ColorRed,
		Status:      unolink.StatusPlaying,
	}

	action, ok := NewAgent(0).Decide(&state)
	require.True(t, ok)
	assert.Equal(t, unolink.ActionPlayCard, action.Kind)
	assert.Equal(t, unolink.ColorYellow, action.DeclaredColor)

	state.DrawStack = 2
	action, ok = NewAgent(0).Decide(&state)
	require.True(t, ok)
	assert.Equal(t, unolink.ActionDrawCard, action.Kind)
}
