// Read a JSON description of the table and build a GameState from it. This is
// only for testing/debugging purpose.
package hand_reader

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nrawrx3/unolink"
)

/*
	{
		"player.alice": {
			"red": [1, 2, "skip"],
			"green": [9, "draw_2"],
			"wild": ["wild", "wild_draw_4"],

			"draw_upto": {
				"total": 12
			}
		},

		"player.bot-1": {
			"blue": [7, 9, 2, "reverse"]
		},

		"top_discard": {"color": "red", "number": 5},
		"discarded_pile_size": 4,
		"shuffle_seed": 0, // 0 says use the rng given by the caller
		"player_of_next_turn": "alice"
	}

A seat that is not described gets the default starting hand.
*/

type drawUpto struct {
	total int
}

type handDesc struct {
	cards    []unolink.Card
	drawUpto drawUpto
}

type tableDesc struct {
	handDescOfPlayer  map[string]*handDesc
	topDiscard        *unolink.Card
	discardedPileSize int
	playerOfNextTurn  string
	shuffleSeed       int64
}

var (
	ErrUnknownKey         = errors.New("unknown key")
	ErrUnknownPlayerName  = errors.New("player name is not seated")
	ErrCouldNotRemoveCard = errors.New("could not remove card")
	ErrWildTopDiscard     = errors.New("top discard must not be a wild card")
)

// LoadConfig reads the hand-config JSON and deals a game for seats
// accordingly. Every card comes out of one full deck, so the result holds
// all 108 cards exactly once.
func LoadConfig(bytes []byte, seats []unolink.Seat, rng *rand.Rand) (unolink.GameState, error) {
	var j map[string]interface{}
	err := json.Unmarshal(bytes, &j)
	if err != nil {
		return unolink.GameState{}, errors.Wrap(err, "hand config is not a JSON object")
	}

	desc := tableDesc{handDescOfPlayer: make(map[string]*handDesc)}

	for key, value := range j {
		switch {
		case strings.HasPrefix(key, "player."):
			playerName := strings.TrimPrefix(key, "player.")
			hand, err := castHandDescMap(value)
			if err != nil {
				return unolink.GameState{}, errors.Wrapf(err, "player '%s'", playerName)
			}
			desc.handDescOfPlayer[playerName] = hand

		case key == "top_discard":
			card, err := castCard(value)
			if err != nil {
				return unolink.GameState{}, errors.Wrap(err, "top_discard")
			}
			desc.topDiscard = &card

		case key == "discarded_pile_size":
			number, err := castInt(value)
			if err != nil || number < 0 {
				return unolink.GameState{}, errors.New("expected a non-negative integer value for discarded_pile_size")
			}
			desc.discardedPileSize = number

		case key == "shuffle_seed":
			number, ok := value.(float64)
			if !ok {
				return unolink.GameState{}, errors.New("expected an integer value for shuffle_seed")
			}
			desc.shuffleSeed = int64(number)

		case key == "player_of_next_turn":
			name, ok := value.(string)
			if !ok {
				return unolink.GameState{}, errors.New("expected a player name for player_of_next_turn")
			}
			desc.playerOfNextTurn = strings.TrimSpace(name)

		default:
			return unolink.GameState{}, errors.Wrapf(ErrUnknownKey, "%s", key)
		}
	}

	if desc.shuffleSeed != 0 {
		rng = rand.New(rand.NewSource(desc.shuffleSeed))
	}
	return makeState(desc, seats, rng)
}

// takeCard removes the first card of the given kind from deck.
func takeCard(deck unolink.Deck, want unolink.Card) (unolink.Deck, unolink.Card, error) {
	for i, card := range deck {
		if card.Kind() == want.Kind() {
			return deck.RemoveAt(i), card, nil
		}
	}
	return deck, unolink.Card{}, errors.Wrapf(ErrCouldNotRemoveCard, "%s", want.String())
}

func makeState(desc tableDesc, seats []unolink.Seat, rng *rand.Rand) (unolink.GameState, error) {
	if len(seats) < unolink.MinPlayers {
		return unolink.GameState{}, errors.Wrapf(unolink.ErrTooFewPlayers, "%d seats", len(seats))
	}
	if len(seats) > unolink.MaxPlayers {
		return unolink.GameState{}, errors.Wrapf(unolink.ErrTooManyPlayers, "%d seats", len(seats))
	}

	seatOfName := make(map[string]int, len(seats))
	for i, seat := range seats {
		seatOfName[seat.Name] = i
	}
	for name := range desc.handDescOfPlayer {
		if _, ok := seatOfName[name]; !ok {
			return unolink.GameState{}, errors.Wrapf(ErrUnknownPlayerName, "%s", name)
		}
	}

	deck := unolink.NewFullDeck()
	unolink.ShuffleDeck(deck, rng)

	state := unolink.GameState{
		MatchID:    uuid.New(),
		Generation: 1,
		Players:    make([]unolink.Player, len(seats)),
		Direction:  1,
		Status:     unolink.StatusPlaying,
		WinnerID:   unolink.NoPlayer,
		UnoBanner:  unolink.UnoBanner{PlayerID: unolink.NoPlayer},
	}

	// Explicit cards first so that filling hands cannot take them.
	var err error
	for i, seat := range seats {
		state.Players[i] = unolink.Player{ID: i, Name: seat.Name, IsBot: seat.IsBot}
		hand, ok := desc.handDescOfPlayer[seat.Name]
		if !ok {
			continue
		}
		for _, want := range hand.cards {
			var card unolink.Card
			deck, card, err = takeCard(deck, want)
			if err != nil {
				return unolink.GameState{}, errors.Wrapf(err, "player '%s'", seat.Name)
			}
			state.Players[i].Hand = state.Players[i].Hand.Push(card)
		}
	}

	var top unolink.Card
	if desc.topDiscard != nil {
		if desc.topDiscard.IsWild() {
			return unolink.GameState{}, ErrWildTopDiscard
		}
		deck, top, err = takeCard(deck, *desc.topDiscard)
		if err != nil {
			return unolink.GameState{}, errors.Wrap(err, "top_discard")
		}
	}

	for i, seat := range seats {
		total := unolink.DefaultStartingHandSize
		if hand, ok := desc.handDescOfPlayer[seat.Name]; ok {
			total = hand.drawUpto.total
		}
		for state.Players[i].Hand.Len() < total {
			if deck.IsEmpty() {
				return unolink.GameState{}, errors.Errorf("not enough cards to fill the hand of '%s'", seat.Name)
			}
			state.Players[i].Hand = state.Players[i].Hand.Push(deck[0])
			deck = deck[1:]
		}
	}

	if desc.discardedPileSize >= deck.Len() {
		return unolink.GameState{}, errors.Errorf("discarded_pile_size %d leaves no draw deck", desc.discardedPileSize)
	}
	state.DiscardPile = make(unolink.Deck, 0, desc.discardedPileSize+1)
	state.DiscardPile = state.DiscardPile.Push(deck[:desc.discardedPileSize]...)
	deck = deck[desc.discardedPileSize:]

	if desc.topDiscard == nil {
		index := -1
		for i, card := range deck {
			if !card.IsWild() {
				index = i
				break
			}
		}
		if index < 0 {
			return unolink.GameState{}, errors.New("no non-wild card left for the top discard")
		}
		top = deck[index]
		deck = deck.RemoveAt(index)
	}
	state.DiscardPile = state.DiscardPile.Push(top)
	state.ActiveColor = top.Color
	state.Deck = deck.Clone()

	if desc.playerOfNextTurn != "" {
		index, ok := seatOfName[desc.playerOfNextTurn]
		if !ok {
			return unolink.GameState{}, errors.Wrapf(ErrUnknownPlayerName, "player_of_next_turn %s", desc.playerOfNextTurn)
		}
		state.CurrentPlayerIndex = index
	}

	if err := state.CheckInvariants(); err != nil {
		return unolink.GameState{}, err
	}
	return state, nil
}

func colorFromKey(colorKey string) (unolink.Color, error) {
	switch strings.ToLower(colorKey) {
	case "red":
		return unolink.ColorRed, nil
	case "blue":
		return unolink.ColorBlue, nil
	case "green":
		return unolink.ColorGreen, nil
	case "yellow":
		return unolink.ColorYellow, nil
	case "wild":
		return unolink.ColorWild, nil
	default:
		return unolink.ColorWild, fmt.Errorf("unknown color key: '%s'", colorKey)
	}
}

func numberFromSpecial(special string) (unolink.Number, error) {
	switch strings.ToLower(special) {
	case "skip":
		return unolink.NumberSkip, nil
	case "reverse":
		return unolink.NumberReverse, nil
	case "draw_2":
		return unolink.NumberDrawTwo, nil
	case "wild":
		return unolink.NumberWild, nil
	case "wild_draw_4":
		return unolink.NumberWildDrawFour, nil
	default:
		return unolink.Number(0), fmt.Errorf("unknown special number key: %s", special)
	}
}

func castInt(v interface{}) (int, error) {
	number, ok := v.(float64)
	if !ok || number != math.Floor(number) {
		return 0, fmt.Errorf("expected integer in place of %v", v)
	}
	return int(number), nil
}

func tryCastNumber(v interface{}) (unolink.Number, error) {
	if _, ok := v.(float64); ok {
		number, err := castInt(v)
		if err != nil {
			return 0, err
		}
		if number < 0 || number > 9 {
			return 0, errors.Wrapf(unolink.ErrInvalidCardNumber, "%d", number)
		}
		return unolink.Number(number), nil
	}

	specialString, ok := v.(string)
	if !ok {
		return unolink.Number(0), errors.New("could not cast value to a card number")
	}
	return numberFromSpecial(specialString)
}

// A wild card is only valid under the "wild" key and the other way round.
func checkCard(card unolink.Card) error {
	if card.IsWild() != (card.Color == unolink.ColorWild) {
		return errors.Wrapf(unolink.ErrInvalidCardColor, "%s %s", card.Color, card.Number)
	}
	return nil
}

func castCard(v interface{}) (unolink.Card, error) {
	object, ok := v.(map[string]interface{})
	if !ok {
		return unolink.Card{}, errors.New("expected an object with color and number")
	}
	colorKey, ok := object["color"].(string)
	if !ok {
		return unolink.Card{}, errors.New("missing color")
	}
	color, err := colorFromKey(colorKey)
	if err != nil {
		return unolink.Card{}, err
	}
	number, err := tryCastNumber(object["number"])
	if err != nil {
		return unolink.Card{}, err
	}
	card := unolink.Card{Color: color, Number: number}
	return card, checkCard(card)
}

func castHandDescMap(handDescIF interface{}) (*handDesc, error) {
	handDescMap, ok := handDescIF.(map[string]interface{})
	if !ok {
		return nil, errors.New("could not cast hand description to an object")
	}

	desc := &handDesc{cards: make([]unolink.Card, 0, 16)}

	// Map iteration order is random, hands are built in a fixed color order.
	colorKeys := []string{"red", "blue", "green", "yellow", "wild"}
	for key := range handDescMap {
		if key == "draw_upto" {
			continue
		}
		if _, err := colorFromKey(key); err != nil {
			return nil, err
		}
	}

	for _, key := range colorKeys {
		valueIF, ok := handDescMap[key]
		if !ok {
			continue
		}
		color, _ := colorFromKey(key)

		numberList, ok := valueIF.([]interface{})
		if !ok {
			return nil, fmt.Errorf("failed to cast number-list value to array for color %s", key)
		}

		for i, numberIF := range numberList {
			number, err := tryCastNumber(numberIF)
			if err != nil {
				return nil, errors.Wrapf(err, "card index %d", i)
			}
			card := unolink.Card{Color: color, Number: number}
			if err := checkCard(card); err != nil {
				return nil, errors.Wrapf(err, "card index %d", i)
			}
			desc.cards = append(desc.cards, card)
		}
	}

	desc.drawUpto.total = len(desc.cards)
	if valueIF, ok := handDescMap["draw_upto"]; ok {
		drawUpto, err := castDrawUpto(valueIF)
		if err != nil {
			return nil, err
		}
		if drawUpto.total > desc.drawUpto.total {
			desc.drawUpto = drawUpto
		}
	}

	return desc, nil
}

func castDrawUpto(v interface{}) (drawUpto, error) {
	drawUpto := drawUpto{}

	object, ok := v.(map[string]interface{})
	if !ok {
		return drawUpto, errors.New("failed to cast drawUpto object")
	}

	for key, value := range object {
		if key == "total" {
			total, err := castInt(value)
			if err != nil {
				return drawUpto, errors.Wrap(err, "value of 'total'")
			}
			drawUpto.total = total
		}
	}
	return drawUpto, nil
}
