package unolink

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrGameOver         = errors.New("game is over")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotYourTurn      = errors.New("not the player's turn")
	ErrPendingDrawStack = errors.New("player must draw the pending penalty cards first")
	ErrCardNotInHand    = errors.New("card is not in the player's hand")
	ErrCardNotPlayable  = errors.New("card cannot be played on the current discard")
	ErrMissingWildColor = errors.New("wild card needs a declared color")
	ErrUnknownAction    = errors.New("unknown action")
	ErrStaleUnoBanner   = errors.New("uno banner already cleared or superseded")
	ErrAlreadyBot       = errors.New("player is already a bot")
	ErrTooFewPlayers    = errors.New("too few players")
	ErrTooManyPlayers   = errors.New("too many players")
)

// IsIllegalAction reports whether err is a rule rejection, as opposed to a
// programming or transport error.
func IsIllegalAction(err error) bool {
	for _, target := range []error{
		ErrGameOver, ErrUnknownPlayer, ErrNotYourTurn, ErrPendingDrawStack, ErrCardNotInHand,
		ErrCardNotPlayable, ErrMissingWildColor, ErrUnknownAction, ErrStaleUnoBanner, ErrAlreadyBot,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type UnoPolicy string

const (
	// No check when a player reaches one card without shouting.
	UnoPolicyOff UnoPolicy = "off"
	// A coin flip decides whether a "forgot to shout UNO" message is emitted.
	// Has no effect on the state.
	UnoPolicyAnnounce UnoPolicy = "announce"
	// Forgetting to shout draws UnoPenaltyCards cards right away.
	UnoPolicyStrict UnoPolicy = "strict"
)

func ParseUnoPolicy(s string) (UnoPolicy, error) {
	switch p := UnoPolicy(s); p {
	case UnoPolicyOff, UnoPolicyAnnounce, UnoPolicyStrict:
		return p, nil
	case "":
		return UnoPolicyOff, nil
	default:
		return UnoPolicyOff, errors.Errorf("unknown uno policy %q", s)
	}
}

const (
	DefaultStartingHandSize = 7
	UnoPenaltyCards         = 2
)

type Rules struct {
	StartingHandSize int
	UnoPolicy        UnoPolicy
}

func DefaultRules() Rules {
	return Rules{StartingHandSize: DefaultStartingHandSize, UnoPolicy: UnoPolicyOff}
}

// Seat describes a participant before the game starts. Seat i becomes the
// player with id i.
type Seat struct {
	Name  string
	IsBot bool
}

// Engine applies actions to game states. It owns the random source used for
// shuffling and is not safe for concurrent use; exactly one goroutine of the
// authoritative process drives it.
type Engine struct {
	rng   *rand.Rand
	rules Rules
}

func NewEngine(rng *rand.Rand, rules Rules) *Engine {
	if rules.StartingHandSize <= 0 {
		rules.StartingHandSize = DefaultStartingHandSize
	}
	if rules.UnoPolicy == "" {
		rules.UnoPolicy = UnoPolicyOff
	}
	return &Engine{rng: rng, rules: rules}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

func (e *Engine) Shuffle(d Deck) {
	ShuffleDeck(d, e.rng)
}

// NewGame shuffles a fresh deck, deals StartingHandSize cards to each seat and
// flips a non-wild starter card.
func (e *Engine) NewGame(seats []Seat) (GameState, error) {
	if len(seats) < MinPlayers {
		return GameState{}, errors.Wrapf(ErrTooFewPlayers, "%d seats", len(seats))
	}
	if len(seats) > MaxPlayers {
		return GameState{}, errors.Wrapf(ErrTooManyPlayers, "%d seats", len(seats))
	}

	deck := NewFullDeck()
	e.Shuffle(deck)

	state := GameState{
		MatchID:    uuid.New(),
		Generation: 1,
		Players:    make([]Player, len(seats)),
		Direction:  1,
		Status:     StatusPlaying,
		WinnerID:   NoPlayer,
		UnoBanner:  UnoBanner{PlayerID: NoPlayer},
	}

	handSize := e.rules.StartingHandSize
	for i, seat := range seats {
		hand := make(Deck, handSize, handSize+8)
		copy(hand, deck[:handSize])
		deck = deck[handSize:]
		state.Players[i] = Player{ID: i, Name: seat.Name, Hand: hand, IsBot: seat.IsBot}
	}

	starter := deck[0]
	deck = deck[1:]
	for starter.IsWild() {
		deck = deck.Push(starter)
		e.Shuffle(deck)
		starter = deck[0]
		deck = deck[1:]
	}

	state.Deck = deck.Clone()
	state.DiscardPile = Deck{starter}
	state.ActiveColor = starter.Color
	return state, nil
}

// Apply validates action against state and returns the resulting state. On
// error the returned state is the input state, unchanged.
func (e *Engine) Apply(state GameState, action Action) (GameState, Outcome, error) {
	if state.Status != StatusPlaying {
		return state, Outcome{}, ErrGameOver
	}

	next := state.Clone()
	var events []GameEvent
	var err error

	switch action.Kind {
	case ActionPlayCard:
		events, err = e.playCard(&next, action)
	case ActionDrawCard:
		events, err = e.drawCard(&next, action)
	case ActionShoutUno:
		events, err = e.shoutUno(&next, action)
	case ActionClearUnoBanner:
		events, err = e.clearUnoBanner(&next, action)
	case ActionReplaceWithBot:
		events, err = e.replaceWithBot(&next, action)
	default:
		err = errors.Wrapf(ErrUnknownAction, "%q", action.Kind)
	}

	if err != nil {
		return state, Outcome{}, err
	}

	next.Generation = state.Generation + 1
	return next, Outcome{Events: events}, nil
}

func (e *Engine) currentPlayerIndexFor(s *GameState, playerID int) (int, error) {
	index, ok := s.PlayerIndexByID(playerID)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownPlayer, "id %d", playerID)
	}
	if index != s.CurrentPlayerIndex {
		return 0, errors.Wrapf(ErrNotYourTurn, "player %d, current %d", playerID, s.Players[s.CurrentPlayerIndex].ID)
	}
	return index, nil
}

func (e *Engine) playCard(s *GameState, action Action) ([]GameEvent, error) {
	index, err := e.currentPlayerIndexFor(s, action.PlayerID)
	if err != nil {
		return nil, err
	}
	if s.DrawStack > 0 {
		return nil, errors.Wrapf(ErrPendingDrawStack, "%d cards", s.DrawStack)
	}

	player := &s.Players[index]
	cardIndex := player.Hand.IndexOf(action.CardID)
	if cardIndex < 0 {
		return nil, errors.Wrapf(ErrCardNotInHand, "card %s", action.CardID)
	}
	card := player.Hand[cardIndex]
	top := s.TopDiscard()
	if !IsPlayable(card, top, s.ActiveColor) {
		return nil, errors.Wrapf(ErrCardNotPlayable, "%s on %s (active %s)", card, top, s.ActiveColor)
	}
	if card.IsWild() && !action.DeclaredColor.IsConcrete() {
		return nil, errors.Wrapf(ErrMissingWildColor, "%s", card)
	}

	hadUno := player.HasUno
	handSizeBefore := len(player.Hand)

	player.Hand = player.Hand.RemoveAt(cardIndex)
	player.HasUno = false
	s.DiscardPile = s.DiscardPile.Push(card)
	if card.IsWild() {
		s.ActiveColor = action.DeclaredColor
	} else {
		s.ActiveColor = card.Color
	}

	events := []GameEvent{CardPlayedEvent{Player: player.Name, Card: card}}
	playerCount := len(s.Players)
	nextName := func(steps int) string {
		i := s.CurrentPlayerIndex
		for n := 0; n < steps; n++ {
			i = NextPlayerIndex(i, playerCount, s.Direction)
		}
		return s.Players[i].Name
	}

	steps := 1
	switch card.Number {
	case NumberReverse:
		s.Direction = -s.Direction
		if playerCount == 2 {
			steps = 2
		}
		events = append(events, ReverseCardActionEvent{Player: player.Name, NextPlayer: nextName(steps), ActsAsSkip: steps == 2})
	case NumberSkip:
		steps = 2
		events = append(events, SkipCardActionEvent{Player: player.Name, SkippedPlayer: nextName(1), NextPlayer: nextName(2)})
	case NumberDrawTwo:
		s.DrawStack += 2
		events = append(events, DrawTwoCardActionEvent{Player: player.Name, PenalizedPlayer: nextName(1), DrawStack: s.DrawStack})
	case NumberWildDrawFour:
		s.DrawStack += 4
		events = append(events, WildCardActionEvent{Player: player.Name, ChosenColor: s.ActiveColor, IsDraw4: true, PenalizedPlayer: nextName(1), DrawStack: s.DrawStack})
	case NumberWild:
		events = append(events, WildCardActionEvent{Player: player.Name, ChosenColor: s.ActiveColor})
	}

	if len(player.Hand) == 0 {
		s.Status = StatusGameOver
		s.WinnerID = player.ID
		return append(events, PlayerHasWonEvent{Player: player.Name}), nil
	}

	if handSizeBefore == 2 && !hadUno {
		events = append(events, e.forgotUno(s, index)...)
	}

	s.advanceTurn(steps)
	return append(events, PlayerPassedTurnEvent{Player: player.Name, PlayerOfNextTurn: s.CurrentPlayer().Name}), nil
}

func (e *Engine) forgotUno(s *GameState, index int) []GameEvent {
	player := &s.Players[index]
	switch e.rules.UnoPolicy {
	case UnoPolicyAnnounce:
		if e.rng.Intn(2) == 0 {
			return []GameEvent{ForgotUnoEvent{Player: player.Name}}
		}
	case UnoPolicyStrict:
		events := []GameEvent{ForgotUnoEvent{Player: player.Name, PenaltyCards: UnoPenaltyCards}}
		for i := 0; i < UnoPenaltyCards; i++ {
			card, recycled, ok := e.drawOne(s)
			if recycled {
				events = append(events, DeckRecycledEvent{CardCount: s.Deck.Len() + 1})
			}
			if ok {
				player.Hand = player.Hand.Push(card)
			}
		}
		return events
	}
	return nil
}

func (e *Engine) drawCard(s *GameState, action Action) ([]GameEvent, error) {
	index, err := e.currentPlayerIndexFor(s, action.PlayerID)
	if err != nil {
		return nil, err
	}

	player := &s.Players[index]
	events := make([]GameEvent, 0, 3)

	card, recycled, ok := e.drawOne(s)
	if recycled {
		events = append(events, DeckRecycledEvent{CardCount: s.Deck.Len() + 1})
	}
	if ok {
		player.Hand = player.Hand.Push(card)
	}
	player.HasUno = false

	if s.DrawStack > 0 {
		s.DrawStack--
		events = append(events, CardDrawnEvent{Player: player.Name, Drew: ok, PenaltyRemaining: s.DrawStack})
		if s.DrawStack > 0 {
			return events, nil
		}
	} else {
		events = append(events, CardDrawnEvent{Player: player.Name, Drew: ok})
	}

	s.advanceTurn(1)
	return append(events, PlayerPassedTurnEvent{Player: player.Name, PlayerOfNextTurn: s.CurrentPlayer().Name}), nil
}

// drawOne moves the head of the draw pile out of the deck, recycling the
// discard pile first when the draw pile is empty. ok is false when there was
// nothing to draw even after recycling.
func (e *Engine) drawOne(s *GameState) (card Card, recycled bool, ok bool) {
	if s.Deck.IsEmpty() {
		if !e.recycle(s) {
			return Card{}, false, false
		}
		recycled = true
	}
	card = s.Deck[0]
	s.Deck = s.Deck[1:]
	return card, recycled, true
}

// recycle turns all but the top discard into a freshly shuffled draw pile.
func (e *Engine) recycle(s *GameState) bool {
	if s.DiscardPile.Len() < 2 {
		return false
	}
	top := s.DiscardPile.MustTop()
	rest := s.DiscardPile[:s.DiscardPile.Len()-1].Clone()
	e.Shuffle(rest)
	s.Deck = rest
	s.DiscardPile = Deck{top}
	return true
}

func (e *Engine) shoutUno(s *GameState, action Action) ([]GameEvent, error) {
	player, ok := s.PlayerByID(action.PlayerID)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlayer, "id %d", action.PlayerID)
	}
	player.HasUno = true
	s.UnoBanner = UnoBanner{Active: true, PlayerID: player.ID, Seq: s.UnoBanner.Seq + 1}
	return []GameEvent{UnoShoutedEvent{Player: player.Name}}, nil
}

func (e *Engine) clearUnoBanner(s *GameState, action Action) ([]GameEvent, error) {
	if !s.UnoBanner.Active || s.UnoBanner.Seq != action.BannerSeq {
		return nil, errors.Wrapf(ErrStaleUnoBanner, "seq %d, current %d", action.BannerSeq, s.UnoBanner.Seq)
	}
	name := ""
	if player, ok := s.PlayerByID(s.UnoBanner.PlayerID); ok {
		name = player.Name
	}
	s.UnoBanner.Active = false
	return []GameEvent{UnoBannerClearedEvent{Player: name}}, nil
}

func (e *Engine) replaceWithBot(s *GameState, action Action) ([]GameEvent, error) {
	player, ok := s.PlayerByID(action.PlayerID)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPlayer, "id %d", action.PlayerID)
	}
	if player.IsBot {
		return nil, errors.Wrapf(ErrAlreadyBot, "id %d", action.PlayerID)
	}
	player.IsBot = true
	return []GameEvent{PlayerReplacedByBotEvent{Player: player.Name}}, nil
}
