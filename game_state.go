package unolink

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type GameStatus string

const (
	StatusPlaying  GameStatus = "playing"
	StatusGameOver GameStatus = "game_over"
)

const NoPlayer = -1

const (
	MinPlayers = 2
	MaxPlayers = 4
)

type Player struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Hand   Deck   `json:"hand"`
	IsBot  bool   `json:"is_bot"`
	HasUno bool   `json:"has_uno"`
}

// UnoBanner is the transient "UNO!" signal. Seq identifies one shout so that
// a clear scheduled for an older shout never hides a newer one.
type UnoBanner struct {
	Active   bool   `json:"active"`
	PlayerID int    `json:"player_id"`
	Seq      uint64 `json:"seq"`
}

// GameState is the whole table. It is treated as a value: the engine never
// modifies a state it was given, it returns a new one.
type GameState struct {
	MatchID            uuid.UUID  `json:"match_id"`
	Generation         uint64     `json:"generation"`
	Deck               Deck       `json:"deck"`
	DiscardPile        Deck       `json:"discard_pile"`
	Players            []Player   `json:"players"`
	CurrentPlayerIndex int        `json:"current_player_index"`
	Direction          int        `json:"direction"`
	ActiveColor        Color      `json:"active_color"`
	DrawStack          int        `json:"draw_stack"`
	Status             GameStatus `json:"status"`
	WinnerID           int        `json:"winner_id"`
	UnoBanner          UnoBanner  `json:"uno_banner"`
}

// Clone deep-copies every slice so the copy can be modified freely.
func (s GameState) Clone() GameState {
	cloned := s
	cloned.Deck = s.Deck.Clone()
	cloned.DiscardPile = s.DiscardPile.Clone()
	cloned.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		cloned.Players[i] = p
		cloned.Players[i].Hand = p.Hand.Clone()
	}
	return cloned
}

func (s *GameState) TopDiscard() Card {
	return s.DiscardPile.MustTop()
}

func (s *GameState) PlayerCount() int {
	return len(s.Players)
}

func (s *GameState) CurrentPlayer() *Player {
	return &s.Players[s.CurrentPlayerIndex]
}

func (s *GameState) PlayerIndexByID(playerID int) (int, bool) {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i, true
		}
	}
	return 0, false
}

func (s *GameState) PlayerByID(playerID int) (*Player, bool) {
	i, ok := s.PlayerIndexByID(playerID)
	if !ok {
		return nil, false
	}
	return &s.Players[i], true
}

func (s *GameState) Winner() (*Player, bool) {
	if s.WinnerID == NoPlayer {
		return nil, false
	}
	return s.PlayerByID(s.WinnerID)
}

func (s *GameState) IsOver() bool {
	return s.Status == StatusGameOver
}

// NextPlayerIndex steps once from current in the given direction, wrapping
// around the table.
func NextPlayerIndex(current, total, direction int) int {
	return (current + direction + total) % total
}

func (s *GameState) advanceTurn(steps int) {
	for i := 0; i < steps; i++ {
		s.CurrentPlayerIndex = NextPlayerIndex(s.CurrentPlayerIndex, len(s.Players), s.Direction)
	}
}

func (s *GameState) Summary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Generation: %d\n", s.Generation))
	sb.WriteString(fmt.Sprintf("DrawDeck count: %d\n", s.Deck.Len()))
	sb.WriteString(fmt.Sprintf("DiscardPile count: %d\n", s.DiscardPile.Len()))
	if !s.DiscardPile.IsEmpty() {
		sb.WriteString(fmt.Sprintf("Top: %s, active color: %s\n", s.TopDiscard().String(), s.ActiveColor.String()))
	}
	sb.WriteString("Hand counts:\n----------\n")
	for i, p := range s.Players {
		marker := " "
		if i == s.CurrentPlayerIndex {
			marker = ">"
		}
		sb.WriteString(fmt.Sprintf("%s %d %s: %d", marker, p.ID, p.Name, p.Hand.Len()))
		if p.IsBot {
			sb.WriteString(" (bot)")
		}
		if p.HasUno {
			sb.WriteString(" UNO")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Direction: %d, DrawStack: %d, Status: %s\n", s.Direction, s.DrawStack, s.Status))
	return sb.String()
}

var ErrInvariantViolated = errors.New("game state invariant violated")

// CheckInvariants verifies card conservation, a non-empty discard pile, a
// concrete active color and a valid current player.
func (s *GameState) CheckInvariants() error {
	if len(s.Players) < MinPlayers || len(s.Players) > MaxPlayers {
		return errors.Wrapf(ErrInvariantViolated, "player count %d", len(s.Players))
	}
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return errors.Wrapf(ErrInvariantViolated, "current player index %d", s.CurrentPlayerIndex)
	}
	if s.Direction != 1 && s.Direction != -1 {
		return errors.Wrapf(ErrInvariantViolated, "direction %d", s.Direction)
	}
	if s.DiscardPile.IsEmpty() {
		return errors.Wrap(ErrInvariantViolated, "empty discard pile")
	}
	if !s.ActiveColor.IsConcrete() {
		return errors.Wrapf(ErrInvariantViolated, "active color %s", s.ActiveColor)
	}
	if s.DrawStack < 0 {
		return errors.Wrapf(ErrInvariantViolated, "draw stack %d", s.DrawStack)
	}

	seen := make(map[uuid.UUID]struct{}, FullDeckSize)
	kinds := make(map[CardKind]int, 64)
	count := func(d Deck) error {
		for _, c := range d {
			if _, dup := seen[c.ID]; dup {
				return errors.Wrapf(ErrInvariantViolated, "duplicate card id %s", c.ID)
			}
			seen[c.ID] = struct{}{}
			kinds[c.Kind()]++
		}
		return nil
	}
	if err := count(s.Deck); err != nil {
		return err
	}
	if err := count(s.DiscardPile); err != nil {
		return err
	}
	for _, p := range s.Players {
		if err := count(p.Hand); err != nil {
			return err
		}
	}
	if len(seen) != FullDeckSize {
		return errors.Wrapf(ErrInvariantViolated, "card count %d", len(seen))
	}
	for kind, want := range KindCounts() {
		if kinds[kind] != want {
			return errors.Wrapf(ErrInvariantViolated, "have %d of %s %s, want %d", kinds[kind], kind.Color(), kind.Number(), want)
		}
	}
	return nil
}
