package session

import (
	"fmt"

	"github.com/nrawrx3/unolink"
)

// Snapshot returns a copy of the current state, or nil before a game starts.
func (s *Session) Snapshot() *unolink.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil
	}
	cloned := s.state.Clone()
	return &cloned
}

func (s *Session) LocalPlayerID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localPlayerID
}

func (s *Session) LocalPlayerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localPlayerName
}

// LastActor is the id of the player whose action produced the current
// snapshot, or unolink.NoPlayer.
func (s *Session) LastActor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActor
}

// LastOutcome is a short description of the most recent accepted action.
func (s *Session) LastOutcome() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOutcome
}

func (s *Session) Updates() <-chan Update {
	return s.updates
}

// ConnectedPeers is the number of connected clients. Always 0 unless hosting.
func (s *Session) ConnectedPeers() int {
	if s.channel == nil {
		return 0
	}
	return s.channel.ConnectionCount()
}

func (s *Session) localTurn() (*unolink.GameState, *unolink.Player, bool) {
	if s.state == nil || s.state.IsOver() {
		return nil, nil, false
	}
	current := s.state.CurrentPlayer()
	if current.ID != s.localPlayerID {
		return nil, nil, false
	}
	return s.state, current, true
}

// IsLocalTurn reports whether the local player is the current player of a
// running match.
func (s *Session) IsLocalTurn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, _, ok := s.localTurn()
	return ok
}

// LocalPlayableCards is the legal subset of the local hand, empty when it is
// not the local player's turn or a penalty must be drawn first.
func (s *Session) LocalPlayableCards() unolink.Deck {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, player, ok := s.localTurn()
	if !ok || state.DrawStack > 0 {
		return nil
	}
	return unolink.PlayableCards(player.Hand, state.TopDiscard(), state.ActiveColor)
}

func (s *Session) LocalHasLegalMove() bool {
	return !s.LocalPlayableCards().IsEmpty()
}

// LocalMustDraw is true on the local player's turn when drawing is the only
// option: a penalty is pending or no card in hand is playable.
func (s *Session) LocalMustDraw() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, player, ok := s.localTurn()
	if !ok {
		return false
	}
	if state.DrawStack > 0 {
		return true
	}
	return unolink.PlayableCards(player.Hand, state.TopDiscard(), state.ActiveColor).IsEmpty()
}

// SeatsForOffline puts the local player in seat 0 and fills the remaining
// seats with bots.
func SeatsForOffline(localName string, totalPlayers int) []unolink.Seat {
	seats := make([]unolink.Seat, totalPlayers)
	seats[0] = unolink.Seat{Name: localName}
	for i := 1; i < totalPlayers; i++ {
		seats[i] = unolink.Seat{Name: BotName(i), IsBot: true}
	}
	return seats
}

func BotName(seat int) string {
	return fmt.Sprintf("bot-%d", seat)
}
