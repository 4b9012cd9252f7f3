package unolink

import (
	"time"

	"github.com/google/uuid"
)

// MatchSummary is handed off to persistence once a match ends. It is written
// from the point of view of one player.
type MatchSummary struct {
	MatchID                uuid.UUID      `json:"match_id"`
	PlayerID               int            `json:"player_id"`
	PlayerName             string         `json:"player_name"`
	Won                    bool           `json:"won"`
	WinnerID               int            `json:"winner_id"`
	WinnerName             string         `json:"winner_name"`
	TurnCount              int            `json:"turn_count"`
	FinalCardValue         Number         `json:"final_card_value"`
	ColorPlays             map[string]int `json:"color_plays"`
	MaxHandSize            int            `json:"max_hand_size"`
	DrawPenaltyCardsPlayed int            `json:"draw_penalty_cards_played"`
	FinishedAt             time.Time      `json:"finished_at"`
}

// StatsTracker derives a MatchSummary from the sequence of snapshots a
// participant sees. It never looks at actions, so it works the same on the
// host and on a client.
type StatsTracker struct {
	playerID int
	prev     *GameState
	summary  MatchSummary
	done     bool

	now func() time.Time
}

func NewStatsTracker(playerID int) *StatsTracker {
	t := &StatsTracker{playerID: playerID, now: time.Now}
	t.reset(uuid.Nil)
	return t
}

func (t *StatsTracker) reset(matchID uuid.UUID) {
	t.prev = nil
	t.done = false
	t.summary = MatchSummary{
		MatchID:    matchID,
		PlayerID:   t.playerID,
		WinnerID:   NoPlayer,
		ColorPlays: make(map[string]int, 5),
	}
}

// Observe feeds the next snapshot. lastActor is the id of the player whose
// action produced it, or NoPlayer when unknown. The summary is returned
// exactly once, with the first GameOver snapshot of a match.
func (t *StatsTracker) Observe(state GameState, lastActor int) (MatchSummary, bool) {
	if t.prev == nil || state.MatchID != t.summary.MatchID {
		t.reset(state.MatchID)
	}
	if t.done {
		return MatchSummary{}, false
	}
	if t.prev != nil && state.Generation <= t.prev.Generation {
		return MatchSummary{}, false
	}

	local, ok := state.PlayerByID(t.playerID)
	if !ok {
		return MatchSummary{}, false
	}
	t.summary.PlayerName = local.Name
	if local.Hand.Len() > t.summary.MaxHandSize {
		t.summary.MaxHandSize = local.Hand.Len()
	}

	if t.prev != nil && (lastActor == t.playerID || lastActor == NoPlayer) {
		t.observeLocalMove(t.prev, &state)
	}

	prev := state.Clone()
	t.prev = &prev

	if !state.IsOver() {
		return MatchSummary{}, false
	}

	t.done = true
	t.summary.WinnerID = state.WinnerID
	if winner, ok := state.Winner(); ok {
		t.summary.WinnerName = winner.Name
	}
	t.summary.Won = state.WinnerID == t.playerID
	t.summary.FinalCardValue = state.TopDiscard().Number
	t.summary.FinishedAt = t.now()
	return t.summary, true
}

func (t *StatsTracker) observeLocalMove(prev, next *GameState) {
	prevIndex, ok := prev.PlayerIndexByID(t.playerID)
	if !ok || prev.CurrentPlayerIndex != prevIndex {
		return
	}
	prevHand := prev.Players[prevIndex].Hand

	top := next.TopDiscard()
	if top.ID != prev.TopDiscard().ID && prevHand.IndexOf(top.ID) >= 0 {
		t.summary.TurnCount++
		t.summary.ColorPlays[top.Color.String()]++
		switch top.Number {
		case NumberDrawTwo:
			t.summary.DrawPenaltyCardsPlayed += 2
		case NumberWildDrawFour:
			t.summary.DrawPenaltyCardsPlayed += 4
		}
		return
	}

	if next.CurrentPlayerIndex != prevIndex {
		t.summary.TurnCount++
	}
}
