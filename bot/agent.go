package bot

import (
	"github.com/nrawrx3/unolink"
)

// Agent plays one seat. It only ever runs inside the authoritative process.
type Agent struct {
	PlayerID int

	// ShoutsUno makes the agent declare UNO before playing its second to last
	// card.
	ShoutsUno bool
}

func NewAgent(playerID int) *Agent {
	return &Agent{PlayerID: playerID, ShoutsUno: true}
}

// Decide returns the agent's next action, or false when it is not the agent's
// turn or the game is over.
func (a *Agent) Decide(state *unolink.GameState) (unolink.Action, bool) {
	if state == nil || state.IsOver() {
		return unolink.Action{}, false
	}
	player := state.CurrentPlayer()
	if player.ID != a.PlayerID {
		return unolink.Action{}, false
	}

	if state.DrawStack > 0 {
		return unolink.NewDrawCardAction(a.PlayerID), true
	}

	card, ok := ChooseMove(player.Hand, state.TopDiscard(), state.ActiveColor)
	if !ok {
		return unolink.NewDrawCardAction(a.PlayerID), true
	}

	if a.ShoutsUno && player.Hand.Len() == 2 && !player.HasUno {
		return unolink.NewShoutUnoAction(a.PlayerID), true
	}

	declared := unolink.ColorWild
	if card.IsWild() {
		rest := player.Hand.Clone()
		rest = rest.RemoveAt(rest.IndexOf(card.ID))
		declared = ChooseColor(rest)
	}
	return unolink.NewPlayCardAction(a.PlayerID, card.ID, declared), true
}
