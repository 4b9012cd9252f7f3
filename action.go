package unolink

import (
	"fmt"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionPlayCard ActionKind = "play_card"
	ActionDrawCard ActionKind = "draw_card"
	ActionShoutUno ActionKind = "shout_uno"

	// Issued only by the authoritative process itself, never accepted from a
	// client.
	ActionClearUnoBanner ActionKind = "clear_uno_banner"
	ActionReplaceWithBot ActionKind = "replace_with_bot"
)

func (k ActionKind) IsHostInternal() bool {
	return k == ActionClearUnoBanner || k == ActionReplaceWithBot
}

// Action is a single request against the turn engine. Not all fields are used
// by every kind: CardID and DeclaredColor only by ActionPlayCard, BannerSeq
// only by ActionClearUnoBanner.
type Action struct {
	Kind          ActionKind `json:"kind"`
	PlayerID      int        `json:"player_id"`
	CardID        uuid.UUID  `json:"card_id,omitempty"`
	DeclaredColor Color      `json:"declared_color,omitempty"`
	BannerSeq     uint64     `json:"banner_seq,omitempty"`
}

func NewPlayCardAction(playerID int, cardID uuid.UUID, declaredColor Color) Action {
	return Action{Kind: ActionPlayCard, PlayerID: playerID, CardID: cardID, DeclaredColor: declaredColor}
}

func NewDrawCardAction(playerID int) Action {
	return Action{Kind: ActionDrawCard, PlayerID: playerID}
}

func NewShoutUnoAction(playerID int) Action {
	return Action{Kind: ActionShoutUno, PlayerID: playerID}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionPlayCard:
		return fmt.Sprintf("%s(player=%d, card=%s, color=%s)", a.Kind, a.PlayerID, a.CardID, a.DeclaredColor)
	case ActionClearUnoBanner:
		return fmt.Sprintf("%s(seq=%d)", a.Kind, a.BannerSeq)
	default:
		return fmt.Sprintf("%s(player=%d)", a.Kind, a.PlayerID)
	}
}
