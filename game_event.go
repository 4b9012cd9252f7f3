package unolink

import (
	"fmt"
	"strings"
)

// GameEvent describes one consequence of an accepted action. Events are only
// used for presentation, the state itself is the source of truth.
type GameEvent interface {
	GameEventName() string

	// StringMessage renders the event from the point of view of the given
	// local player. Pass "" for a neutral rendering.
	StringMessage(localPlayerName string) string
}

func changeIfSelf(playerName, localPlayerName string) (string, bool) {
	if localPlayerName != "" && playerName == localPlayerName {
		return fmt.Sprintf("You(%s)", localPlayerName), true
	}
	return playerName, false
}

type CardPlayedEvent struct {
	Player string
	Card   Card
}

func (e CardPlayedEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	return fmt.Sprintf("%s played %s", playerName, e.Card.String())
}

func (e CardPlayedEvent) GameEventName() string {
	return "CardPlayedEvent"
}

type SkipCardActionEvent struct {
	Player        string
	SkippedPlayer string
	NextPlayer    string
}

func (e SkipCardActionEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	skippedPlayerName, _ := changeIfSelf(e.SkippedPlayer, localPlayerName)
	nextPlayerName, _ := changeIfSelf(e.NextPlayer, localPlayerName)

	return fmt.Sprintf("%s played a skip-card, skipping %s, making %s the next player", playerName, skippedPlayerName, nextPlayerName)
}

func (e SkipCardActionEvent) GameEventName() string {
	return "SkipActionEvent"
}

type DrawTwoCardActionEvent struct {
	Player          string
	PenalizedPlayer string
	DrawStack       int
}

func (e DrawTwoCardActionEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	penalizedPlayerName, _ := changeIfSelf(e.PenalizedPlayer, localPlayerName)

	return fmt.Sprintf("%s played a draw-2-card, %s owes %d cards", playerName, penalizedPlayerName, e.DrawStack)
}

func (e DrawTwoCardActionEvent) GameEventName() string {
	return "Draw2ActionEvent"
}

type ReverseCardActionEvent struct {
	Player     string
	NextPlayer string
	ActsAsSkip bool
}

func (e ReverseCardActionEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	nextPlayerName, _ := changeIfSelf(e.NextPlayer, localPlayerName)

	if e.ActsAsSkip {
		return fmt.Sprintf("%s played a reverse-card, %s plays again", playerName, nextPlayerName)
	}
	return fmt.Sprintf("%s played a reverse-card, making %s the next player", playerName, nextPlayerName)
}

func (e ReverseCardActionEvent) GameEventName() string {
	return "ReverseActionEvent"
}

type WildCardActionEvent struct {
	Player          string
	ChosenColor     Color
	IsDraw4         bool
	PenalizedPlayer string
	DrawStack       int
}

func (e WildCardActionEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	if e.IsDraw4 {
		penalizedPlayerName, _ := changeIfSelf(e.PenalizedPlayer, localPlayerName)
		return fmt.Sprintf("%s played a wild-draw-4 choosing %s, %s owes %d cards", playerName, e.ChosenColor.String(), penalizedPlayerName, e.DrawStack)
	}
	return fmt.Sprintf("%s played a wild card choosing %s", playerName, e.ChosenColor.String())
}

func (e WildCardActionEvent) GameEventName() string {
	if e.IsDraw4 {
		return "WildCardActionEvent(Draw4=True)"
	}
	return "WildCardActionEvent(Draw4=False)"
}

type CardDrawnEvent struct {
	Player           string
	Drew             bool
	PenaltyRemaining int
}

func (e CardDrawnEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	if !e.Drew {
		return fmt.Sprintf("%s tried to draw but no cards are left", playerName)
	}
	if e.PenaltyRemaining > 0 {
		return fmt.Sprintf("%s drew a penalty card, %d more to draw", playerName, e.PenaltyRemaining)
	}
	return fmt.Sprintf("%s drew a card", playerName)
}

func (e CardDrawnEvent) GameEventName() string {
	return "CardDrawnEvent"
}

type DeckRecycledEvent struct {
	CardCount int
}

func (e DeckRecycledEvent) StringMessage(string) string {
	return fmt.Sprintf("discard pile reshuffled into a new draw pile of %d cards", e.CardCount)
}

func (e DeckRecycledEvent) GameEventName() string {
	return "DeckRecycledEvent"
}

type PlayerPassedTurnEvent struct {
	Player           string
	PlayerOfNextTurn string
}

func (e PlayerPassedTurnEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	nextPlayerName, _ := changeIfSelf(e.PlayerOfNextTurn, localPlayerName)
	return fmt.Sprintf("%s's turn is over, next player is %s", playerName, nextPlayerName)
}

func (e PlayerPassedTurnEvent) GameEventName() string {
	return "PlayerPassedTurnEvent"
}

type UnoShoutedEvent struct {
	Player string
}

func (e UnoShoutedEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	return fmt.Sprintf("%s shouted UNO!", playerName)
}

func (e UnoShoutedEvent) GameEventName() string {
	return "UnoShoutedEvent"
}

type UnoBannerClearedEvent struct {
	Player string
}

func (e UnoBannerClearedEvent) StringMessage(string) string {
	return ""
}

func (e UnoBannerClearedEvent) GameEventName() string {
	return "UnoBannerClearedEvent"
}

type ForgotUnoEvent struct {
	Player       string
	PenaltyCards int
}

func (e ForgotUnoEvent) StringMessage(localPlayerName string) string {
	playerName, _ := changeIfSelf(e.Player, localPlayerName)
	if e.PenaltyCards > 0 {
		return fmt.Sprintf("%s forgot to shout UNO and draws %d cards", playerName, e.PenaltyCards)
	}
	return fmt.Sprintf("%s forgot to shout UNO!", playerName)
}

func (e ForgotUnoEvent) GameEventName() string {
	return "ForgotUnoEvent"
}

type PlayerReplacedByBotEvent struct {
	Player string
}

func (e PlayerReplacedByBotEvent) StringMessage(localPlayerName string) string {
	return fmt.Sprintf("%s left, a bot takes over the seat", e.Player)
}

func (e PlayerReplacedByBotEvent) GameEventName() string {
	return "PlayerReplacedByBotEvent"
}

type PlayerHasWonEvent struct {
	Player string
}

func (e PlayerHasWonEvent) StringMessage(localPlayerName string) string {
	playerName, you := changeIfSelf(e.Player, localPlayerName)
	if you {
		return fmt.Sprintf("%s are the winner", playerName)
	}
	return fmt.Sprintf("%s is the winner", playerName)
}

func (e PlayerHasWonEvent) GameEventName() string {
	return "PlayerHasWonEvent"
}

// Outcome is what an accepted action produced, besides the new state.
type Outcome struct {
	Events []GameEvent
}

// Describe joins the event messages into one line.
func (o Outcome) Describe(localPlayerName string) string {
	parts := make([]string, 0, len(o.Events))
	for _, ev := range o.Events {
		if msg := ev.StringMessage(localPlayerName); msg != "" {
			parts = append(parts, msg)
		}
	}
	return strings.Join(parts, "; ")
}
