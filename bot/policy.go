package bot

import (
	"github.com/nrawrx3/unolink"
)

// ChooseMove picks the card a bot plays on top of topDiscard, or returns false
// when the bot has no legal card and must draw. Preference order: non-wild
// action cards, then non-wild cards of the active color, then any other
// non-wild card, then wild cards. Within a tier the first card in hand order
// wins.
func ChooseMove(hand unolink.Deck, topDiscard unolink.Card, activeColor unolink.Color) (unolink.Card, bool) {
	legal := unolink.PlayableCards(hand, topDiscard, activeColor)
	if legal.IsEmpty() {
		return unolink.Card{}, false
	}

	tiers := []func(unolink.Card) bool{
		func(c unolink.Card) bool { return !c.IsWild() && c.Number.IsAction() },
		func(c unolink.Card) bool { return !c.IsWild() && c.Color == activeColor },
		func(c unolink.Card) bool { return !c.IsWild() },
	}
	for _, inTier := range tiers {
		for _, card := range legal {
			if inTier(card) {
				return card, true
			}
		}
	}
	return legal[0], true
}

// ChooseColor returns the concrete color the bot holds most of. Wild cards
// are not counted. Ties go to the color that comes first in
// unolink.ConcreteColors.
func ChooseColor(hand unolink.Deck) unolink.Color {
	counts := make(map[unolink.Color]int, len(unolink.ConcreteColors))
	for _, card := range hand {
		if card.Color.IsConcrete() {
			counts[card.Color]++
		}
	}

	best := unolink.ConcreteColors[0]
	for _, color := range unolink.ConcreteColors[1:] {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}
