package unolink

// IsPlayable reports whether card may be played on top of topDiscard while
// activeColor is in effect. Wild cards are always playable. A non-wild card
// must match the active color or the number/symbol of the top card.
func IsPlayable(card Card, topDiscard Card, activeColor Color) bool {
	if card.IsWild() {
		return true
	}
	return card.Color == activeColor || card.Number == topDiscard.Number
}

// PlayableCards returns the legal subset of hand, in hand order.
func PlayableCards(hand Deck, topDiscard Card, activeColor Color) Deck {
	playable := make(Deck, 0, len(hand))
	for _, card := range hand {
		if IsPlayable(card, topDiscard, activeColor) {
			playable = append(playable, card)
		}
	}
	return playable
}
