package unolink

import "math/rand"

// ShuffleDeck shuffles d in place.
func ShuffleDeck(d Deck, rng *rand.Rand) {
	for end := len(d); end > 0; end-- {
		randomIndex := rng.Intn(end)
		d.Swap(randomIndex, end-1)
	}
}
