package unolink

// A card kind is the color/number pair without the id. 5 bits for number and 4
// bits for color is more than enough.
// [unused bits][5 bits for number][4 bits for color]
const (
	numberBitsCount = 5
	colorBitsCount  = 4
	numberMask      = (uint32(1<<numberBitsCount) - 1) << uint32(colorBitsCount)
	colorMask       = (uint32(1<<colorBitsCount) - 1)
)

type CardKind uint32

func (c Card) Kind() CardKind {
	return CardKind((uint32(c.Number) << colorBitsCount) | uint32(c.Color))
}

func (k CardKind) Color() Color {
	return Color(uint32(k) & colorMask)
}

func (k CardKind) Number() Number {
	return Number((uint32(k) & numberMask) >> colorBitsCount)
}

// KindCounts returns how many cards of each kind a full deck holds.
func KindCounts() map[CardKind]int {
	counts := make(map[CardKind]int, 64)
	for _, card := range NewFullDeck() {
		counts[card.Kind()]++
	}
	return counts
}
