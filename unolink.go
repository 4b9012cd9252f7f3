package unolink

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type Card struct {
	ID     uuid.UUID `json:"id"`
	Color  Color     `json:"color"`
	Number Number    `json:"number"`
}

func (c Card) String() string {
	if c.IsWild() {
		return c.Number.String()
	}
	return fmt.Sprintf("%s %s", c.Color.String(), c.Number.String())
}

func (c Card) IsWild() bool {
	return c.Number == NumberWild || c.Number == NumberWildDrawFour
}

// Special cards
const (
	NumberSkip Number = iota + 10
	NumberReverse
	NumberDrawTwo
	NumberWild
	NumberWildDrawFour
)

var ErrInvalidCardColor = errors.New("invalid card color")
var ErrInvalidCardNumber = errors.New("invalid card number")

type Number int

func (num Number) IsAction() bool {
	return NumberSkip <= num && num <= NumberWildDrawFour
}

func (num Number) IsValid() bool {
	return 0 <= num && num <= NumberWildDrawFour
}

func (num Number) String() string {
	if 0 <= num && num <= 9 {
		return fmt.Sprintf("%d", int(num))
	}

	switch num {
	case NumberSkip:
		return "skip"
	case NumberReverse:
		return "reverse"
	case NumberDrawTwo:
		return "draw_two"
	case NumberWild:
		return "wild"
	case NumberWildDrawFour:
		return "wild_draw_four"
	default:
		return fmt.Sprintf("invalid_number(= %d)", int(num))
	}
}

func ParseNumber(s string) (Number, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for n := Number(0); n <= NumberWildDrawFour; n++ {
		if n.String() == s {
			return n, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidCardNumber, "%q", s)
}

func (num Number) MarshalText() ([]byte, error) {
	if !num.IsValid() {
		return nil, errors.Wrapf(ErrInvalidCardNumber, "%d", int(num))
	}
	return []byte(num.String()), nil
}

func (num *Number) UnmarshalText(text []byte) error {
	n, err := ParseNumber(string(text))
	if err != nil {
		return err
	}
	*num = n
	return nil
}

type Color int

const (
	ColorWild Color = iota
	ColorRed
	ColorBlue
	ColorGreen
	ColorYellow
)

// ConcreteColors lists the four playable colors in enumeration order. Bots
// break color-count ties using this order.
var ConcreteColors = [...]Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

func (c Color) IsConcrete() bool {
	return ColorRed <= c && c <= ColorYellow
}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	case ColorWild:
		return "wild"
	default:
		return "invalid_color"
	}
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red", "r":
		return ColorRed, nil
	case "blue", "b":
		return ColorBlue, nil
	case "green", "g":
		return ColorGreen, nil
	case "yellow", "y":
		return ColorYellow, nil
	case "wild":
		return ColorWild, nil
	default:
		return ColorWild, errors.Wrapf(ErrInvalidCardColor, "%q", s)
	}
}

func (c Color) MarshalText() ([]byte, error) {
	if c != ColorWild && !c.IsConcrete() {
		return nil, errors.Wrapf(ErrInvalidCardColor, "%d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	color, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = color
	return nil
}

// Deck is an ordered sequence of cards. Depending on use it is a draw pile
// (index 0 is the next draw), a discard pile (last element is the top) or a
// hand (order only matters to the UI).
type Deck []Card

func (d Deck) String() string {
	if len(d) == 0 {
		return "[]"
	}

	var sb strings.Builder

	sb.WriteString("[")

	for _, card := range d[0 : len(d)-1] {
		sb.WriteString(card.String())
		sb.WriteString("|")
	}

	sb.WriteString(d[len(d)-1].String())
	sb.WriteString("]")

	return sb.String()
}

func (d Deck) Len() int {
	return len(d)
}

func (d Deck) Swap(i, j int) {
	d[i], d[j] = d[j], d[i]
}

const FullDeckSize = 108

// NewFullDeck builds the 108 card deck in a fixed order. Every card gets a
// fresh id, so two decks never share ids.
func NewFullDeck() Deck {
	cards := make(Deck, 0, FullDeckSize)
	for _, color := range ConcreteColors {
		cards = append(cards, Card{ID: uuid.New(), Color: color, Number: 0})

		// Two copies of 1-9, skip, reverse and draw-two for each color
		for copyIndex := 0; copyIndex < 2; copyIndex++ {
			for number := Number(1); number <= NumberDrawTwo; number++ {
				cards = append(cards, Card{ID: uuid.New(), Color: color, Number: number})
			}
		}
	}

	// 4 wild and 4 wild-draw-four
	for i := 0; i < 4; i++ {
		cards = append(cards, Card{ID: uuid.New(), Color: ColorWild, Number: NumberWild})
		cards = append(cards, Card{ID: uuid.New(), Color: ColorWild, Number: NumberWildDrawFour})
	}

	return cards
}

func (d Deck) IsEmpty() bool {
	return len(d) == 0
}

func (d Deck) Push(cards ...Card) Deck {
	return append(d, cards...)
}

func (d Deck) MustTop() Card {
	if d.IsEmpty() {
		panic("Deck.MustTop() called on empty deck")
	}
	return d[len(d)-1]
}

func (d Deck) Clone() Deck {
	if d == nil {
		return nil
	}
	cloned := make(Deck, len(d), cap(d))
	copy(cloned, d)
	return cloned
}

func (d Deck) IndexOf(id uuid.UUID) int {
	return slices.IndexFunc(d, func(c Card) bool { return c.ID == id })
}

func (d Deck) RemoveAt(index int) Deck {
	return slices.Delete(d, index, index+1)
}

// FindFirst returns the first card that has the given number and, for non-wild
// numbers, the given color.
func (d Deck) FindFirst(number Number, color Color) (Card, bool) {
	i := slices.IndexFunc(d, func(c Card) bool {
		if c.Number != number {
			return false
		}
		return c.IsWild() || c.Color == color
	})
	if i < 0 {
		return Card{}, false
	}
	return d[i], true
}
