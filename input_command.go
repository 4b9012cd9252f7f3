package unolink

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

type CommandKind int

const (
	CmdPlayCard CommandKind = 1 + iota
	CmdDrawCard
	CmdShoutUno
	CmdStart
	CmdKick
	CmdStatus
	CmdQuit
)

func (k CommandKind) String() string {
	switch k {
	case CmdPlayCard:
		return "play"
	case CmdDrawCard:
		return "draw"
	case CmdShoutUno:
		return "uno"
	case CmdStart:
		return "start"
	case CmdKick:
		return "kick"
	case CmdStatus:
		return "status"
	case CmdQuit:
		return "quit"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

var ErrNoMatchingCard = errors.New("no matching card in hand")

type InputCommand struct {
	Kind CommandKind

	// Only for CmdPlayCard. Color is the card color for a non-wild card and
	// the declared color for a wild one (ColorWild if none was given).
	Number Number
	Color  Color

	// Only for CmdKick
	Seat int
}

// Syntax:
//	play NUMBER [COLOR]     (NUMBER is 0-9 or one of skip|rev|draw2|wild|wild4)
//	draw
//	uno
//	start
//	kick SEAT
//	status
//	quit

func ParseInputCommand(input string) (InputCommand, error) {
	input = strings.TrimSpace(input)

	var s scanner.Scanner
	s.Init(strings.NewReader(input))
	s.Filename = "cmd"
	s.Mode = scanner.GoTokens
	s.Error = func(*scanner.Scanner, string) {}

	tok, command, err := parseCommand(&s, s.Scan())
	if err != nil {
		return command, err
	}

	if tok != scanner.EOF {
		return command, errors.Errorf("unexpected '%s' after %s command", s.TokenText(), command.Kind)
	}

	return command, nil
}

func parseCommand(s *scanner.Scanner, tok rune) (rune, InputCommand, error) {
	command := InputCommand{}

	if tok != scanner.Ident {
		return tok, command, errors.Errorf("expected a command (play|draw|uno|start|kick|status|quit), found: '%s'", s.TokenText())
	}

	switch strings.ToLower(s.TokenText()) {
	case "play":
		command.Kind = CmdPlayCard
		tok = s.Scan()
		if !(tok == scanner.Int || tok == scanner.Ident) {
			return tok, command, errors.Errorf("expected a number (0-9) or action name (skip|rev|draw2|wild|wild4), found: '%s'", s.TokenText())
		}
		return parseCard(s, command)

	case "draw":
		command.Kind = CmdDrawCard
		return s.Scan(), command, nil

	case "uno":
		command.Kind = CmdShoutUno
		return s.Scan(), command, nil

	case "start":
		command.Kind = CmdStart
		return s.Scan(), command, nil

	case "kick":
		command.Kind = CmdKick
		tok = s.Scan()
		if tok != scanner.Int {
			return tok, command, errors.Errorf("expected a seat number, found: '%s'", s.TokenText())
		}
		seat, err := strconv.Atoi(s.TokenText())
		if err != nil || seat < 0 || seat >= MaxPlayers {
			return tok, command, errors.Errorf("invalid seat: %s", s.TokenText())
		}
		command.Seat = seat
		return s.Scan(), command, nil

	case "status":
		command.Kind = CmdStatus
		return s.Scan(), command, nil

	case "quit":
		command.Kind = CmdQuit
		return s.Scan(), command, nil

	default:
		return tok, command, errors.Errorf("expected a command (play|draw|uno|start|kick|status|quit), found '%s'", s.TokenText())
	}
}

func parseCard(s *scanner.Scanner, command InputCommand) (rune, InputCommand, error) {
	switch text := strings.ToLower(s.TokenText()); text {
	case "skip":
		command.Number = NumberSkip
	case "rev":
		command.Number = NumberReverse
	case "draw2":
		command.Number = NumberDrawTwo
	case "wild":
		command.Number = NumberWild
	case "wild4":
		command.Number = NumberWildDrawFour
	default:
		number, err := strconv.Atoi(text)
		if err != nil || number < 0 || number > 9 {
			return 0, command, errors.Wrapf(ErrInvalidCardNumber, "%q", text)
		}
		command.Number = Number(number)
	}

	isWild := command.Number == NumberWild || command.Number == NumberWildDrawFour

	tok := s.Scan()
	if tok == scanner.EOF && isWild {
		command.Color = ColorWild
		return tok, command, nil
	}
	if tok != scanner.Ident {
		return tok, command, errors.Errorf("expected a card color (red|green|blue|yellow). Got '%s'", s.TokenText())
	}
	color, err := ParseColor(s.TokenText())
	if err != nil || !color.IsConcrete() {
		return tok, command, errors.Errorf("expected a card color (red|green|blue|yellow). Got '%s'", s.TokenText())
	}
	command.Color = color
	return s.Scan(), command, nil
}

// ToAction turns a play/draw/uno command into an action for playerID, looking
// up the concrete card in hand for a play.
func (c InputCommand) ToAction(playerID int, hand Deck) (Action, error) {
	switch c.Kind {
	case CmdDrawCard:
		return NewDrawCardAction(playerID), nil
	case CmdShoutUno:
		return NewShoutUnoAction(playerID), nil
	case CmdPlayCard:
		card, ok := hand.FindFirst(c.Number, c.Color)
		if !ok {
			return Action{}, errors.Wrapf(ErrNoMatchingCard, "%s %s", c.Color, c.Number)
		}
		declared := ColorWild
		if card.IsWild() {
			if !c.Color.IsConcrete() {
				return Action{}, ErrMissingWildColor
			}
			declared = c.Color
		}
		return NewPlayCardAction(playerID, card.ID, declared), nil
	default:
		return Action{}, errors.Errorf("%s is not a game action", c.Kind)
	}
}

var userNameRegex = regexp.MustCompile(`^([[:alnum:]]|_)+$`)

// IsUserNameAllowed accepts letters, digits and underscores. Bot names
// contain a '-' and can never clash with a player's.
func IsUserNameAllowed(name string) bool {
	return userNameRegex.MatchString(name)
}
