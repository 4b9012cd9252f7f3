package admin

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/hand_reader"
	"github.com/nrawrx3/unolink/session"
)

const kickReason = "kicked by host"

// REPL drives the host (or offline) player from a terminal.
type REPL struct {
	session      *session.Session
	admin        *Admin
	totalPlayers int
	presetJSON   []byte
	rng          *rand.Rand
	out          io.Writer
}

type ConfigNewREPL struct {
	Session *session.Session
	// Nil when playing offline.
	Admin        *Admin
	TotalPlayers int
	// Optional hand config used for every started match.
	PresetJSON []byte
	Rng        *rand.Rand
	Out        io.Writer
}

func NewREPL(config ConfigNewREPL) *REPL {
	if config.Rng == nil {
		config.Rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if config.Out == nil {
		config.Out = io.Discard
	}
	return &REPL{
		session:      config.Session,
		admin:        config.Admin,
		totalPlayers: config.TotalPlayers,
		presetJSON:   config.PresetJSON,
		rng:          config.Rng,
		out:          config.Out,
	}
}

func (repl *REPL) seats() []unolink.Seat {
	if repl.admin != nil {
		return repl.admin.Seats()
	}
	return session.SeatsForOffline(repl.session.LocalPlayerName(), repl.totalPlayers)
}

func (repl *REPL) startMatch(ctx context.Context) error {
	if len(repl.presetJSON) == 0 {
		if repl.admin != nil {
			return repl.admin.StartMatch(ctx)
		}
		return repl.session.Start(ctx, repl.seats())
	}

	state, err := hand_reader.LoadConfig(repl.presetJSON, repl.seats(), repl.rng)
	if err != nil {
		return errors.Wrap(err, "failed to load starting hand config")
	}
	return repl.session.StartWith(ctx, state)
}

// Execute runs one input line.
func (repl *REPL) Execute(ctx context.Context, line string) error {
	command, err := unolink.ParseInputCommand(line)
	if err != nil {
		return err
	}

	switch command.Kind {
	case unolink.CmdStart:
		return repl.startMatch(ctx)

	case unolink.CmdPlayCard, unolink.CmdDrawCard, unolink.CmdShoutUno:
		state := repl.session.Snapshot()
		if state == nil {
			return session.ErrNoGame
		}
		localID := repl.session.LocalPlayerID()
		player, ok := state.PlayerByID(localID)
		if !ok {
			return errors.Wrapf(unolink.ErrUnknownPlayer, "id %d", localID)
		}
		action, err := command.ToAction(localID, player.Hand)
		if err != nil {
			return err
		}
		return repl.session.SubmitLocal(ctx, action)

	case unolink.CmdKick:
		if repl.admin == nil {
			return ErrOfflineOnly
		}
		if command.Seat == HostPlayerID {
			return errors.New("cannot kick the host")
		}
		return repl.admin.Kick(ctx, command.Seat, kickReason)

	case unolink.CmdStatus:
		repl.printStatus()
		return nil

	case unolink.CmdQuit:
		return errQuitRequested

	default:
		return errors.Errorf("unhandled command %s", command.Kind)
	}
}

func (repl *REPL) printStatus() {
	if repl.admin != nil {
		fmt.Fprintf(repl.out, "Room %s (%s), connected players: %d\n", repl.admin.RoomName(), repl.admin.RoomCode(), repl.session.ConnectedPeers())
	}

	state := repl.session.Snapshot()
	if state == nil {
		fmt.Fprintln(repl.out, "No game in progress. Type 'start' to deal.")
		return
	}
	fmt.Fprint(repl.out, state.Summary())
	if player, ok := state.PlayerByID(repl.session.LocalPlayerID()); ok {
		fmt.Fprintf(repl.out, "Your hand: %s\n", player.Hand.String())
	}
}

func (repl *REPL) printUpdate(update session.Update) {
	if update.Reset {
		fmt.Fprintf(repl.out, "Game reset: %s\n", update.Reason)
		return
	}

	description := repl.session.LastOutcome()
	if update.LastActor == unolink.NoPlayer && update.Description != "" {
		description = update.Description
	}
	if description != "" {
		fmt.Fprintln(repl.out, description)
	}

	state := repl.session.Snapshot()
	if state == nil || state.Generation != update.Generation {
		return
	}
	if winner, ok := state.Winner(); ok {
		fmt.Fprintf(repl.out, "Game over, %s won. Type 'start' for another match.\n", winner.Name)
		return
	}
	if !repl.session.IsLocalTurn() {
		return
	}

	player, _ := state.PlayerByID(repl.session.LocalPlayerID())
	fmt.Fprintf(repl.out, "Your turn. Top: %s, color: %s\nHand: %s\n", state.TopDiscard().String(), state.ActiveColor.String(), player.Hand.String())
	if repl.session.LocalMustDraw() {
		if state.DrawStack > 0 {
			fmt.Fprintf(repl.out, "You must draw (%d pending)\n", state.DrawStack)
		} else {
			fmt.Fprintln(repl.out, "No playable card, draw")
		}
	}
}

// Run reads commands until quit, EOF or ctx is done.
func (repl *REPL) Run(ctx context.Context) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	repl.out = rl.Stdout()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				rl.Close()
				return
			case update := <-repl.session.Updates():
				repl.printUpdate(update)
			}
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		err = repl.Execute(ctx, line)
		if errors.Is(err, errQuitRequested) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(repl.out, "%s\n", err)
		}
	}
}
