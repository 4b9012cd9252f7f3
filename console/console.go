// Package console is the termui view of one participant. It renders the
// session snapshot and feeds typed command lines to an Executor.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/session"
)

// ErrQuit is returned by an Executor to close the console.
var ErrQuit = errors.New("quit")

type Executor interface {
	// Execute runs one command line. The returned text, if any, is shown in
	// the event log.
	Execute(ctx context.Context, line string) (string, error)
}

type uiAction int

const (
	uiDrawn uiAction = iota
	uiRedraw
	uiClearRedraw
	uiStop
)

const (
	maxEventLogLines = 200
	historyCapacity  = 64
)

type Console struct {
	// Signalling the draw loop that widget data changed is done by actionCond.
	// actionMutex protects every widget object.
	actionMutex       sync.Mutex
	actionCond        *sync.Cond
	action            uiAction
	grid              *ui.Grid
	tableCell         *widgets.Paragraph
	eventLogCell      *widgets.Paragraph
	commandPromptCell *widgets.Paragraph
	drawDeckGauge     *widgets.Gauge
	handCountChart    *widgets.BarChart
	eventLogLines     []string

	commandPromptMutex      sync.Mutex
	commandStringBeingTyped string
	history                 *History

	session  *session.Session
	executor Executor
}

func New(s *session.Session, executor Executor) *Console {
	c := &Console{
		session:  s,
		executor: executor,
		history:  NewHistory(historyCapacity),
	}
	c.actionCond = sync.NewCond(&c.actionMutex)
	c.action = uiRedraw
	c.initWidgetObjects()
	return c
}

// Creates the widget structs. Updates only modify these structs, so they work
// the same with or without a terminal.
func (c *Console) initWidgetObjects() {
	c.tableCell = widgets.NewParagraph()
	c.tableCell.Title = "Table"
	c.tableCell.Text = "Waiting for the host to start a match"

	c.handCountChart = widgets.NewBarChart()
	c.handCountChart.Labels = make([]string, 0, unolink.MaxPlayers)
	c.handCountChart.Data = make([]float64, 0, unolink.MaxPlayers)
	c.handCountChart.Title = "Hand count"

	c.drawDeckGauge = widgets.NewGauge()
	c.drawDeckGauge.Percent = 100
	c.drawDeckGauge.BarColor = ui.ColorWhite
	c.drawDeckGauge.Title = "DrawDeck"

	c.eventLogCell = widgets.NewParagraph()
	c.eventLogCell.Title = "Event Log"

	c.commandPromptCell = widgets.NewParagraph()
	c.commandPromptCell.Title = "Command Input"
	c.commandPromptCell.Text = " _"
}

func (c *Console) notifyRedrawUI(action uiAction, exec func()) {
	c.actionCond.L.Lock()
	defer c.actionCond.L.Unlock()
	exec()
	if c.action != uiStop {
		c.action = action
	}
	c.actionCond.Signal()
}

func (c *Console) AppendEventLog(line string) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return
	}
	c.notifyRedrawUI(uiRedraw, func() {
		c.eventLogLines = append(c.eventLogLines, line)
		if len(c.eventLogLines) > maxEventLogLines {
			c.eventLogLines = c.eventLogLines[len(c.eventLogLines)-maxEventLogLines:]
		}
		c.eventLogCell.Text = strings.Join(c.eventLogLines, "\n")
	})
}

// DOES NOT LOCK commandPromptMutex
func (c *Console) setCommandPrompt(text string) {
	c.commandStringBeingTyped = text
	c.notifyRedrawUI(uiRedraw, func() {
		c.commandPromptCell.Text = fmt.Sprintf(" %s_", text)
	})
}

func (c *Console) appendCommandPrompt(s string) {
	c.commandPromptMutex.Lock()
	defer c.commandPromptMutex.Unlock()
	c.setCommandPrompt(c.commandStringBeingTyped + s)
}

func (c *Console) backspaceCommandPrompt() {
	c.commandPromptMutex.Lock()
	defer c.commandPromptMutex.Unlock()
	text := c.commandStringBeingTyped
	if n := len(text); n >= 1 {
		text = text[:n-1]
	}
	c.history.Reset()
	c.setCommandPrompt(text)
}

func (c *Console) browseHistory(older bool) {
	c.commandPromptMutex.Lock()
	defer c.commandPromptMutex.Unlock()
	var line string
	var ok bool
	if older {
		line, ok = c.history.Older()
	} else {
		line, ok = c.history.Newer()
	}
	if ok || !older {
		c.setCommandPrompt(line)
	}
}

// handleCommandInput runs the typed line. It returns ErrQuit when the
// executor asks to stop.
func (c *Console) handleCommandInput(ctx context.Context) error {
	c.commandPromptMutex.Lock()
	line := strings.TrimSpace(c.commandStringBeingTyped)
	c.history.Push(line)
	c.setCommandPrompt("")
	c.commandPromptMutex.Unlock()

	if line == "" {
		return nil
	}

	out, err := c.executor.Execute(ctx, line)
	if errors.Is(err, ErrQuit) {
		return ErrQuit
	}
	if err != nil {
		c.AppendEventLog(fmt.Sprintf("%s: %s", line, err))
		return nil
	}
	c.AppendEventLog(out)
	return nil
}

// refresh copies the session snapshot into the widgets.
func (c *Console) refresh() {
	state := c.session.Snapshot()
	localID := c.session.LocalPlayerID()

	c.notifyRedrawUI(uiRedraw, func() {
		if state == nil {
			c.tableCell.Text = "Waiting for the host to start a match"
			c.handCountChart.Labels = c.handCountChart.Labels[:0]
			c.handCountChart.Data = c.handCountChart.Data[:0]
			c.drawDeckGauge.Percent = 100
			return
		}

		c.tableCell.Text = tableText(state, localID, c.session.LocalMustDraw())
		c.refillHandcountChart(state)
		c.drawDeckGauge.Percent = state.Deck.Len() * 100 / unolink.FullDeckSize
		c.drawDeckGauge.Label = fmt.Sprintf("%d cards", state.Deck.Len())
	})
}

// DOES NOT LOCK actionMutex
func (c *Console) refillHandcountChart(state *unolink.GameState) {
	playerCount := state.PlayerCount()
	c.handCountChart.Labels = c.handCountChart.Labels[:0]
	c.handCountChart.Data = c.handCountChart.Data[:0]

	// Listed in turn order, starting at the current player.
	index := state.CurrentPlayerIndex
	for i := 0; i < playerCount; i++ {
		player := state.Players[index]
		label := player.Name
		if player.HasUno {
			label += "!"
		}
		c.handCountChart.Labels = append(c.handCountChart.Labels, label)
		c.handCountChart.Data = append(c.handCountChart.Data, float64(player.Hand.Len()))
		index = unolink.NextPlayerIndex(index, playerCount, state.Direction)
	}
}

func tableText(state *unolink.GameState, localID int, mustDraw bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Top: %s  Color: %s\n", state.TopDiscard().String(), state.ActiveColor.String())
	direction := "clockwise"
	if state.Direction < 0 {
		direction = "counter-clockwise"
	}
	fmt.Fprintf(&sb, "Direction: %s\n", direction)
	if state.DrawStack > 0 {
		fmt.Fprintf(&sb, "Pending draws: %d\n", state.DrawStack)
	}
	if state.UnoBanner.Active {
		if p, ok := state.PlayerByID(state.UnoBanner.PlayerID); ok {
			fmt.Fprintf(&sb, "UNO! (%s)\n", p.Name)
		}
	}

	if winner, ok := state.Winner(); ok {
		if winner.ID == localID {
			sb.WriteString("\nYou won!\n")
		} else {
			fmt.Fprintf(&sb, "\n%s won\n", winner.Name)
		}
	} else if current := state.CurrentPlayer(); current.ID == localID {
		sb.WriteString("\nYour turn")
		if mustDraw {
			sb.WriteString(", draw")
		}
		sb.WriteString("\n")
	} else {
		fmt.Fprintf(&sb, "\n%s's turn\n", current.Name)
	}

	if local, ok := state.PlayerByID(localID); ok {
		fmt.Fprintf(&sb, "\nYour hand:\n%s\n", local.Hand.String())
	}
	return sb.String()
}

// runSessionUpdates refreshes the view on every session update.
func (c *Console) runSessionUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-c.session.Updates():
			if update.Reset {
				c.AppendEventLog(fmt.Sprintf("Game ended: %s", update.Reason))
			} else if outcome := c.session.LastOutcome(); update.LastActor != unolink.NoPlayer && outcome != "" {
				c.AppendEventLog(outcome)
			} else {
				c.AppendEventLog(update.Description)
			}
			c.refresh()
		}
	}
}

func (c *Console) runPollInputEvents(ctx context.Context, stop func()) {
	uiEvents := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "<C-c>":
				stop()
				return
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				c.notifyRedrawUI(uiClearRedraw, func() {
					c.grid.SetRect(0, 0, payload.Width, payload.Height)
				})
			case "<Enter>":
				if err := c.handleCommandInput(ctx); errors.Is(err, ErrQuit) {
					stop()
					return
				}
			case "<Space>":
				c.appendCommandPrompt(" ")
			case "<Backspace>":
				c.backspaceCommandPrompt()
			case "<Up>":
				c.browseHistory(true)
			case "<Down>":
				c.browseHistory(false)
			default:
				if e.Type == ui.KeyboardEvent && len([]rune(e.ID)) == 1 {
					c.appendCommandPrompt(e.ID)
				}
			}
		}
	}
}

// Runs on the goroutine that owns the terminal.
func (c *Console) runDrawLoop() {
	ui.Render(c.grid)
	for {
		c.actionCond.L.Lock()
		for c.action == uiDrawn {
			c.actionCond.Wait()
		}

		switch c.action {
		case uiStop:
			c.actionCond.L.Unlock()
			return
		case uiClearRedraw:
			ui.Clear()
			ui.Render(c.grid)
		case uiRedraw:
			ui.Render(c.grid)
		}
		c.action = uiDrawn
		c.actionCond.L.Unlock()
	}
}

// Run takes over the terminal until ctx is done, Ctrl-C or the executor
// returns ErrQuit.
func (c *Console) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize termui")
	}
	defer ui.Close()

	c.grid = ui.NewGrid()
	termWidth, termHeight := ui.TerminalDimensions()
	c.grid.SetRect(0, 0, termWidth, termHeight)
	c.grid.Set(
		ui.NewRow(0.05, c.drawDeckGauge),
		ui.NewRow(0.8,
			ui.NewCol(0.3, c.tableCell),
			ui.NewCol(0.3, c.handCountChart),
			ui.NewCol(0.4, c.eventLogCell)),
		ui.NewRow(0.1,
			ui.NewCol(1.0, c.commandPromptCell)),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.notifyRedrawUI(uiStop, func() {})
	}()
	go c.runSessionUpdates(ctx)
	go c.runPollInputEvents(ctx, cancel)

	c.refresh()
	c.runDrawLoop()
	return nil
}

// LogHook mirrors log entries of the given levels into the event log.
type LogHook struct {
	console *Console
	levels  []logrus.Level
}

func (c *Console) LogHook(levels ...logrus.Level) *LogHook {
	if len(levels) == 0 {
		levels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
	}
	return &LogHook{console: c, levels: levels}
}

func (h *LogHook) Levels() []logrus.Level {
	return h.levels
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	h.console.AppendEventLog(fmt.Sprintf("[%s] %s", entry.Level, entry.Message))
	return nil
}
