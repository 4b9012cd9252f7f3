package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/bot"
	"github.com/nrawrx3/unolink/internal/messages"
	"github.com/nrawrx3/unolink/internal/scheduler"
)

type Role string

const (
	// One process, one human, bot opponents, no transport.
	RoleOffline Role = "offline"
	// Owns the authoritative state and broadcasts it to clients.
	RoleHost Role = "host"
	// Only caches the state received from the host.
	RoleClient Role = "client"
)

func (r Role) IsAuthoritative() bool {
	return r == RoleOffline || r == RoleHost
}

var (
	ErrNoGame             = errors.New("no game in progress")
	ErrNotAuthoritative   = errors.New("session does not own the game state")
	ErrSeatMismatch       = errors.New("action player does not match the sender's seat")
	ErrHostInternalAction = errors.New("action is reserved for the host")
	ErrBotSeat            = errors.New("seat is played by a bot")
	ErrClosed             = errors.New("session closed")
)

// HostChannel is the transport a host session publishes through.
type HostChannel interface {
	Broadcast(ctx context.Context, msg *messages.GameStateMessage) error
	ConnectionCount() int
}

// HostLink is the transport a client session sends its requests through.
type HostLink interface {
	SendToHost(ctx context.Context, msg messages.ActionMessage) error
}

// SummarySink receives the local player's match summary once a match ends.
type SummarySink interface {
	Record(ctx context.Context, summary unolink.MatchSummary) error
}

const (
	botTaskKey       = "bot_turn"
	unoBannerTaskKey = "uno_banner"

	broadcastTimeout = 5 * time.Second
	recordTimeout    = 3 * time.Second
)

type Config struct {
	Role            Role
	LocalPlayerID   int
	LocalPlayerName string

	Rules unolink.Rules
	Rng   *rand.Rand

	BotDelayMin       time.Duration
	BotDelayMax       time.Duration
	UnoBannerDuration time.Duration

	// Channel is required for RoleHost, Link for RoleClient.
	Channel HostChannel
	Link    HostLink
	Sink    SummarySink

	Logger logrus.FieldLogger
}

// Update tells the presentation layer that the snapshot changed.
type Update struct {
	Generation  uint64
	LastActor   int
	Description string

	// Set when the session went back to having no game.
	Reset  bool
	Reason string
}

type requestKind int

const (
	reqStart requestKind = iota + 1
	reqStartWith
	reqAction
	reqSignal
	reqReset
)

type request struct {
	kind   requestKind
	seats  []unolink.Seat
	preset unolink.GameState
	action unolink.Action
	remote bool
	signal messages.Message
	reason string
	reply  chan error
}

type bannerKey struct {
	matchID uuid.UUID
	seq     uint64
}

// Generations restart with every match, so bot turns carry the match id too.
type botTurnKey struct {
	matchID uuid.UUID
}

// Session is the role-aware core of one participant. In the authoritative
// roles every state change happens on the goroutine running Run; readers get
// copies through Snapshot.
type Session struct {
	role    Role
	engine  *unolink.Engine
	rng     *rand.Rand
	channel HostChannel
	link    HostLink
	sink    SummarySink
	logger  logrus.FieldLogger
	sched   *scheduler.Scheduler

	botDelayMin       time.Duration
	botDelayMax       time.Duration
	unoBannerDuration time.Duration

	requests chan request
	updates  chan Update
	done     chan struct{}
	runOnce  sync.Once

	mu              sync.RWMutex
	state           *unolink.GameState
	lastActor       int
	lastOutcome     string
	localPlayerID   int
	localPlayerName string
	tracker         *unolink.StatsTracker
}

func New(config Config) (*Session, error) {
	switch config.Role {
	case RoleOffline:
	case RoleHost:
		if config.Channel == nil {
			return nil, errors.New("host session needs a HostChannel")
		}
	case RoleClient:
		if config.Link == nil {
			return nil, errors.New("client session needs a HostLink")
		}
	default:
		return nil, errors.Errorf("unknown role %q", config.Role)
	}

	if config.Rng == nil {
		config.Rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.BotDelayMax < config.BotDelayMin {
		config.BotDelayMax = config.BotDelayMin
	}

	s := &Session{
		role:              config.Role,
		rng:               config.Rng,
		channel:           config.Channel,
		link:              config.Link,
		sink:              config.Sink,
		logger:            config.Logger.WithField("role", string(config.Role)),
		sched:             scheduler.New(),
		botDelayMin:       config.BotDelayMin,
		botDelayMax:       config.BotDelayMax,
		unoBannerDuration: config.UnoBannerDuration,
		requests:          make(chan request),
		updates:           make(chan Update, 32),
		done:              make(chan struct{}),
		lastActor:         unolink.NoPlayer,
		localPlayerID:     config.LocalPlayerID,
		localPlayerName:   config.LocalPlayerName,
		tracker:           unolink.NewStatsTracker(config.LocalPlayerID),
	}
	if config.Role.IsAuthoritative() {
		s.engine = unolink.NewEngine(config.Rng, config.Rules)
	}
	return s, nil
}

func (s *Session) Role() Role {
	return s.role
}

// Run processes requests and scheduled tasks until ctx is done. It must be
// running for the authoritative roles; a client session does not need it.
func (s *Session) Run(ctx context.Context) error {
	started := false
	s.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("session is already running")
	}

	defer close(s.done)
	defer s.sched.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- s.handle(ctx, req)
		case fired := <-s.sched.C():
			s.handleFired(ctx, fired)
		}
	}
}

func (s *Session) submit(ctx context.Context, req request) error {
	if !s.role.IsAuthoritative() {
		return ErrNotAuthoritative
	}
	req.reply = make(chan error, 1)
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start deals a new match. Seat i becomes player i.
func (s *Session) Start(ctx context.Context, seats []unolink.Seat) error {
	return s.submit(ctx, request{kind: reqStart, seats: seats})
}

// StartWith begins a match from a prepared state, e.g. preset hands.
func (s *Session) StartWith(ctx context.Context, state unolink.GameState) error {
	return s.submit(ctx, request{kind: reqStartWith, preset: state})
}

// Abandon drops the current match without a summary.
func (s *Session) Abandon(ctx context.Context, reason string) error {
	if s.role == RoleClient {
		s.reset(reason)
		return nil
	}
	return s.submit(ctx, request{kind: reqReset, reason: reason})
}

func (s *Session) PlayCard(ctx context.Context, cardID uuid.UUID, declaredColor unolink.Color) error {
	return s.local(ctx, unolink.NewPlayCardAction(s.LocalPlayerID(), cardID, declaredColor))
}

func (s *Session) DrawCard(ctx context.Context) error {
	return s.local(ctx, unolink.NewDrawCardAction(s.LocalPlayerID()))
}

func (s *Session) ShoutUno(ctx context.Context) error {
	return s.local(ctx, unolink.NewShoutUnoAction(s.LocalPlayerID()))
}

// SubmitLocal sends an action on behalf of the local player, e.g. one built
// from a parsed input command.
func (s *Session) SubmitLocal(ctx context.Context, action unolink.Action) error {
	if action.PlayerID != s.LocalPlayerID() {
		return errors.Wrapf(ErrSeatMismatch, "player %d, local %d", action.PlayerID, s.LocalPlayerID())
	}
	return s.local(ctx, action)
}

func (s *Session) local(ctx context.Context, action unolink.Action) error {
	if s.role == RoleClient {
		if s.Snapshot() == nil {
			return ErrNoGame
		}
		msg, err := messages.FromAction(action)
		if err != nil {
			return err
		}
		return s.link.SendToHost(ctx, msg)
	}
	return s.submit(ctx, request{kind: reqAction, action: action})
}

// HandleRemoteAction applies a request received from the client sitting in
// seat. The request is validated exactly like a local action.
func (s *Session) HandleRemoteAction(ctx context.Context, seat int, msg messages.ActionMessage) error {
	if msg.Sender() != seat {
		return errors.Wrapf(ErrSeatMismatch, "player %d sent from seat %d", msg.Sender(), seat)
	}
	return s.submit(ctx, request{kind: reqAction, action: msg.Action(), remote: true})
}

// Notify passes a host-local signal (PLAYER_JOINED, PLAYER_LEFT) to the
// session.
func (s *Session) Notify(ctx context.Context, signal messages.Message) error {
	return s.submit(ctx, request{kind: reqSignal, signal: signal})
}

func (s *Session) handle(ctx context.Context, req request) error {
	switch req.kind {
	case reqStart:
		s.sched.CancelAll()
		state, err := s.engine.NewGame(req.seats)
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{"match_id": state.MatchID, "players": len(req.seats)}).Info("match started")
		s.publish(ctx, state, unolink.NoPlayer, unolink.Outcome{})
		return nil

	case reqStartWith:
		if err := req.preset.CheckInvariants(); err != nil {
			return err
		}
		s.sched.CancelAll()
		s.publish(ctx, req.preset.Clone(), unolink.NoPlayer, unolink.Outcome{})
		return nil

	case reqAction:
		if req.remote && req.action.Kind.IsHostInternal() {
			return errors.Wrapf(ErrHostInternalAction, "%s", req.action.Kind)
		}
		if req.remote && s.state != nil {
			if player, ok := s.state.PlayerByID(req.action.PlayerID); ok && player.IsBot {
				return errors.Wrapf(ErrBotSeat, "player %d", player.ID)
			}
		}
		return s.apply(ctx, req.action)

	case reqSignal:
		return s.handleSignal(ctx, req.signal)

	case reqReset:
		s.sched.CancelAll()
		s.reset(req.reason)
		return nil

	default:
		return errors.Errorf("unknown request kind %d", req.kind)
	}
}

func (s *Session) apply(ctx context.Context, action unolink.Action) error {
	if s.state == nil {
		return ErrNoGame
	}

	next, outcome, err := s.engine.Apply(*s.state, action)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"player_id": action.PlayerID,
			"action":    action.String(),
			"reason":    err.Error(),
		}).Info("action rejected")
		return err
	}

	lastActor := action.PlayerID
	if action.Kind == unolink.ActionClearUnoBanner {
		lastActor = unolink.NoPlayer
	}
	s.logger.WithFields(logrus.Fields{
		"player_id":  action.PlayerID,
		"action":     action.String(),
		"generation": next.Generation,
	}).Debug("action applied")

	s.publish(ctx, next, lastActor, outcome)
	return nil
}

func (s *Session) handleSignal(ctx context.Context, signal messages.Message) error {
	switch sig := signal.(type) {
	case *messages.PlayerJoinedMessage:
		s.logger.WithFields(logrus.Fields{"player_id": sig.PlayerID, "name": sig.PlayerName, "connections": sig.ConnectionCount}).Info("player joined")
		s.notify(Update{Generation: s.generation(), LastActor: unolink.NoPlayer, Description: sig.PlayerName + " joined"})
		return nil

	case *messages.PlayerLeftMessage:
		s.logger.WithFields(logrus.Fields{"player_id": sig.PlayerID, "name": sig.PlayerName, "kicked": sig.Kicked}).Info("player left")
		if s.state == nil || s.state.IsOver() {
			s.notify(Update{Generation: s.generation(), LastActor: unolink.NoPlayer, Description: sig.PlayerName + " left"})
			return nil
		}
		player, ok := s.state.PlayerByID(sig.PlayerID)
		if !ok || player.IsBot {
			return nil
		}
		return s.apply(ctx, unolink.Action{Kind: unolink.ActionReplaceWithBot, PlayerID: sig.PlayerID})

	default:
		return errors.Errorf("%s is not a local signal", signal.Type())
	}
}

func (s *Session) generation() uint64 {
	if s.state == nil {
		return 0
	}
	return s.state.Generation
}

// publish makes next the current state. Only called from the Run goroutine.
func (s *Session) publish(ctx context.Context, next unolink.GameState, lastActor int, outcome unolink.Outcome) {
	var prevBanner unolink.UnoBanner
	if s.state != nil && s.state.MatchID == next.MatchID {
		prevBanner = s.state.UnoBanner
	}

	s.mu.Lock()
	s.state = &next
	s.lastActor = lastActor
	s.lastOutcome = outcome.Describe(s.localPlayerName)
	summary, finished := s.tracker.Observe(next, lastActor)
	s.mu.Unlock()

	description := outcome.Describe("")
	if s.channel != nil {
		bctx, cancel := context.WithTimeout(ctx, broadcastTimeout)
		err := s.channel.Broadcast(bctx, &messages.GameStateMessage{State: next, LastActor: lastActor, Description: description})
		cancel()
		if err != nil {
			s.logger.WithError(err).WithField("generation", next.Generation).Warn("broadcast failed")
		}
	}

	s.notify(Update{Generation: next.Generation, LastActor: lastActor, Description: description})

	if finished {
		s.record(ctx, summary)
	}
	s.scheduleFollowUps(&next, prevBanner)
}

func (s *Session) scheduleFollowUps(state *unolink.GameState, prevBanner unolink.UnoBanner) {
	if state.IsOver() {
		s.sched.CancelAll()
		return
	}

	if state.CurrentPlayer().IsBot {
		s.sched.Schedule(botTaskKey, state.Generation, s.botDelay(), botTurnKey{matchID: state.MatchID})
	} else {
		s.sched.Cancel(botTaskKey)
	}

	banner := state.UnoBanner
	if banner.Active && (!prevBanner.Active || prevBanner.Seq != banner.Seq) {
		s.sched.Schedule(unoBannerTaskKey, state.Generation, s.unoBannerDuration, bannerKey{matchID: state.MatchID, seq: banner.Seq})
	}
}

func (s *Session) botDelay() time.Duration {
	spread := s.botDelayMax - s.botDelayMin
	if spread <= 0 {
		return s.botDelayMin
	}
	return s.botDelayMin + time.Duration(s.rng.Int63n(int64(spread)+1))
}

func (s *Session) handleFired(ctx context.Context, fired scheduler.Fired) {
	if s.state == nil || s.state.IsOver() {
		return
	}

	switch fired.Key {
	case botTaskKey:
		key, ok := fired.Payload.(botTurnKey)
		if !ok || key.matchID != s.state.MatchID || fired.Generation != s.state.Generation {
			s.logger.WithFields(logrus.Fields{"scheduled_for": fired.Generation, "generation": s.state.Generation}).Debug("dropping stale bot turn")
			return
		}
		current := s.state.CurrentPlayer()
		if !current.IsBot {
			return
		}
		action, ok := bot.NewAgent(current.ID).Decide(s.state)
		if !ok {
			return
		}
		if err := s.apply(ctx, action); err != nil {
			s.logger.WithError(err).WithField("player_id", current.ID).Error("bot action rejected")
		}

	case unoBannerTaskKey:
		key, ok := fired.Payload.(bannerKey)
		if !ok || key.matchID != s.state.MatchID {
			return
		}
		err := s.apply(ctx, unolink.Action{Kind: unolink.ActionClearUnoBanner, BannerSeq: key.seq})
		if err != nil && !errors.Is(err, unolink.ErrStaleUnoBanner) {
			s.logger.WithError(err).Warn("failed to clear uno banner")
		}
	}
}

func (s *Session) record(ctx context.Context, summary unolink.MatchSummary) {
	s.logger.WithFields(logrus.Fields{"match_id": summary.MatchID, "won": summary.Won, "turns": summary.TurnCount}).Info("match finished")
	if s.sink == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := s.sink.Record(rctx, summary); err != nil {
		s.logger.WithError(err).Warn("failed to hand off match summary")
	}
}

func (s *Session) notify(update Update) {
	select {
	case s.updates <- update:
	default:
		s.logger.WithField("generation", update.Generation).Debug("update channel full, dropping update")
	}
}

// ApplySnapshot replaces the cached state of a client session with the one
// received from the host. A snapshot older than the cached one is ignored;
// applying the same snapshot twice leaves the cache as it was.
func (s *Session) ApplySnapshot(ctx context.Context, msg *messages.GameStateMessage) bool {
	if s.role != RoleClient {
		return false
	}

	s.mu.Lock()
	if s.state != nil && s.state.MatchID == msg.State.MatchID && msg.State.Generation < s.state.Generation {
		s.mu.Unlock()
		s.logger.WithFields(logrus.Fields{"received": msg.State.Generation, "cached": s.state.Generation}).Debug("ignoring stale snapshot")
		return false
	}
	state := msg.State.Clone()
	s.state = &state
	s.lastActor = msg.LastActor
	s.lastOutcome = msg.Description
	summary, finished := s.tracker.Observe(state, msg.LastActor)
	s.mu.Unlock()

	s.notify(Update{Generation: state.Generation, LastActor: msg.LastActor, Description: msg.Description})
	if finished {
		s.record(ctx, summary)
	}
	return true
}

// SetLocalPlayer records the seat the host assigned to this client.
func (s *Session) SetLocalPlayer(playerID int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localPlayerID = playerID
	s.localPlayerName = name
	s.tracker = unolink.NewStatsTracker(playerID)
}

// reset drops the game. On a client this happens on KICKED and on transport
// loss.
func (s *Session) reset(reason string) {
	s.mu.Lock()
	s.state = nil
	s.lastActor = unolink.NoPlayer
	s.lastOutcome = reason
	s.tracker = unolink.NewStatsTracker(s.localPlayerID)
	s.mu.Unlock()

	s.notify(Update{LastActor: unolink.NoPlayer, Reset: true, Reason: reason})
}
