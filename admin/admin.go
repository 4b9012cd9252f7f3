package admin

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/internal/messages"
	"github.com/nrawrx3/unolink/internal/utils"
	"github.com/nrawrx3/unolink/session"
)

const (
	perPeerWriteTimeout = 3 * time.Second
	signalTimeout       = 5 * time.Second
)

// HostPlayerID is the seat of the player running the host.
const HostPlayerID = 0

type peer struct {
	seat   int
	name   string
	conn   *websocket.Conn
	kicked bool
}

// Admin is the host side of a room. It owns the broadcast list of client
// connections and implements session.HostChannel for the host session.
type Admin struct {
	roomName     string
	roomCode     string
	hostName     string
	totalPlayers int

	session    *session.Session
	router     *mux.Router
	httpServer *http.Server
	logger     logrus.FieldLogger

	// Protects peers. Never held while talking to the session.
	mu    sync.Mutex
	peers map[int]*peer
}

type ConfigNewAdmin struct {
	ListenAddr   utils.HostPortProtocol
	RoomName     string
	RoomCode     string
	HostName     string
	TotalPlayers int

	// Role, Channel and the local player are filled in by NewAdmin.
	Session session.Config
	Logger  *logrus.Logger
}

func NewAdmin(config ConfigNewAdmin) (*Admin, error) {
	if config.TotalPlayers < unolink.MinPlayers || config.TotalPlayers > unolink.MaxPlayers {
		return nil, errors.Errorf("total players must be between %d and %d, got %d", unolink.MinPlayers, unolink.MaxPlayers, config.TotalPlayers)
	}
	if config.HostName == "" {
		return nil, ErrMissingName
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	roomCode := config.RoomCode
	if roomCode == "" {
		roomCode = utils.NewRoomCode()
	}
	roomCode, ok := utils.NormalizeRoomCode(roomCode)
	if !ok {
		return nil, errors.Errorf("invalid room code %q", config.RoomCode)
	}

	admin := &Admin{
		roomName:     config.RoomName,
		roomCode:     roomCode,
		hostName:     config.HostName,
		totalPlayers: config.TotalPlayers,
		peers:        make(map[int]*peer, config.TotalPlayers),
		logger:       config.Logger.WithField("room", roomCode),
	}

	sessionConfig := config.Session
	sessionConfig.Role = session.RoleHost
	sessionConfig.Channel = admin
	sessionConfig.LocalPlayerID = HostPlayerID
	sessionConfig.LocalPlayerName = config.HostName
	if sessionConfig.Logger == nil {
		sessionConfig.Logger = config.Logger
	}
	s, err := session.New(sessionConfig)
	if err != nil {
		return nil, err
	}
	admin.session = s

	r := mux.NewRouter()
	r.Path("/ping").Methods("GET").HandlerFunc(admin.handlePing)
	r.Path("/room/{code}").Methods("GET").HandlerFunc(admin.handleRoomStatus)
	r.Path("/room/{code}/ws").Methods("GET").HandlerFunc(admin.handleJoin)
	utils.RoutesSummary(r, admin.logger)
	admin.router = r

	// No read/write timeouts: the websocket connections are long lived and
	// carry their own per-write deadlines.
	admin.httpServer = &http.Server{
		Handler:           r,
		Addr:              config.ListenAddr.BindString(),
		IdleTimeout:       1 * time.Minute,
		ReadHeaderTimeout: 2 * time.Second,
	}

	return admin, nil
}

func (admin *Admin) Session() *session.Session {
	return admin.session
}

func (admin *Admin) Handler() http.Handler {
	return admin.router
}

func (admin *Admin) RoomCode() string {
	return admin.roomCode
}

func (admin *Admin) RoomName() string {
	return admin.roomName
}

// ListenAndServe blocks until the server is shut down.
func (admin *Admin) ListenAndServe() error {
	admin.logger.WithField("addr", admin.httpServer.Addr).Info("running host server")
	err := admin.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown closes every client connection and stops the server.
func (admin *Admin) Shutdown(ctx context.Context) error {
	admin.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(admin.peers))
	for _, p := range admin.peers {
		if p.conn != nil {
			conns = append(conns, p.conn)
		}
	}
	admin.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.StatusGoingAway, "host shutting down")
	}
	return admin.httpServer.Shutdown(ctx)
}

func (admin *Admin) handlePing(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (admin *Admin) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	if !admin.isOwnRoom(mux.Vars(r)["code"]) {
		writeError(w, http.StatusNotFound, ErrUnknownRoom)
		return
	}

	admin.mu.Lock()
	players := admin.playerNamesLocked()
	admin.mu.Unlock()

	utils.WriteJSON(w, http.StatusOK, messages.RoomStatus{
		RoomName:     admin.roomName,
		RoomCode:     admin.roomCode,
		HostName:     admin.hostName,
		TotalPlayers: admin.totalPlayers,
		Players:      players,
		MatchRunning: admin.matchRunning(),
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	messages.WriteErrorPayload(w, err)
}

func (admin *Admin) isOwnRoom(code string) bool {
	code, ok := utils.NormalizeRoomCode(code)
	return ok && code == admin.roomCode
}

func (admin *Admin) matchRunning() bool {
	state := admin.session.Snapshot()
	return state != nil && !state.IsOver()
}

// Seat 0 is the host. Empty seats show up as "".
func (admin *Admin) playerNamesLocked() []string {
	names := make([]string, admin.totalPlayers)
	names[HostPlayerID] = admin.hostName
	for seat, p := range admin.peers {
		names[seat] = p.name
	}
	return names
}

// reserveSeat takes the lowest free client seat.
func (admin *Admin) reserveSeat(name string) (*peer, error) {
	if admin.matchRunning() {
		return nil, ErrMatchRunning
	}

	admin.mu.Lock()
	defer admin.mu.Unlock()

	for _, p := range admin.peers {
		if p.name == name {
			return nil, errors.Wrapf(ErrNameTaken, "%q", name)
		}
	}
	for seat := HostPlayerID + 1; seat < admin.totalPlayers; seat++ {
		if _, taken := admin.peers[seat]; taken {
			continue
		}
		p := &peer{seat: seat, name: name}
		admin.peers[seat] = p
		return p, nil
	}
	return nil, ErrRoomFull
}

func (admin *Admin) releaseSeat(p *peer) (kicked bool, connectionCount int) {
	admin.mu.Lock()
	defer admin.mu.Unlock()
	if admin.peers[p.seat] == p {
		delete(admin.peers, p.seat)
	}
	return p.kicked, admin.connectionCountLocked()
}

// Req:		GET /room/{code}/ws?name=NAME, upgraded to a websocket
// First message sent is ROOM_INFO, then GAME_STATE after every accepted action.
func (admin *Admin) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !admin.isOwnRoom(mux.Vars(r)["code"]) {
		writeError(w, http.StatusNotFound, ErrUnknownRoom)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, ErrMissingName)
		return
	}
	if !unolink.IsUserNameAllowed(name) || name == admin.hostName {
		writeError(w, http.StatusBadRequest, errors.Wrapf(ErrInvalidName, "%q", name))
		return
	}

	p, err := admin.reserveSeat(name)
	if err != nil {
		admin.logger.WithError(err).WithField("name", name).Info("rejected join")
		writeError(w, http.StatusConflict, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		admin.logger.WithError(err).WithField("name", name).Warn("websocket accept failed")
		admin.abandonSeat(p)
		return
	}
	defer conn.CloseNow()

	logger := admin.logger.WithFields(logrus.Fields{"player_id": p.seat, "name": name, "remote": r.RemoteAddr})

	if err := admin.sendRoomInfo(r.Context(), p, conn); err != nil {
		logger.WithError(err).Warn("failed to send room info")
		admin.abandonSeat(p)
		return
	}

	// From here on the peer is in the broadcast list.
	admin.mu.Lock()
	p.conn = conn
	count := admin.connectionCountLocked()
	admin.mu.Unlock()
	logger.Info("player joined")

	admin.signal(&messages.PlayerJoinedMessage{PlayerID: p.seat, PlayerName: name, ConnectionCount: count})

	// A match started while the handshake was in flight was broadcast before
	// this peer was listening.
	if state := admin.session.Snapshot(); state != nil {
		if err := admin.sendTo(r.Context(), p, &messages.GameStateMessage{State: *state, LastActor: unolink.NoPlayer}); err != nil {
			logger.WithError(err).Warn("failed to send current game state")
		}
	}

	admin.readRequests(r.Context(), p, logger)

	kicked, count := admin.releaseSeat(p)
	logger.WithField("kicked", kicked).Info("player left")
	admin.signal(&messages.PlayerLeftMessage{PlayerID: p.seat, PlayerName: name, ConnectionCount: count, Kicked: kicked})
	conn.Close(websocket.StatusNormalClosure, "")
}

// abandonSeat frees a seat whose join failed before the peer was connected.
func (admin *Admin) abandonSeat(p *peer) {
	_, count := admin.releaseSeat(p)
	admin.signal(&messages.PlayerLeftMessage{PlayerID: p.seat, PlayerName: p.name, ConnectionCount: count})
}

func (admin *Admin) sendTo(ctx context.Context, p *peer, msg messages.Message) error {
	data, err := messages.Encode(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, perPeerWriteTimeout)
	defer cancel()
	if err := p.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return NewSendMessageFailedError(p.name, msg.Type(), err)
	}
	return nil
}

func (admin *Admin) sendRoomInfo(ctx context.Context, p *peer, conn *websocket.Conn) error {
	admin.mu.Lock()
	players := admin.playerNamesLocked()
	admin.mu.Unlock()

	data, err := messages.Encode(&messages.RoomInfoMessage{
		RoomName:         admin.roomName,
		RoomCode:         admin.roomCode,
		HostName:         admin.hostName,
		AssignedPlayerID: p.seat,
		Players:          players,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, perPeerWriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return NewSendMessageFailedError(p.name, messages.TypeRoomInfo, err)
	}
	return nil
}

func (admin *Admin) signal(msg messages.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), signalTimeout)
	defer cancel()
	if err := admin.session.Notify(ctx, msg); err != nil {
		admin.logger.WithError(err).WithField("signal", msg.Type()).Warn("failed to pass signal to session")
	}
}

// readRequests runs until the connection closes. Malformed messages and
// rejected requests are logged and otherwise ignored.
func (admin *Admin) readRequests(ctx context.Context, p *peer, logger logrus.FieldLogger) {
	for {
		msgType, data, err := p.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Debug("websocket closed normally")
			} else if errors.Is(err, context.Canceled) {
				logger.Debug("websocket context canceled")
			} else {
				logger.WithError(err).Warn("error reading from websocket")
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.WithField("message_type", msgType).Warn("ignoring non-text message")
			continue
		}

		msg, err := messages.Decode(data)
		if err != nil {
			logger.WithError(err).Warn("ignoring malformed message")
			continue
		}
		request, ok := msg.(messages.ActionMessage)
		if !ok {
			logger.WithField("type", msg.Type()).Warn("ignoring message that is not a request")
			continue
		}

		err = admin.session.HandleRemoteAction(ctx, p.seat, request)
		switch {
		case err == nil:
		case unolink.IsIllegalAction(err), errors.Is(err, session.ErrNoGame), errors.Is(err, session.ErrSeatMismatch), errors.Is(err, session.ErrHostInternalAction), errors.Is(err, session.ErrBotSeat):
			logger.WithFields(logrus.Fields{"action": request.Type(), "reason": err.Error()}).Debug("request rejected")
		default:
			logger.WithError(err).WithField("action", request.Type()).Warn("failed to handle request")
		}
	}
}

func (admin *Admin) connectedPeersLocked() []*peer {
	peers := make([]*peer, 0, len(admin.peers))
	for _, p := range admin.peers {
		if p.conn != nil && !p.kicked {
			peers = append(peers, p)
		}
	}
	slices.SortFunc(peers, func(a, b *peer) bool { return a.seat < b.seat })
	return peers
}

func (admin *Admin) connectionCountLocked() int {
	return len(admin.connectedPeersLocked())
}

// ConnectionCount is the number of clients in the broadcast list.
func (admin *Admin) ConnectionCount() int {
	admin.mu.Lock()
	defer admin.mu.Unlock()
	return admin.connectionCountLocked()
}

// Broadcast sends msg to every connected client. A failed write to one client
// does not stop the others; the first failure is returned.
func (admin *Admin) Broadcast(ctx context.Context, msg *messages.GameStateMessage) error {
	data, err := messages.Encode(msg)
	if err != nil {
		return err
	}

	admin.mu.Lock()
	peers := admin.connectedPeersLocked()
	admin.mu.Unlock()

	// A plain group: a canceled write context closes the connection, so one
	// failing client must not cancel the writes to the others.
	var g errgroup.Group
	for _, p := range peers {
		p := p
		g.Go(func() error {
			wctx, cancel := context.WithTimeout(ctx, perPeerWriteTimeout)
			defer cancel()
			if err := p.conn.Write(wctx, websocket.MessageText, data); err != nil {
				admin.logger.WithError(err).WithFields(logrus.Fields{"player_id": p.seat, "generation": msg.State.Generation}).Warn("failed to send game state")
				return NewSendMessageFailedError(p.name, msg.Type(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Kick sends KICKED to the client in seat and closes its connection. The
// read loop of that connection then reports the player as left.
func (admin *Admin) Kick(ctx context.Context, seat int, reason string) error {
	admin.mu.Lock()
	p, ok := admin.peers[seat]
	if !ok || p.conn == nil || p.kicked {
		admin.mu.Unlock()
		return errors.Wrapf(ErrNoSuchPeer, "%d", seat)
	}
	p.kicked = true
	admin.mu.Unlock()

	data, err := messages.Encode(&messages.KickedMessage{Reason: reason})
	if err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, perPeerWriteTimeout)
	defer cancel()
	var sendErr error
	if err := p.conn.Write(wctx, websocket.MessageText, data); err != nil {
		sendErr = NewSendMessageFailedError(p.name, messages.TypeKicked, err)
	}

	if err := p.conn.Close(websocket.StatusNormalClosure, reason); err != nil {
		admin.logger.WithError(err).WithField("player_id", seat).Debug("close after kick")
	}
	admin.logger.WithFields(logrus.Fields{"player_id": seat, "name": p.name, "reason": reason}).Info("kicked player")
	return sendErr
}

// Seats lays out the next match: the host in seat 0, joined clients in
// their seats and bots everywhere else. A client still in its handshake
// counts as joined; if the join fails the session swaps in a bot.
func (admin *Admin) Seats() []unolink.Seat {
	admin.mu.Lock()
	defer admin.mu.Unlock()

	seats := make([]unolink.Seat, admin.totalPlayers)
	seats[HostPlayerID] = unolink.Seat{Name: admin.hostName}
	for seat := HostPlayerID + 1; seat < admin.totalPlayers; seat++ {
		if p, ok := admin.peers[seat]; ok && !p.kicked {
			seats[seat] = unolink.Seat{Name: p.name}
		} else {
			seats[seat] = unolink.Seat{Name: session.BotName(seat), IsBot: true}
		}
	}
	return seats
}

func (admin *Admin) StartMatch(ctx context.Context) error {
	seats := admin.Seats()
	admin.logger.WithField("connections", admin.ConnectionCount()).Info("starting match")
	return admin.session.Start(ctx, seats)
}
