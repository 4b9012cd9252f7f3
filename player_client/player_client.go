package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nrawrx3/unolink"
	"github.com/nrawrx3/unolink/console"
	"github.com/nrawrx3/unolink/internal/messages"
	"github.com/nrawrx3/unolink/internal/utils"
	"github.com/nrawrx3/unolink/session"
)

const (
	sendTimeout      = 3 * time.Second
	roomInfoTimeout  = 5 * time.Second
	connectionLost   = "connection to host lost"
	kickedReasonText = "kicked"
)

// PlayerClient is the websocket link between a client session and the host.
// It feeds received snapshots into the session and sends the local player's
// requests to the host.
type PlayerClient struct {
	hostAddr   utils.HostPortProtocol
	roomCode   string
	playerName string

	session    *session.Session
	httpClient *http.Client
	logger     logrus.FieldLogger

	mu       sync.Mutex
	conn     *websocket.Conn
	cancel   context.CancelFunc
	roomInfo *messages.RoomInfoMessage
	kicked   bool
	closing  bool
	done     chan struct{}
}

type ConfigNewPlayerClient struct {
	HostAddr   utils.HostPortProtocol
	RoomCode   string
	PlayerName string
	// Role and Link are filled in by NewPlayerClient.
	Session session.Config
	Logger  logrus.FieldLogger
}

func NewPlayerClient(config ConfigNewPlayerClient) (*PlayerClient, error) {
	name := strings.TrimSpace(config.PlayerName)
	if !unolink.IsUserNameAllowed(name) {
		return nil, errors.Errorf("only letters, digits and underscores allowed in player name, given: %q", name)
	}
	code, ok := utils.NormalizeRoomCode(config.RoomCode)
	if !ok {
		return nil, errors.Errorf("invalid room code %q", config.RoomCode)
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	c := &PlayerClient{
		hostAddr:   config.HostAddr,
		roomCode:   code,
		playerName: name,
		httpClient: utils.CreateHTTPClient(0),
		logger:     config.Logger.WithField("player", name),
	}

	sessionConfig := config.Session
	sessionConfig.Role = session.RoleClient
	sessionConfig.Link = c
	sessionConfig.LocalPlayerName = name
	if sessionConfig.Logger == nil {
		sessionConfig.Logger = config.Logger
	}
	s, err := session.New(sessionConfig)
	if err != nil {
		return nil, err
	}
	c.session = s
	return c, nil
}

func (c *PlayerClient) Session() *session.Session {
	return c.session
}

func (c *PlayerClient) roomPath() string {
	return "/room/" + url.PathEscape(c.roomCode)
}

// FetchRoomStatus asks the host about the room without joining it.
func (c *PlayerClient) FetchRoomStatus(ctx context.Context) (messages.RoomStatus, error) {
	var status messages.RoomStatus

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.hostAddr.HTTPAddressString()+c.roomPath(), nil)
	if err != nil {
		return status, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status, errors.Wrap(err, "failed to reach host")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, NewHTTPResponseCodeError(resp.StatusCode, decodeErrorPayload(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, errors.Wrap(err, "failed to decode room status")
	}
	return status, nil
}

func decodeErrorPayload(resp *http.Response) []string {
	if resp == nil || resp.Body == nil {
		return nil
	}
	var payload messages.UnwrappedErrorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}
	return payload.Errors
}

// Connect joins the room. It returns once the host has sent ROOM_INFO; from
// then on snapshots are applied to the session until the connection ends.
func (c *PlayerClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	joinURL := c.hostAddr.WebsocketURL(c.roomPath() + "/ws?name=" + url.QueryEscape(c.playerName))
	c.logger.WithField("url", joinURL).Info("joining room")

	conn, resp, err := websocket.Dial(ctx, joinURL, &websocket.DialOptions{HTTPClient: c.httpClient})
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return NewHTTPResponseCodeError(resp.StatusCode, decodeErrorPayload(resp))
		}
		return errors.Wrap(err, "failed to connect to host")
	}

	roomInfo, err := readRoomInfo(ctx, conn)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "expected room info")
		return err
	}

	c.session.SetLocalPlayer(roomInfo.AssignedPlayerID, c.playerName)
	c.logger.WithFields(logrus.Fields{
		"room":      roomInfo.RoomName,
		"seat":      roomInfo.AssignedPlayerID,
		"host_name": roomInfo.HostName,
	}).Info("joined room")

	readCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.roomInfo = roomInfo
	c.kicked = false
	c.closing = false
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.readLoop(readCtx, conn, done)
	return nil
}

func readRoomInfo(ctx context.Context, conn *websocket.Conn) (*messages.RoomInfoMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, roomInfoTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read room info")
	}
	msg, err := messages.Decode(data)
	if err != nil {
		return nil, err
	}
	roomInfo, ok := msg.(*messages.RoomInfoMessage)
	if !ok {
		return nil, errors.Wrapf(ErrUnexpectedMessage, "got %s", msg.Type())
	}
	return roomInfo, nil
}

func (c *PlayerClient) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			c.connectionEnded(err)
			return
		}
		if msgType != websocket.MessageText {
			c.logger.Warn("ignoring binary message from host")
			continue
		}

		msg, err := messages.Decode(data)
		if err != nil {
			c.logger.WithError(err).Warn("dropping message from host")
			continue
		}

		switch m := msg.(type) {
		case *messages.GameStateMessage:
			c.session.ApplySnapshot(ctx, m)
		case *messages.KickedMessage:
			c.mu.Lock()
			c.kicked = true
			c.mu.Unlock()
			reason := kickedReasonText
			if m.Reason != "" {
				reason = fmt.Sprintf("%s: %s", kickedReasonText, m.Reason)
			}
			c.logger.WithField("reason", m.Reason).Warn("kicked by host")
			c.session.Abandon(ctx, reason)
		default:
			c.logger.WithField("type", msg.Type()).Debug("ignoring message from host")
		}
	}
}

func (c *PlayerClient) connectionEnded(err error) {
	c.mu.Lock()
	kicked, closing := c.kicked, c.closing
	c.conn = nil
	c.mu.Unlock()

	if kicked || closing {
		return
	}
	c.logger.WithError(err).Warn(connectionLost)
	c.session.Abandon(context.Background(), connectionLost)
}

// SendToHost implements session.HostLink.
func (c *PlayerClient) SendToHost(ctx context.Context, msg messages.ActionMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := messages.Encode(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return errors.Wrapf(err, "failed to send %s to host", msg.Type())
	}
	return nil
}

// Close leaves the room.
func (c *PlayerClient) Close() error {
	c.mu.Lock()
	conn, cancel, done := c.conn, c.cancel, c.done
	c.closing = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "leaving")
	cancel()
	<-done
	return err
}

// Done is closed once the connection to the host ends. It is nil before
// Connect.
func (c *PlayerClient) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *PlayerClient) RoomInfo() *messages.RoomInfoMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomInfo
}

func (c *PlayerClient) Kicked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kicked
}

// Execute implements console.Executor.
func (c *PlayerClient) Execute(ctx context.Context, line string) (string, error) {
	command, err := unolink.ParseInputCommand(line)
	if err != nil {
		return "", err
	}

	switch command.Kind {
	case unolink.CmdPlayCard, unolink.CmdDrawCard, unolink.CmdShoutUno:
		state := c.session.Snapshot()
		if state == nil {
			return "", session.ErrNoGame
		}
		localID := c.session.LocalPlayerID()
		player, ok := state.PlayerByID(localID)
		if !ok {
			return "", errors.Wrapf(unolink.ErrUnknownPlayer, "id %d", localID)
		}
		action, err := command.ToAction(localID, player.Hand)
		if err != nil {
			return "", err
		}
		return "", c.session.SubmitLocal(ctx, action)

	case unolink.CmdStatus:
		return c.status(), nil

	case unolink.CmdQuit:
		return "", console.ErrQuit

	case unolink.CmdStart, unolink.CmdKick:
		return "", errors.Wrap(ErrHostOnlyCommand, command.Kind.String())

	default:
		return "", errors.Errorf("unhandled command %s", command.Kind)
	}
}

func (c *PlayerClient) status() string {
	var sb strings.Builder
	if roomInfo := c.RoomInfo(); roomInfo != nil {
		fmt.Fprintf(&sb, "Room %s (%s), host %s, your seat %d\n", roomInfo.RoomName, roomInfo.RoomCode, roomInfo.HostName, roomInfo.AssignedPlayerID)
	} else {
		sb.WriteString("Not connected\n")
	}
	state := c.session.Snapshot()
	if state == nil {
		sb.WriteString("No game in progress")
		return sb.String()
	}
	sb.WriteString(state.Summary())
	return sb.String()
}
