package client

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrawrx3/unolink/admin"
	"github.com/nrawrx3/unolink/console"
	"github.com/nrawrx3/unolink/internal/utils"
	"github.com/nrawrx3/unolink/session"
)

const testRoomCode = "QRS567"

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestHost(t *testing.T, totalPlayers int) (*admin.Admin, utils.HostPortProtocol) {
	t.Helper()

	host, err := admin.NewAdmin(admin.ConfigNewAdmin{
		RoomName:     "friday night",
		RoomCode:     testRoomCode,
		HostName:     "alice",
		TotalPlayers: totalPlayers,
		Session: session.Config{
			Rng:               rand.New(rand.NewSource(3)),
			BotDelayMin:       time.Hour,
			BotDelayMax:       time.Hour,
			UnoBannerDuration: time.Hour,
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go host.Session().Run(ctx)

	server := httptest.NewServer(host.Handler())
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	addr, err := utils.ResolveTCPAddress(server.URL)
	require.NoError(t, err)
	return host, addr
}

func newTestClient(t *testing.T, addr utils.HostPortProtocol, roomCode, name string) *PlayerClient {
	t.Helper()
	c, err := NewPlayerClient(ConfigNewPlayerClient{
		HostAddr:   addr,
		RoomCode:   roomCode,
		PlayerName: name,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func connect(t *testing.T, host *admin.Admin, c *PlayerClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	before := host.ConnectionCount()
	require.NoError(t, c.Connect(ctx))
	require.Eventually(t, func() bool { return host.ConnectionCount() == before+1 }, 2*time.Second, 5*time.Millisecond)
}

func TestNewPlayerClientValidates(t *testing.T) {
	var addr utils.HostPortProtocol
	_, err := NewPlayerClient(ConfigNewPlayerClient{HostAddr: addr, RoomCode: testRoomCode, PlayerName: "bot-1"})
	assert.Error(t, err)

	_, err = NewPlayerClient(ConfigNewPlayerClient{HostAddr: addr, RoomCode: "12", PlayerName: "bob"})
	assert.Error(t, err)
}

func TestFetchRoomStatus(t *testing.T) {
	_, addr := newTestHost(t, 3)
	ctx := context.Background()

	c := newTestClient(t, addr, testRoomCode, "bob")
	status, err := c.FetchRoomStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, "friday night", status.RoomName)
	assert.Equal(t, "alice", status.HostName)
	assert.Equal(t, 3, status.TotalPlayers)

	c = newTestClient(t, addr, "ZZZ999", "bob")
	_, err = c.FetchRoomStatus(ctx)
	var codeErr *HTTPResponseCodeError
	require.True(t, errors.As(err, &codeErr))
	assert.Equal(t, http.StatusNotFound, codeErr.StatusCode)
}

func TestConnectRejected(t *testing.T) {
	_, addr := newTestHost(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := newTestClient(t, addr, "ZZZ999", "bob").Connect(ctx)
	var codeErr *HTTPResponseCodeError
	require.True(t, errors.As(err, &codeErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, codeErr.StatusCode)

	err = newTestClient(t, addr, testRoomCode, "alice").Connect(ctx)
	require.True(t, errors.As(err, &codeErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, codeErr.StatusCode)
}

func TestClientPlaysThroughHost(t *testing.T) {
	host, addr := newTestHost(t, 2)
	ctx := context.Background()

	c := newTestClient(t, addr, testRoomCode, "bob")
	connect(t, host, c)

	roomInfo := c.RoomInfo()
	require.NotNil(t, roomInfo)
	assert.Equal(t, 1, roomInfo.AssignedPlayerID)
	assert.Equal(t, 1, c.Session().LocalPlayerID())
	assert.ErrorIs(t, c.Connect(ctx), ErrAlreadyConnected)

	_, err := c.Execute(ctx, "draw")
	assert.ErrorIs(t, err, session.ErrNoGame)
	_, err = c.Execute(ctx, "start")
	assert.ErrorIs(t, err, ErrHostOnlyCommand)
	_, err = c.Execute(ctx, "quit")
	assert.ErrorIs(t, err, console.ErrQuit)

	require.NoError(t, host.StartMatch(ctx))
	require.Eventually(t, func() bool { return c.Session().Snapshot() != nil }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, c.Session().IsLocalTurn())

	require.NoError(t, host.Session().DrawCard(ctx))
	require.Eventually(t, c.Session().IsLocalTurn, 2*time.Second, 5*time.Millisecond)
	generation := c.Session().Snapshot().Generation

	_, err = c.Execute(ctx, "draw")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		state := host.Session().Snapshot()
		return state.Generation == generation+1 && state.CurrentPlayer().ID == admin.HostPlayerID
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.Session().Snapshot().Generation == generation+1 }, 2*time.Second, 5*time.Millisecond)

	out, err := c.Execute(ctx, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "your seat 1")
	assert.Contains(t, out, "bob")
}

func TestKickedByHost(t *testing.T) {
	host, addr := newTestHost(t, 2)
	ctx := context.Background()

	c := newTestClient(t, addr, testRoomCode, "bob")
	connect(t, host, c)
	require.NoError(t, host.StartMatch(ctx))
	require.Eventually(t, func() bool { return c.Session().Snapshot() != nil }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, host.Kick(ctx, 1, "too slow"))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection still open after kick")
	}
	assert.True(t, c.Kicked())
	assert.Nil(t, c.Session().Snapshot())
	assert.Equal(t, "kicked: too slow", c.Session().LastOutcome())

	_, err := c.Execute(ctx, "draw")
	assert.ErrorIs(t, err, session.ErrNoGame)
}

func TestLostConnectionResetsSession(t *testing.T) {
	host, addr := newTestHost(t, 2)
	ctx := context.Background()

	c := newTestClient(t, addr, testRoomCode, "bob")
	connect(t, host, c)
	require.NoError(t, host.StartMatch(ctx))
	require.Eventually(t, func() bool { return c.Session().Snapshot() != nil }, 2*time.Second, 5*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	host.Shutdown(shutdownCtx)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection still open after host shutdown")
	}
	assert.False(t, c.Kicked())
	assert.Nil(t, c.Session().Snapshot())
	assert.Equal(t, connectionLost, c.Session().LastOutcome())

	_, err := c.Execute(ctx, "status")
	assert.NoError(t, err)
	assert.ErrorIs(t, c.SendToHost(ctx, nil), ErrNotConnected)
}
