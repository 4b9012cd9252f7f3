package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewRoomCode()
		normalized, ok := NormalizeRoomCode(code)
		require.True(t, ok, code)
		assert.Equal(t, code, normalized)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90)

	code, ok := NormalizeRoomCode(" ab12cd ")
	assert.True(t, ok)
	assert.Equal(t, "AB12CD", code)

	for _, bad := range []string{"", "ABC", "AB-2CD", "ABCDEFG"} {
		_, ok := NormalizeRoomCode(bad)
		assert.False(t, ok, bad)
	}
}

func TestHostPortProtocol(t *testing.T) {
	addr, err := ResolveTCPAddress("http://127.0.0.1:9010")
	require.NoError(t, err)
	assert.Equal(t, "http", addr.Protocol)
	assert.Equal(t, "127.0.0.1:9010", addr.BindString())
	assert.Equal(t, "http://127.0.0.1:9010", addr.HTTPAddressString())
	assert.Equal(t, "ws://127.0.0.1:9010/room/AB12CD/ws", addr.WebsocketURL("/room/AB12CD/ws"))

	addr, err = ResolveTCPAddress("wss://127.0.0.1:443")
	require.NoError(t, err)
	assert.Equal(t, "wss://127.0.0.1:443/ping", addr.WebsocketURL("/ping"))

	var hp HostPortProtocol
	hp.SetHostPort("http://localhost", 0)
	assert.Equal(t, "localhost", hp.BindString())
}

func TestCreateFileLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := CreateFileLogger(dir, "tester", "debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("player_id", 1).Debug("hello")

	data, err := os.ReadFile(filepath.Join(dir, "tester_log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "player_id=1")

	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}
