package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s *Scheduler, within time.Duration) (Fired, bool) {
	t.Helper()
	select {
	case f := <-s.C():
		return f, true
	case <-time.After(within):
		return Fired{}, false
	}
}

func TestScheduleFires(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Schedule("bot", 7, 10*time.Millisecond, 3)
	assert.True(t, s.Pending("bot"))

	f, ok := receive(t, s, time.Second)
	require.True(t, ok)
	assert.Equal(t, Fired{Key: "bot", Generation: 7, Payload: 3}, f)
	assert.False(t, s.Pending("bot"))
}

func TestRescheduleReplaces(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Schedule("bot", 1, 20*time.Millisecond, nil)
	s.Schedule("bot", 2, 30*time.Millisecond, nil)

	f, ok := receive(t, s, time.Second)
	require.True(t, ok)
	assert.Equal(t, uint64(2), f.Generation)

	_, ok = receive(t, s, 60*time.Millisecond)
	assert.False(t, ok)
}

func TestCancel(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Schedule("bot", 1, 20*time.Millisecond, nil)
	s.Schedule("banner", 1, 20*time.Millisecond, nil)
	s.Cancel("bot")

	f, ok := receive(t, s, time.Second)
	require.True(t, ok)
	assert.Equal(t, "banner", f.Key)

	s.Schedule("bot", 2, 20*time.Millisecond, nil)
	s.CancelAll()
	_, ok = receive(t, s, 60*time.Millisecond)
	assert.False(t, ok)
}

func TestStopDropsEverything(t *testing.T) {
	s := New()
	s.Schedule("bot", 1, 10*time.Millisecond, nil)
	s.Stop()
	s.Stop()
	s.Schedule("bot", 2, time.Millisecond, nil)

	_, ok := receive(t, s, 50*time.Millisecond)
	assert.False(t, ok)
	assert.False(t, s.Pending("bot"))
}
