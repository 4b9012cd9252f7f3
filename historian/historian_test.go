package historian

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrawrx3/unolink"
)

func sampleSummary() unolink.MatchSummary {
	return unolink.MatchSummary{
		MatchID:                uuid.New(),
		PlayerID:               0,
		PlayerName:             "me",
		Won:                    true,
		WinnerID:               0,
		TurnCount:              12,
		FinalCardValue:         unolink.NumberWildDrawFour,
		ColorPlays:             map[string]int{"red": 4, "wild": 2},
		MaxHandSize:            9,
		DrawPenaltyCardsPlayed: 6,
		FinishedAt:             time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sink := &LogSink{Logger: logger}

	summary := sampleSummary()
	require.NoError(t, sink.Record(context.Background(), summary))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, summary.MatchID.String(), entry.Data["match_id"])
	assert.Equal(t, true, entry.Data["won"])
	assert.Equal(t, "wild_draw_four", entry.Data["final_card_value"])
}

type failingSink struct{ calls int }

func (f *failingSink) Record(context.Context, unolink.MatchSummary) error {
	f.calls++
	return errors.New("unavailable")
}

func TestMultiSinkTriesAll(t *testing.T) {
	logger, hook := test.NewNullLogger()
	failing := &failingSink{}
	sink := MultiSink{failing, &LogSink{Logger: logger}}

	err := sink.Record(context.Background(), sampleSummary())
	assert.EqualError(t, err, "unavailable")
	assert.Equal(t, 1, failing.calls)
	assert.Len(t, hook.Entries, 1)
}

// Needs a reachable Redis, e.g. REDIS_ADDR=localhost:6379.
func TestRedisSink(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := ConnectRedis(ctx, addr)
	require.NoError(t, err)
	defer client.Close()

	queue := "unolink_test_" + uuid.NewString()
	defer client.Del(context.Background(), queue)

	summary := sampleSummary()
	require.NoError(t, NewRedisSink(client, queue).Record(ctx, summary))

	raw, err := client.LPop(ctx, queue).Result()
	require.NoError(t, err)

	var got unolink.MatchSummary
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, summary.MatchID, got.MatchID)
	assert.Equal(t, summary.ColorPlays, got.ColorPlays)
	assert.True(t, summary.FinishedAt.Equal(got.FinishedAt))

	_, err = client.LPop(ctx, queue).Result()
	assert.ErrorIs(t, err, redis.Nil)
}
