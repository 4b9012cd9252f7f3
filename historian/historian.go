// Package historian hands finished match summaries off to whatever keeps
// statistics. Nothing here reads them back.
package historian

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nrawrx3/unolink"
)

// DefaultQueueName is the Redis list summaries are pushed to.
const DefaultQueueName = "unolink_match_summaries"

type Sink interface {
	Record(ctx context.Context, summary unolink.MatchSummary) error
}

// LogSink writes each summary as one structured log entry.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s *LogSink) Record(ctx context.Context, summary unolink.MatchSummary) error {
	s.Logger.WithFields(logrus.Fields{
		"match_id":                  summary.MatchID.String(),
		"player_id":                 summary.PlayerID,
		"won":                       summary.Won,
		"winner_id":                 summary.WinnerID,
		"turn_count":                summary.TurnCount,
		"final_card_value":          summary.FinalCardValue.String(),
		"color_plays":               summary.ColorPlays,
		"max_hand_size":             summary.MaxHandSize,
		"draw_penalty_cards_played": summary.DrawPenaltyCardsPlayed,
	}).Info("match summary")
	return nil
}

// RedisSink pushes summaries as JSON onto a Redis list, to be consumed by a
// separate bookkeeping service.
type RedisSink struct {
	client *redis.Client
	queue  string
}

func NewRedisSink(client *redis.Client, queue string) *RedisSink {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisSink{client: client, queue: queue}
}

// ConnectRedis creates a client for addr and checks that the server answers.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", addr)
	}
	return client, nil
}

func (s *RedisSink) Record(ctx context.Context, summary unolink.MatchSummary) error {
	data, err := json.Marshal(&summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal match summary")
	}
	if err := s.client.RPush(ctx, s.queue, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to RPush to Redis list '%s'", s.queue)
	}
	return nil
}

// MultiSink records to every sink and returns the first error, after trying
// all of them.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, summary unolink.MatchSummary) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Record(ctx, summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New returns a LogSink, combined with a RedisSink when redisAddr is set. The
// returned function closes the Redis client, if any.
func New(ctx context.Context, logger logrus.FieldLogger, redisAddr, queue string) (Sink, func() error, error) {
	logSink := &LogSink{Logger: logger}
	if redisAddr == "" {
		return logSink, func() error { return nil }, nil
	}

	client, err := ConnectRedis(ctx, redisAddr)
	if err != nil {
		return nil, nil, err
	}
	logger.WithFields(logrus.Fields{"addr": redisAddr, "queue": queue}).Info("recording match summaries to Redis")
	return MultiSink{logSink, NewRedisSink(client, queue)}, client.Close, nil
}
