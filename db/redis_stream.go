// db/redis_stream.go
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/modelgate/logging"
)

// StreamMessage is one entry read from a stream.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

func toStreamMessages(msgs []redis.XMessage) []StreamMessage {
	out := make([]StreamMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, StreamMessage{ID: m.ID, Values: m.Values})
	}
	return out
}

func PublishToStream(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	id, err := RedisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}
	logger.Debug("Published to stream", zap.String("stream", stream), zap.String("id", id))
	return id, nil
}

// EnsureConsumerGroup creates the group (and the stream) if missing.
func EnsureConsumerGroup(ctx context.Context, stream, group string) error {
	err := RedisClient.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}
	return nil
}

// ReadFromGroup blocks up to block for new entries. It returns an empty
// slice on timeout.
func ReadFromGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := RedisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read from stream %s: %w", stream, err)
	}

	var out []StreamMessage
	for _, s := range res {
		out = append(out, toStreamMessages(s.Messages)...)
	}
	return out, nil
}

func AckMessages(ctx context.Context, stream, group string, ids ...string) error {
	if err := RedisClient.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to ack %v on %s: %w", ids, stream, err)
	}
	return nil
}

// ClaimPending takes over every entry pending for longer than minIdle.
func ClaimPending(ctx context.Context, stream, group, consumer string, minIdle time.Duration) ([]StreamMessage, error) {
	var claimed []StreamMessage
	start := "0-0"
	for {
		msgs, next, err := RedisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim pending entries on %s: %w", stream, err)
		}
		claimed = append(claimed, toStreamMessages(msgs)...)
		if next == "0-0" || next == "" || len(msgs) == 0 {
			break
		}
		start = next
	}
	if len(claimed) > 0 {
		logger.Info("Claimed pending stream entries",
			zap.String("stream", stream),
			zap.Int("count", len(claimed)))
	}
	return claimed, nil
}
