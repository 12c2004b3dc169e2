package completion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/retry"
)

const (
	fieldTaskID      = "task_id"
	fieldCompletedAt = "completed_at"
)

type StreamConfig struct {
	Stream          string
	Group           string
	Consumer        string
	ReclaimSchedule string
	ReclaimMinIdle  time.Duration
	Block           time.Duration
	BatchSize       int64
}

// StreamTransport carries events on a redis stream read by a consumer
// group. An entry is acknowledged only after the handler applied it;
// entries left pending by a crashed consumer are reclaimed on a schedule.
type StreamTransport struct {
	cfg StreamConfig

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewStreamTransport(cfg StreamConfig) *StreamTransport {
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.ReclaimSchedule == "" {
		cfg.ReclaimSchedule = "@every 1m"
	}
	if cfg.ReclaimMinIdle <= 0 {
		cfg.ReclaimMinIdle = time.Minute
	}
	return &StreamTransport{cfg: cfg}
}

func (s *StreamTransport) Publish(ctx context.Context, event model.CompletionEvent) error {
	if db.RedisClient == nil {
		return gate_errors.ErrNoCompletionSource
	}
	_, err := db.PublishToStream(ctx, s.cfg.Stream, encodeEvent(event))
	return err
}

func encodeEvent(event model.CompletionEvent) map[string]interface{} {
	return map[string]interface{}{
		fieldTaskID:      event.TaskID,
		fieldCompletedAt: event.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEvent(values map[string]interface{}) (model.CompletionEvent, error) {
	taskID, _ := values[fieldTaskID].(string)
	raw, _ := values[fieldCompletedAt].(string)
	if taskID == "" || raw == "" {
		return model.CompletionEvent{}, fmt.Errorf("completion entry is missing %s or %s", fieldTaskID, fieldCompletedAt)
	}
	completedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return model.CompletionEvent{}, fmt.Errorf("invalid %s %q: %w", fieldCompletedAt, raw, err)
	}
	return model.CompletionEvent{TaskID: taskID, CompletedAt: completedAt.UTC()}, nil
}

// Start creates the consumer group, launches the read loop and schedules
// the reclaim job.
func (s *StreamTransport) Start(ctx context.Context, handler Handler) error {
	if db.RedisClient == nil {
		return gate_errors.ErrNoCompletionSource
	}
	if err := db.EnsureConsumerGroup(ctx, s.cfg.Stream, s.cfg.Group); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.ReclaimSchedule, func() { s.reclaim(runCtx, handler) }); err != nil {
		cancel()
		return fmt.Errorf("invalid reclaim schedule %q: %w", s.cfg.ReclaimSchedule, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.stopped = make(chan struct{})
	go s.consume(runCtx, handler, s.stopped)

	logger.Info("Completion consumer started",
		zap.String("stream", s.cfg.Stream),
		zap.String("group", s.cfg.Group),
		zap.String("consumer", s.cfg.Consumer),
		zap.String("reclaimSchedule", s.cfg.ReclaimSchedule))
	return nil
}

func (s *StreamTransport) consume(ctx context.Context, handler Handler, stopped chan struct{}) {
	defer close(stopped)
	failures := 0
	for ctx.Err() == nil {
		msgs, err := db.ReadFromGroup(ctx, s.cfg.Stream, s.cfg.Group, s.cfg.Consumer, s.cfg.BatchSize, s.cfg.Block)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to read completion events", zap.Error(err))
			_ = retry.Wait(ctx, retry.Ceiling(failures, 100*time.Millisecond, 5*time.Second))
			failures++
			continue
		}
		failures = 0
		s.apply(ctx, handler, msgs)
	}
}

// apply acknowledges every entry the handler accepted and every entry
// that cannot be decoded. Entries whose handling failed stay pending.
func (s *StreamTransport) apply(ctx context.Context, handler Handler, msgs []db.StreamMessage) {
	var ack []string
	for _, msg := range msgs {
		event, err := decodeEvent(msg.Values)
		if err != nil {
			logger.Warn("Dropping malformed completion entry", zap.String("id", msg.ID), zap.Error(err))
			ack = append(ack, msg.ID)
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			logger.Warn("Completion left pending",
				zap.String("id", msg.ID),
				zap.String("taskID", event.TaskID),
				zap.Error(err))
			continue
		}
		ack = append(ack, msg.ID)
	}
	if len(ack) == 0 {
		return
	}
	if err := db.AckMessages(ctx, s.cfg.Stream, s.cfg.Group, ack...); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Failed to acknowledge completion entries", zap.Error(err))
	}
}

func (s *StreamTransport) reclaim(ctx context.Context, handler Handler) {
	msgs, err := db.ClaimPending(ctx, s.cfg.Stream, s.cfg.Group, s.cfg.Consumer, s.cfg.ReclaimMinIdle)
	if err != nil {
		logger.Error("Failed to reclaim completion entries", zap.Error(err))
	}
	s.apply(ctx, handler, msgs)
}

// Stop ends the read loop and waits for a running reclaim job.
func (s *StreamTransport) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel, stopped := s.cron, s.cancel, s.stopped
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()
	cronDone := c.Stop()

	for _, done := range []<-chan struct{}{stopped, cronDone.Done()} {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	logger.Info("Completion consumer stopped", zap.String("stream", s.cfg.Stream))
	return nil
}
