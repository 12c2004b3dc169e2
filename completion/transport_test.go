package completion

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

type flakyHandler struct {
	mu       sync.Mutex
	failures int32
	calls    int32
	events   []model.CompletionEvent
}

func (h *flakyHandler) Handle(_ context.Context, event model.CompletionEvent) error {
	if atomic.AddInt32(&h.calls, 1) <= atomic.LoadInt32(&h.failures) {
		return errors.New("store unavailable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *flakyHandler) Events() []model.CompletionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.CompletionEvent(nil), h.events...)
}

func TestMemoryTransport_DeliversToRecorder(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	job := createJob(t, store, "task-1")

	bus := util.NewEventBus()
	transport := NewMemoryTransport(bus)
	require.NoError(t, transport.Start(ctx, NewRecorder(store, nil)))

	completedAt := time.Date(2024, 5, 14, 9, 0, 5, 0, time.UTC)
	require.NoError(t, transport.Publish(ctx, model.CompletionEvent{TaskID: "task-1", CompletedAt: completedAt}))
	require.NoError(t, transport.Stop(ctx))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, completedAt.Equal(*got.CompletedAt))

	// nobody listens once stopped
	err = transport.Publish(ctx, model.CompletionEvent{TaskID: "task-1", CompletedAt: completedAt})
	assert.ErrorIs(t, err, util.ErrNoSubscribers)
}

func TestMemoryTransport_RetriesHandler(t *testing.T) {
	ctx := context.Background()
	handler := &flakyHandler{failures: 2}
	transport := NewMemoryTransport(util.NewEventBus())
	require.NoError(t, transport.Start(ctx, handler))

	event := model.CompletionEvent{TaskID: "task-1", CompletedAt: time.Now().UTC()}
	require.NoError(t, transport.Publish(ctx, event))

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, transport.Stop(waitCtx))

	assert.EqualValues(t, 3, atomic.LoadInt32(&handler.calls))
	assert.Equal(t, []model.CompletionEvent{event}, handler.Events())
}

func TestEventCodec(t *testing.T) {
	event := model.CompletionEvent{TaskID: "task-1", CompletedAt: time.Date(2024, 5, 14, 9, 0, 5, 123, time.UTC)}
	decoded, err := decodeEvent(encodeEvent(event))
	require.NoError(t, err)
	assert.Equal(t, event.TaskID, decoded.TaskID)
	assert.True(t, event.CompletedAt.Equal(decoded.CompletedAt))

	_, err = decodeEvent(map[string]interface{}{fieldTaskID: "task-1"})
	assert.Error(t, err)
	_, err = decodeEvent(map[string]interface{}{fieldTaskID: "task-1", fieldCompletedAt: "yesterday"})
	assert.Error(t, err)
}

func TestStreamTransport_WithoutRedis(t *testing.T) {
	saved := db.RedisClient
	db.RedisClient = nil
	t.Cleanup(func() { db.RedisClient = saved })

	s := NewStreamTransport(StreamConfig{Stream: "s", Group: "g", Consumer: "c"})
	assert.ErrorIs(t, s.Publish(context.Background(), model.CompletionEvent{TaskID: "t"}), gate_errors.ErrNoCompletionSource)
	assert.ErrorIs(t, s.Start(context.Background(), &flakyHandler{}), gate_errors.ErrNoCompletionSource)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestStreamTransport_Live(t *testing.T) {
	addr := os.Getenv("MODELGATE_TEST_REDIS")
	if addr == "" {
		t.Skip("MODELGATE_TEST_REDIS not set")
	}
	ctx := context.Background()
	saved := db.RedisClient
	db.RedisClient = redis.NewClient(&redis.Options{Addr: addr})
	stream := "modelgate:test:" + uuid.New().String()
	t.Cleanup(func() {
		db.RedisClient.Del(ctx, stream)
		db.RedisClient.Close()
		db.RedisClient = saved
	})

	handler := &flakyHandler{failures: 1}
	s := NewStreamTransport(StreamConfig{
		Stream:          stream,
		Group:           "recorder",
		Consumer:        "test",
		ReclaimSchedule: "@every 1s",
		ReclaimMinIdle:  100 * time.Millisecond,
		Block:           100 * time.Millisecond,
	})
	require.NoError(t, s.Start(ctx, handler))
	t.Cleanup(func() { s.Stop(ctx) })

	event := model.CompletionEvent{TaskID: "task-1", CompletedAt: time.Now().UTC()}
	require.NoError(t, s.Publish(ctx, event))

	// the first delivery fails and stays pending until it is reclaimed
	require.Eventually(t, func() bool { return len(handler.Events()) == 1 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, event.TaskID, handler.Events()[0].TaskID)

	require.Eventually(t, func() bool {
		pending, err := db.RedisClient.XPending(ctx, stream, "recorder").Result()
		return err == nil && pending.Count == 0
	}, 5*time.Second, 50*time.Millisecond)
}
