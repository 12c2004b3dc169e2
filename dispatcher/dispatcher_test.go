package dispatcher

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dev-mohitbeniwal/modelgate/cache"
	"github.com/dev-mohitbeniwal/modelgate/dao"
	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/retry"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.CompletionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.CompletionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []model.CompletionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.CompletionEvent(nil), p.events...)
}

type harness struct {
	dispatcher *Dispatcher
	store      *dao.GormStore
	registry   *registry.Registry
	publisher  *recordingPublisher
}

func setupDispatcher(t *testing.T, cfg Config, policy *retry.Policy) *harness {
	t.Helper()
	gdb, err := db.OpenSQL("sqlite", filepath.Join(t.TempDir(), "dispatcher.db"), gormlogger.Silent)
	require.NoError(t, err)
	store, err := dao.NewGormStore(gdb)
	require.NoError(t, err)

	resultCache, err := cache.NewMemoryCache(100, time.Hour)
	require.NoError(t, err)

	statuses, err := NewMemoryStatusStore(time.Hour)
	require.NoError(t, err)

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	h := &harness{
		store:     store,
		registry:  registry.NewRegistry(),
		publisher: &recordingPublisher{},
	}
	h.dispatcher = NewDispatcher(cfg, h.registry, resultCache, policy, store, statuses, h.publisher, nil)
	require.NoError(t, h.dispatcher.Start(context.Background()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.dispatcher.Stop(ctx)
		store.Close()
	})
	return h
}

func (h *harness) register(t *testing.T, id string, exec registry.Executable) {
	t.Helper()
	require.NoError(t, h.registry.Register(model.ModelMetadata{ID: id, Name: "model " + id}, exec))
}

func waitForState(t *testing.T, d *Dispatcher, jobID string, state model.JobState) *model.JobStatus {
	t.Helper()
	var status *model.JobStatus
	require.Eventually(t, func() bool {
		s, err := d.GetStatus(context.Background(), jobID)
		if err != nil {
			return false
		}
		status = s
		return s.State == state
	}, 5*time.Second, 5*time.Millisecond, "job %s never reached %s", jobID, state)
	return status
}

func fastPolicy(maxRetries int) *retry.Policy {
	return retry.NewPolicy(maxRetries, time.Millisecond, 20*time.Millisecond, true).WithSeed(7)
}

func TestSubmit_CachedResultSkipsExecutable(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 2, QueueSize: 8, AttemptTimeout: time.Second}, fastPolicy(3))
	var calls int32
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]interface{}{"temp": 20.0}, nil
	})

	ctx := context.Background()
	input := map[string]interface{}{"a": 1, "b": 2}

	first, err := h.dispatcher.Submit(ctx, "u1", "2", input)
	require.NoError(t, err)
	s1 := waitForState(t, h.dispatcher, first, model.JobSuccess)
	assert.False(t, s1.CacheHit)

	second, err := h.dispatcher.Submit(ctx, "u1", "2", map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	s2 := waitForState(t, h.dispatcher, second, model.JobSuccess)

	assert.True(t, s2.CacheHit)
	assert.Equal(t, s1.Result, s2.Result)
	assert.Equal(t, 20.0, s2.Result["temp"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	require.Eventually(t, func() bool { return len(h.publisher.Events()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestSubmit_PermanentErrorFailsWithoutRetry(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(3))
	var calls int32
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, gate_errors.NewExecutionError(gate_errors.KindMalformedInput, "missing field latitude")
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "2", map[string]interface{}{})
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobFailed)
	assert.Equal(t, 1, status.Attempts)
	assert.Empty(t, status.RetryDelays)
	require.NotNil(t, status.Error)
	assert.Equal(t, string(gate_errors.KindMalformedInput), status.Error.Kind)
	assert.Equal(t, "missing field latitude", status.Error.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Empty(t, h.publisher.Events())
}

func TestSubmit_TransientErrorsThenSuccess(t *testing.T) {
	policy := fastPolicy(3)
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, policy)
	var calls int32
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return nil, gate_errors.NewExecutionError(gate_errors.KindTransient, "upstream busy")
		}
		return map[string]interface{}{"temp": 21.5}, nil
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "2", map[string]interface{}{"x": 1})
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobSuccess)
	assert.Equal(t, 3, status.Attempts)
	assert.Nil(t, status.Error)
	require.NotNil(t, status.CompletedAt)
	require.Len(t, status.RetryDelays, 2)
	for i, delay := range status.RetryDelays {
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, retry.Ceiling(i, policy.BaseFactor, policy.MaxDelay))
	}
}

func TestSubmit_RetryExhaustion(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(3))
	var calls int32
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, gate_errors.NewExecutionError(gate_errors.KindTransient, "still busy")
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "2", nil)
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobFailed)
	assert.Equal(t, 4, status.Attempts)
	assert.Len(t, status.RetryDelays, 3)
	assert.Equal(t, string(gate_errors.KindTransient), status.Error.Kind)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestSubmit_AttemptTimeout(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: 20 * time.Millisecond}, fastPolicy(0))
	h.register(t, "slow", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "slow", nil)
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobFailed)
	assert.Equal(t, string(gate_errors.KindTimeout), status.Error.Kind)
}

func TestSubmit_PanicIsInternalError(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(0))
	h.register(t, "boom", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		panic("kaboom")
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "boom", nil)
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobFailed)
	assert.Equal(t, string(gate_errors.KindInternal), status.Error.Kind)
	assert.Contains(t, status.Error.Message, "kaboom")
}

func TestSubmit_UnknownModel(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(3))

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "missing", nil)
	require.NoError(t, err)

	status := waitForState(t, h.dispatcher, jobID, model.JobFailed)
	assert.Equal(t, string(gate_errors.KindModelNotFound), status.Error.Kind)
	assert.Equal(t, 1, status.Attempts)
}

func TestSubmit_PersistsJobWithTaskID(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(0))
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})

	ctx := context.Background()
	jobID, err := h.dispatcher.Submit(ctx, "u1", "2", nil)
	require.NoError(t, err)
	waitForState(t, h.dispatcher, jobID, model.JobSuccess)

	job, err := h.store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ExternalTaskID)
	assert.NotEqual(t, job.ID, job.ExternalTaskID)

	require.Eventually(t, func() bool { return len(h.publisher.Events()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, job.ExternalTaskID, h.publisher.Events()[0].TaskID)
}

func TestStop_CancelsPendingRetries(t *testing.T) {
	policy := retry.NewPolicy(3, time.Hour, time.Hour, false)
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, policy)
	var calls int32
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, gate_errors.NewExecutionError(gate_errors.KindTransient, "busy")
	})

	ctx := context.Background()
	jobID, err := h.dispatcher.Submit(ctx, "u1", "2", nil)
	require.NoError(t, err)
	status := waitForState(t, h.dispatcher, jobID, model.JobRetryScheduled)
	assert.Equal(t, []time.Duration{time.Hour}, status.RetryDelays)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.dispatcher.Stop(stopCtx))

	h.dispatcher.mu.Lock()
	pending := len(h.dispatcher.timers)
	h.dispatcher.mu.Unlock()
	assert.Zero(t, pending)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err = h.dispatcher.Submit(ctx, "u1", "2", nil)
	assert.ErrorIs(t, err, gate_errors.ErrDispatcherStopped)
}

func TestStart_Twice(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 1}, fastPolicy(0))
	assert.ErrorIs(t, h.dispatcher.Start(context.Background()), gate_errors.ErrDispatcherStarted)
}

func TestGetStatus(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 1}, fastPolicy(0))
	ctx := context.Background()

	_, err := h.dispatcher.GetStatus(ctx, "no-such-job")
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)

	// A job whose snapshot has expired is rebuilt from its record.
	completedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	job := &model.Job{
		ID:             "persisted",
		ModelID:        "2",
		UserID:         "u1",
		RequestedAt:    completedAt.Add(-time.Minute),
		ExternalTaskID: "task-persisted",
	}
	require.NoError(t, h.store.CreateJob(ctx, job))
	status, err := h.dispatcher.GetStatus(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, model.JobSubmitted, status.State)

	_, err = h.store.MarkJobCompleted(ctx, "task-persisted", completedAt)
	require.NoError(t, err)
	status, err = h.dispatcher.GetStatus(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, model.JobSuccess, status.State)
	require.NotNil(t, status.CompletedAt)
	assert.True(t, completedAt.Equal(*status.CompletedAt))
}

func TestEnqueue_FullQueueHonoursContext(t *testing.T) {
	statuses, err := NewMemoryStatusStore(time.Hour)
	require.NoError(t, err)
	d := NewDispatcher(Config{Workers: 1, QueueSize: 1}, registry.NewRegistry(), nil, fastPolicy(0),
		nil, statuses, nil, nil)
	d.queue <- &task{jobID: "occupied"}

	job := &model.Job{ID: "j1", ModelID: "2", UserID: "u1", ExternalTaskID: "t1"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = d.Enqueue(ctx, job, nil)
	assert.ErrorIs(t, err, gate_errors.ErrQueueFull)

	status, err := statuses.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, status.State)
	assert.Equal(t, string(gate_errors.KindInternal), status.Error.Kind)
}

func TestMemoryStatusStore_ReturnsCopies(t *testing.T) {
	store, err := NewMemoryStatusStore(time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	status := &model.JobStatus{JobID: "j1", RetryDelays: []time.Duration{time.Second}}
	require.NoError(t, store.Save(ctx, status))

	status.RetryDelays[0] = time.Hour
	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, time.Second, got.RetryDelays[0])

	got.RetryDelays = append(got.RetryDelays, time.Minute)
	again, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Len(t, again.RetryDelays, 1)
}

func TestMemoryStatusStore_ExpiresAfterLastSave(t *testing.T) {
	store, err := NewMemoryStatusStore(time.Minute)
	require.NoError(t, err)
	now := time.Date(2024, 5, 14, 16, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &model.JobStatus{JobID: "running", State: model.JobRunning}))
	require.NoError(t, store.Save(ctx, &model.JobStatus{JobID: "done", State: model.JobSuccess}))

	now = now.Add(45 * time.Second)
	// a transition restarts the clock
	require.NoError(t, store.Save(ctx, &model.JobStatus{JobID: "running", State: model.JobRetryScheduled}))

	now = now.Add(30 * time.Second)
	_, err = store.Get(ctx, "done")
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)

	status, err := store.Get(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, model.JobRetryScheduled, status.State)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "running")
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)
}

func TestGetStatus_FallsBackOnceSnapshotExpires(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 1, QueueSize: 4, AttemptTimeout: time.Second}, fastPolicy(0))
	h.register(t, "2", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})
	ctx := context.Background()

	jobID, err := h.dispatcher.Submit(ctx, "u1", "2", nil)
	require.NoError(t, err)
	waitForState(t, h.dispatcher, jobID, model.JobSuccess)

	statuses := h.dispatcher.statuses.(*MemoryStatusStore)
	statuses.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = statuses.Get(ctx, jobID)
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)
	status, err := h.dispatcher.GetStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, status.JobID)
}

func TestInvoke_TimedOutAttemptNeverOverlapsRetry(t *testing.T) {
	h := setupDispatcher(t, Config{Workers: 2, QueueSize: 4, AttemptTimeout: 20 * time.Millisecond}, fastPolicy(20))

	release := make(chan struct{})
	var running, maxRunning, calls int32
	h.register(t, "stubborn", func(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
		n := atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			// ignores ctx until released
			<-release
		}
		return map[string]interface{}{"ok": true}, nil
	})

	jobID, err := h.dispatcher.Submit(context.Background(), "u1", "stubborn", nil)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "no retry may start while the first attempt runs")
	close(release)

	status := waitForState(t, h.dispatcher, jobID, model.JobSuccess)
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxRunning))
	assert.GreaterOrEqual(t, status.Attempts, 2)
}
