// Package dispatcher runs admitted jobs on a worker pool, retrying
// transient failures and reporting completions.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/modelgate/cache"
	"github.com/dev-mohitbeniwal/modelgate/dao"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/metrics"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/retry"
)

// CompletionPublisher delivers completion events to the recorder.
type CompletionPublisher interface {
	Publish(ctx context.Context, event model.CompletionEvent) error
}

type Config struct {
	Workers        int
	QueueSize      int
	AttemptTimeout time.Duration
	CacheTTL       time.Duration
}

type task struct {
	jobID   string
	taskID  string
	modelID string
	userID  string
	input   map[string]interface{}
	// attempt is the number of retries already performed.
	attempt int
}

type Dispatcher struct {
	cfg       Config
	registry  *registry.Registry
	cache     cache.Cache
	retry     *retry.Policy
	jobs      dao.JobStore
	statuses  StatusStore
	publisher CompletionPublisher
	metrics   *metrics.Emitter
	now       func() time.Time

	queue chan *task
	done  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	timers  map[*time.Timer]struct{}
	cancel  context.CancelFunc
	group   *errgroup.Group

	// attempts abandoned after their timeout that have not returned yet
	stragglers map[string]chan struct{}
}

func NewDispatcher(cfg Config, reg *registry.Registry, resultCache cache.Cache, policy *retry.Policy,
	jobs dao.JobStore, statuses StatusStore, publisher CompletionPublisher, emitter *metrics.Emitter) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if emitter == nil {
		emitter = metrics.NewEmitter()
	}
	return &Dispatcher{
		cfg:       cfg,
		registry:  reg,
		cache:     resultCache,
		retry:     policy,
		jobs:      jobs,
		statuses:  statuses,
		publisher: publisher,
		metrics:   emitter,
		now:       func() time.Time { return time.Now().UTC() },
		queue:     make(chan *task, cfg.QueueSize),
		done:      make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),

		stragglers: make(map[string]chan struct{}),
	}
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return gate_errors.ErrDispatcherStarted
	}
	if d.stopped {
		return gate_errors.ErrDispatcherStopped
	}

	ctx, d.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			d.work(gctx, worker)
			return nil
		})
	}
	d.group = g
	d.started = true

	logger.Info("Dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("queueSize", d.cfg.QueueSize))
	return nil
}

// Stop cancels pending retries and waits for running attempts to return.
// Jobs still queued are abandoned in their current state.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for timer := range d.timers {
		timer.Stop()
	}
	pending := len(d.timers)
	d.timers = make(map[*time.Timer]struct{})
	close(d.done)
	cancel, group := d.cancel, d.group
	d.mu.Unlock()

	logger.Info("Stopping dispatcher", zap.Int("cancelledRetries", pending))
	if cancel == nil {
		return nil
	}
	cancel()

	waitErr := make(chan error, 1)
	go func() { waitErr <- group.Wait() }()
	select {
	case err := <-waitErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit creates the job record and queues it. The caller must already
// hold an admission for (userID, modelID).
func (d *Dispatcher) Submit(ctx context.Context, userID, modelID string, input map[string]interface{}) (string, error) {
	job, err := d.Prepare(ctx, userID, modelID)
	if err != nil {
		return "", err
	}
	if err := d.Enqueue(ctx, job, input); err != nil {
		return "", err
	}
	return job.ID, nil
}

// NewJob builds the record of a new job without persisting it. Its external
// task id is assigned up front so a completion can never arrive before the
// record carries it.
func (d *Dispatcher) NewJob(userID, modelID string) (*model.Job, error) {
	if d.isStopped() {
		return nil, gate_errors.ErrDispatcherStopped
	}
	return &model.Job{
		ID:             uuid.New().String(),
		ModelID:        modelID,
		UserID:         userID,
		RequestedAt:    d.now(),
		ExternalTaskID: uuid.New().String(),
	}, nil
}

// Prepare builds and persists a job.
func (d *Dispatcher) Prepare(ctx context.Context, userID, modelID string) (*model.Job, error) {
	job, err := d.NewJob(userID, modelID)
	if err != nil {
		return nil, err
	}
	if err := d.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Enqueue records a persisted job as SUBMITTED and hands it to the workers,
// blocking while the queue is full. If the job cannot be queued it is marked
// FAILED.
func (d *Dispatcher) Enqueue(ctx context.Context, job *model.Job, input map[string]interface{}) error {
	status := &model.JobStatus{
		JobID:       job.ID,
		ModelID:     job.ModelID,
		UserID:      job.UserID,
		State:       model.JobSubmitted,
		RequestedAt: job.RequestedAt,
		UpdatedAt:   d.now(),
	}
	if err := d.statuses.Save(ctx, status); err != nil {
		return fmt.Errorf("save status of job %s: %w", job.ID, err)
	}

	t := &task{
		jobID:   job.ID,
		taskID:  job.ExternalTaskID,
		modelID: job.ModelID,
		userID:  job.UserID,
		input:   input,
	}

	var err error
	select {
	case d.queue <- t:
		logger.Info("Job queued",
			zap.String("jobID", job.ID),
			zap.String("taskID", job.ExternalTaskID),
			zap.String("modelID", job.ModelID),
			zap.String("userID", job.UserID))
		return nil
	case <-d.done:
		err = gate_errors.ErrDispatcherStopped
	case <-ctx.Done():
		err = fmt.Errorf("%w: %v", gate_errors.ErrQueueFull, ctx.Err())
	}

	d.finishFailed(context.Background(), status, gate_errors.NewExecutionError(gate_errors.KindInternal, "job was not queued: %v", err))
	return err
}

// GetStatus returns the latest snapshot of jobID. When the snapshot has
// expired the persisted record is used.
func (d *Dispatcher) GetStatus(ctx context.Context, jobID string) (*model.JobStatus, error) {
	status, err := d.statuses.Get(ctx, jobID)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, gate_errors.ErrJobNotFound) {
		return nil, err
	}

	job, err := d.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	status = &model.JobStatus{
		JobID:       job.ID,
		ModelID:     job.ModelID,
		UserID:      job.UserID,
		State:       model.JobSubmitted,
		RequestedAt: job.RequestedAt,
		UpdatedAt:   job.RequestedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.CompletedAt != nil {
		status.State = model.JobSuccess
		status.UpdatedAt = *job.CompletedAt
	}
	return status, nil
}

func (d *Dispatcher) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	logger.Debug("Worker started", zap.Int("worker", worker))
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Worker stopped", zap.Int("worker", worker))
			return
		case t := <-d.queue:
			d.execute(ctx, t)
		}
	}
}

func (d *Dispatcher) loadStatus(ctx context.Context, t *task) *model.JobStatus {
	status, err := d.statuses.Get(ctx, t.jobID)
	if err == nil {
		return status
	}
	logger.Warn("Job status missing, rebuilding", zap.String("jobID", t.jobID), zap.Error(err))
	now := d.now()
	return &model.JobStatus{
		JobID:       t.jobID,
		ModelID:     t.modelID,
		UserID:      t.userID,
		RequestedAt: now,
	}
}

func (d *Dispatcher) save(ctx context.Context, status *model.JobStatus) {
	status.UpdatedAt = d.now()
	if err := d.statuses.Save(ctx, status); err != nil {
		logger.Error("Failed to save job status",
			zap.String("jobID", status.JobID),
			zap.String("state", string(status.State)),
			zap.Error(err))
	}
}

func (d *Dispatcher) execute(ctx context.Context, t *task) {
	status := d.loadStatus(ctx, t)
	status.State = model.JobRunning
	status.Attempts++
	d.save(ctx, status)

	log := logger.WithContext(
		zap.String("jobID", t.jobID),
		zap.String("modelID", t.modelID),
		zap.Int("attempt", status.Attempts))

	key, err := cache.Key(t.modelID, t.input)
	if err != nil {
		d.finishFailed(ctx, status, gate_errors.WrapExecution(gate_errors.KindEncoding, err))
		return
	}

	if result, ok := d.cache.Get(ctx, key); ok {
		d.metrics.CacheLookup(true)
		log.Info("Result served from cache")
		d.finishSuccess(ctx, t, status, result, true)
		return
	}
	d.metrics.CacheLookup(false)

	executable, err := d.registry.Resolve(t.modelID)
	if err != nil {
		d.finishFailed(ctx, status, gate_errors.NewExecutionError(gate_errors.KindModelNotFound, "model %s is not registered", t.modelID))
		return
	}

	result, err := d.invoke(ctx, t.jobID, executable, t.input)
	if err == nil {
		d.cache.Put(ctx, key, result, d.cfg.CacheTTL)
		d.finishSuccess(ctx, t, status, result, false)
		return
	}

	if ctx.Err() != nil {
		log.Warn("Attempt interrupted by shutdown", zap.Error(err))
		return
	}

	if d.retry.ShouldRetry(err, t.attempt) {
		d.scheduleRetry(ctx, t, status, err)
		return
	}
	log.Warn("Job failed", zap.Error(err), zap.Bool("retryable", retry.IsRetryable(err)))
	d.finishFailed(ctx, status, err)
}

type outcome struct {
	result map[string]interface{}
	err    error
}

// invoke runs one attempt under the attempt timeout. A panic in the
// executable is reported as an internal error. Executables are expected to
// return once ctx is done; one that does not is tracked until it returns,
// and the next attempt of the same job waits for it.
func (d *Dispatcher) invoke(ctx context.Context, jobID string, executable registry.Executable, input map[string]interface{}) (map[string]interface{}, error) {
	if err := d.awaitStraggler(ctx, jobID); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: gate_errors.NewExecutionError(gate_errors.KindInternal, "model panicked: %v", r)}
			}
		}()
		result, err := executable(attemptCtx, input)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-attemptCtx.Done():
		d.trackStraggler(jobID, finished)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gate_errors.NewExecutionError(gate_errors.KindTimeout, "attempt exceeded %s", d.cfg.AttemptTimeout)
	}
}

func (d *Dispatcher) trackStraggler(jobID string, finished chan struct{}) {
	select {
	case <-finished:
		return
	default:
	}

	d.mu.Lock()
	d.stragglers[jobID] = finished
	d.mu.Unlock()
	logger.Warn("Abandoned attempt is still running", zap.String("jobID", jobID))

	go func() {
		<-finished
		d.mu.Lock()
		if d.stragglers[jobID] == finished {
			delete(d.stragglers, jobID)
		}
		d.mu.Unlock()
		logger.Info("Abandoned attempt returned", zap.String("jobID", jobID))
	}()
}

// awaitStraggler blocks for up to one attempt timeout while an abandoned
// attempt of jobID is still running. If it does not return in time the
// new attempt fails with a timeout instead of running beside it.
func (d *Dispatcher) awaitStraggler(ctx context.Context, jobID string) error {
	d.mu.Lock()
	finished, ok := d.stragglers[jobID]
	d.mu.Unlock()
	if !ok {
		return nil
	}

	timer := time.NewTimer(d.cfg.AttemptTimeout)
	defer timer.Stop()
	select {
	case <-finished:
		return nil
	case <-timer.C:
		return gate_errors.NewExecutionError(gate_errors.KindTimeout, "previous attempt still running after %s", d.cfg.AttemptTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) scheduleRetry(ctx context.Context, t *task, status *model.JobStatus, cause error) {
	delay := d.retry.NextDelay(t.attempt)
	status.State = model.JobRetryScheduled
	status.RetryDelays = append(status.RetryDelays, delay)
	status.Error = jobError(cause)
	d.save(ctx, status)
	d.metrics.JobRetried(t.modelID)

	logger.Info("Retry scheduled",
		zap.String("jobID", t.jobID),
		zap.Int("retry", t.attempt+1),
		zap.Duration("delay", delay),
		zap.Error(cause))

	next := *t
	next.attempt++

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, timer)
		d.mu.Unlock()

		select {
		case d.queue <- &next:
		case <-d.done:
		}
	})
	d.timers[timer] = struct{}{}
}

func (d *Dispatcher) finishSuccess(ctx context.Context, t *task, status *model.JobStatus, result map[string]interface{}, cacheHit bool) {
	completedAt := d.now()
	status.State = model.JobSuccess
	status.Result = result
	status.CacheHit = cacheHit
	status.Error = nil
	status.CompletedAt = &completedAt
	d.save(ctx, status)
	d.metrics.JobFinished(t.modelID, string(model.JobSuccess))

	logger.Info("Job succeeded",
		zap.String("jobID", t.jobID),
		zap.String("taskID", t.taskID),
		zap.Bool("cacheHit", cacheHit),
		zap.Int("attempts", status.Attempts))

	if d.publisher == nil {
		return
	}
	event := model.CompletionEvent{TaskID: t.taskID, CompletedAt: completedAt}
	if err := d.publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish completion event",
			zap.String("jobID", t.jobID),
			zap.String("taskID", t.taskID),
			zap.Error(err))
	}
}

func (d *Dispatcher) finishFailed(ctx context.Context, status *model.JobStatus, cause error) {
	status.State = model.JobFailed
	status.Error = jobError(cause)
	d.save(ctx, status)
	d.metrics.JobFinished(status.ModelID, string(model.JobFailed))
}

func jobError(err error) *model.JobError {
	var execErr *gate_errors.ExecutionError
	if errors.As(err, &execErr) {
		return &model.JobError{Kind: string(execErr.Kind), Message: execErr.Message}
	}
	return &model.JobError{Kind: string(gate_errors.KindInternal), Message: err.Error()}
}
