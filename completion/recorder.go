// Package completion applies task completion events to job records and
// carries those events from the dispatcher to the recorder.
package completion

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/dao"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/metrics"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// Handler consumes completion events.
type Handler interface {
	Handle(ctx context.Context, event model.CompletionEvent) error
}

// Recorder stamps completedAt on the job that owns an event's task id.
type Recorder struct {
	jobs    dao.JobStore
	metrics *metrics.Emitter
}

func NewRecorder(jobs dao.JobStore, emitter *metrics.Emitter) *Recorder {
	if emitter == nil {
		emitter = metrics.NewEmitter()
	}
	return &Recorder{jobs: jobs, metrics: emitter}
}

// Handle is idempotent: the first event for a task wins and later ones
// leave the record unchanged. Events for unknown tasks are logged and
// dropped. Only storage failures are returned, so a transport can
// redeliver.
func (r *Recorder) Handle(ctx context.Context, event model.CompletionEvent) error {
	if event.TaskID == "" {
		logger.Warn("Dropping completion event without task id")
		r.metrics.Completion(metrics.OutcomeUnknownTask)
		return nil
	}

	updated, err := r.jobs.MarkJobCompleted(ctx, event.TaskID, event.CompletedAt)
	switch {
	case errors.Is(err, gate_errors.ErrJobNotFound):
		logger.Warn("Completion event for unknown task",
			zap.String("taskID", event.TaskID),
			zap.Time("completedAt", event.CompletedAt))
		r.metrics.Completion(metrics.OutcomeUnknownTask)
		return nil
	case err != nil:
		logger.Error("Failed to record completion",
			zap.String("taskID", event.TaskID),
			zap.Error(err))
		r.metrics.Completion(metrics.OutcomeFailed)
		return err
	case !updated:
		logger.Debug("Duplicate completion event", zap.String("taskID", event.TaskID))
		r.metrics.Completion(metrics.OutcomeDuplicate)
		return nil
	}

	logger.Info("Job completion recorded",
		zap.String("taskID", event.TaskID),
		zap.Time("completedAt", event.CompletedAt))
	r.metrics.Completion(metrics.OutcomeRecorded)
	return nil
}
