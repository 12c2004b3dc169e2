package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	AdmissionsTotal    = "modelgate_admissions_total"
	JobsTotal          = "modelgate_jobs_total"
	JobRetriesTotal    = "modelgate_job_retries_total"
	CacheLookupsTotal  = "modelgate_cache_lookups_total"
	CompletionsTotal   = "modelgate_completions_total"
	LabelOutcome       = "outcome"
	LabelReason        = "reason"
	LabelModelID       = "model_id"
	LabelState         = "state"
	LabelResult        = "result"
	OutcomeAdmitted    = "admitted"
	OutcomeDenied      = "denied"
	OutcomeRecorded    = "recorded"
	OutcomeDuplicate   = "duplicate"
	OutcomeUnknownTask = "unknown_task"
	OutcomeFailed      = "failed"
	ResultHit          = "hit"
	ResultMiss         = "miss"
)

var (
	admissionsTotal   *prometheus.CounterVec
	jobsTotal         *prometheus.CounterVec
	jobRetriesTotal   *prometheus.CounterVec
	cacheLookupsTotal *prometheus.CounterVec
	completionsTotal  *prometheus.CounterVec

	// initOnce guards registration; later calls return the first result.
	initOnce sync.Once
	initErr  error
)

// InitMetrics registers all collectors with the provided registry.
func InitMetrics(registry prometheus.Registerer) error {
	initOnce.Do(func() {
		admissionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: AdmissionsTotal,
				Help: "Total number of admission decisions",
			},
			[]string{LabelOutcome, LabelReason},
		)
		jobsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: JobsTotal,
				Help: "Total number of jobs reaching a terminal state",
			},
			[]string{LabelModelID, LabelState},
		)
		jobRetriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: JobRetriesTotal,
				Help: "Total number of scheduled job retries",
			},
			[]string{LabelModelID},
		)
		cacheLookupsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: CacheLookupsTotal,
				Help: "Total number of result cache lookups",
			},
			[]string{LabelResult},
		)
		completionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: CompletionsTotal,
				Help: "Total number of completion events handled",
			},
			[]string{LabelOutcome},
		)

		for name, c := range map[string]prometheus.Collector{
			AdmissionsTotal:   admissionsTotal,
			JobsTotal:         jobsTotal,
			JobRetriesTotal:   jobRetriesTotal,
			CacheLookupsTotal: cacheLookupsTotal,
			CompletionsTotal:  completionsTotal,
		} {
			if err := registry.Register(c); err != nil {
				initErr = fmt.Errorf("failed to register %s metric: %w", name, err)
				return
			}
		}
	})
	return initErr
}

// Emitter records engine events. The zero value is usable; events are
// dropped until InitMetrics has run.
type Emitter struct{}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (e *Emitter) Admission(admitted bool, reason string) {
	if admissionsTotal == nil {
		return
	}
	outcome := OutcomeDenied
	if admitted {
		outcome = OutcomeAdmitted
	}
	admissionsTotal.With(prometheus.Labels{LabelOutcome: outcome, LabelReason: reason}).Inc()
}

func (e *Emitter) JobFinished(modelID, state string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.With(prometheus.Labels{LabelModelID: modelID, LabelState: state}).Inc()
}

func (e *Emitter) JobRetried(modelID string) {
	if jobRetriesTotal == nil {
		return
	}
	jobRetriesTotal.With(prometheus.Labels{LabelModelID: modelID}).Inc()
}

func (e *Emitter) CacheLookup(hit bool) {
	if cacheLookupsTotal == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	cacheLookupsTotal.With(prometheus.Labels{LabelResult: result}).Inc()
}

func (e *Emitter) Completion(outcome string) {
	if completionsTotal == nil {
		return
	}
	completionsTotal.With(prometheus.Labels{LabelOutcome: outcome}).Inc()
}
