package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// StatusStore keeps the latest dispatch snapshot of every job.
type StatusStore interface {
	Save(ctx context.Context, status *model.JobStatus) error
	Get(ctx context.Context, jobID string) (*model.JobStatus, error)
}

func cloneStatus(s *model.JobStatus) *model.JobStatus {
	out := *s
	if s.RetryDelays != nil {
		out.RetryDelays = append([]time.Duration(nil), s.RetryDelays...)
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

type statusEntry struct {
	status    *model.JobStatus
	expiresAt time.Time
}

// MemoryStatusStore keeps snapshots in process for ttl after their last
// Save. The dispatcher saves on every transition, so only jobs idle in a
// state for longer than ttl are dropped.
type MemoryStatusStore struct {
	statuses *otter.Cache[string, statusEntry]
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStatusStore(ttl time.Duration) (*MemoryStatusStore, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c, err := otter.New(&otter.Options[string, statusEntry]{
		ExpiryCalculator: otter.ExpiryWriting[string, statusEntry](ttl),
	})
	if err != nil {
		return nil, fmt.Errorf("constructing status store: %w", err)
	}
	return &MemoryStatusStore{statuses: c, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryStatusStore) Save(_ context.Context, status *model.JobStatus) error {
	m.statuses.Set(status.JobID, statusEntry{status: cloneStatus(status), expiresAt: m.now().Add(m.ttl)})
	return nil
}

func (m *MemoryStatusStore) Get(_ context.Context, jobID string) (*model.JobStatus, error) {
	e, ok := m.statuses.GetIfPresent(jobID)
	if !ok {
		return nil, gate_errors.ErrJobNotFound
	}
	if !m.now().Before(e.expiresAt) {
		m.statuses.Invalidate(jobID)
		return nil, gate_errors.ErrJobNotFound
	}
	return cloneStatus(e.status), nil
}

// RedisStatusStore shares snapshots between processes as JSON documents
// that expire after ttl.
type RedisStatusStore struct {
	ttl time.Duration
}

func NewRedisStatusStore(ttl time.Duration) *RedisStatusStore {
	return &RedisStatusStore{ttl: ttl}
}

func statusKey(jobID string) string {
	return fmt.Sprintf("job_status:%s", jobID)
}

func (r *RedisStatusStore) Save(ctx context.Context, status *model.JobStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}
	return db.CacheValue(ctx, statusKey(status.JobID), data, r.ttl)
}

func (r *RedisStatusStore) Get(ctx context.Context, jobID string) (*model.JobStatus, error) {
	data, err := db.GetCachedValue(ctx, statusKey(jobID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, gate_errors.ErrJobNotFound
	}
	var status model.JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job status: %w", err)
	}
	return &status, nil
}
