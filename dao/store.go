// dao/store.go
package dao

import (
	"context"
	"time"

	"github.com/dev-mohitbeniwal/modelgate/model"
)

// PolicyStore persists access policies.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, policy *model.AccessPolicy) error
	UpdatePolicy(ctx context.Context, policy *model.AccessPolicy) error
	GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error)
	GetPolicyByName(ctx context.Context, name string) (*model.AccessPolicy, error)
	ListPolicies(ctx context.Context, limit, offset int) ([]model.AccessPolicy, error)
}

// GrantStore persists access grants keyed by (userID, modelID).
type GrantStore interface {
	CreateGrant(ctx context.Context, grant *model.AccessGrant) error
	GetGrant(ctx context.Context, userID, modelID string) (*model.AccessGrant, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]model.AccessGrant, error)
	SetGrantStatus(ctx context.Context, userID, modelID string, granted bool) error
	// RecordGrantUse increments call_count and sets last_accessed_at in one statement.
	RecordGrantUse(ctx context.Context, userID, modelID string, at time.Time) error
}

// JobStore persists service call records.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	GetJobByTaskID(ctx context.Context, taskID string) (*model.Job, error)
	// CountJobs counts the user's jobs for modelID with requested_at in [from, to).
	CountJobs(ctx context.Context, userID, modelID string, from, to time.Time) (int64, error)
	// MarkJobCompleted sets completed_at once. It reports false when the job
	// was already completed and errors.ErrJobNotFound when no job carries taskID.
	MarkJobCompleted(ctx context.Context, taskID string, at time.Time) (bool, error)
	// CreateAdmittedJob creates job and records the use of its grant at at
	// in one transaction. Neither write survives if the other fails.
	CreateAdmittedJob(ctx context.Context, job *model.Job, at time.Time) error
}

type Store interface {
	PolicyStore
	GrantStore
	JobStore
	Close() error
}
