// service/interfaces.go
package service

//go:generate mockgen -source=interfaces.go -destination=../test/service_mock/service_mock.go -package=mock_service

import (
	"context"
	"time"

	"github.com/dev-mohitbeniwal/modelgate/audit"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.AccessPolicy, userID string) (*model.AccessPolicy, error)
	UpdatePolicy(ctx context.Context, policy model.AccessPolicy, userID string) (*model.AccessPolicy, error)
	GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]model.AccessPolicy, error)
	EnsureBasePolicy(ctx context.Context) (*model.AccessPolicy, error)
	QueryAuditLogs(ctx context.Context, from, to time.Time, userID, modelID string) ([]audit.AuditLog, error)
}

type IGrantService interface {
	GrantAccess(ctx context.Context, grant model.AccessGrant, userID string) (*model.AccessGrant, error)
	BulkGrantAccess(ctx context.Context, grants []model.AccessGrant, userID string) ([]model.AccessGrant, error)
	GetGrant(ctx context.Context, targetUserID, modelID string) (*model.AccessGrant, error)
	ListUserGrants(ctx context.Context, targetUserID string) ([]model.AccessGrant, error)
	RevokeAccess(ctx context.Context, targetUserID, modelID, userID string) error
}

type IInferenceService interface {
	SubmitJob(ctx context.Context, userID, modelID string, input map[string]interface{}) (*model.AdmissionDecision, error)
	GetJobStatus(ctx context.Context, requesterID string, isAdmin bool, jobID string) (*model.JobStatus, error)
	ListModels(ctx context.Context) []model.ModelMetadata
	GetModelMetadata(ctx context.Context, modelID string) (*model.ModelMetadata, error)
}
