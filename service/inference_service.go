package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/ledger"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

// Admitter decides whether a call may proceed.
type Admitter interface {
	Admit(ctx context.Context, userID, modelID string, onAdmit ledger.AdmitFunc) (*model.AdmissionDecision, error)
}

// JobDispatcher runs admitted jobs.
type JobDispatcher interface {
	NewJob(userID, modelID string) (*model.Job, error)
	Enqueue(ctx context.Context, job *model.Job, input map[string]interface{}) error
	GetStatus(ctx context.Context, jobID string) (*model.JobStatus, error)
}

// InferenceService gates job submissions through the quota ledger and
// hands admitted jobs to the dispatcher.
type InferenceService struct {
	admitter       Admitter
	dispatcher     JobDispatcher
	registry       *registry.Registry
	validationUtil *util.ValidationUtil
}

func NewInferenceService(admitter Admitter, dispatcher JobDispatcher, reg *registry.Registry, validationUtil *util.ValidationUtil) *InferenceService {
	return &InferenceService{
		admitter:       admitter,
		dispatcher:     dispatcher,
		registry:       reg,
		validationUtil: validationUtil,
	}
}

// SubmitJob admits and queues one call. A denial is returned both as the
// decision and as an *errors.AdmissionDeniedError.
func (s *InferenceService) SubmitJob(ctx context.Context, userID, modelID string, input map[string]interface{}) (*model.AdmissionDecision, error) {
	if err := s.validationUtil.ValidateSubmission(userID, modelID, input); err != nil {
		return nil, err
	}
	if !s.registry.Has(modelID) {
		return nil, fmt.Errorf("%w: %s", gate_errors.ErrModelNotFound, modelID)
	}

	var job *model.Job
	decision, err := s.admitter.Admit(ctx, userID, modelID, func(context.Context, *model.AdmissionDecision) (*model.Job, error) {
		var err error
		job, err = s.dispatcher.NewJob(userID, modelID)
		return job, err
	})
	if err != nil {
		logger.Error("Admission failed", zap.Error(err), zap.String("userID", userID), zap.String("modelID", modelID))
		return nil, err
	}
	if !decision.Admitted {
		return decision, gate_errors.NewAdmissionDenied(gate_errors.DenialCode(decision.Code))
	}

	if err := s.dispatcher.Enqueue(ctx, job, input); err != nil {
		return decision, err
	}
	return decision, nil
}

// GetJobStatus returns the job's status to its owner or to an admin.
// Other callers get ErrJobNotFound.
func (s *InferenceService) GetJobStatus(ctx context.Context, requesterID string, isAdmin bool, jobID string) (*model.JobStatus, error) {
	status, err := s.dispatcher.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && status.UserID != requesterID {
		logger.Warn("Job status requested by non-owner",
			zap.String("jobID", jobID),
			zap.String("requesterID", requesterID))
		return nil, gate_errors.ErrJobNotFound
	}
	return status, nil
}

func (s *InferenceService) ListModels(_ context.Context) []model.ModelMetadata {
	return s.registry.List()
}

func (s *InferenceService) GetModelMetadata(_ context.Context, modelID string) (*model.ModelMetadata, error) {
	return s.registry.Metadata(modelID)
}
