package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/modelgate/dao"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/registry"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

type grantStore interface {
	dao.PolicyStore
	dao.GrantStore
}

// GrantService pairs users with models under a policy.
type GrantService struct {
	store           grantStore
	registry        *registry.Registry
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
}

func NewGrantService(store grantStore, reg *registry.Registry, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService) *GrantService {
	return &GrantService{
		store:           store,
		registry:        reg,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
	}
}

// GrantAccess creates the grant for (user, model). The model must be
// registered and the policy must exist; a pair can be granted only once.
func (s *GrantService) GrantAccess(ctx context.Context, grant model.AccessGrant, userID string) (*model.AccessGrant, error) {
	if grant.PolicyID == "" {
		grant.PolicyID = model.BasePolicyID
	}
	if err := s.validationUtil.ValidateGrant(grant); err != nil {
		return nil, err
	}
	if !s.registry.Has(grant.ModelID) {
		return nil, fmt.Errorf("%w: %s", gate_errors.ErrModelNotFound, grant.ModelID)
	}
	if _, err := s.store.GetPolicy(ctx, grant.PolicyID); err != nil {
		return nil, err
	}

	grant.Granted = true
	grant.CallCount = 0
	if err := s.store.CreateGrant(ctx, &grant); err != nil {
		logger.Error("Error creating grant",
			zap.Error(err),
			zap.String("targetUserID", grant.UserID),
			zap.String("modelID", grant.ModelID),
			zap.String("userID", userID))
		return nil, err
	}

	if err := s.notificationSvc.NotifyGrantChange(ctx, util.ChangeCreated, grant); err != nil {
		logger.Warn("Failed to send grant notification", zap.Error(err))
	}
	logger.Info("Access granted",
		zap.String("targetUserID", grant.UserID),
		zap.String("modelID", grant.ModelID),
		zap.String("policyID", grant.PolicyID),
		zap.String("userID", userID))
	return &grant, nil
}

// BulkGrantAccess creates several grants in parallel. The first failure
// cancels the remaining work; grants already created are kept.
func (s *GrantService) BulkGrantAccess(ctx context.Context, grants []model.AccessGrant, userID string) ([]model.AccessGrant, error) {
	g, ctx := errgroup.WithContext(ctx)
	created := make([]model.AccessGrant, len(grants))

	// Limit concurrency to avoid overwhelming the store
	semaphore := make(chan struct{}, 10)

	for i, grant := range grants {
		i, grant := i, grant
		g.Go(func() error {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := s.GrantAccess(ctx, grant, userID)
			if err != nil {
				return fmt.Errorf("grant %s/%s: %w", grant.UserID, grant.ModelID, err)
			}
			created[i] = *result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk grant", zap.Error(err), zap.String("userID", userID))
		return nil, err
	}

	logger.Info("Bulk grant completed", zap.Int("count", len(created)), zap.String("userID", userID))
	return created, nil
}

func (s *GrantService) GetGrant(ctx context.Context, targetUserID, modelID string) (*model.AccessGrant, error) {
	return s.store.GetGrant(ctx, targetUserID, modelID)
}

func (s *GrantService) ListUserGrants(ctx context.Context, targetUserID string) ([]model.AccessGrant, error) {
	grants, err := s.store.ListGrantsByUser(ctx, targetUserID)
	if err != nil {
		logger.Error("Error listing grants", zap.Error(err), zap.String("targetUserID", targetUserID))
		return nil, err
	}
	return grants, nil
}

// RevokeAccess marks the grant as revoked. The record and its call
// history are kept.
func (s *GrantService) RevokeAccess(ctx context.Context, targetUserID, modelID, userID string) error {
	if err := s.store.SetGrantStatus(ctx, targetUserID, modelID, false); err != nil {
		logger.Error("Error revoking grant",
			zap.Error(err),
			zap.String("targetUserID", targetUserID),
			zap.String("modelID", modelID))
		return err
	}

	grant, err := s.store.GetGrant(ctx, targetUserID, modelID)
	if err == nil {
		if err := s.notificationSvc.NotifyGrantChange(ctx, util.ChangeRevoked, *grant); err != nil {
			logger.Warn("Failed to send grant notification", zap.Error(err))
		}
	}

	logger.Info("Access revoked",
		zap.String("targetUserID", targetUserID),
		zap.String("modelID", modelID),
		zap.String("userID", userID))
	return nil
}
