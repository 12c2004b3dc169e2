package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/audit"
	"github.com/dev-mohitbeniwal/modelgate/dao"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	"github.com/dev-mohitbeniwal/modelgate/util"
)

// PolicyService handles business logic for access policy operations
type PolicyService struct {
	policyStore     dao.PolicyStore
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	auditService    audit.Service
}

// NewPolicyService creates a new instance of PolicyService
func NewPolicyService(policyStore dao.PolicyStore, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, auditService audit.Service) *PolicyService {
	return &PolicyService{
		policyStore:     policyStore,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		auditService:    auditService,
	}
}

// CreatePolicy handles the creation of a new policy
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.AccessPolicy, userID string) (*model.AccessPolicy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	if err := s.policyStore.CreatePolicy(ctx, &policy); err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("userID", userID))
		return nil, err
	}

	if err := s.cacheService.SetPolicy(ctx, policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policy.ID))
	}
	if err := s.notificationSvc.NotifyPolicyChange(ctx, util.ChangeCreated, policy); err != nil {
		logger.Warn("Failed to send policy creation notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	logger.Info("Policy created successfully", zap.String("policyID", policy.ID), zap.String("userID", userID))
	return &policy, nil
}

// UpdatePolicy changes the name or limits of an existing policy. New limits
// apply from the next admission on every grant that references it.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.AccessPolicy, userID string) (*model.AccessPolicy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	oldPolicy, err := s.policyStore.GetPolicy(ctx, policy.ID)
	if err != nil {
		logger.Error("Error retrieving existing policy", zap.Error(err), zap.String("policyID", policy.ID))
		return nil, err
	}

	if !hasPolicyChanged(oldPolicy, &policy) {
		logger.Info("No changes detected in the policy, skipping update", zap.String("policyID", policy.ID))
		return oldPolicy, nil
	}

	if err := s.policyStore.UpdatePolicy(ctx, &policy); err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID), zap.String("userID", userID))
		return nil, err
	}

	// Re-read so timestamps come from the store.
	updated, err := s.policyStore.GetPolicy(ctx, policy.ID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheService.DeletePolicy(ctx, policy.ID); err != nil {
		logger.Warn("Failed to evict policy from cache", zap.Error(err), zap.String("policyID", policy.ID))
	}
	if err := s.notificationSvc.NotifyPolicyChange(ctx, util.ChangeUpdated, *updated); err != nil {
		logger.Warn("Failed to send policy update notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	logger.Info("Policy updated successfully",
		zap.String("policyID", policy.ID),
		zap.String("userID", userID),
		zap.Int("oldDailyLimit", oldPolicy.DailyLimit),
		zap.Int("newDailyLimit", updated.DailyLimit),
		zap.Int("oldMonthlyLimit", oldPolicy.MonthlyLimit),
		zap.Int("newMonthlyLimit", updated.MonthlyLimit))
	return updated, nil
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error) {
	cachedPolicy, err := s.cacheService.GetPolicy(ctx, policyID)
	if err == nil && cachedPolicy != nil {
		return cachedPolicy, nil
	}

	policy, err := s.policyStore.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, gate_errors.ErrPolicyNotFound) {
			return nil, gate_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, err
	}

	if err := s.cacheService.SetPolicy(ctx, *policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}
	return policy, nil
}

// ListPolicies retrieves policies ordered by name
func (s *PolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]model.AccessPolicy, error) {
	policies, err := s.policyStore.ListPolicies(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

// EnsureBasePolicy creates the base policy on first start.
func (s *PolicyService) EnsureBasePolicy(ctx context.Context) (*model.AccessPolicy, error) {
	policy, err := s.policyStore.GetPolicy(ctx, model.BasePolicyID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, gate_errors.ErrPolicyNotFound) {
		return nil, err
	}

	base := model.AccessPolicy{
		ID:           model.BasePolicyID,
		Name:         model.BasePolicyName,
		DailyLimit:   model.DefaultDailyCallLimit,
		MonthlyLimit: model.DefaultMonthlyCallLimit,
	}
	err = s.policyStore.CreatePolicy(ctx, &base)
	if errors.Is(err, gate_errors.ErrPolicyConflict) {
		// another instance seeded it first
		return s.policyStore.GetPolicy(ctx, model.BasePolicyID)
	} else if err != nil {
		return nil, err
	}

	logger.Info("Seeded base access policy",
		zap.Int("dailyLimit", base.DailyLimit),
		zap.Int("monthlyLimit", base.MonthlyLimit))
	return &base, nil
}

func (s *PolicyService) QueryAuditLogs(ctx context.Context, from, to time.Time, userID, modelID string) ([]audit.AuditLog, error) {
	if s.auditService == nil {
		return []audit.AuditLog{}, nil
	}
	logs, err := s.auditService.QueryLogs(ctx, from, to, userID, modelID)
	if err != nil {
		logger.Error("Error querying audit logs", zap.Error(err), zap.String("userID", userID), zap.String("modelID", modelID))
		return nil, err
	}
	return logs, nil
}

func hasPolicyChanged(oldPolicy, newPolicy *model.AccessPolicy) bool {
	return oldPolicy.Name != newPolicy.Name ||
		oldPolicy.DailyLimit != newPolicy.DailyLimit ||
		oldPolicy.MonthlyLimit != newPolicy.MonthlyLimit
}
