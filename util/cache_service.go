// util/cache_service.go

package util

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/modelgate/db"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// CacheService keeps read-through copies of access policies in redis.
// Every method is a no-op when redis is not configured.
type CacheService struct {
	ttl time.Duration
}

func NewCacheService(ttl time.Duration) *CacheService {
	return &CacheService{ttl: ttl}
}

func policyKey(policyID string) string {
	return fmt.Sprintf("policy:%s", policyID)
}

// GetPolicy returns nil, nil on a miss.
func (c *CacheService) GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error) {
	if db.RedisClient == nil {
		return nil, nil
	}
	data, err := db.GetCachedValue(ctx, policyKey(policyID))
	if err != nil || data == nil {
		return nil, err
	}
	var policy model.AccessPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached policy: %w", err)
	}
	return &policy, nil
}

func (c *CacheService) SetPolicy(ctx context.Context, policy model.AccessPolicy) error {
	if db.RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	return db.CacheValue(ctx, policyKey(policy.ID), data, c.ttl)
}

func (c *CacheService) DeletePolicy(ctx context.Context, policyID string) error {
	if db.RedisClient == nil {
		return nil
	}
	if err := db.DeleteCachedValue(ctx, policyKey(policyID)); err != nil {
		logger.Warn("Failed to evict cached policy", zap.String("policyID", policyID), zap.Error(err))
		return err
	}
	return nil
}
