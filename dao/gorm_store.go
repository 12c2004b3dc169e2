// dao/gorm_store.go
package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// GormStore is the relational Store used for the sqlite and postgres drivers.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	store := &GormStore{DB: db}
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *GormStore) Migrate() error {
	logger.Info("Migrating relational schema")
	if err := s.DB.AutoMigrate(&model.AccessPolicy{}, &model.AccessGrant{}, &model.Job{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dbError(op string, err error) error {
	logger.Error("Database operation failed", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %v", op, gate_errors.ErrDatabaseOperation, err)
}

func (s *GormStore) CreatePolicy(ctx context.Context, policy *model.AccessPolicy) error {
	start := time.Now()
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.AccessPolicy{}).
			Where("id = ? OR name = ?", policy.ID, policy.Name).
			Count(&count).Error; err != nil {
			return dbError("check policy", err)
		}
		if count > 0 {
			return gate_errors.ErrPolicyConflict
		}
		if err := tx.Create(policy).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return gate_errors.ErrPolicyConflict
			}
			return dbError("create policy", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.String("name", policy.Name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *GormStore) UpdatePolicy(ctx context.Context, policy *model.AccessPolicy) error {
	res := s.DB.WithContext(ctx).Model(&model.AccessPolicy{}).
		Where("id = ?", policy.ID).
		Updates(map[string]interface{}{
			"name":          policy.Name,
			"daily_limit":   policy.DailyLimit,
			"monthly_limit": policy.MonthlyLimit,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return gate_errors.ErrPolicyConflict
		}
		return dbError("update policy", res.Error)
	}
	if res.RowsAffected == 0 {
		return gate_errors.ErrPolicyNotFound
	}
	logger.Info("Policy updated successfully", zap.String("policyID", policy.ID))
	return nil
}

func (s *GormStore) GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error) {
	var policy model.AccessPolicy
	err := s.DB.WithContext(ctx).First(&policy, "id = ?", policyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate_errors.ErrPolicyNotFound
	} else if err != nil {
		return nil, dbError("get policy", err)
	}
	return &policy, nil
}

func (s *GormStore) GetPolicyByName(ctx context.Context, name string) (*model.AccessPolicy, error) {
	var policy model.AccessPolicy
	err := s.DB.WithContext(ctx).First(&policy, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate_errors.ErrPolicyNotFound
	} else if err != nil {
		return nil, dbError("get policy by name", err)
	}
	return &policy, nil
}

func (s *GormStore) ListPolicies(ctx context.Context, limit, offset int) ([]model.AccessPolicy, error) {
	var policies []model.AccessPolicy
	err := s.DB.WithContext(ctx).Order("name").Limit(limit).Offset(offset).Find(&policies).Error
	if err != nil {
		return nil, dbError("list policies", err)
	}
	return policies, nil
}

func (s *GormStore) CreateGrant(ctx context.Context, grant *model.AccessGrant) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.AccessPolicy{}).Where("id = ?", grant.PolicyID).Count(&count).Error; err != nil {
			return dbError("check policy", err)
		}
		if count == 0 {
			return gate_errors.ErrPolicyNotFound
		}
		if err := tx.Model(&model.AccessGrant{}).
			Where("user_id = ? AND model_id = ?", grant.UserID, grant.ModelID).
			Count(&count).Error; err != nil {
			return dbError("check grant", err)
		}
		if count > 0 {
			return gate_errors.ErrGrantConflict
		}
		if err := tx.Create(grant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return gate_errors.ErrGrantConflict
			}
			return dbError("create grant", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("Grant created successfully",
		zap.String("userID", grant.UserID),
		zap.String("modelID", grant.ModelID),
		zap.String("policyID", grant.PolicyID))
	return nil
}

func (s *GormStore) GetGrant(ctx context.Context, userID, modelID string) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := s.DB.WithContext(ctx).First(&grant, "user_id = ? AND model_id = ?", userID, modelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate_errors.ErrGrantNotFound
	} else if err != nil {
		return nil, dbError("get grant", err)
	}
	return &grant, nil
}

func (s *GormStore) ListGrantsByUser(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	var grants []model.AccessGrant
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("model_id").Find(&grants).Error; err != nil {
		return nil, dbError("list grants", err)
	}
	return grants, nil
}

func (s *GormStore) SetGrantStatus(ctx context.Context, userID, modelID string, granted bool) error {
	res := s.DB.WithContext(ctx).Model(&model.AccessGrant{}).
		Where("user_id = ? AND model_id = ?", userID, modelID).
		Update("granted", granted)
	if res.Error != nil {
		return dbError("set grant status", res.Error)
	}
	if res.RowsAffected == 0 {
		return gate_errors.ErrGrantNotFound
	}
	logger.Info("Grant status changed",
		zap.String("userID", userID),
		zap.String("modelID", modelID),
		zap.Bool("granted", granted))
	return nil
}

func (s *GormStore) RecordGrantUse(ctx context.Context, userID, modelID string, at time.Time) error {
	return recordGrantUse(s.DB.WithContext(ctx), userID, modelID, at)
}

func recordGrantUse(tx *gorm.DB, userID, modelID string, at time.Time) error {
	res := tx.Model(&model.AccessGrant{}).
		Where("user_id = ? AND model_id = ?", userID, modelID).
		Updates(map[string]interface{}{
			"call_count":       gorm.Expr("call_count + 1"),
			"last_accessed_at": at.UTC(),
		})
	if res.Error != nil {
		return dbError("record grant use", res.Error)
	}
	if res.RowsAffected == 0 {
		return gate_errors.ErrGrantNotFound
	}
	return nil
}

func (s *GormStore) CreateJob(ctx context.Context, job *model.Job) error {
	return createJob(s.DB.WithContext(ctx), job)
}

func createJob(tx *gorm.DB, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.RequestedAt = job.RequestedAt.UTC()
	if err := tx.Create(job).Error; err != nil {
		return dbError("create job", err)
	}
	logger.Debug("Job record created", zap.String("jobID", job.ID), zap.String("taskID", job.ExternalTaskID))
	return nil
}

func (s *GormStore) CreateAdmittedJob(ctx context.Context, job *model.Job, at time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createJob(tx, job); err != nil {
			return err
		}
		return recordGrantUse(tx, job.UserID, job.ModelID, at)
	})
}

func (s *GormStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	err := s.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate_errors.ErrJobNotFound
	} else if err != nil {
		return nil, dbError("get job", err)
	}
	return &job, nil
}

func (s *GormStore) GetJobByTaskID(ctx context.Context, taskID string) (*model.Job, error) {
	var job model.Job
	err := s.DB.WithContext(ctx).First(&job, "external_task_id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gate_errors.ErrJobNotFound
	} else if err != nil {
		return nil, dbError("get job by task", err)
	}
	return &job, nil
}

func (s *GormStore) CountJobs(ctx context.Context, userID, modelID string, from, to time.Time) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&model.Job{}).
		Where("user_id = ? AND model_id = ? AND requested_at >= ? AND requested_at < ?",
			userID, modelID, from.UTC(), to.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, dbError("count jobs", err)
	}
	return count, nil
}

func (s *GormStore) MarkJobCompleted(ctx context.Context, taskID string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&model.Job{}).
		Where("external_task_id = ? AND completed_at IS NULL", taskID).
		Update("completed_at", at.UTC())
	if res.Error != nil {
		return false, dbError("mark job completed", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	if _, err := s.GetJobByTaskID(ctx, taskID); err != nil {
		return false, err
	}
	return false, nil
}
