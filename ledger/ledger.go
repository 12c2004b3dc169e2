// Package ledger decides whether a caller may invoke a model and accounts
// for every admitted call.
package ledger

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
	"github.com/dev-mohitbeniwal/modelgate/metrics"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// Store is the persistence the ledger needs.
type Store interface {
	dao.PolicyStore
	dao.GrantStore
	dao.JobStore
}

// AdmitFunc runs inside the grant's critical section after the quota check
// passed and returns the job to record for the call, or nil to only count
// it on the grant. An error from it aborts the admission without consuming
// quota.
type AdmitFunc func(ctx context.Context, decision *model.AdmissionDecision) (*model.Job, error)

type Ledger struct {
	store    Store
	locker   Locker
	audit    audit.Service
	metrics  *metrics.Emitter
	location *time.Location
	now      func() time.Time
}

// NewLedger builds a ledger whose calendar days and months are evaluated in
// location. A nil location means UTC.
func NewLedger(store Store, locker Locker, auditService audit.Service, emitter *metrics.Emitter, location *time.Location) *Ledger {
	if location == nil {
		location = time.UTC
	}
	if emitter == nil {
		emitter = metrics.NewEmitter()
	}
	return &Ledger{
		store:    store,
		locker:   locker,
		audit:    auditService,
		metrics:  emitter,
		location: location,
		now:      time.Now,
	}
}

// CheckAndConsume admits or denies one call and consumes quota on admission.
// Quota is counted from job records, so the caller must create the job for
// an admitted call before the grant is checked again; Admit does both under
// one lock.
func (l *Ledger) CheckAndConsume(ctx context.Context, userID, modelID string) (bool, string, error) {
	decision, err := l.Admit(ctx, userID, modelID, nil)
	if err != nil {
		return false, "", err
	}
	return decision.Admitted, decision.Reason, nil
}

// Admit evaluates the quota for (userID, modelID) while holding the grant's
// lock. When admitted, the job built by onAdmit and the grant's counter are
// written in one transaction, so the job is visible to the next decision on
// the same grant and a failed write consumes nothing.
func (l *Ledger) Admit(ctx context.Context, userID, modelID string, onAdmit AdmitFunc) (*model.AdmissionDecision, error) {
	unlock, err := l.locker.Lock(ctx, model.GrantKey(userID, modelID))
	if err != nil {
		return nil, fmt.Errorf("lock grant %s/%s: %w", userID, modelID, err)
	}
	defer unlock()

	decision, err := l.decide(ctx, userID, modelID)
	if err != nil {
		return nil, err
	}

	if decision.Admitted {
		if err := l.consume(ctx, decision, onAdmit); err != nil {
			return nil, err
		}
	}

	l.record(ctx, decision)
	return decision, nil
}

func (l *Ledger) consume(ctx context.Context, decision *model.AdmissionDecision, onAdmit AdmitFunc) error {
	var job *model.Job
	if onAdmit != nil {
		var err error
		if job, err = onAdmit(ctx, decision); err != nil {
			return err
		}
	}
	if job == nil {
		return l.store.RecordGrantUse(ctx, decision.UserID, decision.ModelID, decision.DecidedAt)
	}
	if err := l.store.CreateAdmittedJob(ctx, job, decision.DecidedAt); err != nil {
		logger.Error("Failed to record admitted call",
			zap.String("userID", decision.UserID),
			zap.String("modelID", decision.ModelID),
			zap.Error(err))
		return err
	}
	decision.JobID = job.ID
	return nil
}

func (l *Ledger) decide(ctx context.Context, userID, modelID string) (*model.AdmissionDecision, error) {
	now := l.now()
	decision := &model.AdmissionDecision{
		UserID:    userID,
		ModelID:   modelID,
		DecidedAt: now.UTC(),
	}
	deny := func(code gate_errors.DenialCode) (*model.AdmissionDecision, error) {
		denied := gate_errors.NewAdmissionDenied(code)
		decision.Code = string(denied.Code)
		decision.Reason = denied.Reason
		return decision, nil
	}

	grant, err := l.store.GetGrant(ctx, userID, modelID)
	if errors.Is(err, gate_errors.ErrGrantNotFound) {
		return deny(gate_errors.DenialNoAccess)
	} else if err != nil {
		return nil, err
	}
	decision.PolicyID = grant.PolicyID
	if !grant.Granted {
		return deny(gate_errors.DenialRevoked)
	}

	policy, err := l.store.GetPolicy(ctx, grant.PolicyID)
	if errors.Is(err, gate_errors.ErrPolicyNotFound) {
		return deny(gate_errors.DenialPolicyMissing)
	} else if err != nil {
		return nil, err
	}
	decision.Usage.DailyLimit = policy.DailyLimit
	decision.Usage.MonthlyLimit = policy.MonthlyLimit

	dayStart, monthStart := periodStarts(now, l.location)

	daily, err := l.store.CountJobs(ctx, userID, modelID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	decision.Usage.DailyCount = daily
	if daily >= int64(policy.DailyLimit) {
		return deny(gate_errors.DenialDailyLimit)
	}

	monthly, err := l.store.CountJobs(ctx, userID, modelID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	decision.Usage.MonthlyCount = monthly
	if monthly >= int64(policy.MonthlyLimit) {
		return deny(gate_errors.DenialMonthlyLimit)
	}

	decision.Admitted = true
	decision.Reason = gate_errors.ReasonGranted
	return decision, nil
}

// periodStarts returns midnight of now's calendar day and the first of its
// month, both in location.
func periodStarts(now time.Time, location *time.Location) (time.Time, time.Time) {
	local := now.In(location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, location), time.Date(y, m, 1, 0, 0, 0, 0, location)
}

func (l *Ledger) record(ctx context.Context, decision *model.AdmissionDecision) {
	reason := decision.Code
	if decision.Admitted {
		reason = "granted"
	}
	l.metrics.Admission(decision.Admitted, reason)

	fields := []zap.Field{
		zap.String("userID", decision.UserID),
		zap.String("modelID", decision.ModelID),
		zap.Bool("admitted", decision.Admitted),
		zap.String("reason", decision.Reason),
		zap.Int64("dailyCount", decision.Usage.DailyCount),
		zap.Int64("monthlyCount", decision.Usage.MonthlyCount),
	}
	if decision.Admitted {
		logger.Info("Admission granted", fields...)
	} else {
		logger.Warn("Admission denied", fields...)
	}

	if l.audit == nil {
		return
	}
	err := l.audit.LogAccess(ctx, audit.AuditLog{
		Timestamp:     decision.DecidedAt,
		UserID:        decision.UserID,
		Action:        audit.ActionAdmitCall,
		ModelID:       decision.ModelID,
		AccessGranted: decision.Admitted,
		PolicyID:      decision.PolicyID,
		Reason:        decision.Reason,
		JobID:         decision.JobID,
	})
	if err != nil {
		logger.Error("Failed to write audit log", zap.String("userID", decision.UserID), zap.Error(err))
	}
}
