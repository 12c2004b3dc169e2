package dao

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dev-mohitbeniwal/modelgate/db"
	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/model"
)

// setupTestStore opens a SQLite file in a temporary directory.
func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	gdb, err := db.OpenSQL("sqlite", filepath.Join(t.TempDir(), "test.db"), gormlogger.Silent)
	require.NoError(t, err)
	store, err := NewGormStore(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedPolicy(t *testing.T, store *GormStore) *model.AccessPolicy {
	t.Helper()
	policy := &model.AccessPolicy{
		ID:           model.BasePolicyID,
		Name:         model.BasePolicyName,
		DailyLimit:   model.DefaultDailyCallLimit,
		MonthlyLimit: model.DefaultMonthlyCallLimit,
	}
	require.NoError(t, store.CreatePolicy(context.Background(), policy))
	return policy
}

func TestGormStore_Policies(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	seedPolicy(t, store)

	got, err := store.GetPolicy(ctx, model.BasePolicyID)
	require.NoError(t, err)
	assert.Equal(t, 1000, got.DailyLimit)
	assert.Equal(t, 30000, got.MonthlyLimit)

	byName, err := store.GetPolicyByName(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byName.ID)

	err = store.CreatePolicy(ctx, &model.AccessPolicy{Name: "base", DailyLimit: 1})
	assert.ErrorIs(t, err, gate_errors.ErrPolicyConflict)

	zero := &model.AccessPolicy{Name: "frozen", DailyLimit: 0, MonthlyLimit: 0}
	require.NoError(t, store.CreatePolicy(ctx, zero))
	assert.NotEmpty(t, zero.ID)
	frozen, err := store.GetPolicy(ctx, zero.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, frozen.DailyLimit, "zero limits must be stored as given")

	got.DailyLimit = 5
	require.NoError(t, store.UpdatePolicy(ctx, got))
	updated, err := store.GetPolicy(ctx, model.BasePolicyID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.DailyLimit)

	assert.ErrorIs(t, store.UpdatePolicy(ctx, &model.AccessPolicy{ID: "nope", Name: "nope"}), gate_errors.ErrPolicyNotFound)
	_, err = store.GetPolicy(ctx, "nope")
	assert.ErrorIs(t, err, gate_errors.ErrPolicyNotFound)

	list, err := store.ListPolicies(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "base", list[0].Name)
	assert.Equal(t, "frozen", list[1].Name)
}

func TestGormStore_Grants(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	seedPolicy(t, store)

	grant := &model.AccessGrant{UserID: "u1", ModelID: "2", PolicyID: model.BasePolicyID, Granted: true}
	require.NoError(t, store.CreateGrant(ctx, grant))

	err := store.CreateGrant(ctx, &model.AccessGrant{UserID: "u1", ModelID: "2", PolicyID: model.BasePolicyID, Granted: true})
	assert.ErrorIs(t, err, gate_errors.ErrGrantConflict)

	err = store.CreateGrant(ctx, &model.AccessGrant{UserID: "u2", ModelID: "2", PolicyID: "missing", Granted: true})
	assert.ErrorIs(t, err, gate_errors.ErrPolicyNotFound)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordGrantUse(ctx, "u1", "2", at))
	require.NoError(t, store.RecordGrantUse(ctx, "u1", "2", at.Add(time.Minute)))

	got, err := store.GetGrant(ctx, "u1", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CallCount)
	assert.True(t, got.Granted)
	assert.True(t, got.LastAccessedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, store.SetGrantStatus(ctx, "u1", "2", false))
	got, err = store.GetGrant(ctx, "u1", "2")
	require.NoError(t, err)
	assert.False(t, got.Granted)

	assert.ErrorIs(t, store.SetGrantStatus(ctx, "u9", "2", false), gate_errors.ErrGrantNotFound)
	assert.ErrorIs(t, store.RecordGrantUse(ctx, "u9", "2", at), gate_errors.ErrGrantNotFound)
	_, err = store.GetGrant(ctx, "u9", "2")
	assert.ErrorIs(t, err, gate_errors.ErrGrantNotFound)

	grants, err := store.ListGrantsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestGormStore_Jobs(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	day := time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC)
	for i, requestedAt := range []time.Time{
		day.Add(-time.Nanosecond),    // previous day
		day,                          // first instant of the day
		day.Add(23 * time.Hour),      // same day
		day.Add(24 * time.Hour),      // next day
		day.AddDate(0, 0, -10),       // earlier in the month
		day.AddDate(0, -1, 0),        // previous month
	} {
		job := &model.Job{
			ModelID:        "2",
			UserID:         "u1",
			RequestedAt:    requestedAt,
			ExternalTaskID: "task-" + string(rune('a'+i)),
		}
		require.NoError(t, store.CreateJob(ctx, job))
	}
	require.NoError(t, store.CreateJob(ctx, &model.Job{ModelID: "1", UserID: "u1", RequestedAt: day, ExternalTaskID: "other-model"}))

	daily, err := store.CountJobs(ctx, "u1", "2", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), daily)

	monthStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	monthly, err := store.CountJobs(ctx, "u1", "2", monthStart, monthStart.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(5), monthly)

	job, err := store.GetJobByTaskID(ctx, "task-b")
	require.NoError(t, err)
	assert.Nil(t, job.CompletedAt)

	byID, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "task-b", byID.ExternalTaskID)

	completedAt := day.Add(time.Hour)
	applied, err := store.MarkJobCompleted(ctx, "task-b", completedAt)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.MarkJobCompleted(ctx, "task-b", completedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, applied)

	job, err = store.GetJobByTaskID(ctx, "task-b")
	require.NoError(t, err)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.CompletedAt.Equal(completedAt), "second completion must not overwrite the first")

	_, err = store.MarkJobCompleted(ctx, "unknown", completedAt)
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)
	_, err = store.GetJob(ctx, "unknown")
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)
}

func TestGormStore_CreateAdmittedJob(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	seedPolicy(t, store)
	at := time.Date(2024, 5, 14, 16, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateGrant(ctx, &model.AccessGrant{
		UserID: "u1", ModelID: "2", PolicyID: model.BasePolicyID, Granted: true,
	}))

	job := &model.Job{UserID: "u1", ModelID: "2", RequestedAt: at, ExternalTaskID: "task-1"}
	require.NoError(t, store.CreateAdmittedJob(ctx, job, at))
	assert.NotEmpty(t, job.ID)

	grant, err := store.GetGrant(ctx, "u1", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), grant.CallCount)
	assert.True(t, grant.LastAccessedAt.Equal(at))

	// no grant: the job insert is rolled back
	orphan := &model.Job{UserID: "nobody", ModelID: "2", RequestedAt: at, ExternalTaskID: "task-2"}
	assert.ErrorIs(t, store.CreateAdmittedJob(ctx, orphan, at), gate_errors.ErrGrantNotFound)
	_, err = store.GetJobByTaskID(ctx, "task-2")
	assert.ErrorIs(t, err, gate_errors.ErrJobNotFound)
}
