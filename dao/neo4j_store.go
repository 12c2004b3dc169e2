// dao/neo4j_store.go
package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	logger "github.com/dev-mohitbeniwal/modelgate/logging"
	"github.com/dev-mohitbeniwal/modelgate/model"
	modelgate_neo4j "github.com/dev-mohitbeniwal/modelgate/model/neo4j"
)

// CypherRunner executes a single statement and returns its records.
type CypherRunner interface {
	Read(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
	Write(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
}

// Neo4jStore keeps policies, grants and jobs as graph nodes. Every grant is
// linked to its policy through a GOVERNED_BY relationship.
type Neo4jStore struct {
	Runner  CypherRunner
	closeFn func() error
}

func NewNeo4jStore(ctx context.Context, runner CypherRunner, closeFn func() error) (*Neo4jStore, error) {
	store := &Neo4jStore{Runner: runner, closeFn: closeFn}
	if err := store.EnsureConstraints(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

var neo4jConstraints = []string{
	`CREATE CONSTRAINT access_policy_id IF NOT EXISTS FOR (p:` + modelgate_neo4j.LabelAccessPolicy + `) REQUIRE p.id IS UNIQUE`,
	`CREATE CONSTRAINT access_policy_name IF NOT EXISTS FOR (p:` + modelgate_neo4j.LabelAccessPolicy + `) REQUIRE p.name IS UNIQUE`,
	`CREATE CONSTRAINT grant_key IF NOT EXISTS FOR (g:` + modelgate_neo4j.LabelGrant + `) REQUIRE g.key IS UNIQUE`,
	`CREATE CONSTRAINT job_id IF NOT EXISTS FOR (j:` + modelgate_neo4j.LabelJob + `) REQUIRE j.id IS UNIQUE`,
	`CREATE CONSTRAINT job_task_id IF NOT EXISTS FOR (j:` + modelgate_neo4j.LabelJob + `) REQUIRE j.external_task_id IS UNIQUE`,
	`CREATE INDEX job_owner IF NOT EXISTS FOR (j:` + modelgate_neo4j.LabelJob + `) ON (j.user_id, j.model_id, j.requested_at)`,
}

// EnsureConstraints creates the uniqueness constraints and lookup index.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	logger.Info("Ensuring graph constraints")
	for _, query := range neo4jConstraints {
		if _, err := s.Runner.Write(ctx, query, nil); err != nil {
			logger.Error("Failed to create constraint", zap.String("query", query), zap.Error(err))
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	logger.Info("Successfully ensured graph constraints")
	return nil
}

func (s *Neo4jStore) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func isConstraintViolation(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && strings.Contains(neoErr.Code, "ConstraintValidationFailed")
}

func (s *Neo4jStore) CreatePolicy(ctx context.Context, policy *model.AccessPolicy) error {
	start := time.Now()
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	policy.CreatedAt, policy.UpdatedAt = now, now

	query := `
		OPTIONAL MATCH (existing:` + modelgate_neo4j.LabelAccessPolicy + `)
		WHERE existing.id = $id OR existing.name = $name
		WITH count(existing) AS conflicts
		WHERE conflicts = 0
		CREATE (p:` + modelgate_neo4j.LabelAccessPolicy + ` $props)
		RETURN p.id AS id
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"id":    policy.ID,
		"name":  policy.Name,
		"props": policyProps(policy),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return gate_errors.ErrPolicyConflict
		}
		return dbError("create policy", err)
	}
	if len(rows) == 0 {
		return gate_errors.ErrPolicyConflict
	}

	logger.Info("Policy created successfully",
		zap.String("policyID", policy.ID),
		zap.String("name", policy.Name),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Neo4jStore) UpdatePolicy(ctx context.Context, policy *model.AccessPolicy) error {
	query := `
		MATCH (p:` + modelgate_neo4j.LabelAccessPolicy + ` {id: $id})
		SET p.name = $name,
			p.daily_limit = $dailyLimit,
			p.monthly_limit = $monthlyLimit,
			p.updated_at = $updatedAt
		RETURN p.id AS id
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"id":           policy.ID,
		"name":         policy.Name,
		"dailyLimit":   int64(policy.DailyLimit),
		"monthlyLimit": int64(policy.MonthlyLimit),
		"updatedAt":    time.Now().UTC(),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return gate_errors.ErrPolicyConflict
		}
		return dbError("update policy", err)
	}
	if len(rows) == 0 {
		return gate_errors.ErrPolicyNotFound
	}
	logger.Info("Policy updated successfully", zap.String("policyID", policy.ID))
	return nil
}

func (s *Neo4jStore) getPolicyBy(ctx context.Context, field, value string) (*model.AccessPolicy, error) {
	query := fmt.Sprintf(`MATCH (p:` + modelgate_neo4j.LabelAccessPolicy + ` {%s: $value}) RETURN properties(p) AS p`, field)
	rows, err := s.Runner.Read(ctx, query, map[string]interface{}{"value": value})
	if err != nil {
		return nil, dbError("get policy", err)
	}
	if len(rows) == 0 {
		return nil, gate_errors.ErrPolicyNotFound
	}
	return policyFromProps(asProps(rows[0]["p"])), nil
}

func (s *Neo4jStore) GetPolicy(ctx context.Context, policyID string) (*model.AccessPolicy, error) {
	return s.getPolicyBy(ctx, "id", policyID)
}

func (s *Neo4jStore) GetPolicyByName(ctx context.Context, name string) (*model.AccessPolicy, error) {
	return s.getPolicyBy(ctx, "name", name)
}

func (s *Neo4jStore) ListPolicies(ctx context.Context, limit, offset int) ([]model.AccessPolicy, error) {
	query := `
		MATCH (p:` + modelgate_neo4j.LabelAccessPolicy + `)
		RETURN properties(p) AS p
		ORDER BY p.name
		SKIP $offset
		LIMIT $limit
	`
	rows, err := s.Runner.Read(ctx, query, map[string]interface{}{
		"offset": int64(offset),
		"limit":  int64(limit),
	})
	if err != nil {
		return nil, dbError("list policies", err)
	}
	policies := make([]model.AccessPolicy, 0, len(rows))
	for _, row := range rows {
		policies = append(policies, *policyFromProps(asProps(row["p"])))
	}
	return policies, nil
}

func (s *Neo4jStore) CreateGrant(ctx context.Context, grant *model.AccessGrant) error {
	grant.CreatedAt = time.Now().UTC()
	query := `
		OPTIONAL MATCH (p:` + modelgate_neo4j.LabelAccessPolicy + ` {id: $policyId})
		OPTIONAL MATCH (existing:` + modelgate_neo4j.LabelGrant + ` {key: $key})
		WITH p, count(existing) AS conflicts
		FOREACH (ignored IN CASE WHEN p IS NOT NULL AND conflicts = 0 THEN [1] ELSE [] END |
			CREATE (g:` + modelgate_neo4j.LabelGrant + ` $props)-[:` + modelgate_neo4j.RelGovernedBy + `]->(p)
		)
		RETURN p IS NOT NULL AS policyFound, conflicts
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"policyId": grant.PolicyID,
		"key":      model.GrantKey(grant.UserID, grant.ModelID),
		"props":    grantProps(grant),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return gate_errors.ErrGrantConflict
		}
		return dbError("create grant", err)
	}
	if len(rows) == 0 {
		return dbError("create grant", fmt.Errorf("no result row"))
	}
	if !asBool(rows[0]["policyFound"]) {
		return gate_errors.ErrPolicyNotFound
	}
	if asInt64(rows[0]["conflicts"]) > 0 {
		return gate_errors.ErrGrantConflict
	}

	logger.Info("Grant created successfully",
		zap.String("userID", grant.UserID),
		zap.String("modelID", grant.ModelID),
		zap.String("policyID", grant.PolicyID))
	return nil
}

func (s *Neo4jStore) GetGrant(ctx context.Context, userID, modelID string) (*model.AccessGrant, error) {
	rows, err := s.Runner.Read(ctx,
		`MATCH (g:` + modelgate_neo4j.LabelGrant + ` {key: $key}) RETURN properties(g) AS g`,
		map[string]interface{}{"key": model.GrantKey(userID, modelID)})
	if err != nil {
		return nil, dbError("get grant", err)
	}
	if len(rows) == 0 {
		return nil, gate_errors.ErrGrantNotFound
	}
	return grantFromProps(asProps(rows[0]["g"])), nil
}

func (s *Neo4jStore) ListGrantsByUser(ctx context.Context, userID string) ([]model.AccessGrant, error) {
	rows, err := s.Runner.Read(ctx,
		`MATCH (g:` + modelgate_neo4j.LabelGrant + ` {user_id: $userId}) RETURN properties(g) AS g ORDER BY g.model_id`,
		map[string]interface{}{"userId": userID})
	if err != nil {
		return nil, dbError("list grants", err)
	}
	grants := make([]model.AccessGrant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, *grantFromProps(asProps(row["g"])))
	}
	return grants, nil
}

func (s *Neo4jStore) SetGrantStatus(ctx context.Context, userID, modelID string, granted bool) error {
	rows, err := s.Runner.Write(ctx,
		`MATCH (g:` + modelgate_neo4j.LabelGrant + ` {key: $key}) SET g.granted = $granted RETURN g.key AS key`,
		map[string]interface{}{"key": model.GrantKey(userID, modelID), "granted": granted})
	if err != nil {
		return dbError("set grant status", err)
	}
	if len(rows) == 0 {
		return gate_errors.ErrGrantNotFound
	}
	logger.Info("Grant status changed",
		zap.String("userID", userID),
		zap.String("modelID", modelID),
		zap.Bool("granted", granted))
	return nil
}

func (s *Neo4jStore) RecordGrantUse(ctx context.Context, userID, modelID string, at time.Time) error {
	query := `
		MATCH (g:` + modelgate_neo4j.LabelGrant + ` {key: $key})
		SET g.call_count = coalesce(g.call_count, 0) + 1,
			g.last_accessed_at = $at
		RETURN g.call_count AS callCount
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"key": model.GrantKey(userID, modelID),
		"at":  at.UTC(),
	})
	if err != nil {
		return dbError("record grant use", err)
	}
	if len(rows) == 0 {
		return gate_errors.ErrGrantNotFound
	}
	return nil
}

func (s *Neo4jStore) CreateJob(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.RequestedAt = job.RequestedAt.UTC()
	if _, err := s.Runner.Write(ctx, `CREATE (j:` + modelgate_neo4j.LabelJob + ` $props)`, map[string]interface{}{"props": jobProps(job)}); err != nil {
		return dbError("create job", err)
	}
	logger.Debug("Job record created", zap.String("jobID", job.ID), zap.String("taskID", job.ExternalTaskID))
	return nil
}

// CreateAdmittedJob matches the grant, bumps its counter and creates the
// job in one statement, so both run in the same write transaction.
func (s *Neo4jStore) CreateAdmittedJob(ctx context.Context, job *model.Job, at time.Time) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.RequestedAt = job.RequestedAt.UTC()
	query := `
		MATCH (g:` + modelgate_neo4j.LabelGrant + ` {key: $key})
		SET g.call_count = coalesce(g.call_count, 0) + 1,
			g.last_accessed_at = $at
		CREATE (j:` + modelgate_neo4j.LabelJob + ` $props)
		RETURN j.id AS id
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"key":   model.GrantKey(job.UserID, job.ModelID),
		"at":    at.UTC(),
		"props": jobProps(job),
	})
	if err != nil {
		return dbError("create admitted job", err)
	}
	if len(rows) == 0 {
		return gate_errors.ErrGrantNotFound
	}
	logger.Debug("Job record created", zap.String("jobID", job.ID), zap.String("taskID", job.ExternalTaskID))
	return nil
}

func (s *Neo4jStore) getJobBy(ctx context.Context, field, value string) (*model.Job, error) {
	query := fmt.Sprintf(`MATCH (j:` + modelgate_neo4j.LabelJob + ` {%s: $value}) RETURN properties(j) AS j`, field)
	rows, err := s.Runner.Read(ctx, query, map[string]interface{}{"value": value})
	if err != nil {
		return nil, dbError("get job", err)
	}
	if len(rows) == 0 {
		return nil, gate_errors.ErrJobNotFound
	}
	return jobFromProps(asProps(rows[0]["j"])), nil
}

func (s *Neo4jStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	return s.getJobBy(ctx, "id", jobID)
}

func (s *Neo4jStore) GetJobByTaskID(ctx context.Context, taskID string) (*model.Job, error) {
	return s.getJobBy(ctx, "external_task_id", taskID)
}

func (s *Neo4jStore) CountJobs(ctx context.Context, userID, modelID string, from, to time.Time) (int64, error) {
	query := `
		MATCH (j:` + modelgate_neo4j.LabelJob + ` {user_id: $userId, model_id: $modelId})
		WHERE j.requested_at >= $from AND j.requested_at < $to
		RETURN count(j) AS n
	`
	rows, err := s.Runner.Read(ctx, query, map[string]interface{}{
		"userId":  userID,
		"modelId": modelID,
		"from":    from.UTC(),
		"to":      to.UTC(),
	})
	if err != nil {
		return 0, dbError("count jobs", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt64(rows[0]["n"]), nil
}

func (s *Neo4jStore) MarkJobCompleted(ctx context.Context, taskID string, at time.Time) (bool, error) {
	query := `
		MATCH (j:` + modelgate_neo4j.LabelJob + ` {external_task_id: $taskId})
		WITH j, j.completed_at IS NULL AS pending
		SET j.completed_at = coalesce(j.completed_at, $at)
		RETURN pending
	`
	rows, err := s.Runner.Write(ctx, query, map[string]interface{}{
		"taskId": taskID,
		"at":     at.UTC(),
	})
	if err != nil {
		return false, dbError("mark job completed", err)
	}
	if len(rows) == 0 {
		return false, gate_errors.ErrJobNotFound
	}
	return asBool(rows[0]["pending"]), nil
}
