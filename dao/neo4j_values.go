// dao/neo4j_values.go
package dao

import (
	"time"

	"github.com/dev-mohitbeniwal/modelgate/model"
)

func policyProps(p *model.AccessPolicy) map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"name":          p.Name,
		"daily_limit":   int64(p.DailyLimit),
		"monthly_limit": int64(p.MonthlyLimit),
		"created_at":    p.CreatedAt.UTC(),
		"updated_at":    p.UpdatedAt.UTC(),
	}
}

func policyFromProps(props map[string]interface{}) *model.AccessPolicy {
	return &model.AccessPolicy{
		ID:           asString(props["id"]),
		Name:         asString(props["name"]),
		DailyLimit:   int(asInt64(props["daily_limit"])),
		MonthlyLimit: int(asInt64(props["monthly_limit"])),
		CreatedAt:    asTime(props["created_at"]),
		UpdatedAt:    asTime(props["updated_at"]),
	}
}

func grantProps(g *model.AccessGrant) map[string]interface{} {
	return map[string]interface{}{
		"key":              model.GrantKey(g.UserID, g.ModelID),
		"user_id":          g.UserID,
		"model_id":         g.ModelID,
		"policy_id":        g.PolicyID,
		"call_count":       g.CallCount,
		"granted":          g.Granted,
		"last_accessed_at": nullableTime(g.LastAccessedAt),
		"created_at":       g.CreatedAt.UTC(),
	}
}

func grantFromProps(props map[string]interface{}) *model.AccessGrant {
	return &model.AccessGrant{
		UserID:         asString(props["user_id"]),
		ModelID:        asString(props["model_id"]),
		PolicyID:       asString(props["policy_id"]),
		CallCount:      asInt64(props["call_count"]),
		Granted:        asBool(props["granted"]),
		LastAccessedAt: asTime(props["last_accessed_at"]),
		CreatedAt:      asTime(props["created_at"]),
	}
}

func jobProps(j *model.Job) map[string]interface{} {
	props := map[string]interface{}{
		"id":               j.ID,
		"model_id":         j.ModelID,
		"user_id":          j.UserID,
		"requested_at":     j.RequestedAt.UTC(),
		"external_task_id": j.ExternalTaskID,
	}
	if j.CompletedAt != nil {
		props["completed_at"] = j.CompletedAt.UTC()
	}
	return props
}

func jobFromProps(props map[string]interface{}) *model.Job {
	job := &model.Job{
		ID:             asString(props["id"]),
		ModelID:        asString(props["model_id"]),
		UserID:         asString(props["user_id"]),
		RequestedAt:    asTime(props["requested_at"]),
		ExternalTaskID: asString(props["external_task_id"]),
	}
	if v, ok := props["completed_at"]; ok && v != nil {
		t := asTime(v)
		job.CompletedAt = &t
	}
	return job
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func asProps(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v interface{}) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}
