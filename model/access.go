// model/access.go
package model

import (
	"fmt"
	"time"
)

// AccessGrant authorizes one user to call one model under one policy.
// (UserID, ModelID) is the identity of the grant.
type AccessGrant struct {
	UserID         string    `json:"user_id" gorm:"primaryKey;size:64" validate:"required"`
	ModelID        string    `json:"model_id" gorm:"primaryKey;size:64" validate:"required"`
	PolicyID       string    `json:"policy_id" gorm:"size:64;not null;index" validate:"required"`
	CallCount      int64     `json:"call_count" gorm:"not null;default:0"`
	Granted        bool      `json:"granted" gorm:"not null"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (AccessGrant) TableName() string {
	return "user_access"
}

// GrantKey is the lock/lookup key of a grant. The user id is length
// prefixed so ids containing ':' cannot collide.
func GrantKey(userID, modelID string) string {
	return fmt.Sprintf("%d:%s:%s", len(userID), userID, modelID)
}

// QuotaUsage is the state the ledger observed when deciding.
type QuotaUsage struct {
	DailyCount   int64 `json:"daily_count"`
	MonthlyCount int64 `json:"monthly_count"`
	DailyLimit   int   `json:"daily_limit"`
	MonthlyLimit int   `json:"monthly_limit"`
}

// AdmissionDecision is the result of a quota check.
type AdmissionDecision struct {
	Admitted  bool       `json:"admitted"`
	Code      string     `json:"code,omitempty"`
	Reason    string     `json:"reason"`
	UserID    string     `json:"user_id"`
	ModelID   string     `json:"model_id"`
	PolicyID  string     `json:"policy_id,omitempty"`
	JobID     string     `json:"job_id,omitempty"`
	Usage     QuotaUsage `json:"usage"`
	DecidedAt time.Time  `json:"decided_at"`
}
