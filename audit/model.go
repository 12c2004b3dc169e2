// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

const (
	ActionAdmitCall    = "ADMIT_CALL"
	ActionPolicyChange = "POLICY_CHANGE"
	ActionGrantChange  = "GRANT_CHANGE"
)

type AuditLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"user_id"`
	Action        string          `json:"action"`
	ModelID       string          `json:"model_id"`
	AccessGranted bool            `json:"access_granted"`
	PolicyID      string          `json:"policy_id,omitempty"`
	Reason        string          `json:"reason"`
	JobID         string          `json:"job_id,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
