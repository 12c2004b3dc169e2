// model/policy.go
package model

import (
	"time"
)

// AccessPolicy is the daily/monthly call ceiling shared by many grants.
type AccessPolicy struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Name         string    `json:"name" gorm:"size:64;not null;uniqueIndex" validate:"required,max=64"`
	DailyLimit   int       `json:"daily_limit" gorm:"not null" validate:"gte=0"`
	MonthlyLimit int       `json:"monthly_limit" gorm:"not null" validate:"gte=0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (AccessPolicy) TableName() string {
	return "access_policy"
}

const (
	BasePolicyID            = "base"
	BasePolicyName          = "base"
	DefaultDailyCallLimit   = 1000
	DefaultMonthlyCallLimit = 30000
)
