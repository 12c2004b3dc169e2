// errors/access_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrGrantNotFound    = errors.New("access grant not found")
	ErrGrantConflict    = errors.New("access grant already exists")
	ErrInvalidGrantData = errors.New("invalid access grant data")

	// ErrAdmissionDenied is matched by every *AdmissionDeniedError.
	ErrAdmissionDenied = errors.New("admission denied")
)

// DenialCode identifies why the quota ledger refused a call.
type DenialCode string

const (
	DenialNoAccess      DenialCode = "no_access"
	DenialRevoked       DenialCode = "revoked"
	DenialPolicyMissing DenialCode = "policy_missing"
	DenialDailyLimit    DenialCode = "daily_limit"
	DenialMonthlyLimit  DenialCode = "monthly_limit"
)

// Human readable reasons returned to callers.
const (
	ReasonNoAccess      = "User does not have access to this model"
	ReasonRevoked       = "User access to this model has been revoked"
	ReasonPolicyMissing = "Access policy not found"
	ReasonDailyLimit    = "Daily API call limit exceeded"
	ReasonMonthlyLimit  = "Monthly API call limit exceeded"
	ReasonGranted       = "Access granted"
)

type AdmissionDeniedError struct {
	Code   DenialCode
	Reason string
}

func NewAdmissionDenied(code DenialCode) *AdmissionDeniedError {
	var reason string
	switch code {
	case DenialNoAccess:
		reason = ReasonNoAccess
	case DenialRevoked:
		reason = ReasonRevoked
	case DenialPolicyMissing:
		reason = ReasonPolicyMissing
	case DenialDailyLimit:
		reason = ReasonDailyLimit
	case DenialMonthlyLimit:
		reason = ReasonMonthlyLimit
	default:
		reason = fmt.Sprintf("admission denied (%s)", code)
	}
	return &AdmissionDeniedError{Code: code, Reason: reason}
}

func (e *AdmissionDeniedError) Error() string {
	return e.Reason
}

func (e *AdmissionDeniedError) Is(target error) bool {
	return target == ErrAdmissionDenied
}
