// errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound     = errors.New("access policy not found")
	ErrPolicyConflict     = errors.New("access policy conflict")
	ErrInvalidPolicyData  = errors.New("invalid access policy data")
	ErrDatabaseOperation  = errors.New("database operation failed")
	ErrInternalServer     = errors.New("internal server error")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidPagination  = errors.New("invalid pagination parameters")
	ErrCacheUnavailable   = errors.New("cache unavailable")
	ErrInvalidCacheConfig = errors.New("invalid cache configuration")
)
