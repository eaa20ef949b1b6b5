package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("rate limited")
	ErrLockNotAcquired   = errors.New("lock not acquired")
	ErrScoreOutOfRange   = errors.New("score out of range")
	ErrInvalidThresholds = errors.New("invalid moderation thresholds")
	ErrComponentAbsent   = errors.New("component not present on content item")
	ErrInvalidDecision   = errors.New("invalid moderation decision")
	ErrUnknownJobKind    = errors.New("unknown job kind")

	// Storage errors
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
)
