package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("operation not allowed in current state")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrReadDatabaseRow = errors.New("failed to read database row")
	ErrRateLimited     = errors.New("rate limit exceeded")
)
