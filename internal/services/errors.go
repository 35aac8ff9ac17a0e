package services

import "errors"

// Error categories shared by all services. Callers match with errors.Is;
// handlers translate them to HTTP statuses.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("operation invalid for current status")
	ErrPersistence   = errors.New("persistence failure")
)
