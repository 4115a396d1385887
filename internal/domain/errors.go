package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrUnsupportedPlan     = errors.New("unsupported plan")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrIntegrity           = errors.New("store integrity violation")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
