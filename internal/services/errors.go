package services

import (
	"errors"
	"fmt"

	"dailyscrum/internal/repositories"
)

// Errors returned by the services. Handlers map them to HTTP statuses.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// storeError translates repository sentinels into service errors.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, repositories.ErrVersionConflict):
		return fmt.Errorf("%s was modified concurrently, retry: %w", what, ErrConflict)
	case errors.Is(err, repositories.ErrDuplicate):
		return fmt.Errorf("%s already exists: %w", what, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// Identity is the authenticated caller, as carried by the bearer token.
type Identity struct {
	ID       string
	Username string
}
