package domain

import (
	"errors"

	"github.com/hundredandten/server/internal/engine"
)

// Domain errors
var (
	ErrNotFound            = errors.New("not found")
	ErrAuthorizationDenied = errors.New("authorization denied")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrConflict            = errors.New("revision conflict")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDecoding            = errors.New("corrupt stored record")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEngineRejection reports whether the rules engine refused an action.
func IsEngineRejection(err error) bool {
	var rule *engine.RuleError
	return errors.As(err, &rule)
}
