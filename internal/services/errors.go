package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by AccountService. Anything else is a server error.
var (
	ErrConflict          = errors.New("user already exists")
	ErrNotFound          = errors.New("account not found")
	ErrUnauthorized      = errors.New("invalid pin")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrTooManyAttempts   = errors.New("too many failed login attempts")

	// ErrAmountTooLarge is an ErrInvalidAmount for totals that cannot be
	// represented or credited.
	ErrAmountTooLarge = fmt.Errorf("%w: amount too large", ErrInvalidAmount)
)
