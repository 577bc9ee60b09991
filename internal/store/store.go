// Package store defines the account persistence contract shared by the
// PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/readypay/backend/internal/models"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicate is returned when an insert would break email uniqueness.
	ErrDuplicate = errors.New("account already exists")

	// ErrEmailExists is the duplicate error for the email unique index.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrInsufficientFunds is returned by Transfer when the conditional
	// decrement finds the sender balance below the total debit.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrInvalidAmount is returned by Transfer for amounts and fees whose
	// total debit is not a positive int64.
	ErrInvalidAmount = errors.New("invalid transfer amount")

	// ErrBalanceOverflow is returned by Transfer when the credit would not
	// fit in the receiver balance.
	ErrBalanceOverflow = errors.New("receiver balance would overflow")
)

// AccountStore is the only shared mutable resource of the service.
type AccountStore interface {
	// FindByID returns ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (*models.Account, error)

	// FindByEmail returns ErrNotFound when the email is not registered.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)

	// FindByIdentifier matches email or mobile. Mobile is not unique; the
	// oldest matching account is returned.
	FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error)

	// Insert stores a new account, filling ID and timestamps, and returns the id.
	Insert(ctx context.Context, account *models.Account) (string, error)

	// Activate sets status active and overwrites the balance with grant.
	// It returns the number of matched accounts (0 or 1).
	Activate(ctx context.Context, id string, grant int64) (int64, error)

	// Transfer applies the debit, the credit and the ledger entries as one
	// atomic unit. The sender balance is re-checked inside that unit.
	Transfer(ctx context.Context, t models.Transfer) error

	// LedgerEntries lists an account's entries, newest first.
	LedgerEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate reports whether err is, or wraps, ErrDuplicate.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
