package models

import "time"

type AccountStatus string

const (
	StatusPending AccountStatus = "pending"
	StatusActive  AccountStatus = "active"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Account is a wallet holder. PIN holds the one-way hash, never the secret.
type Account struct {
	ID        string        `json:"_id" db:"id"`
	Name      string        `json:"name" db:"name"`
	PIN       string        `json:"-" db:"pin"`
	Mobile    string        `json:"mobile" db:"mobile"`
	Email     string        `json:"email" db:"email"`
	Role      string        `json:"role" db:"role"`
	Status    AccountStatus `json:"status" db:"status"`
	Balance   int64         `json:"balance" db:"balance"` // whole Taka
	Version   int           `json:"version" db:"version"` // bumped on every mutation
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// ActivationResult mirrors the update result returned to the admin client.
type ActivationResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}
