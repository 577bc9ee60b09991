package models

import (
	"math"
	"time"
)

const (
	EntryDebit  = "DEBIT"
	EntryCredit = "CREDIT"
	EntryFee    = "FEE"
)

type LedgerEntry struct {
	ID            int64     `json:"id" db:"id"`
	TransactionID string    `json:"transactionId" db:"transaction_id"`
	AccountID     string    `json:"accountId" db:"account_id"`
	Amount        int64     `json:"amount" db:"amount"`        // signed; negative for DEBIT and FEE
	EntryType     string    `json:"entryType" db:"entry_type"` // DEBIT, CREDIT or FEE
	Balance       int64     `json:"balance" db:"balance"`      // account balance after the entry
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// Transfer describes one sender-to-receiver movement. The fee is removed
// from the sender and credited nowhere.
type Transfer struct {
	TransactionID string
	SenderID      string
	ReceiverID    string
	Amount        int64
	Fee           int64
}

// TotalDebit is Amount plus Fee. ok is false for a non-positive amount, a
// negative fee, or a sum that does not fit in an int64.
func (t Transfer) TotalDebit() (total int64, ok bool) {
	if t.Amount <= 0 || t.Fee < 0 || t.Amount > math.MaxInt64-t.Fee {
		return 0, false
	}
	return t.Amount + t.Fee, true
}

// CanCredit reports whether adding amount to balance stays within int64.
func CanCredit(balance, amount int64) bool {
	return amount <= math.MaxInt64-balance
}
