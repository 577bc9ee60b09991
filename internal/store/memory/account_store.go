// Package memory is a single-node AccountStore. A store-wide mutex makes every
// operation, including the whole transfer, one indivisible step.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/readypay/backend/internal/models"
	"github.com/readypay/backend/internal/store"
)

type AccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	order    []string
	ledger   []models.LedgerEntry
	nextID   int64
	now      func() time.Time
}

var _ store.AccountStore = (*AccountStore)(nil)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*models.Account),
		now:      time.Now,
	}
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if a := s.accounts[id]; a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *AccountStore) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// insertion order doubles as created_at order
	for _, id := range s.order {
		if a := s.accounts[id]; a.Email == identifier || a.Mobile == identifier {
			copied := *a
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *AccountStore) Insert(ctx context.Context, account *models.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return "", store.ErrEmailExists
		}
	}

	now := s.now()
	account.ID = uuid.NewString()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	s.accounts[stored.ID] = &stored
	s.order = append(s.order, stored.ID)
	return stored.ID, nil
}

func (s *AccountStore) Activate(ctx context.Context, id string, grant int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return 0, nil
	}
	a.Status = models.StatusActive
	a.Balance = grant
	a.Version++
	a.UpdatedAt = s.now()
	return 1, nil
}

func (s *AccountStore) Transfer(ctx context.Context, t models.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	total, ok := t.TotalDebit()
	if !ok {
		return store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.accounts[t.SenderID]
	if !ok {
		return store.ErrNotFound
	}
	receiver, ok := s.accounts[t.ReceiverID]
	if !ok {
		return store.ErrNotFound
	}

	if sender.Balance < total {
		return store.ErrInsufficientFunds
	}
	if sender.ID != receiver.ID && !models.CanCredit(receiver.Balance, t.Amount) {
		return store.ErrBalanceOverflow
	}

	now := s.now()
	before := sender.Balance

	sender.Balance -= total
	sender.Version++
	sender.UpdatedAt = now
	receiver.Balance += t.Amount
	receiver.Version++
	receiver.UpdatedAt = now

	s.appendEntry(t.TransactionID, sender.ID, -t.Amount, models.EntryDebit, before-t.Amount, now)
	if t.Fee > 0 {
		s.appendEntry(t.TransactionID, sender.ID, -t.Fee, models.EntryFee, before-total, now)
	}
	s.appendEntry(t.TransactionID, receiver.ID, t.Amount, models.EntryCredit, receiver.Balance, now)
	return nil
}

func (s *AccountStore) appendEntry(transactionID, accountID string, amount int64, entryType string, balance int64, now time.Time) {
	s.nextID++
	s.ledger = append(s.ledger, models.LedgerEntry{
		ID:            s.nextID,
		TransactionID: transactionID,
		AccountID:     accountID,
		Amount:        amount,
		EntryType:     entryType,
		Balance:       balance,
		CreatedAt:     now,
	})
}

func (s *AccountStore) LedgerEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.LedgerEntry
	for _, e := range s.ledger {
		if e.AccountID == accountID {
			entries = append(entries, e)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
