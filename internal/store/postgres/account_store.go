package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/readypay/backend/internal/models"
	"github.com/readypay/backend/internal/store"
)

const (
	uniqueViolationCode  = "23505"
	invalidTextRepCode   = "22P02"
	emailUniqueIndexName = "accounts_email_key"
)

const accountColumns = `id, name, pin, mobile, email, role, status, balance, version, created_at, updated_at`

// AccountStore persists accounts and ledger entries in PostgreSQL.
type AccountStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.AccountStore = (*AccountStore)(nil)

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var status string
	err := row.Scan(&a.ID, &a.Name, &a.PIN, &a.Mobile, &a.Email, &a.Role, &status,
		&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	a.Status = models.AccountStatus(status)
	return &a, nil
}

func (s *AccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

func (s *AccountStore) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email = $1 OR mobile = $1
		ORDER BY created_at ASC
		LIMIT 1`, identifier)
	return scanAccount(row)
}

func (s *AccountStore) Insert(ctx context.Context, account *models.Account) (string, error) {
	now := s.now()
	account.ID = uuid.NewString()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, pin, mobile, email, role, status, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, account.Name, account.PIN, account.Mobile, account.Email, account.Role,
		string(account.Status), account.Balance, account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert account: %w", mapError(err))
	}

	return account.ID, nil
}

func (s *AccountStore) Activate(ctx context.Context, id string, grant int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = $1, balance = $2, version = version + 1, updated_at = $3
		WHERE id = $4`,
		string(models.StatusActive), grant, s.now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to activate account: %w", mapError(err))
	}

	matched, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return matched, nil
}

func (s *AccountStore) Transfer(ctx context.Context, t models.Transfer) error {
	total, ok := t.TotalDebit()
	if !ok {
		return store.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback()

	sender, receiver, err := s.lockPair(ctx, tx, t.SenderID, t.ReceiverID)
	if err != nil {
		return err
	}

	if sender.Balance < total {
		return store.ErrInsufficientFunds
	}
	if sender.ID != receiver.ID && !models.CanCredit(receiver.Balance, t.Amount) {
		return store.ErrBalanceOverflow
	}

	now := s.now()
	if err := s.debit(ctx, tx, sender.ID, total, now); err != nil {
		return err
	}
	if err := s.credit(ctx, tx, receiver.ID, t.Amount, now); err != nil {
		return err
	}

	senderAfter := sender.Balance - total
	receiverAfter := receiver.Balance + t.Amount
	if sender.ID == receiver.ID {
		receiverAfter = senderAfter + t.Amount
	}

	if err := s.createLedgerEntry(ctx, tx, t.TransactionID, sender.ID, -t.Amount, models.EntryDebit, sender.Balance-t.Amount, now); err != nil {
		return err
	}
	if t.Fee > 0 {
		if err := s.createLedgerEntry(ctx, tx, t.TransactionID, sender.ID, -t.Fee, models.EntryFee, senderAfter, now); err != nil {
			return err
		}
	}
	if err := s.createLedgerEntry(ctx, tx, t.TransactionID, receiver.ID, t.Amount, models.EntryCredit, receiverAfter, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer %s: %w", t.TransactionID, err)
	}

	return nil
}

// lockPair locks both rows in ascending id order so two transfers between the
// same accounts in opposite directions cannot deadlock.
func (s *AccountStore) lockPair(ctx context.Context, tx *sql.Tx, senderID, receiverID string) (*models.Account, *models.Account, error) {
	if senderID == receiverID {
		account, err := s.lockAccount(ctx, tx, senderID)
		if err != nil {
			return nil, nil, err
		}
		return account, account, nil
	}

	firstLock, secondLock := senderID, receiverID
	if senderID > receiverID {
		firstLock, secondLock = receiverID, senderID
	}

	first, err := s.lockAccount(ctx, tx, firstLock)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.lockAccount(ctx, tx, secondLock)
	if err != nil {
		return nil, nil, err
	}

	if firstLock != senderID {
		return second, first, nil
	}
	return first, second, nil
}

func (s *AccountStore) lockAccount(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, version
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id).Scan(&account.ID, &account.Balance, &account.Version)
	if err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}

// debit is a conditional decrement: it only applies while the balance covers
// the amount, so a negative balance cannot be written even without the lock.
func (s *AccountStore) debit(ctx context.Context, tx *sql.Tx, id string, amount int64, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance - $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND balance >= $1`,
		amount, now, id)
	if err != nil {
		return fmt.Errorf("failed to debit account %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrInsufficientFunds
	}
	return nil
}

func (s *AccountStore) credit(ctx context.Context, tx *sql.Tx, id string, amount int64, now time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3`,
		amount, now, id)
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *AccountStore) createLedgerEntry(ctx context.Context, tx *sql.Tx, transactionID, accountID string, amount int64, entryType string, balance int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (transaction_id, account_id, amount, entry_type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		transactionID, accountID, amount, entryType, balance, now)
	if err != nil {
		return fmt.Errorf("failed to write %s ledger entry: %w", entryType, err)
	}
	return nil
}

func (s *AccountStore) LedgerEntries(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, account_id, amount, entry_type, balance, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", mapError(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Amount, &e.EntryType, &e.Balance, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolationCode:
			if pqErr.Constraint == emailUniqueIndexName {
				return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
			}
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case invalidTextRepCode:
			// malformed uuid in a lookup
			log.Printf("[STORE] invalid identifier rejected by database: %v", pqErr.Message)
			return store.ErrNotFound
		}
	}

	return err
}
