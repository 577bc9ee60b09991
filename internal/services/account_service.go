package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/readypay/backend/internal/audit"
	"github.com/readypay/backend/internal/auth"
	"github.com/readypay/backend/internal/config"
	"github.com/readypay/backend/internal/events"
	"github.com/readypay/backend/internal/models"
	"github.com/readypay/backend/internal/store"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 500
	publishTimeout     = 5 * time.Second
)

// AccountService implements registration, login, activation and transfer on
// top of an AccountStore. It holds no HTTP concerns.
type AccountService struct {
	store    store.AccountStore
	pins     auth.PINHasher
	sessions auth.TokenIssuer
	limiter  LoginLimiter
	events   events.Publisher
	audit    *audit.Logger
	rules    config.AccountRules
	newTxID  func() string
}

type Option func(*AccountService)

func WithLoginLimiter(l LoginLimiter) Option {
	return func(s *AccountService) {
		if l != nil {
			s.limiter = l
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *AccountService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithAuditLogger(a *audit.Logger) Option {
	return func(s *AccountService) {
		if a != nil {
			s.audit = a
		}
	}
}

func NewAccountService(st store.AccountStore, pins auth.PINHasher, sessions auth.TokenIssuer, rules config.AccountRules, opts ...Option) *AccountService {
	s := &AccountService{
		store:    st,
		pins:     pins,
		sessions: sessions,
		limiter:  NoopLoginLimiter(),
		events:   events.NewFallbackPublisher(),
		audit:    audit.NewLogger(),
		rules:    rules,
		newTxID:  generateTransactionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	PIN    string `json:"pin" validate:"required,number,min=4,max=8"`
	Mobile string `json:"mobile" validate:"required,min=6,max=20"`
	Email  string `json:"email" validate:"required,email"`
	Role   string `json:"role" validate:"omitempty,oneof=user agent admin"`
}

// TransferInput is the send-money payload.
type TransferInput struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Amount     int64  `json:"amount"`
	PIN        string `json:"pin" validate:"required"`
}

type TransferResult struct {
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	TotalDebit    int64  `json:"totalDebit"`
}

// Register creates a pending account with a zero balance and returns its id.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return "", ErrConflict
	}
	if !store.IsNotFound(err) {
		return "", fmt.Errorf("failed to check email: %w", err)
	}

	hashedPIN, err := s.pins.Hash(in.PIN)
	if err != nil {
		return "", err
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	account := &models.Account{
		Name:    strings.TrimSpace(in.Name),
		PIN:     hashedPIN,
		Mobile:  strings.TrimSpace(in.Mobile),
		Email:   email,
		Role:    role,
		Status:  models.StatusPending,
		Balance: 0,
	}

	id, err := s.store.Insert(ctx, account)
	if err != nil {
		if store.IsDuplicate(err) {
			return "", ErrConflict
		}
		return "", err
	}

	log.Printf("[AUTH] Account registered - ID: %s, Email: %s, Role: %s", id, email, role)
	s.publish(ctx, events.AccountRegistered, events.AccountEvent{
		AccountID: id,
		Status:    string(models.StatusPending),
		Balance:   0,
		Timestamp: time.Now().UTC(),
	})

	return id, nil
}

// Login checks the PIN of the account matching identifier (email or mobile)
// and returns a session token carrying the account id.
func (s *AccountService) Login(ctx context.Context, identifier, pin string) (string, error) {
	identifier = normalizeIdentifier(identifier)

	if err := s.limiter.Allow(ctx, identifier); err != nil {
		if errors.Is(err, ErrTooManyAttempts) {
			log.Printf("[AUTH] Login locked out for identifier: %s", identifier)
			return "", err
		}
		log.Printf("[AUTH] Login limiter unavailable, continuing: %v", err)
	}

	account, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if store.IsNotFound(err) {
			s.recordLoginFailure(ctx, identifier)
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to look up identifier: %w", err)
	}

	if err := s.pins.Compare(account.PIN, pin); err != nil {
		if errors.Is(err, auth.ErrPINMismatch) {
			s.recordLoginFailure(ctx, identifier)
		}
		return "", pinError(err)
	}

	if err := s.limiter.Reset(ctx, identifier); err != nil {
		log.Printf("[AUTH] Failed to reset login attempts for %s: %v", identifier, err)
	}

	token, err := s.sessions.IssueForUser(account.ID)
	if err != nil {
		return "", err
	}

	log.Printf("[AUTH] Login successful for account %s", account.ID)
	return token, nil
}

// Activate sets the account active and overwrites its balance with the
// activation grant. Repeating it yields the same state.
func (s *AccountService) Activate(ctx context.Context, id, actorID string) (*models.ActivationResult, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	matched, err := s.store.Activate(ctx, id, s.rules.ActivationGrant)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if matched == 0 {
		return nil, ErrNotFound
	}

	log.Printf("[ADMIN] Account %s activated by %q with grant %d", id, actorID, s.rules.ActivationGrant)
	s.audit.LogOperation(id, "ACTIVATION", fmt.Sprintf("activated by %q, balance set to %d", actorID, s.rules.ActivationGrant))
	s.publish(ctx, events.AccountActivated, events.AccountEvent{
		AccountID: id,
		Status:    string(models.StatusActive),
		Balance:   s.rules.ActivationGrant,
		Timestamp: time.Now().UTC(),
	})

	return &models.ActivationResult{
		Acknowledged:  true,
		MatchedCount:  matched,
		ModifiedCount: matched,
	}, nil
}

// Fee returns the flat surcharge for amount.
func (s *AccountService) Fee(amount int64) int64 {
	if amount > s.rules.FeeThreshold {
		return s.rules.TransferFee
	}
	return 0
}

// Transfer moves amount from sender to receiver and destroys the fee.
// Checks run in order: minimum and maximum amount, both accounts exist,
// sender PIN, sender balance. The balance check is repeated inside the
// store's atomic transfer so concurrent sends from one account cannot
// overdraw it.
func (s *AccountService) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.Amount < s.rules.MinTransferAmount {
		return nil, ErrInvalidAmount
	}

	fee := s.Fee(in.Amount)
	if in.Amount > math.MaxInt64-fee {
		return nil, ErrAmountTooLarge
	}
	total := in.Amount + fee

	sender, err := s.findAccount(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findAccount(ctx, in.ReceiverID); err != nil {
		return nil, err
	}

	if err := s.pins.Compare(sender.PIN, in.PIN); err != nil {
		return nil, pinError(err)
	}

	if sender.Balance < total {
		return nil, ErrInsufficientFunds
	}

	t := models.Transfer{
		TransactionID: s.newTxID(),
		SenderID:      sender.ID,
		ReceiverID:    in.ReceiverID,
		Amount:        in.Amount,
		Fee:           fee,
	}

	if err := s.store.Transfer(ctx, t); err != nil {
		s.audit.LogError(t.TransactionID, t.SenderID, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			return nil, ErrInsufficientFunds
		case errors.Is(err, store.ErrInvalidAmount), errors.Is(err, store.ErrBalanceOverflow):
			return nil, ErrAmountTooLarge
		case store.IsNotFound(err):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("transfer %s failed: %w", t.TransactionID, err)
		}
	}

	log.Printf("[TRANSFER] %s: %s -> %s amount=%d fee=%d", t.TransactionID, t.SenderID, t.ReceiverID, t.Amount, t.Fee)
	s.audit.LogTransfer(t.TransactionID, t.SenderID, t.ReceiverID, t.Amount, t.Fee, "SUCCESS")
	s.publish(ctx, events.TransferCompleted, events.TransferEvent{
		TransactionID: t.TransactionID,
		SenderID:      t.SenderID,
		ReceiverID:    t.ReceiverID,
		Amount:        t.Amount,
		Fee:           t.Fee,
		Timestamp:     time.Now().UTC(),
	})

	return &TransferResult{
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		Fee:           fee,
		TotalDebit:    total,
	}, nil
}

// Ledger lists the account's ledger entries, newest first.
func (s *AccountService) Ledger(ctx context.Context, id string, limit int) ([]models.LedgerEntry, error) {
	if _, err := s.findAccount(ctx, id); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}

	entries, err := s.store.LedgerEntries(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return entries, nil
}

func (s *AccountService) findAccount(ctx context.Context, id string) (*models.Account, error) {
	return findAccount(ctx, s.store, id)
}

func findAccount(ctx context.Context, st store.AccountStore, id string) (*models.Account, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	account, err := st.FindByID(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	return account, nil
}

func (s *AccountService) recordLoginFailure(ctx context.Context, identifier string) {
	if err := s.limiter.RecordFailure(ctx, identifier); err != nil {
		log.Printf("[AUTH] Failed to record login failure for %s: %v", identifier, err)
	}
}

func (s *AccountService) publish(ctx context.Context, routingKey string, body any) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, routingKey, body); err != nil {
		log.Printf("[MQ] Failed to publish %s: %v", routingKey, err)
	}
}

func pinError(err error) error {
	if errors.Is(err, auth.ErrPINMismatch) {
		return ErrUnauthorized
	}
	return fmt.Errorf("failed to verify pin: %w", err)
}

// validID rejects ids the store could never have generated.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

func generateTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
