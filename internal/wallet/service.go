package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/models"
)

// Sentinel errors surfaced to callers. Handlers map these onto HTTP codes.
var (
	ErrWalletNotFound     = errWalletNotFound
	ErrEntryNotFound      = errEntryNotFound
	ErrInsufficientFunds  = errInsufficientFunds
	ErrEntryNotPending    = errEntryNotPending
	ErrInvalidAmount      = errors.New("amount must be > 0")
	ErrMissingBankDetails = errors.New("bank name and account number are required")
)

// Store is the minimal ledger store interface the service needs. The pgx
// Repository implements it; tests use an in-memory version.
type Store interface {
	CreateIfAbsent(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error)
	GetByConsultant(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error)
	CreditDeposit(ctx context.Context, consultantID uuid.UUID, amount int64, orderID uuid.UUID) (*models.Wallet, error)
	InsertWithdrawal(ctx context.Context, e *models.LedgerEntry) error
	SettleWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.Wallet, error)
	FailWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, consultantID uuid.UUID) ([]*models.LedgerEntry, error)
}

type Service interface {
	EnsureWallet(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error)
	Balance(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, []*models.LedgerEntry, error)
	Credit(ctx context.Context, consultantID uuid.UUID, amount int64, orderID uuid.UUID) (*models.Wallet, error)
	InitiateWithdrawal(ctx context.Context, consultantID uuid.UUID, amount int64, bankName, accountNumber string) (*models.LedgerEntry, error)
	SettleWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.Wallet, error)
	FailWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// EnsureWallet lazily creates the consultant's wallet. Called on consultant
// login so every credit target exists by the time an order completes.
func (s *service) EnsureWallet(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error) {
	return s.store.CreateIfAbsent(ctx, consultantID)
}

func (s *service) Balance(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, []*models.LedgerEntry, error) {
	w, err := s.store.GetByConsultant(ctx, consultantID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.store.ListEntries(ctx, consultantID)
	if err != nil {
		return nil, nil, err
	}
	return w, entries, nil
}

// Credit pays amount into the consultant's wallet for a completed order.
// A repeat credit for the same order is a no-op that returns the wallet
// unchanged: the store refuses the duplicate deposit entry atomically.
func (s *service) Credit(ctx context.Context, consultantID uuid.UUID, amount int64, orderID uuid.UUID) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.store.CreditDeposit(ctx, consultantID, amount, orderID)
	if errors.Is(err, errDuplicateCredit) {
		return s.store.GetByConsultant(ctx, consultantID)
	}
	return w, err
}

// InitiateWithdrawal records a payout request as a pending ledger entry.
// Balances are untouched until an administrator settles the entry, so the
// available-balance check happens at settlement time, not here.
func (s *service) InitiateWithdrawal(ctx context.Context, consultantID uuid.UUID, amount int64, bankName, accountNumber string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if bankName == "" || accountNumber == "" {
		return nil, ErrMissingBankDetails
	}
	if _, err := s.store.GetByConsultant(ctx, consultantID); err != nil {
		return nil, err
	}
	e := &models.LedgerEntry{
		ID:            uuid.New(),
		ConsultantID:  consultantID,
		Amount:        amount,
		EntryType:     models.LedgerEntryWithdrawal,
		Status:        models.LedgerStatusPending,
		BankName:      bankName,
		AccountNumber: accountNumber,
	}
	if err := s.store.InsertWithdrawal(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) SettleWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.Wallet, error) {
	return s.store.SettleWithdrawal(ctx, entryID)
}

func (s *service) FailWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	return s.store.FailWithdrawal(ctx, entryID)
}
