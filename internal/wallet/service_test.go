package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory Store. Mirrors the real repository's semantics: deposits are
// unique per order id, settlement is a conditional flip plus a conditional
// balance deduction, and a failed deduction leaves the entry pending.
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*models.Wallet
	entries map[uuid.UUID]*models.LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[uuid.UUID]*models.Wallet),
		entries: make(map[uuid.UUID]*models.LedgerEntry),
	}
}

func (m *memStore) CreateIfAbsent(_ context.Context, consultantID uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.wallets[consultantID]; ok {
		cp := *w
		return &cp, nil
	}
	w := &models.Wallet{ID: uuid.New(), ConsultantID: consultantID, Status: models.WalletStatusUnverified}
	m.wallets[consultantID] = w
	cp := *w
	return &cp, nil
}

func (m *memStore) GetByConsultant(_ context.Context, consultantID uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[consultantID]
	if !ok {
		return nil, errWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) CreditDeposit(_ context.Context, consultantID uuid.UUID, amount int64, orderID uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.EntryType == models.LedgerEntryDeposit && e.OrderID != nil && *e.OrderID == orderID {
			return nil, errDuplicateCredit
		}
	}
	w, ok := m.wallets[consultantID]
	if !ok {
		return nil, errWalletNotFound
	}
	oid := orderID
	e := &models.LedgerEntry{
		ID: uuid.New(), ConsultantID: consultantID, Amount: amount,
		EntryType: models.LedgerEntryDeposit, Status: models.LedgerStatusCompleted, OrderID: &oid,
	}
	m.entries[e.ID] = e
	w.Balance += amount
	w.AvailableBalance += amount
	cp := *w
	return &cp, nil
}

func (m *memStore) InsertWithdrawal(_ context.Context, e *models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memStore) SettleWithdrawal(_ context.Context, entryID uuid.UUID) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, errEntryNotFound
	}
	if e.EntryType != models.LedgerEntryWithdrawal || e.Status != models.LedgerStatusPending {
		return nil, errEntryNotPending
	}
	w, ok := m.wallets[e.ConsultantID]
	if !ok {
		return nil, errWalletNotFound
	}
	if w.AvailableBalance < e.Amount {
		return nil, errInsufficientFunds
	}
	e.Status = models.LedgerStatusCompleted
	w.Balance -= e.Amount
	w.AvailableBalance -= e.Amount
	cp := *w
	return &cp, nil
}

func (m *memStore) FailWithdrawal(_ context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, errEntryNotFound
	}
	if e.EntryType != models.LedgerEntryWithdrawal || e.Status != models.LedgerStatusPending {
		return nil, errEntryNotPending
	}
	e.Status = models.LedgerStatusFailed
	cp := *e
	return &cp, nil
}

func (m *memStore) ListEntries(_ context.Context, consultantID uuid.UUID) ([]*models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range m.entries {
		if e.ConsultantID == consultantID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) depositCount(orderID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.EntryType == models.LedgerEntryDeposit && e.OrderID != nil && *e.OrderID == orderID {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreditIsIdempotentPerOrder(t *testing.T) {
	consultant := uuid.New()
	order := uuid.New()
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.EnsureWallet(ctx, consultant); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}

	w, err := svc.Credit(ctx, consultant, 50_000, order)
	if err != nil {
		t.Fatalf("first Credit: %v", err)
	}
	if w.Balance != 50_000 || w.AvailableBalance != 50_000 {
		t.Errorf("after first credit: balance %d/%d, want 50000/50000", w.Balance, w.AvailableBalance)
	}

	// Second credit for the same order is a no-op returning the wallet.
	w, err = svc.Credit(ctx, consultant, 50_000, order)
	if err != nil {
		t.Fatalf("second Credit: %v", err)
	}
	if w.Balance != 50_000 {
		t.Errorf("after duplicate credit: balance %d, want 50000", w.Balance)
	}
	if got := store.depositCount(order); got != 1 {
		t.Errorf("deposit entries for order: got %d, want 1", got)
	}
}

func TestCreditValidation(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.Credit(ctx, uuid.New(), 0, uuid.New()); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Credit(ctx, uuid.New(), 100, uuid.New()); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("missing wallet: got %v, want ErrWalletNotFound", err)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	consultant := uuid.New()
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.EnsureWallet(ctx, consultant); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := svc.Credit(ctx, consultant, 500_000, uuid.New()); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	entry, err := svc.InitiateWithdrawal(ctx, consultant, 200_000, "Bank A", "0001")
	if err != nil {
		t.Fatalf("InitiateWithdrawal: %v", err)
	}
	if entry.Status != models.LedgerStatusPending {
		t.Errorf("entry status: got %s, want pending", entry.Status)
	}

	// The request alone must not move money.
	w, _, err := svc.Balance(ctx, consultant)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if w.Balance != 500_000 || w.AvailableBalance != 500_000 {
		t.Errorf("balance after request: %d/%d, want 500000/500000", w.Balance, w.AvailableBalance)
	}

	w, err = svc.SettleWithdrawal(ctx, entry.ID)
	if err != nil {
		t.Fatalf("SettleWithdrawal: %v", err)
	}
	if w.Balance != 300_000 || w.AvailableBalance != 300_000 {
		t.Errorf("balance after settle: %d/%d, want 300000/300000", w.Balance, w.AvailableBalance)
	}

	// Settling the same entry again is a state conflict and changes nothing.
	if _, err := svc.SettleWithdrawal(ctx, entry.ID); !errors.Is(err, ErrEntryNotPending) {
		t.Errorf("double settle: got %v, want ErrEntryNotPending", err)
	}
	w, _, _ = svc.Balance(ctx, consultant)
	if w.Balance != 300_000 {
		t.Errorf("balance after double settle: %d, want 300000", w.Balance)
	}
}

func TestSettleInsufficientFundsLeavesWalletUnchanged(t *testing.T) {
	consultant := uuid.New()
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.EnsureWallet(ctx, consultant); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := svc.Credit(ctx, consultant, 100_000, uuid.New()); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	entry, err := svc.InitiateWithdrawal(ctx, consultant, 250_000, "Bank A", "0001")
	if err != nil {
		t.Fatalf("InitiateWithdrawal: %v", err)
	}

	if _, err := svc.SettleWithdrawal(ctx, entry.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("settle beyond balance: got %v, want ErrInsufficientFunds", err)
	}

	w, _, err := svc.Balance(ctx, consultant)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if w.Balance != 100_000 || w.AvailableBalance != 100_000 {
		t.Errorf("wallet changed on failed settle: %d/%d, want 100000/100000", w.Balance, w.AvailableBalance)
	}
	if w.AvailableBalance < 0 || w.AvailableBalance > w.Balance {
		t.Errorf("balance invariant violated: available %d, balance %d", w.AvailableBalance, w.Balance)
	}

	// The entry stays pending so it can be retried or failed later.
	got, err := svc.FailWithdrawal(ctx, entry.ID)
	if err != nil {
		t.Fatalf("FailWithdrawal after failed settle: %v", err)
	}
	if got.Status != models.LedgerStatusFailed {
		t.Errorf("entry status: got %s, want failed", got.Status)
	}
}

func TestFailWithdrawalKeepsBalances(t *testing.T) {
	consultant := uuid.New()
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.EnsureWallet(ctx, consultant); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}
	if _, err := svc.Credit(ctx, consultant, 400_000, uuid.New()); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	entry, err := svc.InitiateWithdrawal(ctx, consultant, 100_000, "Bank B", "0002")
	if err != nil {
		t.Fatalf("InitiateWithdrawal: %v", err)
	}

	if _, err := svc.FailWithdrawal(ctx, entry.ID); err != nil {
		t.Fatalf("FailWithdrawal: %v", err)
	}
	w, _, _ := svc.Balance(ctx, consultant)
	if w.Balance != 400_000 || w.AvailableBalance != 400_000 {
		t.Errorf("balance after fail: %d/%d, want 400000/400000", w.Balance, w.AvailableBalance)
	}

	// A failed entry cannot be settled afterwards.
	if _, err := svc.SettleWithdrawal(ctx, entry.ID); !errors.Is(err, ErrEntryNotPending) {
		t.Errorf("settle failed entry: got %v, want ErrEntryNotPending", err)
	}
}

func TestInitiateWithdrawalValidation(t *testing.T) {
	consultant := uuid.New()
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.EnsureWallet(ctx, consultant); err != nil {
		t.Fatalf("EnsureWallet: %v", err)
	}

	if _, err := svc.InitiateWithdrawal(ctx, consultant, 0, "Bank A", "0001"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.InitiateWithdrawal(ctx, consultant, 1000, "", "0001"); !errors.Is(err, ErrMissingBankDetails) {
		t.Errorf("missing bank name: got %v, want ErrMissingBankDetails", err)
	}
	if _, err := svc.InitiateWithdrawal(ctx, consultant, 1000, "Bank A", ""); !errors.Is(err, ErrMissingBankDetails) {
		t.Errorf("missing account number: got %v, want ErrMissingBankDetails", err)
	}
	if _, err := svc.InitiateWithdrawal(ctx, uuid.New(), 1000, "Bank A", "0001"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("missing wallet: got %v, want ErrWalletNotFound", err)
	}
}

func TestSettleUnknownEntry(t *testing.T) {
	svc := NewService(newMemStore())
	if _, err := svc.SettleWithdrawal(context.Background(), uuid.New()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("unknown entry: got %v, want ErrEntryNotFound", err)
	}
}
