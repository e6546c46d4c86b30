package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/konsultanku/backend/internal/models"
)

var (
	errWalletNotFound    = errors.New("wallet not found")
	errEntryNotFound     = errors.New("ledger entry not found")
	errDuplicateCredit   = errors.New("order already credited")
	errInsufficientFunds = errors.New("insufficient available balance")
	errEntryNotPending   = errors.New("ledger entry is not pending")
)

const walletColumns = "id, consultant_id, balance, available_balance, status, created_at, updated_at"

const entryColumns = "id, consultant_id, amount, entry_type, status, order_id, bank_name, account_number, created_at, updated_at"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.ConsultantID, &w.Balance, &w.AvailableBalance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.ConsultantID, &e.Amount, &e.EntryType, &e.Status, &e.OrderID, &e.BankName, &e.AccountNumber, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateIfAbsent inserts a wallet for the consultant unless one exists, and
// returns the current row either way.
func (r *Repository) CreateIfAbsent(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wallets (id, consultant_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (consultant_id) DO NOTHING
	`, uuid.New(), consultantID, models.WalletStatusUnverified)
	if err != nil {
		return nil, err
	}
	return r.GetByConsultant(ctx, consultantID)
}

func (r *Repository) GetByConsultant(ctx context.Context, consultantID uuid.UUID) (*models.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx, `
		SELECT `+walletColumns+` FROM wallets WHERE consultant_id = $1
	`, consultantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errWalletNotFound
	}
	return w, err
}

// CreditDeposit appends a completed deposit entry for orderID and increments
// both balances, in one transaction. The partial unique index on
// wallet_ledger(order_id) WHERE entry_type = 'deposit' makes a second credit
// for the same order fail with errDuplicateCredit instead of double-paying.
func (r *Repository) CreditDeposit(ctx context.Context, consultantID uuid.UUID, amount int64, orderID uuid.UUID) (*models.Wallet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_ledger (id, consultant_id, amount, entry_type, status, order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), consultantID, amount, models.LedgerEntryDeposit, models.LedgerStatusCompleted, orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, errDuplicateCredit
		}
		return nil, err
	}

	w, err := scanWallet(tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance + $1, available_balance = available_balance + $1, updated_at = now()
		WHERE consultant_id = $2
		RETURNING `+walletColumns+`
	`, amount, consultantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, tx.Commit(ctx)
}

// InsertWithdrawal appends a pending withdrawal entry. Balances are not
// touched until settlement.
func (r *Repository) InsertWithdrawal(ctx context.Context, e *models.LedgerEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO wallet_ledger (id, consultant_id, amount, entry_type, status, bank_name, account_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, e.ID, e.ConsultantID, e.Amount, models.LedgerEntryWithdrawal, models.LedgerStatusPending, e.BankName, e.AccountNumber).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

// SettleWithdrawal flips a pending withdrawal to completed and deducts both
// balances, in one transaction. The entry flip and the balance deduction are
// both conditional updates, so a concurrent second settlement or a balance
// that shrank since the request was made roll the whole thing back.
func (r *Repository) SettleWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.Wallet, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var consultantID uuid.UUID
	var amount int64
	err = tx.QueryRow(ctx, `
		UPDATE wallet_ledger SET status = $1, updated_at = now()
		WHERE id = $2 AND entry_type = $3 AND status = $4
		RETURNING consultant_id, amount
	`, models.LedgerStatusCompleted, entryID, models.LedgerEntryWithdrawal, models.LedgerStatusPending).
		Scan(&consultantID, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyEntry(ctx, entryID)
	}
	if err != nil {
		return nil, err
	}

	w, err := scanWallet(tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance - $1, available_balance = available_balance - $1, updated_at = now()
		WHERE consultant_id = $2 AND available_balance >= $1
		RETURNING `+walletColumns+`
	`, amount, consultantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errInsufficientFunds
	}
	if err != nil {
		return nil, err
	}
	return w, tx.Commit(ctx)
}

// FailWithdrawal flips a pending withdrawal to failed. No balance mutation:
// the funds were never deducted, so nothing is returned.
func (r *Repository) FailWithdrawal(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `
		UPDATE wallet_ledger SET status = $1, updated_at = now()
		WHERE id = $2 AND entry_type = $3 AND status = $4
		RETURNING `+entryColumns+`
	`, models.LedgerStatusFailed, entryID, models.LedgerEntryWithdrawal, models.LedgerStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyEntry(ctx, entryID)
	}
	return e, err
}

// classifyEntry distinguishes a missing entry from one that is no longer
// pending, after a conditional update matched nothing.
func (r *Repository) classifyEntry(ctx context.Context, entryID uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM wallet_ledger WHERE id = $1`, entryID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return errEntryNotFound
	}
	if err != nil {
		return err
	}
	return errEntryNotPending
}

func (r *Repository) ListEntries(ctx context.Context, consultantID uuid.UUID) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+` FROM wallet_ledger
		WHERE consultant_id = $1 ORDER BY created_at DESC
	`, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
