package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet status enums.
const (
	WalletStatusUnverified = "unverified"
	WalletStatusVerified   = "verified"
	WalletStatusHold       = "hold"
)

// Ledger entry type enums.
const (
	LedgerEntryDeposit    = "deposit"
	LedgerEntryWithdrawal = "withdrawal"
)

// Ledger entry status enums. A withdrawal entry is created pending and
// transitions exactly once to completed or failed.
const (
	LedgerStatusPending   = "pending"
	LedgerStatusCompleted = "completed"
	LedgerStatusFailed    = "failed"
)

// Wallet holds a consultant's running balance in integer subunits.
// Invariant: 0 <= AvailableBalance <= Balance.
type Wallet struct {
	ID               uuid.UUID `json:"id"`
	ConsultantID     uuid.UUID `json:"consultant_id"`
	Balance          int64     `json:"balance"`
	AvailableBalance int64     `json:"available_balance"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LedgerEntry is an immutable record of one deposit or withdrawal event.
// OrderID is set for deposits tied to a completed order and is unique among
// deposit entries, which is what prevents paying the same order twice.
type LedgerEntry struct {
	ID            uuid.UUID  `json:"id"`
	ConsultantID  uuid.UUID  `json:"consultant_id"`
	Amount        int64      `json:"amount"`
	EntryType     string     `json:"entry_type"`
	Status        string     `json:"status"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	BankName      string     `json:"bank_name,omitempty"`
	AccountNumber string     `json:"account_number,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
