package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment status enums.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Payment is the funding event for an order. Price and title are immutable
// after creation; only status may flip pending -> completed.
type Payment struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	Price           int64      `json:"price"` // integer subunits
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	OriginalOrderID *uuid.UUID `json:"original_order_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
