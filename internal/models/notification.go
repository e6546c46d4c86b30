package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification category enums.
const (
	NotifyOrderAssigned  = "order_assigned"
	NotifyOrderDelivered = "order_delivered"
	NotifyOrderCompleted = "order_completed"
	NotifyWalletCredited = "wallet_credited"
)

// Notification is an in-app message persisted for a recipient. Delivery is
// best-effort; failures never surface to the lifecycle operation that
// triggered them.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	Role        string     `json:"role"`
	Category    string     `json:"category"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
