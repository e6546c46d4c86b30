package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment status enums, mirrored loosely from the order status.
const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusOngoing   = "ongoing"
	AssignmentStatusCompleted = "completed"
)

// Assignment binds one consultant to one order. At most one non-pending
// assignment exists per order.
type Assignment struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	ConsultantID     uuid.UUID `json:"consultant_id"`
	ClientID         uuid.UUID `json:"client_id"`
	ServiceExpertise string    `json:"service_expertise"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
