package models

import (
	"time"

	"github.com/google/uuid"
)

// Order status enums. Transitions are monotonic along
// pending/awaiting -> ongoing -> (ready ->) completed.
const (
	OrderStatusPending   = "pending"
	OrderStatusAwaiting  = "awaiting"
	OrderStatusOngoing   = "ongoing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
)

// Order type enums. Chat orders complete directly from ongoing;
// request orders pass through ready once resolution files are delivered.
const (
	OrderTypeChat    = "chat"
	OrderTypeRequest = "request"
)

type Order struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"client_id"`
	ConsultantID *uuid.UUID `json:"consultant_id,omitempty"`
	ServiceName  string     `json:"service_name"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ArtifactRef is an opaque reference to an uploaded resolution file.
// The bytes live in the external object store; only the reference is kept.
type ArtifactRef struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
