package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/middleware"
	"github.com/konsultanku/backend/internal/models"
)

// Lister reads back persisted notifications for a recipient.
type Lister interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*models.Notification, error)
}

type Handler struct {
	store Lister
	log   *slog.Logger
}

func NewHandler(store Lister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

// List serves GET /api/v1/notifications for the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	list, err := h.store.ListByRecipient(r.Context(), p.ID)
	if err != nil {
		h.log.Error("list notifications failed", "recipient_id", p.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok", "data": list})
}
