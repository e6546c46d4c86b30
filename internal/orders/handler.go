package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/middleware"
	"github.com/konsultanku/backend/internal/models"
	"github.com/konsultanku/backend/internal/pricing"
	"github.com/konsultanku/backend/internal/wallet"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service sentinels onto HTTP status codes.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrPaymentNotFound), errors.Is(err, wallet.ErrWalletNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrAlreadyOngoing), errors.Is(err, ErrOrderConflict), errors.Is(err, ErrPaymentConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidOrderType), errors.Is(err, ErrNoArtifacts),
		errors.Is(err, pricing.ErrInvalidPrice), errors.Is(err, pricing.ErrUnknownOrderType):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.log.Error("order operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// --- POST /api/v1/payments ---

type createPaymentRequest struct {
	OriginalOrderID *string    `json:"original_order_id,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
}

// CreatePayment opens a paid order. Price, title and type were already
// checked by the PaymentCheck middleware.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	price, title, orderType, ok := middleware.PaymentFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing payment fields"})
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	var originalOrderID *uuid.UUID
	if req.OriginalOrderID != nil {
		id, err := uuid.Parse(*req.OriginalOrderID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid original_order_id"})
			return
		}
		originalOrderID = &id
	}

	order, payment, err := h.svc.CreatePayment(r.Context(), p.ID, title, orderType, price, originalOrderID, req.ScheduledAt)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Message: "payment created",
		Data:    map[string]any{"order": order, "payment": payment},
	})
}

// --- POST /api/v1/payments/{orderID}/confirm ---

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	payment, err := h.svc.ConfirmPayment(r.Context(), orderID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "payment confirmed", Data: payment})
}

// --- POST /api/v1/orders/{orderID}/assign ---

type assignRequest struct {
	ConsultantID string `json:"consultant_id"`
}

// Assign binds a consultant. Admins name the consultant in the body;
// consultants assign themselves.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}

	consultantID := p.ID
	if p.Role == models.RoleAdmin {
		var req assignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		consultantID, err = uuid.Parse(req.ConsultantID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid consultant_id"})
			return
		}
	}

	order, err := h.svc.Assign(r.Context(), orderID, consultantID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "consultant assigned", Data: order})
}

// --- POST /api/v1/orders/{orderID}/deliver ---

type deliverRequest struct {
	Artifacts []struct {
		URL       string `json:"url"`
		Name      string `json:"name"`
		SizeBytes int64  `json:"size_bytes"`
	} `json:"artifacts"`
}

func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	refs := make([]models.ArtifactRef, 0, len(req.Artifacts))
	for _, a := range req.Artifacts {
		if a.URL == "" || a.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "artifact url and name are required"})
			return
		}
		refs = append(refs, models.ArtifactRef{URL: a.URL, Name: a.Name, SizeBytes: a.SizeBytes})
	}

	order, err := h.svc.Deliver(r.Context(), orderID, refs)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "resolution files recorded", Data: order})
}

// --- POST /api/v1/orders/{orderID}/complete ---

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	order, err := h.svc.Complete(r.Context(), orderID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "order completed", Data: order})
}

// --- GET /api/v1/orders/{orderID} ---

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	order, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "ok", Data: order})
}

// --- GET /api/v1/orders ---

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	list, err := h.svc.ListOrdersFor(r.Context(), p.ID, p.Role)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "ok", Data: list})
}

// --- GET /api/v1/orders/{orderID}/artifacts ---

func (h *Handler) Artifacts(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return
	}
	refs, err := h.svc.Artifacts(r.Context(), orderID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "ok", Data: refs})
}

// --- GET /api/v1/assignments ---

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	list, err := h.svc.ListAssignments(r.Context(), p.ID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "ok", Data: list})
}
