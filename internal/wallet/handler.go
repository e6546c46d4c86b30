package wallet

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/konsultanku/backend/internal/middleware"
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

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrWalletNotFound), errors.Is(err, ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrEntryNotPending):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrMissingBankDetails):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.log.Error("wallet operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// --- GET /api/v1/wallet ---

// Balance returns the caller's wallet with its ledger history.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	wal, entries, err := h.svc.Balance(r.Context(), p.ID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Message: "ok",
		Data:    map[string]any{"wallet": wal, "ledger": entries},
	})
}

// --- POST /api/v1/wallet/withdrawals ---

type withdrawalRequest struct {
	Amount        int64  `json:"amount"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

func (h *Handler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	entry, err := h.svc.InitiateWithdrawal(r.Context(), p.ID, req.Amount, req.BankName, req.AccountNumber)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Message: "withdrawal requested", Data: entry})
}

// --- POST /api/v1/withdrawals/{entryID}/settle ---

func (h *Handler) SettleWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry id"})
		return
	}
	wal, err := h.svc.SettleWithdrawal(r.Context(), entryID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "withdrawal settled", Data: wal})
}

// --- POST /api/v1/withdrawals/{entryID}/fail ---

func (h *Handler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry id"})
		return
	}
	entry, err := h.svc.FailWithdrawal(r.Context(), entryID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Message: "withdrawal failed", Data: entry})
}
