package transactions

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/adminauth"
	"ttb-broker/internal/httputil"
	"ttb-broker/internal/types"
)

// Handler adapts Store to "POST /api/admin/transaction" (spec §6).
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type createTransactionRequest struct {
	Type   string          `json:"type"`
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	User   string          `json:"user"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminauth.AdminID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing admin id"})
		return
	}

	var req createTransactionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}

	txn, err := h.store.CreateTransaction(r.Context(), adminID, req.User, types.TransactionType(req.Type), types.Asset(req.Asset), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": txn})
}

// List implements the SPEC_FULL history read used by the admin dashboard
// alongside §4.5's ledger statement.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	adminID, ok := adminauth.AdminID(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing admin id"})
		return
	}

	accountID := chi.URLParam(r, "userId")
	if accountID == "" {
		accountID = r.URL.Query().Get("user")
	}
	txns, err := h.store.ListByAdminAndUser(r.Context(), adminID, accountID, 50, 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": txns})
}
