package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ttb-broker/internal/httputil"
)

// Handler adapts Store to "GET /api/admin/ledger/:adminId?user=..." (spec
// §4.5 queries, SUPPLEMENT in SPEC_FULL.md §6).
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminId")
	user := r.URL.Query().Get("user")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.store.ListByAdminAndUser(r.Context(), adminID, user, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": entries})
}
