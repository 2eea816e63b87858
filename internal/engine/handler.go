package engine

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/httputil"
	"ttb-broker/internal/types"
)

// Handler adapts Engine to the admin REST surface (spec §6 "REST surface
// (engine-relevant)").
type Handler struct {
	eng    *Engine
	orders *OrderStore
}

func NewHandler(eng *Engine, orders *OrderStore) *Handler {
	return &Handler{eng: eng, orders: orders}
}

type createOrderRequest struct {
	UserID         string           `json:"userId"`
	Symbol         string           `json:"symbol"`
	Type           string           `json:"type"`
	Volume         decimal.Decimal  `json:"volume"`
	Price          decimal.Decimal  `json:"price"`
	RequiredMargin *decimal.Decimal `json:"requiredMargin,omitempty"`
	OpeningDate    *time.Time       `json:"openingDate,omitempty"`
	Comment        string           `json:"comment,omitempty"`
}

// CreateOrder implements "POST /api/admin/create-order/:adminId".
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminId")

	var req createOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}

	openingDate := time.Now().UTC()
	if req.OpeningDate != nil {
		openingDate = *req.OpeningDate
	}

	result, err := h.eng.OpenTrade(r.Context(), adminID, req.UserID, OpenTradeRequest{
		AccountID:      req.UserID,
		Symbol:         req.Symbol,
		Type:           types.OrderSide(req.Type),
		Volume:         req.Volume,
		Spot:           req.Price,
		OpeningDate:    openingDate,
		RequiredMargin: req.RequiredMargin,
		Comment:        req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": result.Order})
}

// ListOrders implements "GET /api/admin/order/:adminId".
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminId")

	orders, err := h.orders.ListByAdmin(r.Context(), adminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": orders})
}

type updateOrderRequest struct {
	OrderStatus  *string          `json:"orderStatus,omitempty"`
	ClosingPrice *decimal.Decimal `json:"closingPrice,omitempty"`
	ClosingDate  *time.Time       `json:"closingDate,omitempty"`
	Comment      *string          `json:"comment,omitempty"`
}

// UpdateOrder implements "PATCH /api/admin/order/:adminId/:orderId".
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	adminID := chi.URLParam(r, "adminId")
	orderID := chi.URLParam(r, "orderId")

	var req updateOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}

	update := CloseUpdate{
		OrderStatus:  types.OrderStatusProcessing,
		ClosingPrice: req.ClosingPrice,
		ClosingDate:  req.ClosingDate,
		Comment:      req.Comment,
	}
	if req.OrderStatus != nil {
		update.OrderStatus = types.OrderStatus(*req.OrderStatus)
	}

	result, err := h.eng.CloseTrade(r.Context(), adminID, orderID, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": result.Order})
}
