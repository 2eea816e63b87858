package model

import (
	"time"

	"github.com/shopspring/decimal"

	"ttb-broker/internal/types"
)

// PendingOrder is the quantity/quote a session is holding while it waits for
// Y/N confirmation (spec §3 Session.pendingOrder).
type PendingOrder struct {
	Type      types.OrderSide `json:"type"`
	Volume    decimal.Decimal `json:"volume"`
	Price     decimal.Decimal `json:"price"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// Session is the per-phone conversational state (spec §3 Session, §4.8).
type Session struct {
	Phone          string            `json:"phone"`
	AccountID      string            `json:"account_id"`
	State          types.SessionState `json:"state"`
	PendingOrder   *PendingOrder     `json:"pending_order,omitempty"`
	OpenOrders     []Order           `json:"open_orders,omitempty"`
	OpenPositions  []LPPosition      `json:"open_positions,omitempty"`
	LastActivity   time.Time         `json:"last_activity"`
	UserName       string            `json:"user_name,omitempty"`
}
