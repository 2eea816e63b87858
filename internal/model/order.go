package model

import (
	"time"

	"github.com/shopspring/decimal"

	"ttb-broker/internal/types"
)

// Order is the client-facing trade (spec §3 Order).
type Order struct {
	ID              string            `json:"id"`
	OrderNo         string            `json:"order_no"`
	AccountID       string            `json:"account_id"`
	Type            types.OrderSide   `json:"type"`
	Volume          decimal.Decimal   `json:"volume"`
	Symbol          string            `json:"symbol"`
	Price           decimal.Decimal   `json:"price"`
	OpeningPrice    decimal.Decimal   `json:"opening_price"`
	ClosingPrice    *decimal.Decimal  `json:"closing_price,omitempty"`
	RequiredMargin  decimal.Decimal   `json:"required_margin"`
	OpeningDate     time.Time         `json:"opening_date"`
	ClosingDate     *time.Time        `json:"closing_date,omitempty"`
	OrderStatus     types.OrderStatus `json:"order_status"`
	Profit          decimal.Decimal   `json:"profit"`
	User            string            `json:"user"`
	AdminID         string            `json:"admin_id"`
	LPPositionID    string            `json:"lp_position_id,omitempty"`
	Ticket          *int64            `json:"ticket,omitempty"`
	Comment         string            `json:"comment,omitempty"`
	NotificationErr string            `json:"notification_error,omitempty"`
}

// LPPosition is the mirrored upstream position (spec §3 LPPosition).
type LPPosition struct {
	ID            string                 `json:"id"`
	PositionID    string                 `json:"position_id"`
	Type          types.OrderSide        `json:"type"`
	Volume        decimal.Decimal        `json:"volume"`
	Symbol        string                 `json:"symbol"`
	EntryPrice    decimal.Decimal        `json:"entry_price"`
	CurrentPrice  decimal.Decimal        `json:"current_price"`
	ClosingPrice  *decimal.Decimal       `json:"closing_price,omitempty"`
	OpenDate      time.Time              `json:"open_date"`
	CloseDate     *time.Time             `json:"close_date,omitempty"`
	Status        types.LPPositionStatus `json:"status"`
	Profit        decimal.Decimal        `json:"profit"`
	ClientOrderID string                 `json:"client_order_id"`
	AdminID       string                 `json:"admin_id"`
}
