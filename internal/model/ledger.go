package model

import (
	"time"

	"github.com/shopspring/decimal"

	"ttb-broker/internal/types"
)

// OrderDetails, LPDetails and TransactionDetails are the typed subrecords a
// LedgerEntry carries depending on its EntryType (spec §3 Ledger Entry).
type OrderDetails struct {
	OrderType types.OrderSide `json:"order_type"`
	Volume    decimal.Decimal `json:"volume"`
	Symbol    string          `json:"symbol"`
}

type LPDetails struct {
	PositionType types.OrderSide `json:"position_type"`
	Volume       decimal.Decimal `json:"volume"`
	Symbol       string          `json:"symbol"`
}

type TransactionDetails struct {
	Asset            types.Asset     `json:"asset"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
}

// LedgerEntry is an immutable journal line (spec §3 Ledger Entry).
type LedgerEntry struct {
	EntryID         string                   `json:"entry_id"`
	EntryType       types.LedgerEntryType    `json:"entry_type"`
	EntryNature     types.LedgerEntryNature  `json:"entry_nature"`
	ReferenceNumber string                   `json:"reference_number"`
	Amount          decimal.Decimal          `json:"amount"`
	RunningBalance  decimal.Decimal          `json:"running_balance"`
	Date            time.Time                `json:"date"`
	User            string                   `json:"user"`
	AdminID         string                   `json:"admin_id"`
	OrderDetails    *OrderDetails            `json:"order_details,omitempty"`
	LPDetails       *LPDetails               `json:"lp_details,omitempty"`
	TxDetails       *TransactionDetails      `json:"transaction_details,omitempty"`
	Description     string                   `json:"description"`
	Notes           string                   `json:"notes,omitempty"`
	Hash            string                   `json:"hash"`
	PrevHash        string                   `json:"prev_hash,omitempty"`
	Sequence        int64                    `json:"sequence"`
}

// Transaction is a deposit/withdrawal record (spec §4.7, SPEC_FULL §3).
type Transaction struct {
	TransactionID   string                  `json:"transaction_id"`
	Type            types.TransactionType   `json:"type"`
	Asset           types.Asset             `json:"asset"`
	Amount          decimal.Decimal         `json:"amount"`
	PreviousBalance decimal.Decimal         `json:"previous_balance"`
	NewBalance      decimal.Decimal         `json:"new_balance"`
	User            string                  `json:"user"`
	AdminID         string                  `json:"admin_id"`
	Status          types.TransactionStatus `json:"status"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}
