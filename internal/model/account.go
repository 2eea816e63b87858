package model

import (
	"time"

	"github.com/shopspring/decimal"

	"ttb-broker/internal/types"
)

// Account is the client's book (spec §3 Account).
type Account struct {
	ID            string              `json:"id"`
	RefMID        string              `json:"ref_mid"`
	AccountHead   string              `json:"account_head"`
	Accode        string              `json:"accode"`
	AccountType   string              `json:"account_type"`
	CashBalance   decimal.Decimal     `json:"cash_balance"`
	MetalWeight   decimal.Decimal     `json:"metal_weight"`
	Margin        decimal.Decimal     `json:"margin"`
	AskSpread     decimal.Decimal     `json:"ask_spread"`
	BidSpread     decimal.Decimal     `json:"bid_spread"`
	AdminOwner    string              `json:"admin_owner"`
	PhoneNumber   string              `json:"phone_number"`
	Email         string              `json:"email,omitempty"`
	Status        types.AccountStatus `json:"status"`
	KYCStatus     types.KYCStatus     `json:"kyc_status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
