// Package balance implements the cash/margin sufficiency policy that gates
// order placement before the trading engine ever talks to the upstream venue
// (spec §4.4).
package balance

import (
	"context"

	"github.com/shopspring/decimal"
)

// Config carries the two tunables the policy's formulas are built from.
// BaseAmountPerVolume is the AED notional reserved per gram before margin is
// applied; MinimumBalancePct is the margin percentage layered on top.
type Config struct {
	BaseAmountPerVolume decimal.Decimal
	MinimumBalancePct   decimal.Decimal
}

// ExistingExposure reports an account's pre-existing PROCESSING exposure, as
// read from the orders the engine currently has open for that account.
type ExistingExposure struct {
	Volume decimal.Decimal
}

// ExposureSource loads the existing PROCESSING-order exposure for an account;
// implemented by the engine's order store so this package stays storage-free.
type ExposureSource interface {
	ExistingProcessingVolume(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// CheckResult is the full derivation returned by CheckSufficientBalance
// (spec §4.4).
type CheckResult struct {
	OK               bool
	UserBalance      decimal.Decimal
	BaseAmount       decimal.Decimal
	MarginAmount     decimal.Decimal
	TotalRequired    decimal.Decimal
	ExistingVolume   decimal.Decimal
	ExistingAmount   decimal.Decimal
	TotalNeeded      decimal.Decimal
	RemainingBalance decimal.Decimal
	MaxAllowedVolume decimal.Decimal
	Message          string
}

// CheckSufficientBalance derives whether an account can afford to open a new
// position of the given volume, given its cash balance and any exposure it
// already carries from PROCESSING orders.
func CheckSufficientBalance(ctx context.Context, cfg Config, cashBalance decimal.Decimal, volume decimal.Decimal, exposures ExposureSource, accountID string) (CheckResult, error) {
	res := CheckResult{UserBalance: cashBalance}

	if !volume.GreaterThan(decimal.Zero) {
		res.OK = false
		res.Message = "volume must be positive"
		return res, nil
	}

	perUnitCost := cfg.BaseAmountPerVolume.Mul(decimal.NewFromInt(1).Add(cfg.MinimumBalancePct.Div(decimal.NewFromInt(100))))

	res.BaseAmount = volume.Mul(cfg.BaseAmountPerVolume)
	res.MarginAmount = res.BaseAmount.Mul(cfg.MinimumBalancePct.Div(decimal.NewFromInt(100)))
	res.TotalRequired = res.BaseAmount.Add(res.MarginAmount)

	existingVolume, err := exposures.ExistingProcessingVolume(ctx, accountID)
	if err != nil {
		return CheckResult{}, err
	}
	res.ExistingVolume = existingVolume
	res.ExistingAmount = existingVolume.Mul(perUnitCost)

	res.TotalNeeded = res.TotalRequired.Add(res.ExistingAmount)
	res.RemainingBalance = cashBalance.Sub(res.TotalNeeded)

	if perUnitCost.GreaterThan(decimal.Zero) {
		available := cashBalance.Sub(res.ExistingAmount)
		res.MaxAllowedVolume = available.Div(perUnitCost).Floor()
		if res.MaxAllowedVolume.LessThan(decimal.Zero) {
			res.MaxAllowedVolume = decimal.Zero
		}
	}

	res.OK = res.RemainingBalance.GreaterThanOrEqual(decimal.Zero) && volume.GreaterThan(decimal.Zero)
	if !res.OK {
		res.Message = "insufficient balance for requested volume"
	}
	return res, nil
}
