// Package pricing derives client-visible TTB AED prices from the raw upstream
// XAU/USD spot quote (spec §4.3). Every function here is a pure transform —
// no I/O, no state — so the engine can call it inside or outside a
// transaction without side effects.
package pricing

import (
	"github.com/shopspring/decimal"

	"ttb-broker/internal/types"
)

// TroyOzGrams is the mass of one troy ounce in grams.
var TroyOzGrams = decimal.NewFromFloat(31.103)

// USDToAED is the fixed USD/AED conversion rate applied to spot gold.
var USDToAED = decimal.NewFromFloat(3.674)

// TTBFactor is the mass in grams of one Ten-Tola Bar.
var TTBFactor = decimal.NewFromFloat(116.64)

// SpotToTTB converts a raw USD/oz spot price into an AED-per-TTB-bar price.
func SpotToTTB(spotUSD decimal.Decimal) decimal.Decimal {
	return spotUSD.Div(TroyOzGrams).Mul(USDToAED).Mul(TTBFactor)
}

// QuoteForOpen applies the account's per-order spread to the raw spot for an
// opening trade. BUY clients pay the ask side, SELL clients receive the bid
// side.
func QuoteForOpen(spot decimal.Decimal, side types.OrderSide, askSpread, bidSpread decimal.Decimal) decimal.Decimal {
	if side == types.OrderSideBuy {
		return spot.Add(askSpread)
	}
	return spot.Sub(bidSpread)
}

// QuoteForClose applies the opposite-side rule: closing a BUY crosses the
// bid side, closing a SELL crosses the ask side.
func QuoteForClose(spot decimal.Decimal, side types.OrderSide, askSpread, bidSpread decimal.Decimal) decimal.Decimal {
	if side == types.OrderSideBuy {
		return spot.Sub(bidSpread)
	}
	return spot.Add(askSpread)
}

// GoldWeightValue is the AED value of volume grams of gold at the given raw
// spot price, expressed in TTB-bar terms.
func GoldWeightValue(spot decimal.Decimal, volume decimal.Decimal) decimal.Decimal {
	return SpotToTTB(spot).Mul(volume)
}
