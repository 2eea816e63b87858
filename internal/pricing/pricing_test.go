package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ttb-broker/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSpotToTTB(t *testing.T) {
	got := SpotToTTB(dec("1900"))
	want := dec("1900").Div(TroyOzGrams).Mul(USDToAED).Mul(TTBFactor)
	require.True(t, got.Equal(want))
}

func TestQuoteForOpen(t *testing.T) {
	spot := dec("1900")
	ask := dec("0.5")
	bid := dec("0.5")

	require.True(t, QuoteForOpen(spot, types.OrderSideBuy, ask, bid).Equal(dec("1900.5")))
	require.True(t, QuoteForOpen(spot, types.OrderSideSell, ask, bid).Equal(dec("1899.5")))
}

func TestQuoteForCloseOppositeSide(t *testing.T) {
	spot := dec("1904")
	ask := dec("0.5")
	bid := dec("0.5")

	// closing a BUY uses the bid side
	require.True(t, QuoteForClose(spot, types.OrderSideBuy, ask, bid).Equal(dec("1903.5")))
	// closing a SELL uses the ask side
	require.True(t, QuoteForClose(spot, types.OrderSideSell, ask, bid).Equal(dec("1904.5")))
}

func TestGoldWeightValue(t *testing.T) {
	v := GoldWeightValue(dec("1902.5"), dec("0.01"))
	require.True(t, v.GreaterThan(decimal.Zero))
}
