package balance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeExposure struct {
	volume decimal.Decimal
}

func (f fakeExposure) ExistingProcessingVolume(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return f.volume, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCheckSufficientBalance_Insufficient(t *testing.T) {
	cfg := Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	res, err := CheckSufficientBalance(context.Background(), cfg, dec("100"), dec("10"), fakeExposure{volume: decimal.Zero}, "acc-1")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.True(t, res.TotalRequired.Equal(dec("600")))
	require.True(t, res.MaxAllowedVolume.Equal(dec("1")))
}

func TestCheckSufficientBalance_Sufficient(t *testing.T) {
	cfg := Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	res, err := CheckSufficientBalance(context.Background(), cfg, dec("1000"), dec("10"), fakeExposure{volume: decimal.Zero}, "acc-1")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.True(t, res.RemainingBalance.Equal(dec("400")))
}

func TestCheckSufficientBalance_ExistingExposureReducesRoom(t *testing.T) {
	cfg := Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	res, err := CheckSufficientBalance(context.Background(), cfg, dec("1000"), dec("10"), fakeExposure{volume: dec("10")}, "acc-1")
	require.NoError(t, err)
	require.True(t, res.ExistingAmount.Equal(dec("600")))
	require.False(t, res.OK)
}

func TestCheckSufficientBalance_RejectsNonPositiveVolume(t *testing.T) {
	cfg := Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	res, err := CheckSufficientBalance(context.Background(), cfg, dec("1000"), decimal.Zero, fakeExposure{volume: decimal.Zero}, "acc-1")
	require.NoError(t, err)
	require.False(t, res.OK)
}
