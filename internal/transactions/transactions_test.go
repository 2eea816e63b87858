package transactions

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttb-broker/internal/apperr"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	s := NewStore(nil, nil)

	_, err := s.CreateTransaction(context.Background(), "admin-1", "acct-1", types.TransactionTypeDeposit, types.AssetCash, decimal.Zero)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestBalanceForSelectsAssetField(t *testing.T) {
	a := model.Account{CashBalance: decimal.NewFromInt(100), MetalWeight: decimal.NewFromInt(5)}
	assert.True(t, balanceFor(a, types.AssetCash).Equal(decimal.NewFromInt(100)))
	assert.True(t, balanceFor(a, types.AssetGold).Equal(decimal.NewFromInt(5)))
}
