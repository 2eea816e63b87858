package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

func TestComputeHashChainsToPrevHash(t *testing.T) {
	first := model.LedgerEntry{
		EntryID:         "ORD-1",
		EntryType:       types.LedgerEntryTypeOrder,
		EntryNature:     types.LedgerEntryNatureDebit,
		ReferenceNumber: "ORD-1001",
		Amount:          decimal.NewFromInt(19),
		RunningBalance:  decimal.NewFromInt(9981),
		Sequence:        1,
	}
	h1 := computeHash(first)
	require.NotEmpty(t, h1)

	second := first
	second.EntryID = "ORD-2"
	second.Sequence = 2
	second.PrevHash = h1
	h2 := computeHash(second)

	require.NotEqual(t, h1, h2, "different sequence/prevHash must change the hash")

	// Same logical entry recomputed with a different prevHash chains differently.
	third := second
	third.PrevHash = "deadbeef"
	h3 := computeHash(third)
	require.NotEqual(t, h2, h3)
}

func TestComputeHashDeterministic(t *testing.T) {
	e := model.LedgerEntry{
		EntryID:         "TRX-9",
		EntryType:       types.LedgerEntryTypeTransaction,
		EntryNature:     types.LedgerEntryNatureCredit,
		ReferenceNumber: "ORD-1001",
		Amount:          decimal.NewFromInt(100),
		RunningBalance:  decimal.NewFromInt(100),
		Sequence:        5,
		PrevHash:        "abc123",
	}
	require.Equal(t, computeHash(e), computeHash(e))
}
