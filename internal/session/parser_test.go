package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ttb-broker/internal/types"
)

func nowMinus(seconds int) time.Time {
	return time.Now().UTC().Add(-time.Duration(seconds) * time.Second)
}

func TestParseShortCodeSideVolume(t *testing.T) {
	cmd := Parse("buy 2")
	assert.Equal(t, CommandOrder, cmd.Kind)
	assert.Equal(t, types.OrderSideBuy, cmd.OrderSide)
	assert.Equal(t, 2.0, cmd.Volume)

	cmd = Parse("SELL 0.5 TTB")
	assert.Equal(t, CommandOrder, cmd.Kind)
	assert.Equal(t, types.OrderSideSell, cmd.OrderSide)
	assert.Equal(t, 0.5, cmd.Volume)
}

func TestParseNTTBAndBareN(t *testing.T) {
	cmd := Parse("2TTB")
	assert.Equal(t, CommandOrder, cmd.Kind)
	assert.Equal(t, types.OrderSideBuy, cmd.OrderSide)
	assert.Equal(t, 2.0, cmd.Volume)

	cmd = Parse("3")
	assert.Equal(t, CommandOrder, cmd.Kind)
	assert.Equal(t, types.OrderSideBuy, cmd.OrderSide)
	assert.Equal(t, 3.0, cmd.Volume)
}

func TestParseCloseByIndexAndID(t *testing.T) {
	cmd := Parse("CLOSE 1")
	assert.Equal(t, CommandClose, cmd.Kind)
	assert.Equal(t, 1, cmd.CloseIndex)
	assert.Empty(t, cmd.CloseID)

	cmd = Parse("close ORD-01HZY")
	assert.Equal(t, CommandClose, cmd.Kind)
	assert.Equal(t, "ORD-01HZY", cmd.CloseID)
}

func TestParseSpecialCommands(t *testing.T) {
	assert.Equal(t, CommandMenu, Parse("menu").Kind)
	assert.Equal(t, CommandMenu, Parse("HELP").Kind)
	assert.Equal(t, CommandReset, Parse("reset").Kind)
	assert.Equal(t, CommandGreeting, Parse("hi").Kind)
	assert.Equal(t, CommandBalance, Parse("balance").Kind)
	assert.Equal(t, CommandOrdersList, Parse("orders").Kind)
	assert.Equal(t, CommandCancel, Parse("cancel").Kind)
}

// "5" and "4" are listed both as bare-N short-codes and as special-command
// aliases (balance, orders). Short-codes are evaluated first, so a bare
// digit is always an order volume — the special-command digit aliases only
// ever fire via their word form ("balance", "orders").
func TestParseBareDigitPrefersShortCode(t *testing.T) {
	cmd := Parse("5")
	assert.Equal(t, CommandOrder, cmd.Kind)
	assert.Equal(t, 5.0, cmd.Volume)
}

func TestParseUnknownFallsThrough(t *testing.T) {
	assert.Equal(t, CommandNone, Parse("what is gold trading").Kind)
}

func TestFreshnessLabelBands(t *testing.T) {
	assert.Equal(t, "Live", freshnessLabel(nowMinus(0)))
	assert.Equal(t, "Delayed", freshnessLabel(nowMinus(120)))
	assert.Equal(t, "Stale", freshnessLabel(nowMinus(400)))
}
