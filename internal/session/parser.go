package session

import (
	"regexp"
	"strconv"
	"strings"

	"ttb-broker/internal/types"
)

// CommandKind is the parser's top-level classification (spec §4.8 command
// parser precedence).
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandOrder
	CommandClose
	CommandMenu
	CommandReset
	CommandGreeting
	CommandBalance
	CommandCancel
	CommandPrices
	CommandOrdersList
	CommandRefresh
	CommandConfirmYes
	CommandConfirmNo
)

// Command is the parsed result of one inbound message.
type Command struct {
	Kind       CommandKind
	OrderSide  types.OrderSide
	Volume     float64
	CloseIndex int    // 1-based index into the account's open orders as the orders command lists them, 0 if unset
	CloseID    string // orderId/orderNo, empty if unset
}

var (
	shortCodeSideVolume = regexp.MustCompile(`(?i)^\s*(BUY|SELL)\s+([0-9]+(?:\.[0-9]+)?)\s*(?:TTB)?\s*$`)
	shortCodeNTTB       = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*TTB\s*$`)
	shortCodeBareN      = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*$`)
	closeByIndexOrID    = regexp.MustCompile(`(?i)^\s*CLOSE\s+(\S+)\s*$`)
)

// Parse classifies one inbound message per spec §4.8's four-stage
// precedence: short-codes, CLOSE, special commands, then state dispatch
// (the caller falls through to state dispatch when Kind is CommandNone).
// Short-codes run first, so a bare "4"/"5" always parses as an order volume
// even though the same digits double as special-command aliases for
// orders/balance — those aliases only fire via their word form.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if m := shortCodeSideVolume.FindStringSubmatch(trimmed); m != nil {
		v, _ := strconv.ParseFloat(m[2], 64)
		side := types.OrderSideBuy
		if strings.EqualFold(m[1], "SELL") {
			side = types.OrderSideSell
		}
		return Command{Kind: CommandOrder, OrderSide: side, Volume: v}
	}
	if m := shortCodeNTTB.FindStringSubmatch(trimmed); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return Command{Kind: CommandOrder, OrderSide: types.OrderSideBuy, Volume: v}
	}
	if m := shortCodeBareN.FindStringSubmatch(trimmed); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return Command{Kind: CommandOrder, OrderSide: types.OrderSideBuy, Volume: v}
	}

	if m := closeByIndexOrID.FindStringSubmatch(trimmed); m != nil {
		cmd := Command{Kind: CommandClose, CloseID: m[1]}
		if idx, err := strconv.Atoi(m[1]); err == nil {
			cmd.CloseIndex = idx
			cmd.CloseID = ""
		}
		return cmd
	}

	switch lower {
	case "menu", "help":
		return Command{Kind: CommandMenu}
	case "reset":
		return Command{Kind: CommandReset}
	case "hi", "hello", "start":
		return Command{Kind: CommandGreeting}
	case "balance", "5":
		return Command{Kind: CommandBalance}
	case "cancel":
		return Command{Kind: CommandCancel}
	case "price", "prices":
		return Command{Kind: CommandPrices}
	case "orders", "positions", "4":
		return Command{Kind: CommandOrdersList}
	case "refresh":
		return Command{Kind: CommandRefresh}
	case "y", "yes":
		return Command{Kind: CommandConfirmYes}
	case "n", "no":
		return Command{Kind: CommandConfirmNo}
	}

	return Command{Kind: CommandNone}
}
