// Package engine is the transactional heart of the brokerage: OpenTrade and
// CloseTrade (spec §4.6). OpenTrade places the order with the upstream venue
// and then writes the account balance mutation, the client order and
// mirrored LP position, and four ledger entries in one atomic unit (spec §5,
// §8 "four entries per leg"). CloseTrade writes the same kinds of rows in one
// atomic unit but does not call the upstream venue: it settles at the
// closing price given in its update, or at the order's price if none is
// given.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/accounts"
	"ttb-broker/internal/apperr"
	"ttb-broker/internal/balance"
	"ttb-broker/internal/dbtx"
	"ttb-broker/internal/ledger"
	"ttb-broker/internal/model"
	"ttb-broker/internal/pricing"
	"ttb-broker/internal/types"
)

// AccountStore is the account-loading surface OpenTrade/CloseTrade depend
// on. *accounts.Store satisfies this in production; tests substitute an
// in-memory fake (spec §9 Design Notes).
type AccountStore interface {
	GetByIDTx(ctx context.Context, tx dbtx.Tx, adminOwner, id string) (model.Account, error)
	UpdateBalancesTx(ctx context.Context, tx dbtx.Tx, accountID string, cash, metal decimal.Decimal) error
}

// OrderOps is the order/LP-position surface OpenTrade/CloseTrade and
// CheckBalance depend on. *OrderStore satisfies this in production.
type OrderOps interface {
	CreateTx(ctx context.Context, tx dbtx.Tx, o model.Order) (model.Order, error)
	GetForUpdateTx(ctx context.Context, tx dbtx.Tx, adminID, id string) (model.Order, error)
	UpdateTx(ctx context.Context, tx dbtx.Tx, o model.Order) error
	SetLPPositionIDTx(ctx context.Context, tx dbtx.Tx, orderID, lpPositionID string) error
	CreateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) (model.LPPosition, error)
	GetLPByPositionIDTx(ctx context.Context, tx dbtx.Tx, positionID string) (model.LPPosition, error)
	UpdateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) error
	ExistingProcessingVolume(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// LedgerOps is the quadruple-entry journal surface OpenTrade/CloseTrade
// depend on. *ledger.Store satisfies this in production.
type LedgerOps interface {
	WriteOrderEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error)
	WriteLPEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error)
	WriteTransactionEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error)
}

// txBeginner opens the atomic unit OpenTrade/CloseTrade run inside (spec
// §5). PoolBeginner wraps the production *pgxpool.Pool; tests substitute an
// in-memory fake that hands back a dbtx.Tx without a real database.
type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (dbtx.Tx, error)
}

// PoolBeginner adapts *pgxpool.Pool to txBeginner: pgx.Tx (what Pool.BeginTx
// returns) already satisfies dbtx.Tx's narrower method set, so this is a
// pure type-narrowing wrapper, not a behavior change.
type PoolBeginner struct {
	Pool *pgxpool.Pool
}

func (p PoolBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (dbtx.Tx, error) {
	return p.Pool.BeginTx(ctx, opts)
}

// Bridger is the narrow upstream-venue surface the engine needs. Production
// wiring passes a bridge.EngineAdapter wrapping the *bridge.Bridge; tests
// substitute a fake (spec §9 Design
// Notes: "unit-test by substituting a mock bridge").
type Bridger interface {
	PlaceTrade(ctx context.Context, req TradeRequest) (TradeResult, error)
	CloseTrade(ctx context.Context, ticket int64, symbol string, volume float64) (CloseResult, error)
}

// TradeRequest/TradeResult/CloseResult mirror the subset of internal/bridge's
// types the engine depends on, so Bridger can be satisfied by a test double
// without importing the real subprocess bridge.
type TradeRequest struct {
	Symbol  string
	Volume  float64
	Type    string
	Comment string
}

type TradeResult struct {
	Ticket  int64
	Price   float64
	Retcode int
}

type CloseResult struct {
	Success      bool
	ClosePrice   float64
	Profit       float64
	LikelyClosed bool
}

// Engine composes the stores it orchestrates. AllowNegativeMetal mirrors
// the ALLOW_NEGATIVE_METAL config flag (spec §9 Open question): when false,
// a SELL that would drive metal below zero is rejected before the upstream
// call.
type Engine struct {
	pool               txBeginner
	accounts           AccountStore
	orders             OrderOps
	ledger             LedgerOps
	bridge             Bridger
	balanceCfg         balance.Config
	AllowNegativeMetal bool
}

// New wires the production stores. Its parameters stay concrete
// (*accounts.Store, *OrderStore, *ledger.Store, *pgxpool.Pool) so callers
// need no awareness of the narrower interfaces Engine depends on internally;
// each concrete type satisfies its interface implicitly.
func New(pool *pgxpool.Pool, acc *accounts.Store, ord *OrderStore, led *ledger.Store, br Bridger, balanceCfg balance.Config, allowNegativeMetal bool) *Engine {
	return &Engine{
		pool:               PoolBeginner{Pool: pool},
		accounts:           acc,
		orders:             ord,
		ledger:             led,
		bridge:             br,
		balanceCfg:         balanceCfg,
		AllowNegativeMetal: allowNegativeMetal,
	}
}

// newForTest builds an Engine directly from the narrow interfaces, bypassing
// New's concrete-type production wiring. Used only by engine_test.go's
// in-memory fakes.
func newForTest(pool txBeginner, acc AccountStore, ord OrderOps, led LedgerOps, br Bridger, balanceCfg balance.Config, allowNegativeMetal bool) *Engine {
	return &Engine{
		pool:               pool,
		accounts:           acc,
		orders:             ord,
		ledger:             led,
		bridge:             br,
		balanceCfg:         balanceCfg,
		AllowNegativeMetal: allowNegativeMetal,
	}
}

// weightValue is the AED notional of volume grams at price. Engine-layer
// "spot" values already carry the client-facing per-gram conversion (spec
// §4.3's spotToTtb is the raw-quote-to-TTB transform applied upstream of
// the engine); §4.6/§8's "gold weight value" is this direct product.
func weightValue(price, volume decimal.Decimal) decimal.Decimal {
	return price.Mul(volume)
}

// OpenTradeRequest is the input to OpenTrade (spec §4.6).
type OpenTradeRequest struct {
	AccountID      string
	Symbol         string
	Type           types.OrderSide
	Volume         decimal.Decimal
	Spot           decimal.Decimal
	OpeningDate    time.Time
	RequiredMargin *decimal.Decimal
	Comment        string
}

// OpenTradeResult is the output of OpenTrade.
type OpenTradeResult struct {
	Order          model.Order
	LPPosition     model.LPPosition
	CashBalance    decimal.Decimal
	MetalWeight    decimal.Decimal
	RequiredMargin decimal.Decimal
	GoldWeightValue decimal.Decimal
	LedgerEntries  []model.LedgerEntry
}

// CheckBalance runs the §4.4 margin sufficiency policy ahead of OpenTrade,
// for callers (session, admin REST) that must reject an oversized order
// before ever reaching the upstream venue.
func (e *Engine) CheckBalance(ctx context.Context, accountID string, cashBalance, volume decimal.Decimal) (balance.CheckResult, error) {
	return balance.CheckSufficientBalance(ctx, e.balanceCfg, cashBalance, volume, e.orders, accountID)
}

// OpenTrade implements spec §4.6 OpenTrade.
func (e *Engine) OpenTrade(ctx context.Context, adminID, userID string, req OpenTradeRequest) (OpenTradeResult, error) {
	if req.Volume.LessThanOrEqual(decimal.Zero) {
		return OpenTradeResult{}, apperr.Validation("volume must be positive")
	}

	tradeResult, err := e.bridge.PlaceTrade(ctx, TradeRequest{
		Symbol:  req.Symbol,
		Volume:  volumeToFloat(req.Volume),
		Type:    string(req.Type),
		Comment: req.Comment,
	})
	if err != nil {
		return OpenTradeResult{}, err
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return OpenTradeResult{}, fmt.Errorf("engine: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := e.accounts.GetByIDTx(ctx, tx, adminID, req.AccountID)
	if err != nil {
		return OpenTradeResult{}, err
	}

	clientPrice := pricing.QuoteForOpen(req.Spot, req.Type, account.AskSpread, account.BidSpread)

	requiredMargin := weightValue(clientPrice, req.Volume)
	if req.RequiredMargin != nil {
		requiredMargin = *req.RequiredMargin
	}

	newCash := account.CashBalance.Sub(requiredMargin)
	var newMetal decimal.Decimal
	if req.Type == types.OrderSideBuy {
		newMetal = account.MetalWeight.Add(req.Volume)
	} else {
		newMetal = account.MetalWeight.Sub(req.Volume)
		if !e.AllowNegativeMetal && newMetal.LessThan(decimal.Zero) {
			return OpenTradeResult{}, apperr.Validation("insufficient metal for SELL")
		}
	}

	order := model.Order{
		AccountID:      req.AccountID,
		Type:           req.Type,
		Volume:         req.Volume,
		Symbol:         req.Symbol,
		Price:          req.Spot,
		OpeningPrice:   clientPrice,
		RequiredMargin: requiredMargin,
		OpeningDate:    req.OpeningDate,
		OrderStatus:    types.OrderStatusProcessing,
		User:           userID,
		AdminID:        adminID,
		Comment:        req.Comment,
	}
	if tradeResult.Ticket != 0 {
		ticket := tradeResult.Ticket
		order.Ticket = &ticket
	}
	order, err = e.orders.CreateTx(ctx, tx, order)
	if err != nil {
		return OpenTradeResult{}, err
	}

	lp := model.LPPosition{
		PositionID:    order.OrderNo,
		Type:          req.Type,
		Volume:        req.Volume,
		Symbol:        req.Symbol,
		EntryPrice:    req.Spot,
		CurrentPrice:  req.Spot,
		OpenDate:      req.OpeningDate,
		Status:        types.LPPositionStatusOpen,
		ClientOrderID: order.ID,
		AdminID:       adminID,
	}
	lp, err = e.orders.CreateLPTx(ctx, tx, lp)
	if err != nil {
		return OpenTradeResult{}, err
	}

	order.LPPositionID = lp.PositionID
	if err := e.orders.SetLPPositionIDTx(ctx, tx, order.ID, lp.PositionID); err != nil {
		return OpenTradeResult{}, err
	}

	if err := e.accounts.UpdateBalancesTx(ctx, tx, account.ID, newCash, newMetal); err != nil {
		return OpenTradeResult{}, err
	}

	entries := make([]model.LedgerEntry, 0, 4)

	orderEntry, err := e.ledger.WriteOrderEntry(ctx, tx, model.LedgerEntry{
		EntryType:       types.LedgerEntryTypeOrder,
		EntryNature:     types.LedgerEntryNatureDebit,
		ReferenceNumber: order.OrderNo,
		Amount:          requiredMargin,
		RunningBalance:  newCash,
		User:            userID,
		AdminID:         adminID,
		OrderDetails:    &model.OrderDetails{OrderType: req.Type, Volume: req.Volume, Symbol: req.Symbol},
		Description:     "order open",
	})
	if err != nil {
		return OpenTradeResult{}, err
	}
	entries = append(entries, orderEntry)

	lpWeight := weightValue(req.Spot, req.Volume)
	lpEntry, err := e.ledger.WriteLPEntry(ctx, tx, model.LedgerEntry{
		EntryType:       types.LedgerEntryTypeLPPosition,
		EntryNature:     types.LedgerEntryNatureCredit,
		ReferenceNumber: order.OrderNo,
		Amount:          lpWeight,
		RunningBalance:  newCash,
		User:            userID,
		AdminID:         adminID,
		LPDetails:       &model.LPDetails{PositionType: req.Type, Volume: req.Volume, Symbol: req.Symbol},
		Description:     "lp position open",
	})
	if err != nil {
		return OpenTradeResult{}, err
	}
	entries = append(entries, lpEntry)

	cashEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
		EntryType:       types.LedgerEntryTypeTransaction,
		EntryNature:     types.LedgerEntryNatureDebit,
		ReferenceNumber: order.OrderNo,
		Amount:          requiredMargin,
		RunningBalance:  newCash,
		User:            userID,
		AdminID:         adminID,
		TxDetails:       &model.TransactionDetails{Asset: types.AssetCash, PreviousBalance: account.CashBalance},
		Description:     "margin reserved",
	})
	if err != nil {
		return OpenTradeResult{}, err
	}
	entries = append(entries, cashEntry)

	goldNature := types.LedgerEntryNatureCredit
	if req.Type == types.OrderSideSell {
		goldNature = types.LedgerEntryNatureDebit
	}
	goldEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
		EntryType:       types.LedgerEntryTypeTransaction,
		EntryNature:     goldNature,
		ReferenceNumber: order.OrderNo,
		Amount:          req.Volume,
		RunningBalance:  newMetal,
		User:            userID,
		AdminID:         adminID,
		TxDetails:       &model.TransactionDetails{Asset: types.AssetGold, PreviousBalance: account.MetalWeight},
		Description:     "metal position opened",
	})
	if err != nil {
		return OpenTradeResult{}, err
	}
	entries = append(entries, goldEntry)

	if err := tx.Commit(ctx); err != nil {
		return OpenTradeResult{}, fmt.Errorf("engine: commit open trade: %w", err)
	}

	return OpenTradeResult{
		Order:           order,
		LPPosition:      lp,
		CashBalance:     newCash,
		MetalWeight:     newMetal,
		RequiredMargin:  requiredMargin,
		GoldWeightValue: lpWeight,
		LedgerEntries:   entries,
	}, nil
}

// CloseUpdate is the whitelisted input CloseTrade accepts: status, closing
// price, closing date and comment. Profit and price are not taken from the
// caller; CloseTrade computes the profit and mirrors the closing price into
// price.
type CloseUpdate struct {
	OrderStatus  types.OrderStatus
	ClosingPrice *decimal.Decimal
	ClosingDate  *time.Time
	Comment      *string
}

// CloseTradeResult is the output of CloseTrade.
type CloseTradeResult struct {
	Order         model.Order
	LPPosition    model.LPPosition
	CashBalance   decimal.Decimal
	MetalWeight   decimal.Decimal
	ClientProfit  decimal.Decimal
	LPProfit      decimal.Decimal
	LedgerEntries []model.LedgerEntry
}

// CloseTrade implements spec §4.6 CloseTrade.
func (e *Engine) CloseTrade(ctx context.Context, adminID, orderID string, update CloseUpdate) (CloseTradeResult, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return CloseTradeResult{}, fmt.Errorf("engine: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := e.orders.GetForUpdateTx(ctx, tx, adminID, orderID)
	if err != nil {
		return CloseTradeResult{}, err
	}
	if order.OrderStatus != types.OrderStatusProcessing {
		return CloseTradeResult{}, apperr.Conflict("order is already in a terminal state")
	}

	account, err := e.accounts.GetByIDTx(ctx, tx, adminID, order.AccountID)
	if err != nil {
		return CloseTradeResult{}, err
	}

	spot := order.Price
	if update.ClosingPrice != nil {
		spot = *update.ClosingPrice
	}
	clientClosingPrice := pricing.QuoteForClose(spot, order.Type, account.AskSpread, account.BidSpread)

	entryWeight := weightValue(order.OpeningPrice, order.Volume)
	closeSpotWeight := weightValue(spot, order.Volume)
	closeClientWeight := weightValue(clientClosingPrice, order.Volume)
	lpEntryWeight := weightValue(order.Price, order.Volume)

	clientProfit := clientClosingPrice.Sub(order.OpeningPrice).Mul(order.Volume)
	if order.Type == types.OrderSideSell {
		clientProfit = clientProfit.Neg()
	}
	lpProfit := lpEntryWeight.Sub(entryWeight).Abs().Add(closeSpotWeight.Sub(closeClientWeight).Abs())

	closing := update.OrderStatus == types.OrderStatusClosed
	reversing := update.OrderStatus == types.OrderStatusCancelled || update.OrderStatus == types.OrderStatusFailed
	now := time.Now().UTC()

	order.OrderStatus = update.OrderStatus
	order.ClosingPrice = &spot
	order.Price = spot
	if update.Comment != nil {
		order.Comment = *update.Comment
	}
	if closing || reversing {
		closingDate := now
		if update.ClosingDate != nil {
			closingDate = *update.ClosingDate
		}
		order.ClosingDate = &closingDate
	}
	if closing {
		order.Profit, _ = decimal.NewFromString(clientProfit.StringFixed(2))
	}
	if err := e.orders.UpdateTx(ctx, tx, order); err != nil {
		return CloseTradeResult{}, err
	}

	lp, err := e.orders.GetLPByPositionIDTx(ctx, tx, order.OrderNo)
	if err != nil {
		return CloseTradeResult{}, err
	}
	lp.CurrentPrice = spot
	if closing {
		lp.Status = types.LPPositionStatusClosed
		lp.ClosingPrice = &spot
		lp.CloseDate = order.ClosingDate
		lp.Profit = lpProfit
	} else if reversing {
		lp.Status = types.LPPositionStatusClosed
		lp.CloseDate = &now
	}
	if err := e.orders.UpdateLPTx(ctx, tx, lp); err != nil {
		return CloseTradeResult{}, err
	}

	result := CloseTradeResult{Order: order, LPPosition: lp}
	if closing {
		result.ClientProfit = clientProfit
		result.LPProfit = lpProfit
	}

	if closing {
		settlementAmount := closeClientWeight
		if order.RequiredMargin.GreaterThan(decimal.Zero) {
			settlementAmount = order.RequiredMargin
		} else if order.Type == types.OrderSideBuy {
			settlementAmount = closeSpotWeight
		} else {
			settlementAmount = entryWeight
		}
		userProfit := decimal.Max(clientProfit, decimal.Zero)

		newCash := account.CashBalance.Add(settlementAmount).Add(userProfit)
		var newMetal decimal.Decimal
		if order.Type == types.OrderSideBuy {
			newMetal = account.MetalWeight.Sub(order.Volume)
		} else {
			newMetal = account.MetalWeight.Add(order.Volume)
		}

		if err := e.accounts.UpdateBalancesTx(ctx, tx, account.ID, newCash, newMetal); err != nil {
			return CloseTradeResult{}, err
		}

		entries := make([]model.LedgerEntry, 0, 4)

		orderEntry, err := e.ledger.WriteOrderEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeOrder,
			EntryNature:     types.LedgerEntryNatureCredit,
			ReferenceNumber: order.OrderNo,
			Amount:          settlementAmount.Add(userProfit),
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			OrderDetails:    &model.OrderDetails{OrderType: order.Type, Volume: order.Volume, Symbol: order.Symbol},
			Description:     "order close",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, orderEntry)

		lpEntry, err := e.ledger.WriteLPEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeLPPosition,
			EntryNature:     types.LedgerEntryNatureDebit,
			ReferenceNumber: order.OrderNo,
			Amount:          lpProfit,
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			LPDetails:       &model.LPDetails{PositionType: order.Type, Volume: order.Volume, Symbol: order.Symbol},
			Description:     "lp position close",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, lpEntry)

		cashEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeTransaction,
			EntryNature:     types.LedgerEntryNatureCredit,
			ReferenceNumber: order.OrderNo,
			Amount:          settlementAmount.Add(userProfit),
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			TxDetails:       &model.TransactionDetails{Asset: types.AssetCash, PreviousBalance: account.CashBalance},
			Description:     "settlement credited",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, cashEntry)

		goldNature := types.LedgerEntryNatureDebit
		if order.Type == types.OrderSideSell {
			goldNature = types.LedgerEntryNatureCredit
		}
		goldEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeTransaction,
			EntryNature:     goldNature,
			ReferenceNumber: order.OrderNo,
			Amount:          order.Volume,
			RunningBalance:  newMetal,
			User:            order.User,
			AdminID:         adminID,
			TxDetails:       &model.TransactionDetails{Asset: types.AssetGold, PreviousBalance: account.MetalWeight},
			Description:     "metal position closed",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, goldEntry)

		result.CashBalance = newCash
		result.MetalWeight = newMetal
		result.LedgerEntries = entries
	} else if reversing {
		// PROCESSING -> CANCELLED|FAILED reverses the open: the reserved
		// margin is returned and the metal delta OpenTrade applied is undone
		// (spec §4.6 state machine, §4.7 reversal rule).
		newCash := account.CashBalance.Add(order.RequiredMargin)
		var newMetal decimal.Decimal
		if order.Type == types.OrderSideBuy {
			newMetal = account.MetalWeight.Sub(order.Volume)
		} else {
			newMetal = account.MetalWeight.Add(order.Volume)
		}

		if err := e.accounts.UpdateBalancesTx(ctx, tx, account.ID, newCash, newMetal); err != nil {
			return CloseTradeResult{}, err
		}

		entries := make([]model.LedgerEntry, 0, 4)

		orderEntry, err := e.ledger.WriteOrderEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeOrder,
			EntryNature:     types.LedgerEntryNatureCredit,
			ReferenceNumber: order.OrderNo,
			Amount:          order.RequiredMargin,
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			OrderDetails:    &model.OrderDetails{OrderType: order.Type, Volume: order.Volume, Symbol: order.Symbol},
			Description:     "order reversed",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, orderEntry)

		lpEntry, err := e.ledger.WriteLPEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeLPPosition,
			EntryNature:     types.LedgerEntryNatureDebit,
			ReferenceNumber: order.OrderNo,
			Amount:          lpEntryWeight,
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			LPDetails:       &model.LPDetails{PositionType: order.Type, Volume: order.Volume, Symbol: order.Symbol},
			Description:     "lp position reversed",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, lpEntry)

		cashEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeTransaction,
			EntryNature:     types.LedgerEntryNatureCredit,
			ReferenceNumber: order.OrderNo,
			Amount:          order.RequiredMargin,
			RunningBalance:  newCash,
			User:            order.User,
			AdminID:         adminID,
			TxDetails:       &model.TransactionDetails{Asset: types.AssetCash, PreviousBalance: account.CashBalance},
			Description:     "margin released",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, cashEntry)

		goldNature := types.LedgerEntryNatureDebit
		if order.Type == types.OrderSideSell {
			goldNature = types.LedgerEntryNatureCredit
		}
		goldEntry, err := e.ledger.WriteTransactionEntry(ctx, tx, model.LedgerEntry{
			EntryType:       types.LedgerEntryTypeTransaction,
			EntryNature:     goldNature,
			ReferenceNumber: order.OrderNo,
			Amount:          order.Volume,
			RunningBalance:  newMetal,
			User:            order.User,
			AdminID:         adminID,
			TxDetails:       &model.TransactionDetails{Asset: types.AssetGold, PreviousBalance: account.MetalWeight},
			Description:     "metal position reversed",
		})
		if err != nil {
			return CloseTradeResult{}, err
		}
		entries = append(entries, goldEntry)

		result.CashBalance = newCash
		result.MetalWeight = newMetal
		result.LedgerEntries = entries
	}

	if err := tx.Commit(ctx); err != nil {
		return CloseTradeResult{}, fmt.Errorf("engine: commit close trade: %w", err)
	}

	return result, nil
}

func volumeToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
