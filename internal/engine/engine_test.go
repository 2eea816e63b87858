package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttb-broker/internal/apperr"
	"ttb-broker/internal/balance"
	"ttb-broker/internal/dbtx"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeBridger struct {
	placeResult TradeResult
	placeErr    error
	closeResult CloseResult
	closeErr    error
	placeCalls  int
}

func (f *fakeBridger) PlaceTrade(ctx context.Context, req TradeRequest) (TradeResult, error) {
	f.placeCalls++
	return f.placeResult, f.placeErr
}

func (f *fakeBridger) CloseTrade(ctx context.Context, ticket int64, symbol string, volume float64) (CloseResult, error) {
	return f.closeResult, f.closeErr
}

func newTestEngine(br *fakeBridger) *Engine {
	cfg := balance.Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	return New(nil, nil, nil, nil, br, cfg, true)
}

// OpenTrade rejects a non-positive volume before ever reaching the upstream
// venue, so the bridge must not be called.
func TestOpenTradeRejectsNonPositiveVolume(t *testing.T) {
	br := &fakeBridger{}
	e := newTestEngine(br)

	_, err := e.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID: "acct-1",
		Symbol:    "XAUUSD",
		Type:      types.OrderSideBuy,
		Volume:    decimal.Zero,
	})

	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, 0, br.placeCalls, "bridge should not be called for an invalid volume")
}

func TestOpenTradeRejectsNegativeVolume(t *testing.T) {
	br := &fakeBridger{}
	e := newTestEngine(br)

	_, err := e.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID: "acct-1",
		Symbol:    "XAUUSD",
		Type:      types.OrderSideSell,
		Volume:    dec("-1"),
	})

	require.Error(t, err)
	assert.Equal(t, 0, br.placeCalls)
}

// weightValue is the literal price*volume product the engine uses for
// margin, settlement and profit math (spec §8's worked scenarios only
// reconcile under direct multiplication, not the full spotToTtb chain used
// by internal/pricing's client-facing quote derivation).
func TestWeightValue(t *testing.T) {
	got := weightValue(dec("1902.5"), dec("0.01"))
	assert.True(t, got.Equal(dec("19.025")), "got %s", got)
}

// ---- in-memory fakes backing OpenTrade/CloseTrade end to end ----
//
// None of these touch a database: fakeTx is an inert dbtx.Tx token, and the
// three store fakes below hold their state in plain maps/slices. Together
// they let OpenTrade/CloseTrade run their full transactional body against
// spec §8's seed scenarios without a *pgxpool.Pool.

type fakeTx struct {
	committed  bool
	rolledback bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return noopRow{}
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledback = true
	}
	return nil
}

type noopRow struct{}

func (noopRow) Scan(dest ...interface{}) error { return pgx.ErrNoRows }

type fakeTxBeginner struct {
	last *fakeTx
}

func (f *fakeTxBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (dbtx.Tx, error) {
	f.last = &fakeTx{}
	return f.last, nil
}

// fakeAccountStore mirrors accounts.Store's tx-scoped surface, enforcing the
// same admin-ownership scoping (spec §8 Authorization scope).
type fakeAccountStore struct {
	byID map[string]*model.Account
}

func newFakeAccountStore(accts ...model.Account) *fakeAccountStore {
	s := &fakeAccountStore{byID: map[string]*model.Account{}}
	for i := range accts {
		a := accts[i]
		s.byID[a.ID] = &a
	}
	return s
}

func (s *fakeAccountStore) GetByIDTx(ctx context.Context, tx dbtx.Tx, adminOwner, id string) (model.Account, error) {
	a, ok := s.byID[id]
	if !ok || a.AdminOwner != adminOwner {
		return model.Account{}, apperr.NotFound("account not found")
	}
	return *a, nil
}

func (s *fakeAccountStore) UpdateBalancesTx(ctx context.Context, tx dbtx.Tx, accountID string, cash, metal decimal.Decimal) error {
	a, ok := s.byID[accountID]
	if !ok {
		return apperr.NotFound("account not found")
	}
	a.CashBalance = cash
	a.MetalWeight = metal
	return nil
}

// fakeOrderOps mirrors OrderStore's tx-scoped surface over in-memory maps.
type fakeOrderOps struct {
	seq       int
	orders    map[string]model.Order
	positions map[string]model.LPPosition
}

func newFakeOrderOps() *fakeOrderOps {
	return &fakeOrderOps{orders: map[string]model.Order{}, positions: map[string]model.LPPosition{}}
}

func (s *fakeOrderOps) CreateTx(ctx context.Context, tx dbtx.Tx, o model.Order) (model.Order, error) {
	s.seq++
	o.ID = fmt.Sprintf("order-%d", s.seq)
	o.OrderNo = fmt.Sprintf("ORD-%d", s.seq)
	s.orders[o.ID] = o
	return o, nil
}

func (s *fakeOrderOps) GetForUpdateTx(ctx context.Context, tx dbtx.Tx, adminID, id string) (model.Order, error) {
	o, ok := s.orders[id]
	if !ok || o.AdminID != adminID {
		return model.Order{}, apperr.NotFound("order not found")
	}
	return o, nil
}

func (s *fakeOrderOps) UpdateTx(ctx context.Context, tx dbtx.Tx, o model.Order) error {
	if _, ok := s.orders[o.ID]; !ok {
		return apperr.NotFound("order not found")
	}
	s.orders[o.ID] = o
	return nil
}

func (s *fakeOrderOps) SetLPPositionIDTx(ctx context.Context, tx dbtx.Tx, orderID, lpPositionID string) error {
	o, ok := s.orders[orderID]
	if !ok {
		return apperr.NotFound("order not found")
	}
	o.LPPositionID = lpPositionID
	s.orders[orderID] = o
	return nil
}

func (s *fakeOrderOps) CreateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) (model.LPPosition, error) {
	s.seq++
	lp.ID = fmt.Sprintf("lp-%d", s.seq)
	s.positions[lp.PositionID] = lp
	return lp, nil
}

func (s *fakeOrderOps) GetLPByPositionIDTx(ctx context.Context, tx dbtx.Tx, positionID string) (model.LPPosition, error) {
	lp, ok := s.positions[positionID]
	if !ok {
		return model.LPPosition{}, apperr.NotFound("lp position not found")
	}
	return lp, nil
}

func (s *fakeOrderOps) UpdateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) error {
	if _, ok := s.positions[lp.PositionID]; !ok {
		return apperr.NotFound("lp position not found")
	}
	s.positions[lp.PositionID] = lp
	return nil
}

func (s *fakeOrderOps) ExistingProcessingVolume(ctx context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range s.orders {
		if o.AccountID == accountID && o.OrderStatus == types.OrderStatusProcessing {
			sum = sum.Add(o.Volume)
		}
	}
	return sum, nil
}

// fakeLedgerOps mirrors ledger.Store's append-only write surface, recording
// every entry written so tests can assert the "four entries per leg"
// invariant (spec §8) directly.
type fakeLedgerOps struct {
	seq     int64
	entries []model.LedgerEntry
}

func (s *fakeLedgerOps) write(e model.LedgerEntry) (model.LedgerEntry, error) {
	s.seq++
	e.Sequence = s.seq
	e.EntryID = fmt.Sprintf("entry-%d", s.seq)
	e.Date = time.Now().UTC()
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *fakeLedgerOps) WriteOrderEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.write(e)
}

func (s *fakeLedgerOps) WriteLPEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.write(e)
}

func (s *fakeLedgerOps) WriteTransactionEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.write(e)
}

// fixture bundles one fully-wired Engine plus the fakes behind it, so each
// seed-scenario test can inspect post-call state directly.
type fixture struct {
	engine   *Engine
	beginner *fakeTxBeginner
	accounts *fakeAccountStore
	orders   *fakeOrderOps
	ledger   *fakeLedgerOps
	bridge   *fakeBridger
}

func newFixture(acc model.Account, br *fakeBridger, allowNegativeMetal bool) *fixture {
	beginner := &fakeTxBeginner{}
	accounts := newFakeAccountStore(acc)
	orders := newFakeOrderOps()
	ledgerOps := &fakeLedgerOps{}
	cfg := balance.Config{BaseAmountPerVolume: dec("50"), MinimumBalancePct: dec("20")}
	eng := newForTest(beginner, accounts, orders, ledgerOps, br, cfg, allowNegativeMetal)
	return &fixture{engine: eng, beginner: beginner, accounts: accounts, orders: orders, ledger: ledgerOps, bridge: br}
}

// TestOpenTrade_SeedScenario1 reproduces spec §8 seed scenario 1: an account
// with cash=10000, metal=0, 0.5 AED spreads each side, BUY 0.01g at
// bid=1900/ask=1902 with an explicit requiredMargin of 19.025.
func TestOpenTrade_SeedScenario1(t *testing.T) {
	acc := model.Account{
		ID: "acct-1", AdminOwner: "admin-1",
		CashBalance: dec("10000.00"), MetalWeight: dec("0.00"),
		AskSpread: dec("0.5"), BidSpread: dec("0.5"),
	}
	fx := newFixture(acc, &fakeBridger{placeResult: TradeResult{Ticket: 555}}, true)

	margin := dec("19.025")
	res, err := fx.engine.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID:      "acct-1",
		Symbol:         "GOLD",
		Type:           types.OrderSideBuy,
		Volume:         dec("0.01"),
		Spot:           dec("1902"),
		OpeningDate:    time.Now().UTC(),
		RequiredMargin: &margin,
	})
	require.NoError(t, err)

	assert.True(t, res.CashBalance.Equal(dec("9980.975")), "cash' got %s", res.CashBalance)
	assert.True(t, res.MetalWeight.Equal(dec("0.01")), "metal' got %s", res.MetalWeight)
	assert.Equal(t, types.OrderStatusProcessing, res.Order.OrderStatus)
	assert.Len(t, res.LedgerEntries, 4, "spec §8: four ledger rows per leg")
	assert.Len(t, fx.ledger.entries, 4)
	assert.True(t, fx.beginner.last.committed)
	assert.False(t, fx.beginner.last.rolledback)

	for _, e := range res.LedgerEntries {
		assert.Equal(t, res.Order.OrderNo, e.ReferenceNumber)
	}
}

// TestOpenCloseTrade_SeedScenario2 continues scenario 1 into scenario 2:
// closing the BUY at bid=1904/ask=1906 (closing a BUY crosses the bid side,
// so clientClosingPrice = 1904 - 0.5 = 1903.5) yields clientProfit =
// (1903.5 - 1902.5) * 0.01 = 0.01, settled back onto the account alongside
// the released margin.
func TestOpenCloseTrade_SeedScenario2(t *testing.T) {
	acc := model.Account{
		ID: "acct-1", AdminOwner: "admin-1",
		CashBalance: dec("10000.00"), MetalWeight: dec("0.00"),
		AskSpread: dec("0.5"), BidSpread: dec("0.5"),
	}
	fx := newFixture(acc, &fakeBridger{placeResult: TradeResult{Ticket: 555}}, true)

	margin := dec("19.025")
	opened, err := fx.engine.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID:      "acct-1",
		Symbol:         "GOLD",
		Type:           types.OrderSideBuy,
		Volume:         dec("0.01"),
		Spot:           dec("1902"),
		OpeningDate:    time.Now().UTC(),
		RequiredMargin: &margin,
	})
	require.NoError(t, err)

	closePrice := dec("1904")
	closed, err := fx.engine.CloseTrade(context.Background(), "admin-1", opened.Order.ID, CloseUpdate{
		OrderStatus:  types.OrderStatusClosed,
		ClosingPrice: &closePrice,
	})
	require.NoError(t, err)

	assert.True(t, closed.ClientProfit.Equal(dec("0.01")), "clientProfit got %s", closed.ClientProfit)
	assert.True(t, closed.CashBalance.Equal(dec("10000.01")), "cash' got %s", closed.CashBalance)
	assert.True(t, closed.MetalWeight.Equal(dec("0.00")), "metal' got %s", closed.MetalWeight)
	assert.Equal(t, types.OrderStatusClosed, closed.Order.OrderStatus)
	assert.Equal(t, types.LPPositionStatusClosed, closed.LPPosition.Status)
	assert.Len(t, closed.LedgerEntries, 4)
}

// TestCloseTrade_CancelledReversesOpen covers the PROCESSING -> CANCELLED
// transition (spec §4.6 state machine, §4.7 reversal rule): the margin
// reserved at open is returned and the metal delta is undone, with no
// client/LP profit recorded.
func TestCloseTrade_CancelledReversesOpen(t *testing.T) {
	acc := model.Account{
		ID: "acct-1", AdminOwner: "admin-1",
		CashBalance: dec("10000.00"), MetalWeight: dec("0.00"),
		AskSpread: dec("0.5"), BidSpread: dec("0.5"),
	}
	fx := newFixture(acc, &fakeBridger{placeResult: TradeResult{Ticket: 555}}, true)

	margin := dec("19.025")
	opened, err := fx.engine.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID:      "acct-1",
		Symbol:         "GOLD",
		Type:           types.OrderSideBuy,
		Volume:         dec("0.01"),
		Spot:           dec("1902"),
		OpeningDate:    time.Now().UTC(),
		RequiredMargin: &margin,
	})
	require.NoError(t, err)
	require.True(t, fx.accounts.byID["acct-1"].CashBalance.Equal(dec("9980.975")))

	reversed, err := fx.engine.CloseTrade(context.Background(), "admin-1", opened.Order.ID, CloseUpdate{
		OrderStatus: types.OrderStatusCancelled,
	})
	require.NoError(t, err)

	assert.True(t, reversed.CashBalance.Equal(dec("10000.00")), "cash should be fully restored, got %s", reversed.CashBalance)
	assert.True(t, reversed.MetalWeight.Equal(dec("0.00")), "metal delta should be undone, got %s", reversed.MetalWeight)
	assert.Equal(t, types.OrderStatusCancelled, reversed.Order.OrderStatus)
	assert.Equal(t, types.LPPositionStatusClosed, reversed.LPPosition.Status)
	assert.True(t, reversed.ClientProfit.IsZero(), "no client profit on a reversal")
	assert.Len(t, reversed.LedgerEntries, 4)
}

// TestCloseTrade_RejectsAlreadyTerminal covers spec §8's boundary case:
// closing an already-CLOSED order is a Conflict.
func TestCloseTrade_RejectsAlreadyTerminal(t *testing.T) {
	acc := model.Account{ID: "acct-1", AdminOwner: "admin-1", CashBalance: dec("1000"), MetalWeight: dec("0")}
	fx := newFixture(acc, &fakeBridger{placeResult: TradeResult{Ticket: 1}}, true)

	margin := dec("10")
	opened, err := fx.engine.OpenTrade(context.Background(), "admin-1", "user-1", OpenTradeRequest{
		AccountID: "acct-1", Symbol: "GOLD", Type: types.OrderSideBuy,
		Volume: dec("0.01"), Spot: dec("1000"), OpeningDate: time.Now().UTC(), RequiredMargin: &margin,
	})
	require.NoError(t, err)

	closePrice := dec("1000")
	_, err = fx.engine.CloseTrade(context.Background(), "admin-1", opened.Order.ID, CloseUpdate{
		OrderStatus: types.OrderStatusClosed, ClosingPrice: &closePrice,
	})
	require.NoError(t, err)

	_, err = fx.engine.CloseTrade(context.Background(), "admin-1", opened.Order.ID, CloseUpdate{
		OrderStatus: types.OrderStatusClosed, ClosingPrice: &closePrice,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

// TestOpenTrade_CrossAdminAccountNotFound covers spec §8's Authorization
// scope invariant: an account owned by a different admin never loads.
func TestOpenTrade_CrossAdminAccountNotFound(t *testing.T) {
	acc := model.Account{ID: "acct-1", AdminOwner: "admin-1", CashBalance: dec("1000"), MetalWeight: dec("0")}
	fx := newFixture(acc, &fakeBridger{placeResult: TradeResult{Ticket: 1}}, true)

	_, err := fx.engine.OpenTrade(context.Background(), "admin-2", "user-1", OpenTradeRequest{
		AccountID: "acct-1", Symbol: "GOLD", Type: types.OrderSideBuy,
		Volume: dec("0.01"), Spot: dec("1000"), OpeningDate: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.True(t, fx.beginner.last.rolledback, "the opened tx should roll back on a failed account load")
}
