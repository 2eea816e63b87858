package session

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ttb-broker/internal/accounts"
	"ttb-broker/internal/engine"
	"ttb-broker/internal/marketdata"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

// Dispatcher runs one inbound message through the command parser and the
// session state machine (spec §4.8). It holds no per-phone state itself —
// everything lives in the Session row the Store loads and saves around
// each call.
type Dispatcher struct {
	store    *Store
	accounts *accounts.Store
	orders   *engine.OrderStore
	market   *marketdata.Service
	eng      *engine.Engine
	adminID  string
	symbol   string
}

func NewDispatcher(store *Store, acc *accounts.Store, ord *engine.OrderStore, market *marketdata.Service, eng *engine.Engine, adminID, symbol string) *Dispatcher {
	return &Dispatcher{store: store, accounts: acc, orders: ord, market: market, eng: eng, adminID: adminID, symbol: symbol}
}

// HandleMessage loads the phone's session, dispatches the message, persists
// the resulting state, and returns the reply text.
func (d *Dispatcher) HandleMessage(ctx context.Context, phone, accountID, userName, body string) (string, error) {
	sess, err := d.store.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	if sess.AccountID == "" {
		sess.AccountID = accountID
	}
	if userName != "" {
		sess.UserName = userName
	}
	sess.LastActivity = time.Now().UTC()

	reply, sess := d.dispatch(ctx, sess, body)

	if err := d.store.Save(ctx, sess); err != nil {
		return "", err
	}
	return reply, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, sess model.Session, body string) (string, model.Session) {
	cmd := Parse(body)

	switch cmd.Kind {
	case CommandMenu:
		sess.State = types.SessionStateMainMenu
		return d.mainMenuText(), sess
	case CommandReset:
		sess.State = types.SessionStateMainMenu
		sess.PendingOrder = nil
		return "Session reset.\n" + d.mainMenuText(), sess
	case CommandGreeting:
		sess.State = types.SessionStateMainMenu
		return fmt.Sprintf("Welcome%s.\n%s", greetingSuffix(sess.UserName), d.mainMenuText()), sess
	case CommandCancel:
		sess.State = types.SessionStateMainMenu
		sess.PendingOrder = nil
		return "Order cancelled.\n" + d.mainMenuText(), sess
	case CommandBalance:
		return d.balanceText(ctx, sess), sess
	case CommandPrices:
		return d.priceText(ctx), sess
	case CommandOrdersList:
		return d.ordersText(ctx, sess), sess
	case CommandRefresh:
		return d.priceText(ctx), sess
	case CommandOrder:
		return d.startOrder(ctx, sess, cmd)
	case CommandClose:
		return d.closeOrder(ctx, sess, cmd)
	}

	switch sess.State {
	case types.SessionStateConfirmOrder:
		return d.confirmOrder(ctx, sess, cmd)
	default:
		sess.State = types.SessionStateMainMenu
		return "Sorry, I didn't understand that.\n" + d.mainMenuText(), sess
	}
}

func greetingSuffix(name string) string {
	if name == "" {
		return ""
	}
	return ", " + name
}

func (d *Dispatcher) mainMenuText() string {
	return "Reply with BUY <n>, SELL <n>, CLOSE <id>, 4 for orders, 5 for balance, or PRICE."
}

func (d *Dispatcher) balanceText(ctx context.Context, sess model.Session) string {
	acc, err := d.accounts.GetByID(ctx, d.adminID, sess.AccountID)
	if err != nil {
		return "Could not load balance."
	}
	return fmt.Sprintf("Cash: %s AED\nMetal: %s g", acc.CashBalance.StringFixed(2), acc.MetalWeight.StringFixed(4))
}

func (d *Dispatcher) priceText(ctx context.Context) string {
	q, err := d.market.GetMarketData(ctx, d.symbol, "")
	if err != nil {
		return "Price unavailable."
	}
	return fmt.Sprintf("%s — bid %.2f / ask %.2f (%s)", d.symbol, q.Bid, q.Ask, freshnessLabel(q.LastUpdate))
}

// freshnessLabel implements spec §4.8's Live/Delayed/Stale age bands.
func freshnessLabel(lastUpdate time.Time) string {
	age := time.Since(lastUpdate)
	switch {
	case age < 60*time.Second:
		return "Live"
	case age < 300*time.Second:
		return "Delayed"
	default:
		return "Stale"
	}
}

func (d *Dispatcher) ordersText(ctx context.Context, sess model.Session) string {
	orders, err := d.orders.ListProcessingByAccount(ctx, sess.AccountID)
	if err != nil || len(orders) == 0 {
		return "No open orders."
	}
	text := "Open orders:\n"
	for i, o := range orders {
		text += fmt.Sprintf("%d. %s %s %s g @ %s\n", i+1, o.OrderNo, o.Type, o.Volume.String(), o.Price.StringFixed(2))
	}
	return text
}

func (d *Dispatcher) startOrder(ctx context.Context, sess model.Session, cmd Command) (string, model.Session) {
	volume := decimal.NewFromFloat(cmd.Volume)
	if volume.LessThanOrEqual(decimal.Zero) {
		return "Volume must be positive.\n" + d.mainMenuText(), sess
	}

	q, err := d.market.GetMarketData(ctx, d.symbol, sess.Phone)
	if err != nil {
		return "Price unavailable, try again shortly.", sess
	}
	spot := q.Bid
	if cmd.OrderSide == types.OrderSideBuy {
		spot = q.Ask
	}
	price := decimal.NewFromFloat(spot)
	total := price.Mul(volume)

	sess.State = types.SessionStateConfirmOrder
	sess.PendingOrder = &model.PendingOrder{
		Type:      cmd.OrderSide,
		Volume:    volume,
		Price:     price,
		TotalCost: total,
	}
	return fmt.Sprintf("Confirm %s %s g at %s (total %s)? Reply Y/N.",
		cmd.OrderSide, volume.String(), price.StringFixed(2), total.StringFixed(2)), sess
}

func (d *Dispatcher) confirmOrder(ctx context.Context, sess model.Session, cmd Command) (string, model.Session) {
	if sess.PendingOrder == nil {
		sess.State = types.SessionStateMainMenu
		return "Nothing to confirm.\n" + d.mainMenuText(), sess
	}

	switch cmd.Kind {
	case CommandConfirmYes:
		pending := sess.PendingOrder
		q, err := d.market.GetMarketData(ctx, d.symbol, sess.Phone)
		if err != nil {
			return "Price unavailable, order not placed.", sess
		}
		spot := q.Bid
		if pending.Type == types.OrderSideBuy {
			spot = q.Ask
		}

		_, err = d.eng.OpenTrade(ctx, d.adminID, sess.AccountID, engine.OpenTradeRequest{
			AccountID:   sess.AccountID,
			Symbol:      d.symbol,
			Type:        pending.Type,
			Volume:      pending.Volume,
			Spot:        decimal.NewFromFloat(spot),
			OpeningDate: time.Now().UTC(),
		})
		sess.PendingOrder = nil
		sess.State = types.SessionStateMainMenu
		if err != nil {
			return fmt.Sprintf("Order failed: %v", err), sess
		}
		return "Order placed.\n" + d.mainMenuText(), sess
	case CommandConfirmNo:
		sess.PendingOrder = nil
		sess.State = types.SessionStateMainMenu
		return "Order cancelled.\n" + d.mainMenuText(), sess
	default:
		return "Reply Y to confirm or N to cancel.", sess
	}
}

func (d *Dispatcher) closeOrder(ctx context.Context, sess model.Session, cmd Command) (string, model.Session) {
	orders, err := d.orders.ListProcessingByAccount(ctx, sess.AccountID)
	if err != nil {
		return "Could not load open orders.\n" + d.mainMenuText(), sess
	}

	var order *model.Order
	switch {
	case cmd.CloseIndex > 0:
		if cmd.CloseIndex > len(orders) {
			return "No such order.\n" + d.mainMenuText(), sess
		}
		order = &orders[cmd.CloseIndex-1]
	case cmd.CloseID != "":
		for i := range orders {
			if orders[i].ID == cmd.CloseID || orders[i].OrderNo == cmd.CloseID {
				order = &orders[i]
				break
			}
		}
	}
	if order == nil {
		return "Specify CLOSE <index> or CLOSE <orderId>.", sess
	}

	q, err := d.market.GetMarketData(ctx, d.symbol, sess.Phone)
	if err != nil {
		return "Price unavailable, order not closed.", sess
	}
	// Closing a BUY crosses the bid side, closing a SELL crosses the ask
	// side (mirrors pricing.QuoteForClose's opposite-side rule).
	spot := q.Ask
	if order.Type == types.OrderSideBuy {
		spot = q.Bid
	}
	closingPrice := decimal.NewFromFloat(spot)

	_, err = d.eng.CloseTrade(ctx, d.adminID, order.ID, engine.CloseUpdate{
		OrderStatus:  types.OrderStatusClosed,
		ClosingPrice: &closingPrice,
	})
	if err != nil {
		return fmt.Sprintf("Close failed: %v", err), sess
	}
	return "Order closed.\n" + d.mainMenuText(), sess
}
