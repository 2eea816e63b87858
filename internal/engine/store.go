package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/apperr"
	"ttb-broker/internal/dbtx"
	"ttb-broker/internal/idgen"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

// OrderStore persists Order and LPPosition rows (spec §3 Order, LPPosition).
// It is the engine's own store, separate from internal/accounts, since
// orders and positions are written only as part of an OpenTrade/CloseTrade
// transaction.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateTx inserts a new Order, assigning its orderNo (spec §3 invariant:
// orderNo unique, prefixed ORD-).
func (s *OrderStore) CreateTx(ctx context.Context, tx dbtx.Tx, o model.Order) (model.Order, error) {
	o.OrderNo = idgen.WithPrefix("ORD-")
	err := tx.QueryRow(ctx, `
		insert into orders
			(order_no, account_id, type, volume, symbol, price, opening_price, required_margin,
			 opening_date, order_status, profit, account_user, admin_id, lp_position_id, ticket, comment)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		returning id`,
		o.OrderNo, o.AccountID, string(o.Type), o.Volume, o.Symbol, o.Price, o.OpeningPrice, o.RequiredMargin,
		o.OpeningDate, string(o.OrderStatus), o.Profit, o.User, o.AdminID, o.LPPositionID, o.Ticket, o.Comment,
	).Scan(&o.ID)
	if err != nil {
		return model.Order{}, fmt.Errorf("engine: create order: %w", err)
	}
	return o, nil
}

// GetForUpdateTx loads an order scoped by (id, adminId), row-locked for the
// rest of the transaction (spec §8 Authorization scope: cross-admin access
// returns NotFound).
func (s *OrderStore) GetForUpdateTx(ctx context.Context, tx dbtx.Tx, adminID, id string) (model.Order, error) {
	row := tx.QueryRow(ctx, orderSelect+` where o.id = $1 and o.admin_id = $2 for update`, id, adminID)
	return scanOrder(row)
}

// GetByOrderNoTx loads an order by its orderNo, used to resolve the
// companion LPPosition.
func (s *OrderStore) GetByOrderNoTx(ctx context.Context, tx dbtx.Tx, orderNo string) (model.Order, error) {
	row := tx.QueryRow(ctx, orderSelect+` where o.order_no = $1`, orderNo)
	return scanOrder(row)
}

const orderSelect = `
	select o.id, o.order_no, o.account_id, o.type, o.volume, o.symbol, o.price, o.opening_price,
	       o.closing_price, o.required_margin, o.opening_date, o.closing_date, o.order_status, o.profit,
	       o.account_user, o.admin_id, o.lp_position_id, o.ticket, o.comment, o.notification_error
	from orders o`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	var status string
	err := row.Scan(&o.ID, &o.OrderNo, &o.AccountID, &o.Type, &o.Volume, &o.Symbol, &o.Price, &o.OpeningPrice,
		&o.ClosingPrice, &o.RequiredMargin, &o.OpeningDate, &o.ClosingDate, &status, &o.Profit,
		&o.User, &o.AdminID, &o.LPPositionID, &o.Ticket, &o.Comment, &o.NotificationErr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, apperr.NotFound("order not found")
		}
		return model.Order{}, fmt.Errorf("engine: scan order: %w", err)
	}
	o.OrderStatus = types.OrderStatus(status)
	return o, nil
}

// UpdateTx persists the whitelisted fields of a CloseTrade update (spec
// §4.6 CloseTrade step 6).
func (s *OrderStore) UpdateTx(ctx context.Context, tx dbtx.Tx, o model.Order) error {
	_, err := tx.Exec(ctx, `
		update orders set order_status=$1, closing_price=$2, closing_date=$3, profit=$4, comment=$5, price=$6
		where id=$7`,
		string(o.OrderStatus), o.ClosingPrice, o.ClosingDate, o.Profit, o.Comment, o.Price, o.ID)
	if err != nil {
		return fmt.Errorf("engine: update order: %w", err)
	}
	return nil
}

// SetLPPositionIDTx stamps the order's back-reference to its mirrored
// LPPosition once it has been created (spec §3 Order invariant: lpPositionId
// set iff venue placement succeeded).
func (s *OrderStore) SetLPPositionIDTx(ctx context.Context, tx dbtx.Tx, orderID, lpPositionID string) error {
	_, err := tx.Exec(ctx, `update orders set lp_position_id=$1 where id=$2`, lpPositionID, orderID)
	if err != nil {
		return fmt.Errorf("engine: set lp position id: %w", err)
	}
	return nil
}

// ListProcessingByAccount returns an account's open (PROCESSING) orders,
// newest first, for the session's cached openOrders view (spec §3 Session).
func (s *OrderStore) ListProcessingByAccount(ctx context.Context, accountID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, orderSelect+` where o.account_id = $1 and o.order_status = $2 order by o.opening_date desc`,
		accountID, string(types.OrderStatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("engine: list orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListByAdmin returns every order scoped to adminID, newest first, for the
// admin REST list endpoint (spec §6 "GET /api/admin/order/:adminId",
// §8 "Authorization scope").
func (s *OrderStore) ListByAdmin(ctx context.Context, adminID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, orderSelect+` where o.admin_id = $1 order by o.opening_date desc`, adminID)
	if err != nil {
		return nil, fmt.Errorf("engine: list orders by admin: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ExistingProcessingVolume sums volume across an account's PROCESSING
// orders, implementing internal/balance.ExposureSource (spec §4.4).
func (s *OrderStore) ExistingProcessingVolume(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(volume), 0) from orders where account_id = $1 and order_status = $2`,
		accountID, string(types.OrderStatusProcessing)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine: existing volume: %w", err)
	}
	return sum, nil
}

// CreateLPTx inserts the mirrored upstream position (spec §3 LPPosition).
func (s *OrderStore) CreateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) (model.LPPosition, error) {
	err := tx.QueryRow(ctx, `
		insert into lp_positions
			(position_id, type, volume, symbol, entry_price, current_price, open_date, status, profit, client_order_id, admin_id)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		returning id`,
		lp.PositionID, string(lp.Type), lp.Volume, lp.Symbol, lp.EntryPrice, lp.CurrentPrice,
		lp.OpenDate, string(lp.Status), lp.Profit, lp.ClientOrderID, lp.AdminID,
	).Scan(&lp.ID)
	if err != nil {
		return model.LPPosition{}, fmt.Errorf("engine: create lp position: %w", err)
	}
	return lp, nil
}

// GetLPByPositionIDTx loads the LPPosition row-locked for update.
func (s *OrderStore) GetLPByPositionIDTx(ctx context.Context, tx dbtx.Tx, positionID string) (model.LPPosition, error) {
	row := tx.QueryRow(ctx, lpSelect+` where l.position_id = $1 for update`, positionID)
	return scanLP(row)
}

const lpSelect = `
	select l.id, l.position_id, l.type, l.volume, l.symbol, l.entry_price, l.current_price,
	       l.closing_price, l.open_date, l.close_date, l.status, l.profit, l.client_order_id, l.admin_id
	from lp_positions l`

func scanLP(row pgx.Row) (model.LPPosition, error) {
	var lp model.LPPosition
	var status string
	err := row.Scan(&lp.ID, &lp.PositionID, &lp.Type, &lp.Volume, &lp.Symbol, &lp.EntryPrice, &lp.CurrentPrice,
		&lp.ClosingPrice, &lp.OpenDate, &lp.CloseDate, &status, &lp.Profit, &lp.ClientOrderID, &lp.AdminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LPPosition{}, apperr.NotFound("lp position not found")
		}
		return model.LPPosition{}, fmt.Errorf("engine: scan lp position: %w", err)
	}
	lp.Status = types.LPPositionStatus(status)
	return lp, nil
}

// UpdateLPTx persists LPPosition mutations on close (spec §4.6 step 7).
func (s *OrderStore) UpdateLPTx(ctx context.Context, tx dbtx.Tx, lp model.LPPosition) error {
	_, err := tx.Exec(ctx, `
		update lp_positions set current_price=$1, closing_price=$2, close_date=$3, status=$4, profit=$5
		where id=$6`,
		lp.CurrentPrice, lp.ClosingPrice, lp.CloseDate, string(lp.Status), lp.Profit, lp.ID)
	if err != nil {
		return fmt.Errorf("engine: update lp position: %w", err)
	}
	return nil
}
