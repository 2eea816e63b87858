// Package accounts implements CRUD and lookup over client Account records
// (spec §3 Account). Balance mutation itself is owned by internal/engine,
// which writes Accounts only inside its own transaction; this package
// exposes the tx-scoped helpers the engine needs alongside profile
// create/read/update for the admin REST surface.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/apperr"
	"ttb-broker/internal/dbtx"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new Account, enforcing refMid global uniqueness and
// (accode, adminOwner) uniqueness (spec §3 invariants).
func (s *Store) Create(ctx context.Context, a model.Account) (model.Account, error) {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	err := s.pool.QueryRow(ctx, `
		insert into accounts
			(ref_mid, account_head, accode, account_type, cash_balance, metal_weight, margin,
			 ask_spread, bid_spread, admin_owner, phone_number, email, status, kyc_status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		returning id`,
		a.RefMID, a.AccountHead, a.Accode, a.AccountType, a.CashBalance, a.MetalWeight, a.Margin,
		a.AskSpread, a.BidSpread, a.AdminOwner, a.PhoneNumber, a.Email, string(a.Status), string(a.KYCStatus), now, now,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Account{}, apperr.Conflict("account refMid or accode already exists")
		}
		return model.Account{}, fmt.Errorf("accounts: create: %w", err)
	}
	return a, nil
}

// GetByID loads an Account scoped to the owning admin, returning NotFound on
// any cross-admin access attempt (spec §8 Authorization scope).
func (s *Store) GetByID(ctx context.Context, adminOwner, id string) (model.Account, error) {
	return s.scan(s.pool.QueryRow(ctx, baseSelect+` where a.id = $1 and a.admin_owner = $2`, id, adminOwner))
}

// GetByIDTx is GetByID run inside an existing transaction, used by the
// engine so account loads participate in the same atomic unit as the rest
// of OpenTrade/CloseTrade (spec §4.6). Scoped to adminOwner like GetByID:
// a cross-admin id returns NotFound (spec §8 Authorization scope).
func (s *Store) GetByIDTx(ctx context.Context, tx dbtx.Tx, adminOwner, id string) (model.Account, error) {
	return s.scan(tx.QueryRow(ctx, baseSelect+` where a.id = $1 and a.admin_owner = $2 for update`, id, adminOwner))
}

// GetByPhone resolves an Account by normalized phone number, for the
// webhook dispatcher's authorization step (spec §4.9).
func (s *Store) GetByPhone(ctx context.Context, phone string) (model.Account, error) {
	return s.scan(s.pool.QueryRow(ctx, baseSelect+` where a.phone_number = $1`, phone))
}

const baseSelect = `
	select a.id, a.ref_mid, a.account_head, a.accode, a.account_type, a.cash_balance, a.metal_weight,
	       a.margin, a.ask_spread, a.bid_spread, a.admin_owner, a.phone_number, a.email,
	       a.status, a.kyc_status, a.created_at, a.updated_at
	from accounts a`

func (s *Store) scan(row pgx.Row) (model.Account, error) {
	var a model.Account
	var status, kyc string
	err := row.Scan(&a.ID, &a.RefMID, &a.AccountHead, &a.Accode, &a.AccountType, &a.CashBalance, &a.MetalWeight,
		&a.Margin, &a.AskSpread, &a.BidSpread, &a.AdminOwner, &a.PhoneNumber, &a.Email,
		&status, &kyc, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, apperr.NotFound("account not found")
		}
		return model.Account{}, fmt.Errorf("accounts: scan: %w", err)
	}
	a.Status = types.AccountStatus(status)
	a.KYCStatus = types.KYCStatus(kyc)
	return a, nil
}

// UpdateBalancesTx persists the post-mutation cash/metal balances for an
// account, used exclusively by the engine inside its own transaction
// (spec §4.6 step 7, §4.7).
func (s *Store) UpdateBalancesTx(ctx context.Context, tx dbtx.Tx, accountID string, cash, metal decimal.Decimal) error {
	ct, err := tx.Exec(ctx, `update accounts set cash_balance = $1, metal_weight = $2, updated_at = $3 where id = $4`,
		cash, metal, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("accounts: update balances: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

// UpdateProfile applies soft-updatable admin-editable fields (spec §3
// Account lifecycle).
func (s *Store) UpdateProfile(ctx context.Context, adminOwner, id string, status types.AccountStatus, kyc types.KYCStatus, askSpread, bidSpread decimal.Decimal) error {
	ct, err := s.pool.Exec(ctx, `
		update accounts set status=$1, kyc_status=$2, ask_spread=$3, bid_spread=$4, updated_at=$5
		where id=$6 and admin_owner=$7`,
		string(status), string(kyc), askSpread, bidSpread, time.Now().UTC(), id, adminOwner)
	if err != nil {
		return fmt.Errorf("accounts: update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
