// Package transactions implements deposits and withdrawals (spec §4.7).
// Every mutation runs inside its own serializable transaction, mirroring
// the teacher's ledger.Handler.Deposit/Withdraw shape: load the account row
// for update, check sufficiency, persist the new balance, commit.
package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/accounts"
	"ttb-broker/internal/apperr"
	"ttb-broker/internal/idgen"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

type Store struct {
	pool     *pgxpool.Pool
	accounts *accounts.Store
}

func NewStore(pool *pgxpool.Pool, acc *accounts.Store) *Store {
	return &Store{pool: pool, accounts: acc}
}

// CreateTransaction implements spec §4.7 CreateTransaction.
func (s *Store) CreateTransaction(ctx context.Context, adminID, accountID string, kind types.TransactionType, asset types.Asset, amount decimal.Decimal) (model.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.Transaction{}, apperr.Validation("amount must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transactions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := s.accounts.GetByIDTx(ctx, tx, adminID, accountID)
	if err != nil {
		return model.Transaction{}, err
	}

	previous := balanceFor(account, asset)
	var newBalance decimal.Decimal
	switch kind {
	case types.TransactionTypeDeposit:
		newBalance = previous.Add(amount)
	case types.TransactionTypeWithdrawal:
		if previous.LessThan(amount) {
			return model.Transaction{}, apperr.InsufficientFunds("insufficient balance for withdrawal")
		}
		newBalance = previous.Sub(amount)
	default:
		return model.Transaction{}, apperr.Validation("unknown transaction type")
	}

	cash, metal := account.CashBalance, account.MetalWeight
	if asset == types.AssetCash {
		cash = newBalance
	} else {
		metal = newBalance
	}
	if err := s.accounts.UpdateBalancesTx(ctx, tx, account.ID, cash, metal); err != nil {
		return model.Transaction{}, err
	}

	now := time.Now().UTC()
	txn := model.Transaction{
		TransactionID:   idgen.WithPrefix("TXN-"),
		Type:            kind,
		Asset:           asset,
		Amount:          amount,
		PreviousBalance: previous,
		NewBalance:      newBalance,
		User:            account.ID,
		AdminID:         adminID,
		Status:          types.TransactionStatusCompleted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insertTx(ctx, tx, txn); err != nil {
		return model.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Transaction{}, fmt.Errorf("transactions: commit: %w", err)
	}
	return txn, nil
}

// UpdateTransactionStatus implements spec §4.7 UpdateTransactionStatus.
// A COMPLETED → CANCELLED|FAILED transition reverses the original balance
// delta under the same transaction.
func (s *Store) UpdateTransactionStatus(ctx context.Context, accountID, transactionID string, newStatus types.TransactionStatus) (model.Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transactions: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	txn, err := s.getForUpdateTx(ctx, tx, transactionID)
	if err != nil {
		return model.Transaction{}, err
	}

	reversing := txn.Status == types.TransactionStatusCompleted &&
		(newStatus == types.TransactionStatusCancelled || newStatus == types.TransactionStatusFailed)

	if reversing {
		account, err := s.accounts.GetByIDTx(ctx, tx, txn.AdminID, accountID)
		if err != nil {
			return model.Transaction{}, err
		}
		current := balanceFor(account, txn.Asset)
		var reversed decimal.Decimal
		switch txn.Type {
		case types.TransactionTypeDeposit:
			reversed = current.Sub(txn.Amount)
		case types.TransactionTypeWithdrawal:
			reversed = current.Add(txn.Amount)
		default:
			return model.Transaction{}, apperr.Internal("unknown transaction type during reversal", nil)
		}

		cash, metal := account.CashBalance, account.MetalWeight
		if txn.Asset == types.AssetCash {
			cash = reversed
		} else {
			metal = reversed
		}
		if err := s.accounts.UpdateBalancesTx(ctx, tx, account.ID, cash, metal); err != nil {
			return model.Transaction{}, err
		}
	}

	txn.Status = newStatus
	txn.UpdatedAt = time.Now().UTC()
	if err := s.updateStatusTx(ctx, tx, txn); err != nil {
		return model.Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Transaction{}, fmt.Errorf("transactions: commit status update: %w", err)
	}
	return txn, nil
}

func balanceFor(a model.Account, asset types.Asset) decimal.Decimal {
	if asset == types.AssetCash {
		return a.CashBalance
	}
	return a.MetalWeight
}

func (s *Store) insertTx(ctx context.Context, tx pgx.Tx, t model.Transaction) error {
	_, err := tx.Exec(ctx, `
		insert into transactions
			(transaction_id, type, asset, amount, previous_balance, new_balance, account_user, admin_id, status, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.TransactionID, string(t.Type), string(t.Asset), t.Amount, t.PreviousBalance, t.NewBalance,
		t.User, t.AdminID, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("transactions: insert: %w", err)
	}
	return nil
}

func (s *Store) getForUpdateTx(ctx context.Context, tx pgx.Tx, transactionID string) (model.Transaction, error) {
	row := tx.QueryRow(ctx, `
		select transaction_id, type, asset, amount, previous_balance, new_balance, account_user, admin_id, status, created_at, updated_at
		from transactions where transaction_id = $1 for update`, transactionID)
	return scanTx(row)
}

func scanTx(row pgx.Row) (model.Transaction, error) {
	var t model.Transaction
	var kind, asset, status string
	err := row.Scan(&t.TransactionID, &kind, &asset, &t.Amount, &t.PreviousBalance, &t.NewBalance,
		&t.User, &t.AdminID, &status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Transaction{}, apperr.NotFound("transaction not found")
		}
		return model.Transaction{}, fmt.Errorf("transactions: scan: %w", err)
	}
	t.Type = types.TransactionType(kind)
	t.Asset = types.Asset(asset)
	t.Status = types.TransactionStatus(status)
	return t, nil
}

func (s *Store) updateStatusTx(ctx context.Context, tx pgx.Tx, t model.Transaction) error {
	_, err := tx.Exec(ctx, `update transactions set status=$1, updated_at=$2 where transaction_id=$3`,
		string(t.Status), t.UpdatedAt, t.TransactionID)
	if err != nil {
		return fmt.Errorf("transactions: update status: %w", err)
	}
	return nil
}

// ListByAdminAndUser returns the account's deposit/withdrawal history, newest
// first, scoped to adminID: a cross-admin account id returns no rows rather
// than another admin's ledger (spec §8 Authorization scope).
func (s *Store) ListByAdminAndUser(ctx context.Context, adminID, accountID string, limit, offset int) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select transaction_id, type, asset, amount, previous_balance, new_balance, account_user, admin_id, status, created_at, updated_at
		from transactions where admin_id = $1 and account_user = $2
		order by created_at desc
		limit $3 offset $4`, adminID, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transactions: list: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
