// Package ledger implements the append-only quadruple-entry journal (spec
// §3 Ledger Entry, §4.5). Every write happens inside the caller's
// transaction so the engine's nine writes per OpenTrade/CloseTrade commit or
// roll back as one unit (spec §5).
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ttb-broker/internal/dbtx"
	"ttb-broker/internal/idgen"
	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WriteOrderEntry appends the "ORDER" leg of an open or close (spec §4.6
// steps 8/8).
func (s *Store) WriteOrderEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.append(ctx, tx, "ORD-", e)
}

// WriteLPEntry appends the "LP_POSITION" leg.
func (s *Store) WriteLPEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.append(ctx, tx, "LP-", e)
}

// WriteTransactionEntry appends a "TRANSACTION" (TRX-CASH/TRX-GOLD) leg.
func (s *Store) WriteTransactionEntry(ctx context.Context, tx dbtx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	return s.append(ctx, tx, "TRX-", e)
}

func (s *Store) append(ctx context.Context, tx dbtx.Tx, prefix string, e model.LedgerEntry) (model.LedgerEntry, error) {
	if e.ReferenceNumber == "" {
		return model.LedgerEntry{}, errors.New("ledger: reference number required")
	}

	var prevHash string
	var lastSeq int64
	err := tx.QueryRow(ctx, `select hash, sequence from ledger_entries order by sequence desc limit 1`).Scan(&prevHash, &lastSeq)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.LedgerEntry{}, fmt.Errorf("ledger: read chain tip: %w", err)
	}

	e.Date = time.Now().UTC()
	e.Sequence = lastSeq + 1
	e.PrevHash = prevHash
	e.EntryID = idgen.WithPrefix(prefix)

	_, err = tx.Exec(ctx, `
		insert into ledger_entries
			(entry_id, entry_type, entry_nature, reference_number, amount, running_balance,
			 occurred_at, account_user, admin_id, description, notes, sequence, prev_hash)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.EntryID, string(e.EntryType), string(e.EntryNature), e.ReferenceNumber, e.Amount, e.RunningBalance,
		e.Date, e.User, e.AdminID, e.Description, e.Notes, e.Sequence, e.PrevHash,
	)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("ledger: insert entry: %w", err)
	}

	e.Hash = computeHash(e)
	if _, err := tx.Exec(ctx, `update ledger_entries set hash = $1 where entry_id = $2`, e.Hash, e.EntryID); err != nil {
		return model.LedgerEntry{}, fmt.Errorf("ledger: stamp hash: %w", err)
	}

	if e.OrderDetails != nil {
		if _, err := tx.Exec(ctx, `update ledger_entries set order_type=$1, order_volume=$2, order_symbol=$3 where entry_id=$4`,
			string(e.OrderDetails.OrderType), e.OrderDetails.Volume, e.OrderDetails.Symbol, e.EntryID); err != nil {
			return model.LedgerEntry{}, fmt.Errorf("ledger: stamp order details: %w", err)
		}
	}
	if e.LPDetails != nil {
		if _, err := tx.Exec(ctx, `update ledger_entries set lp_type=$1, lp_volume=$2, lp_symbol=$3 where entry_id=$4`,
			string(e.LPDetails.PositionType), e.LPDetails.Volume, e.LPDetails.Symbol, e.EntryID); err != nil {
			return model.LedgerEntry{}, fmt.Errorf("ledger: stamp lp details: %w", err)
		}
	}
	if e.TxDetails != nil {
		if _, err := tx.Exec(ctx, `update ledger_entries set tx_asset=$1, tx_previous_balance=$2 where entry_id=$3`,
			string(e.TxDetails.Asset), e.TxDetails.PreviousBalance, e.EntryID); err != nil {
			return model.LedgerEntry{}, fmt.Errorf("ledger: stamp tx details: %w", err)
		}
	}

	return e, nil
}

// computeHash chains each entry to the one before it so the journal is
// tamper-evident without changing the append-only/conservation invariants.
func computeHash(e model.LedgerEntry) string {
	buf := e.EntryID + "|" + string(e.EntryType) + "|" + string(e.EntryNature) + "|" +
		e.ReferenceNumber + "|" + e.Amount.String() + "|" + e.RunningBalance.String() + "|" +
		strconv.FormatInt(e.Sequence, 10) + "|" + e.PrevHash
	sum := sha256.Sum256([]byte(buf))
	return hex.EncodeToString(sum[:])
}

// BalanceSum returns the sum of signed ledger amounts for (user, asset) — the
// left side of the ledger-conservation invariant (spec §8).
func (s *Store) BalanceSum(ctx context.Context, user string, asset types.Asset) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(case when entry_nature = 'CREDIT' then amount else -amount end), 0)
		from ledger_entries
		where account_user = $1 and tx_asset = $2`, user, string(asset)).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: sum balance: %w", err)
	}
	return sum, nil
}

// ListByAdminAndUser returns an admin-scoped statement, optionally filtered
// to one user, newest first, paginated (spec §4.5 queries, §8 "Authorization
// scope": every admin read filters by adminId).
func (s *Store) ListByAdminAndUser(ctx context.Context, adminID, user string, limit, offset int) ([]model.LedgerEntry, error) {
	query := `
		select entry_id, entry_type, entry_nature, reference_number, amount, running_balance,
		       occurred_at, account_user, admin_id, description, notes, hash, prev_hash, sequence
		from ledger_entries
		where admin_id = $1`
	args := []interface{}{adminID}
	if user != "" {
		query += ` and account_user = $2`
		args = append(args, user)
	}
	query += fmt.Sprintf(` order by occurred_at desc, sequence desc limit $%d offset $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.EntryID, &e.EntryType, &e.EntryNature, &e.ReferenceNumber, &e.Amount, &e.RunningBalance,
			&e.Date, &e.User, &e.AdminID, &e.Description, &e.Notes, &e.Hash, &e.PrevHash, &e.Sequence); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
