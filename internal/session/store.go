// Package session implements the per-phone conversational state machine
// that drives order placement over the messaging webhook (spec §3 Session,
// §4.8). The Store persists one row per phone number; the Dispatcher holds
// the FSM and command parser.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ttb-broker/internal/model"
	"ttb-broker/internal/types"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get loads the session for phone, or a fresh START session if none exists
// yet — a new phone number always has an implicit session (spec §4.8).
func (s *Store) Get(ctx context.Context, phone string) (model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		select phone, account_id, state, pending_order, last_activity, user_name
		from sessions where phone = $1`, phone)

	var sess model.Session
	var state string
	var pendingRaw []byte
	err := row.Scan(&sess.Phone, &sess.AccountID, &state, &pendingRaw, &sess.LastActivity, &sess.UserName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{
				Phone:        phone,
				State:        types.SessionStateStart,
				LastActivity: time.Now().UTC(),
			}, nil
		}
		return model.Session{}, fmt.Errorf("session: get: %w", err)
	}
	sess.State = types.SessionState(state)
	if len(pendingRaw) > 0 {
		var p model.PendingOrder
		if err := json.Unmarshal(pendingRaw, &p); err == nil {
			sess.PendingOrder = &p
		}
	}
	return sess, nil
}

// Save upserts the session row (spec §5 Shared state: "Session table — read
// written by the dispatcher for that phone only; no cross-phone contention").
func (s *Store) Save(ctx context.Context, sess model.Session) error {
	var pendingRaw []byte
	if sess.PendingOrder != nil {
		var err error
		pendingRaw, err = json.Marshal(sess.PendingOrder)
		if err != nil {
			return fmt.Errorf("session: marshal pending order: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		insert into sessions (phone, account_id, state, pending_order, last_activity, user_name)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (phone) do update set
			account_id=excluded.account_id, state=excluded.state, pending_order=excluded.pending_order,
			last_activity=excluded.last_activity, user_name=excluded.user_name`,
		sess.Phone, sess.AccountID, string(sess.State), pendingRaw, sess.LastActivity, sess.UserName)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}
