// Package health implements the liveness/readiness endpoint (spec §6
// SUPPLEMENT "GET /healthz"), grounded on the teacher's internal/health
// handler (uptime + pool-ping response shape, trimmed to this module's
// two dependencies: the database and the upstream bridge).
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ttb-broker/internal/httputil"
)

type Handler struct {
	pool      *pgxpool.Pool
	bridge    interface{ Connected() bool }
	startedAt time.Time
}

func NewHandler(pool *pgxpool.Pool, bridge interface{ Connected() bool }) *Handler {
	return &Handler{pool: pool, bridge: bridge, startedAt: time.Now().UTC()}
}

type databaseStats struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

type response struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	UptimeSec int64         `json:"uptime_sec"`
	Database  databaseStats `json:"database"`
	BridgeUp  bool          `json:"bridge_connected"`
}

// Get implements "GET /healthz": 200 when the database is reachable, 503
// otherwise. Bridge connectivity is reported but does not itself fail the
// check.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	db := h.pingDB(r.Context())

	status := "ok"
	httpStatus := http.StatusOK
	if !db.Reachable {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	bridgeUp := false
	if h.bridge != nil {
		bridgeUp = h.bridge.Connected()
	}

	httputil.WriteJSON(w, httpStatus, response{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(now.Sub(h.startedAt).Seconds()),
		Database:  db,
		BridgeUp:  bridgeUp,
	})
}

func (h *Handler) pingDB(ctx context.Context) databaseStats {
	if h.pool == nil {
		return databaseStats{Error: "pool is not configured"}
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err := h.pool.Ping(ctx)
	ping := time.Since(start).Milliseconds()
	if err != nil {
		return databaseStats{PingMs: ping, Error: err.Error()}
	}
	return databaseStats{Reachable: true, PingMs: ping}
}
