// Package webhook implements the inbound messaging dispatcher (spec §4.9):
// always-ack-200, dedup by MessageSid, phone normalization/authorization,
// then handoff to the session state machine.
package webhook

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"ttb-broker/internal/accounts"
	"ttb-broker/internal/session"
)

const dedupWindow = 5 * time.Minute

// Sender delivers the dispatcher's reply text back through the messaging
// vendor. Kept narrow so tests can substitute a fake, same shape as
// internal/engine's Bridger boundary.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher is the webhook's entrypoint (spec §4.9 steps 1-6).
type Dispatcher struct {
	accounts   *accounts.Store
	sessions   *session.Dispatcher
	sender     Sender
	adminID    string

	mu       sync.Mutex
	seen     map[string]time.Time
}

func NewDispatcher(acc *accounts.Store, sess *session.Dispatcher, sender Sender, adminID string) *Dispatcher {
	return &Dispatcher{
		accounts: acc,
		sessions: sess,
		sender:   sender,
		adminID:  adminID,
		seen:     make(map[string]time.Time),
	}
}

// Inbound is the parsed form payload (spec §6 "POST /api/chat/whatsapp").
type Inbound struct {
	Body        string
	From        string
	MessageSid  string
	ProfileName string
}

// ServeHTTP implements the webhook endpoint: always returns 200 immediately
// (at-least-once upstream semantics) and processes asynchronously.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	in := Inbound{
		Body:        r.FormValue("Body"),
		From:        r.FormValue("From"),
		MessageSid:  r.FormValue("MessageSid"),
		ProfileName: r.FormValue("ProfileName"),
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))

	if in.From == "" || in.MessageSid == "" {
		return
	}

	go d.process(context.Background(), in)
}

func (d *Dispatcher) process(ctx context.Context, in Inbound) {
	if d.isDuplicate(in.MessageSid) {
		return
	}

	phone := normalizePhone(in.From)
	acc, err := d.accounts.GetByPhone(ctx, phone)
	if err != nil {
		d.reply(ctx, in.From, "Access Denied.")
		return
	}

	reply, err := d.sessions.HandleMessage(ctx, phone, acc.ID, in.ProfileName, in.Body)
	if err != nil {
		log.Printf("webhook: session dispatch failed for %s: %v", phone, err)
		reply = "Something went wrong, please try again."
	}
	d.reply(ctx, in.From, reply)
}

func (d *Dispatcher) reply(ctx context.Context, to, body string) {
	if err := d.sender.Send(ctx, to, body); err != nil {
		log.Printf("webhook: send to %s failed: %v", to, err)
	}
}

// isDuplicate implements the 5-minute MessageSid dedup cache (spec §4.9
// step 2, §5 "processedMessages dedup map: time-bounded, periodic eviction").
func (d *Dispatcher) isDuplicate(sid string) bool {
	now := time.Now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, seenAt := range d.seen {
		if now.Sub(seenAt) > dedupWindow {
			delete(d.seen, id)
		}
	}
	if _, ok := d.seen[sid]; ok {
		return true
	}
	d.seen[sid] = now
	return false
}

// normalizePhone strips vendor prefixes/punctuation so an inbound "From" can
// be matched against Account.phoneNumber under multiple representations
// (spec §4.9 step 4).
func normalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	repl := strings.NewReplacer("+", "", " ", "", "(", "", ")", "", "-", "")
	return repl.Replace(s)
}
