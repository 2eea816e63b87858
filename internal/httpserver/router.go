// Package httpserver wires every handler onto a chi.Router (spec §6 REST
// surface), grounded on the teacher's internal/httpserver/router.go route
// grouping and middleware shape.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ttb-broker/internal/adminauth"
	"ttb-broker/internal/engine"
	"ttb-broker/internal/health"
	"ttb-broker/internal/ledger"
	"ttb-broker/internal/marketdata"
	"ttb-broker/internal/transactions"
	"ttb-broker/internal/webhook"
)

// RouterDeps collects every handler the router dispatches to.
type RouterDeps struct {
	AdminAuth      *adminauth.Service
	EngineHandler  *engine.Handler
	TransactionsH  *transactions.Handler
	LedgerHandler  *ledger.Handler
	WebhookHandler *webhook.Dispatcher
	HealthHandler  *health.Handler
	Market         *marketdata.Service
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", d.HealthHandler.Get)

	r.Post("/api/chat/whatsapp", d.WebhookHandler.ServeHTTP)

	r.Post("/api/admin/login", d.AdminAuth.LoginHandler)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(d.AdminAuth.Middleware)

		r.Post("/create-order/{adminId}", d.EngineHandler.CreateOrder)
		r.Get("/order/{adminId}", d.EngineHandler.ListOrders)
		r.Patch("/order/{adminId}/{orderId}", d.EngineHandler.UpdateOrder)

		r.Post("/transaction", d.TransactionsH.Create)
		r.Get("/transaction/{userId}", d.TransactionsH.List)

		r.Get("/ledger/{adminId}", d.LedgerHandler.List)

		r.Get("/market/ws", d.Market.ServeWS)
	})

	return r
}
