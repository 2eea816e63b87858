package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ttb-broker/internal/accounts"
	"ttb-broker/internal/adminauth"
	"ttb-broker/internal/balance"
	"ttb-broker/internal/bridge"
	"ttb-broker/internal/config"
	"ttb-broker/internal/db"
	"ttb-broker/internal/engine"
	"ttb-broker/internal/health"
	"ttb-broker/internal/httpserver"
	"ttb-broker/internal/ledger"
	"ttb-broker/internal/marketdata"
	"ttb-broker/internal/messaging"
	"ttb-broker/internal/session"
	"ttb-broker/internal/transactions"
	"ttb-broker/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	br := bridge.New(cfg.MT5BridgePath)
	if err := br.Connect(ctx, cfg.MT5Server, cfg.MT5Login, cfg.MT5Password); err != nil {
		log.Fatal(err)
	}

	market := marketdata.New(br)
	market.Track(cfg.Symbol)
	go market.Start(ctx)

	accountStore := accounts.NewStore(pool)
	orderStore := engine.NewOrderStore(pool)
	ledgerStore := ledger.NewStore(pool)
	balanceCfg := balance.Config{BaseAmountPerVolume: cfg.BaseAmountPerVolume, MinimumBalancePct: cfg.MinimumBalancePct}
	eng := engine.New(pool, accountStore, orderStore, ledgerStore, bridge.NewEngineAdapter(br), balanceCfg, cfg.AllowNegativeMetal)

	txStore := transactions.NewStore(pool, accountStore)

	sessionStore := session.NewStore(pool)
	sessionDispatcher := session.NewDispatcher(sessionStore, accountStore, orderStore, market, eng, cfg.AdminAPIKey, cfg.Symbol)

	sender := messaging.New(cfg.MessagingAccountSID, cfg.MessagingAuthToken, cfg.MessagingFrom)
	webhookDispatcher := webhook.NewDispatcher(accountStore, sessionDispatcher, sender, cfg.AdminAPIKey)

	adminAuth := adminauth.NewService(pool, cfg.AdminJWTSecret)
	healthHandler := health.NewHandler(pool, br)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AdminAuth:      adminAuth,
		EngineHandler:  engine.NewHandler(eng, orderStore),
		TransactionsH:  transactions.NewHandler(txStore),
		LedgerHandler:  ledger.NewHandler(ledgerStore),
		WebhookHandler: webhookDispatcher,
		HealthHandler:  healthHandler,
		Market:         market,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	log.Printf("health endpoint: http://localhost%s/healthz", cfg.HTTPAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = br.Shutdown()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
