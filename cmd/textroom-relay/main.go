package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/textroom/config"
	"github.com/cwrk-planet/textroom/internal/pg"
	"github.com/cwrk-planet/textroom/internal/postgres"
	"github.com/cwrk-planet/textroom/internal/realtime"
	"github.com/cwrk-planet/textroom/internal/service"
	httpx "github.com/cwrk-planet/textroom/internal/transport/http"
	"github.com/cwrk-planet/textroom/internal/transport/ws"
	"github.com/cwrk-planet/textroom/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   "textroom-relay",
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting textroom-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: "textroom-relay",
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos & services ---
	roomRepo := postgres.NewRoomRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)

	roomSvc := service.NewRoomService(roomRepo)
	memberSvc := service.NewMemberService(memberRepo)
	chatSvc := service.NewChatService(messageRepo)

	// --- hub, bridge, WS ---
	hub := ws.NewHub()
	bridge := ws.NewBridge(realtime.NewPGListener(cfg.Postgres.DSN), hub)
	if err := bridge.Start(ctx); err != nil {
		log.Fatalf("bridge: %v", err)
	}
	defer bridge.Stop()

	wsServer := ws.NewServer(hub, roomRepo, memberSvc, chatSvc)

	// --- HTTP ---
	handler := httpx.NewHandler(roomSvc, memberSvc, chatSvc)
	router := httpx.NewRouter(handler, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.Relay.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.Relay.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
