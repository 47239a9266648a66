package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cwrk-planet/textroom/config"
	"github.com/cwrk-planet/textroom/internal/identity"
	"github.com/cwrk-planet/textroom/internal/pg"
	"github.com/cwrk-planet/textroom/internal/postgres"
	"github.com/cwrk-planet/textroom/internal/realtime"
	"github.com/cwrk-planet/textroom/internal/service"
	"github.com/cwrk-planet/textroom/internal/session"
	"github.com/cwrk-planet/textroom/pkg/logger"
)

// Минимальный строчный клиент поверх контроллера сессии. Команды:
//
//	/name <display name>
//	/create [room name]
//	/join <code>
//	/members
//	/delete <message id>
//	/leave
//	/quit
//
// Любая другая строка отправляется сообщением в текущую комнату.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: "textroom",
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	ident, err := identity.Open(cfg.Client.IdentityPath)
	if err != nil {
		log.Fatalf("identity store: %v", err)
	}
	defer ident.Close()

	roomSvc := service.NewRoomService(postgres.NewRoomRepository(pool))
	memberSvc := service.NewMemberService(postgres.NewMemberRepository(pool))
	chatSvc := service.NewChatService(postgres.NewMessageRepository(pool))

	var listener realtime.Listener
	if cfg.Client.Listener == "ws" {
		listener = realtime.NewWSListener(cfg.Client.RelayURL)
	} else {
		listener = realtime.NewPGListener(cfg.Postgres.DSN)
	}

	ctrl := session.NewController(roomSvc, memberSvc, chatSvc, listener, ident, session.Options{
		HeartbeatEvery:   cfg.HeartbeatEvery(),
		TypingClearAfter: cfg.TypingClearAfter(),
	})

	// presence-on-exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		ctrl.Close()
		os.Exit(0)
	}()

	go printUpdates(ctrl)

	if room, err := ctrl.Resume(ctx); err != nil {
		slog.Warn("resume failed", "err", err)
	} else if room != nil {
		fmt.Printf("resumed session in %q (code %s)\n", room.Name, room.Code)
	}

	displayName := ""
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "/name "):
			displayName = strings.TrimSpace(strings.TrimPrefix(line, "/name "))

		case strings.HasPrefix(line, "/create"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/create"))
			room, err := ctrl.CreateRoom(ctx, name, displayName)
			if err != nil {
				fmt.Println("create failed:", err)
				continue
			}
			fmt.Printf("created %q, code %s\n", room.Name, room.Code)

		case strings.HasPrefix(line, "/join "):
			code := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			room, err := ctrl.JoinRoom(ctx, code, displayName)
			if err != nil {
				fmt.Println("join failed:", err)
				continue
			}
			fmt.Printf("joined %q\n", room.Name)

		case line == "/members":
			for _, m := range ctrl.Members() {
				fmt.Printf("  %s (seen %s)\n", m.DisplayName, m.LastSeenAt.Format("15:04:05"))
			}

		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			if err := ctrl.DeleteMessage(ctx, id); err != nil {
				fmt.Println("delete failed:", err)
			}

		case line == "/leave":
			if err := ctrl.LeaveRoom(ctx); err != nil {
				fmt.Println("leave failed:", err)
			}

		case line == "/quit":
			ctrl.Close()
			return

		default:
			if err := ctrl.SendMessage(ctx, line); err != nil {
				fmt.Println("send failed:", err)
			}
		}
	}

	ctrl.Close()
}

func printUpdates(ctrl *session.Controller) {
	for u := range ctrl.Updates() {
		switch u.Kind {
		case session.UpdateMessages:
			msgs := ctrl.Messages()
			if len(msgs) > 0 {
				last := msgs[len(msgs)-1]
				fmt.Printf("[%s] %s: %s\n", last.CreatedAt.Format("15:04:05"), last.DisplayName, last.Text)
			}
		case session.UpdateMembers:
			if names := ctrl.TypingNames(); len(names) > 0 {
				fmt.Printf("typing: %s\n", strings.Join(names, ", "))
			}
		case session.UpdateState:
			fmt.Println("state:", ctrl.State())
		}
	}
}
