package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
)

// PGListener — подписка напрямую через LISTEN/NOTIFY. На каждую подписку
// выделенное соединение: пул для этого не годится, соединение занято
// WaitForNotification на всё время жизни подписки.
type PGListener struct {
	dsn string
}

func NewPGListener(dsn string) *PGListener {
	return &PGListener{dsn: dsn}
}

func (l *PGListener) Subscribe(ctx context.Context, roomID string, h Handler) (Subscription, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}

	// Жизнь подписки не привязана к ctx вызова Subscribe.
	loopCtx, cancel := context.WithCancel(context.Background())
	sub := &pgSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer func() { _ = conn.Close(context.Background()) }()
		// done закрывает только эта горутина; err пишется до close,
		// читатель обязан дождаться Done
		defer close(sub.done)

		for {
			n, err := conn.WaitForNotification(loopCtx)
			if err != nil {
				if loopCtx.Err() != nil {
					return
				}
				slog.Warn("notification wait failed", "room", roomID, "err", err)
				sub.err = err
				return
			}

			ev, err := DecodeEvent([]byte(n.Payload))
			if err != nil {
				slog.Warn("bad event payload", "err", err)
				continue
			}
			if roomID != "" && ev.RoomID != roomID {
				continue
			}
			h(ev)
		}
	}()

	return sub, nil
}

type pgSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (s *pgSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func (s *pgSubscription) Done() <-chan struct{} { return s.done }

// Err валиден только после закрытия Done.
func (s *pgSubscription) Err() error { return s.err }
