package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/textroom/internal/realtime"
)

const bridgeRetryDelay = 3 * time.Second

// Bridge гонит события из ленты изменений бекенда в hub: один LISTEN
// на весь процесс, раскладка по комнатам — на стороне hub. При обрыве
// ленты переподписывается сам, пока его не остановят.
type Bridge struct {
	listener realtime.Listener
	hub      *Hub

	stop chan struct{}

	mu  sync.Mutex
	sub realtime.Subscription
}

func NewBridge(listener realtime.Listener, hub *Hub) *Bridge {
	return &Bridge{listener: listener, hub: hub, stop: make(chan struct{})}
}

func (b *Bridge) Start(ctx context.Context) error {
	sub, err := b.subscribe(ctx)
	if err != nil {
		return fmt.Errorf("bridge subscribe: %w", err)
	}
	b.setSub(sub)
	go b.run(sub)
	return nil
}

func (b *Bridge) subscribe(ctx context.Context) (realtime.Subscription, error) {
	return b.listener.Subscribe(ctx, "", func(ev realtime.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			slog.Warn("bridge encode event failed", "err", err)
			return
		}
		b.hub.Broadcast(ev.RoomID, realtime.WireMessage{
			Type:    realtime.TypeEvent,
			Payload: payload,
		})
	})
}

// run держит подписку живой: умершая лента переоформляется с паузой
// между попытками. Выход — только через Stop.
func (b *Bridge) run(sub realtime.Subscription) {
	for {
		select {
		case <-b.stop:
			return
		case <-sub.Done():
			if sub.Err() == nil {
				return
			}
			slog.Warn("bridge feed lost, resubscribing", "err", sub.Err())
		}

		for {
			select {
			case <-b.stop:
				return
			case <-time.After(bridgeRetryDelay):
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			next, err := b.subscribe(ctx)
			cancel()
			if err != nil {
				slog.Warn("bridge resubscribe failed", "err", err)
				continue
			}
			sub = next
			b.setSub(next)
			slog.Info("bridge feed restored")
			break
		}
	}
}

func (b *Bridge) setSub(sub realtime.Subscription) {
	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()
}

func (b *Bridge) Stop() {
	close(b.stop)
	b.mu.Lock()
	sub := b.sub
	b.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
