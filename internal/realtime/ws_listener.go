package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsReadTimeout = 60 * time.Second

// WSListener — та же лента событий через relay (GET /ws/rooms/{id}),
// для процессов без прямого доступа к базе.
type WSListener struct {
	baseURL string // например ws://relay:8081
}

func NewWSListener(baseURL string) *WSListener {
	return &WSListener{baseURL: baseURL}
}

func (l *WSListener) Subscribe(ctx context.Context, roomID string, h Handler) (Subscription, error) {
	if roomID == "" {
		return nil, fmt.Errorf("ws listener requires a room id")
	}

	url := l.baseURL + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	sub := &wsSubscription{conn: conn, stop: make(chan struct{}), done: make(chan struct{})}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	go func() {
		defer close(sub.done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !sub.stopped() {
					slog.Warn("relay read failed", "room", roomID, "err", err)
					sub.err = err
				}
				return
			}

			var msg WireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			// state-снапшот relay пропускаем: снапшот комнаты делает контроллер сессии
			if msg.Type != TypeEvent {
				continue
			}
			ev, err := DecodeEvent(msg.Payload)
			if err != nil {
				slog.Warn("bad relay event", "err", err)
				continue
			}
			if ev.RoomID != roomID {
				continue
			}
			h(ev)
		}
	}()

	return sub, nil
}

type wsSubscription struct {
	once sync.Once
	stop chan struct{} // закрывает Unsubscribe: отличает свою отмену от обрыва
	done chan struct{} // закрывает read-горутина после выхода из цикла
	err  error
	conn *websocket.Conn
}

func (s *wsSubscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *wsSubscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})
}

func (s *wsSubscription) Done() <-chan struct{} { return s.done }

// Err валиден только после закрытия Done.
func (s *wsSubscription) Err() error { return s.err }
