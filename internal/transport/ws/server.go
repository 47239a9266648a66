package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/textroom/internal/domain"
	"github.com/cwrk-planet/textroom/internal/realtime"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type MemberSvc interface {
	ListActiveMembers(ctx context.Context, roomID string) ([]domain.Member, error)
}

type ChatSvc interface {
	History(ctx context.Context, roomID string) ([]domain.Message, error)
}

type RoomSvc interface {
	// для проверки, что комната существует, до апгрейда
	Get(ctx context.Context, id string) (*domain.Room, error)
}

// Server раздаёт ленту изменений комнаты по WebSocket: сначала state-снапшот
// (участники + история), дальше события из моста. Соединение read-only,
// мутации клиенты делают через свой канал к базе.
type Server struct {
	upgrader  websocket.Upgrader
	hub       *Hub
	roomSvc   RoomSvc
	memberSvc MemberSvc
	chatSvc   ChatSvc

	pingEvery time.Duration
}

func NewServer(hub *Hub, room RoomSvc, member MemberSvc, chat ChatSvc) *Server {
	return &Server{
		hub:       hub,
		roomSvc:   room,
		memberSvc: member,
		chatSvc:   chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}
	if _, err := s.roomSvc.Get(r.Context(), roomID); err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, roomID)
	s.hub.Add(c)

	if err := s.sendState(r.Context(), c); err != nil {
		slog.Warn("ws send initial state failed", "room", roomID, "err", err)
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(c)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "err", err)
	}
}

func (s *Server) sendState(ctx context.Context, c *wsConn) error {
	members, err := s.memberSvc.ListActiveMembers(ctx, c.roomID)
	if err != nil {
		return err
	}
	history, err := s.chatSvc.History(ctx, c.roomID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(realtime.StatePayload{
		RoomID:   c.roomID,
		Members:  members,
		Messages: history,
	})
	if err != nil {
		return err
	}
	return c.Send(realtime.WireMessage{Type: realtime.TypeState, Payload: payload})
}

// readLoop только следит за закрытием и pong-ами; входящие сообщения игнорируются.
func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	conn   *websocket.Conn
	roomID string
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn, roomID string) *wsConn {
	return &wsConn{
		conn:   c,
		roomID: roomID,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg realtime.WireMessage) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) RoomID() string { return c.roomID }
