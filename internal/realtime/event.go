package realtime

import (
	"encoding/json"

	"github.com/cwrk-planet/textroom/internal/domain"
)

// Канал NOTIFY, в который триггеры бекенда публикуют изменения строк
// (контракт — docs/schema.sql).
const Channel = "textroom_events"

const (
	TableMessages = "messages"
	TableMembers  = "room_members"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Event — одно row-level изменение. Для вставки сообщения обычно приходит
// целая строка; если она не влезла в лимит pg_notify, триггер шлёт только
// message_id, и клиент дочитывает строку сам. Для удаления — всегда только id;
// изменения участников несут лишь факт изменения, клиент перечитывает список
// целиком.
type Event struct {
	Table     string          `json:"table"`
	Op        Op              `json:"op"`
	RoomID    string          `json:"room_id"`
	Message   *domain.Message `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}

// Типы wire-сообщений relay (ws-транспорт поверх того же Event).
const (
	TypeState = "state" // начальный снапшот комнаты
	TypeEvent = "event" // row-level изменение
)

type WireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type StatePayload struct {
	RoomID   string           `json:"room_id"`
	Members  []domain.Member  `json:"members"`
	Messages []domain.Message `json:"messages"`
}
