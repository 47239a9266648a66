package session

import (
	"context"

	"github.com/cwrk-planet/textroom/internal/domain"
)

// Зависимости контроллера. Интерфейсы объявлены на стороне потребителя,
// реализации — internal/service и internal/identity.

type RoomDirectory interface {
	CreateRoom(ctx context.Context, name string) (*domain.Room, error)
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)
}

type MemberTracker interface {
	Join(ctx context.Context, roomID, userID, displayName string) (*domain.Member, error)
	SetOnline(ctx context.Context, roomID, userID string, online bool) error
	SetTyping(ctx context.Context, roomID, userID string, typing bool) error
	ListActiveMembers(ctx context.Context, roomID string) ([]domain.Member, error)
	Heartbeat(ctx context.Context, roomID, userID string) error
}

type MessageLog interface {
	Send(ctx context.Context, roomID, userID, displayName, text string) (*domain.Message, error)
	Get(ctx context.Context, id, roomID string) (*domain.Message, error)
	Delete(ctx context.Context, id, roomID, userID string) error
	History(ctx context.Context, roomID string) ([]domain.Message, error)
}

type IdentityStore interface {
	GetOrCreateUserID() (string, error)
	SaveSession(room *domain.Room, user domain.User) error
	LoadSession() (*domain.Room, *domain.User, error)
	ClearSession() error
}
