package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cwrk-planet/textroom/internal/domain"
)

const (
	codeLength       = 6
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCreateRetries = 5
)

type RoomRepo interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByCode(ctx context.Context, code string) (*domain.Room, error)
}

type RoomService struct {
	roomRepo RoomRepo
}

func NewRoomService(roomRepo RoomRepo) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom создаёт комнату с уникальным 6-символьным кодом. На конфликте кода
// генерирует новый и повторяет, не более maxCreateRetries попыток.
func (s *RoomService) CreateRoom(ctx context.Context, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)

	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		room := &domain.Room{
			Code: code,
			Name: name,
		}
		if room.Name == "" {
			room.Name = "Room " + code
		}

		err = s.roomRepo.Create(ctx, room)
		if err == nil {
			return room, nil
		}
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}

	return nil, domain.ErrRoomCreateFailed
}

// FindRoomByCode возвращает комнату по коду без учёта регистра.
func (s *RoomService) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrRoomNotFound
	}
	return s.roomRepo.GetByCode(ctx, code)
}

// generateCode — криптостойкий код комнаты: codeLength символов из codeAlphabet.
func generateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
