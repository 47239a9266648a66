package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/textroom/internal/domain"
)

const maxMessageLength = 4000

type MessageRepo interface {
	Save(ctx context.Context, roomID, userID, displayName, text string) (*domain.Message, error)
	Get(ctx context.Context, id, roomID string) (*domain.Message, error)
	DeleteOwn(ctx context.Context, id, roomID, userID string) error
	History(ctx context.Context, roomID string) ([]domain.Message, error)
}

type ChatService struct {
	messageRepo MessageRepo
}

func NewChatService(messageRepo MessageRepo) *ChatService {
	return &ChatService{messageRepo: messageRepo}
}

// Send сохраняет сообщение с обрезанными пробелами. Пустой после trim текст —
// no-op: (nil, nil), без похода в базу.
func (s *ChatService) Send(ctx context.Context, roomID, userID, displayName, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) > maxMessageLength {
		return nil, errors.New("message too long")
	}
	return s.messageRepo.Save(ctx, roomID, userID, displayName, text)
}

// Get читает одно сообщение комнаты. Сообщения, не влезшие в NOTIFY-payload,
// приходят в ленте одним id, и клиент дочитывает их этим вызовом.
func (s *ChatService) Get(ctx context.Context, id, roomID string) (*domain.Message, error) {
	return s.messageRepo.Get(ctx, id, roomID)
}

// Delete удаляет сообщение только при совпадении комнаты и автора.
func (s *ChatService) Delete(ctx context.Context, id, roomID, userID string) error {
	err := s.messageRepo.DeleteOwn(ctx, id, roomID, userID)
	if err != nil && !errors.Is(err, domain.ErrMessageDeleteFailed) {
		return fmt.Errorf("%w: %v", domain.ErrMessageDeleteFailed, err)
	}
	return err
}

func (s *ChatService) History(ctx context.Context, roomID string) ([]domain.Message, error) {
	return s.messageRepo.History(ctx, roomID)
}
