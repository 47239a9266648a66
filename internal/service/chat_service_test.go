package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cwrk-planet/textroom/internal/domain"
)

type fakeMessageRepo struct {
	saved     []string
	deleteErr error
}

func (f *fakeMessageRepo) Save(_ context.Context, roomID, userID, displayName, text string) (*domain.Message, error) {
	f.saved = append(f.saved, text)
	return &domain.Message{ID: "msg-1", RoomID: roomID, UserID: userID, DisplayName: displayName, Text: text}, nil
}

func (f *fakeMessageRepo) Get(context.Context, string, string) (*domain.Message, error) {
	return nil, domain.ErrMessageNotFound
}

func (f *fakeMessageRepo) DeleteOwn(context.Context, string, string, string) error {
	return f.deleteErr
}

func (f *fakeMessageRepo) History(context.Context, string) ([]domain.Message, error) {
	return nil, nil
}

func TestSendTrimsText(t *testing.T) {
	repo := &fakeMessageRepo{}
	svc := NewChatService(repo)

	msg, err := svc.Send(context.Background(), "r", "u", "Alice", "  hi there  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Text != "hi there" {
		t.Fatalf("text = %q, want trimmed", msg.Text)
	}
}

func TestSendEmptyAfterTrimIsNoop(t *testing.T) {
	repo := &fakeMessageRepo{}
	svc := NewChatService(repo)

	for _, text := range []string{"", "   ", "\t\n"} {
		msg, err := svc.Send(context.Background(), "r", "u", "Alice", text)
		if err != nil || msg != nil {
			t.Fatalf("Send(%q) = (%v, %v), want (nil, nil)", text, msg, err)
		}
	}
	if len(repo.saved) != 0 {
		t.Fatalf("empty text reached the repo: %v", repo.saved)
	}
}

func TestSendTooLong(t *testing.T) {
	svc := NewChatService(&fakeMessageRepo{})
	if _, err := svc.Send(context.Background(), "r", "u", "Alice", strings.Repeat("a", maxMessageLength+1)); err == nil {
		t.Fatal("expected error for oversized message")
	}
}

func TestDeleteNoMatch(t *testing.T) {
	svc := NewChatService(&fakeMessageRepo{deleteErr: domain.ErrMessageDeleteFailed})
	err := svc.Delete(context.Background(), "m", "r", "u")
	if !errors.Is(err, domain.ErrMessageDeleteFailed) {
		t.Fatalf("err = %v, want ErrMessageDeleteFailed", err)
	}
}

func TestDeleteBackendErrorMapped(t *testing.T) {
	svc := NewChatService(&fakeMessageRepo{deleteErr: errors.New("connection reset")})
	err := svc.Delete(context.Background(), "m", "r", "u")
	if !errors.Is(err, domain.ErrMessageDeleteFailed) {
		t.Fatalf("err = %v, want ErrMessageDeleteFailed wrapping backend error", err)
	}
}
