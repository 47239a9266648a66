package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cwrk-planet/textroom/internal/domain"
)

type fakeMemberRepo struct {
	upserted  *domain.Member
	upsertErr error
}

func (f *fakeMemberRepo) Upsert(_ context.Context, m *domain.Member) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	m.ID = "member-1"
	m.IsOnline = true
	f.upserted = m
	return nil
}

func (f *fakeMemberRepo) SetOnline(context.Context, string, string, bool) error { return nil }
func (f *fakeMemberRepo) SetTyping(context.Context, string, string, bool) error { return nil }
func (f *fakeMemberRepo) ListActive(context.Context, string) ([]domain.Member, error) {
	return nil, nil
}
func (f *fakeMemberRepo) TouchHeartbeat(context.Context, string, string) error { return nil }

func TestJoinTrimsDisplayName(t *testing.T) {
	repo := &fakeMemberRepo{}
	svc := NewMemberService(repo)

	m, err := svc.Join(context.Background(), "r", "u", "  Alice ")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if m.DisplayName != "Alice" {
		t.Fatalf("display name = %q, want Alice", m.DisplayName)
	}
	if !m.IsOnline {
		t.Fatal("joined member not online")
	}
}

func TestJoinEmptyDisplayName(t *testing.T) {
	svc := NewMemberService(&fakeMemberRepo{})
	if _, err := svc.Join(context.Background(), "r", "u", "   "); err == nil {
		t.Fatal("expected error for empty display name")
	}
}

func TestJoinNameTaken(t *testing.T) {
	svc := NewMemberService(&fakeMemberRepo{upsertErr: domain.ErrNameTaken})
	if _, err := svc.Join(context.Background(), "r", "u", "Alice"); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("err = %v, want ErrNameTaken", err)
	}
}
