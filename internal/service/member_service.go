package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwrk-planet/textroom/internal/domain"
)

type MemberRepo interface {
	Upsert(ctx context.Context, m *domain.Member) error
	SetOnline(ctx context.Context, roomID, userID string, online bool) error
	SetTyping(ctx context.Context, roomID, userID string, typing bool) error
	ListActive(ctx context.Context, roomID string) ([]domain.Member, error)
	TouchHeartbeat(ctx context.Context, roomID, userID string) error
}

type MemberService struct {
	memberRepo MemberRepo
}

func NewMemberService(memberRepo MemberRepo) *MemberService {
	return &MemberService{memberRepo: memberRepo}
}

// Join — идемпотентный вход в комнату: существующая (room_id, user_id) строка
// обновляется, is_online выставляется, last_seen_at освежается.
func (s *MemberService) Join(ctx context.Context, roomID, userID, displayName string) (*domain.Member, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("empty display name")
	}

	m := &domain.Member{
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: displayName,
	}
	if err := s.memberRepo.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MemberService) SetOnline(ctx context.Context, roomID, userID string, online bool) error {
	return s.memberRepo.SetOnline(ctx, roomID, userID, online)
}

func (s *MemberService) SetTyping(ctx context.Context, roomID, userID string, typing bool) error {
	return s.memberRepo.SetTyping(ctx, roomID, userID, typing)
}

func (s *MemberService) ListActiveMembers(ctx context.Context, roomID string) ([]domain.Member, error) {
	return s.memberRepo.ListActive(ctx, roomID)
}

func (s *MemberService) Heartbeat(ctx context.Context, roomID, userID string) error {
	return s.memberRepo.TouchHeartbeat(ctx, roomID, userID)
}
