package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/cwrk-planet/textroom/internal/domain"
)

type fakeRoomRepo struct {
	conflicts int // столько первых Create вернут ErrCodeTaken
	created   []domain.Room
	lastCode  string
	room      *domain.Room
}

func (f *fakeRoomRepo) Create(_ context.Context, room *domain.Room) error {
	if f.conflicts > 0 {
		f.conflicts--
		return domain.ErrCodeTaken
	}
	room.ID = "room-1"
	f.created = append(f.created, *room)
	return nil
}

func (f *fakeRoomRepo) GetByCode(_ context.Context, code string) (*domain.Room, error) {
	f.lastCode = code
	if f.room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return f.room, nil
}

var codeRe = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateRoomCodeFormat(t *testing.T) {
	repo := &fakeRoomRepo{}
	svc := NewRoomService(repo)

	room, err := svc.CreateRoom(context.Background(), "Test")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !codeRe.MatchString(room.Code) {
		t.Fatalf("code %q, want 6 uppercase alphanumerics", room.Code)
	}
	if room.Name != "Test" {
		t.Fatalf("name = %q", room.Name)
	}
}

func TestCreateRoomDefaultName(t *testing.T) {
	repo := &fakeRoomRepo{}
	svc := NewRoomService(repo)

	room, err := svc.CreateRoom(context.Background(), "  ")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.Name != "Room "+room.Code {
		t.Fatalf("name = %q, want %q", room.Name, "Room "+room.Code)
	}
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	repo := &fakeRoomRepo{conflicts: 4}
	svc := NewRoomService(repo)

	room, err := svc.CreateRoom(context.Background(), "Test")
	if err != nil {
		t.Fatalf("CreateRoom after 4 collisions: %v", err)
	}
	if room.ID == "" {
		t.Fatalf("room not created")
	}
}

func TestCreateRoomGivesUpAfterFiveAttempts(t *testing.T) {
	repo := &fakeRoomRepo{conflicts: 5}
	svc := NewRoomService(repo)

	_, err := svc.CreateRoom(context.Background(), "Test")
	if !errors.Is(err, domain.ErrRoomCreateFailed) {
		t.Fatalf("err = %v, want ErrRoomCreateFailed", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("room created despite exhausted retries")
	}
}

func TestCreateRoomStopsOnOtherErrors(t *testing.T) {
	repo := &fakeRoomRepoErr{}
	svc := NewRoomService(repo)

	_, err := svc.CreateRoom(context.Background(), "Test")
	if err == nil || errors.Is(err, domain.ErrRoomCreateFailed) {
		t.Fatalf("err = %v, want wrapped repo error", err)
	}
	if repo.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on non-conflict errors)", repo.calls)
	}
}

type fakeRoomRepoErr struct{ calls int }

func (f *fakeRoomRepoErr) Create(context.Context, *domain.Room) error {
	f.calls++
	return errors.New("connection refused")
}

func (f *fakeRoomRepoErr) GetByCode(context.Context, string) (*domain.Room, error) {
	return nil, domain.ErrRoomNotFound
}

func TestFindRoomByCodeNormalizesCase(t *testing.T) {
	repo := &fakeRoomRepo{room: &domain.Room{ID: "room-1", Code: "AB12CD"}}
	svc := NewRoomService(repo)

	room, err := svc.FindRoomByCode(context.Background(), "  ab12cd ")
	if err != nil {
		t.Fatalf("FindRoomByCode: %v", err)
	}
	if repo.lastCode != "AB12CD" {
		t.Fatalf("repo got code %q, want AB12CD", repo.lastCode)
	}
	if room.ID != "room-1" {
		t.Fatalf("room = %+v", room)
	}
}

func TestFindRoomByCodeEmpty(t *testing.T) {
	svc := NewRoomService(&fakeRoomRepo{})
	if _, err := svc.FindRoomByCode(context.Background(), "   "); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}
}
