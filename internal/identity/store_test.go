package identity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cwrk-planet/textroom/internal/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestUserIDSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")

	s := openStore(t, path)
	id1, err := s.GetOrCreateUserID()
	if err != nil {
		t.Fatalf("GetOrCreateUserID: %v", err)
	}
	if id1 == "" {
		t.Fatal("empty user id")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = openStore(t, path)
	defer s.Close()
	id2, err := s.GetOrCreateUserID()
	if err != nil {
		t.Fatalf("GetOrCreateUserID after reopen: %v", err)
	}
	if id2 != id1 {
		t.Fatalf("user id changed across restart: %q -> %q", id1, id2)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "identity.db"))
	defer s.Close()

	room := &domain.Room{ID: "room-1", Code: "AB12CD", Name: "Test", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	user := domain.User{ID: "user-1", DisplayName: "Alice"}

	if err := s.SaveSession(room, user); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	gotRoom, gotUser, err := s.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if gotRoom == nil || gotRoom.Code != "AB12CD" || gotRoom.ID != "room-1" {
		t.Fatalf("room = %+v", gotRoom)
	}
	if gotUser == nil || gotUser.DisplayName != "Alice" {
		t.Fatalf("user = %+v", gotUser)
	}
}

func TestClearSessionKeepsUserID(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "identity.db"))
	defer s.Close()

	id, err := s.GetOrCreateUserID()
	if err != nil {
		t.Fatalf("GetOrCreateUserID: %v", err)
	}
	if err := s.SaveSession(&domain.Room{ID: "r"}, domain.User{ID: id}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}

	room, user, err := s.LoadSession()
	if err != nil || room != nil || user != nil {
		t.Fatalf("LoadSession after clear = (%v, %v, %v), want nils", room, user, err)
	}

	again, _ := s.GetOrCreateUserID()
	if again != id {
		t.Fatalf("user id lost on clear: %q -> %q", id, again)
	}
}

func TestClearSessionIdempotent(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "identity.db"))
	defer s.Close()

	if err := s.ClearSession(); err != nil {
		t.Fatalf("ClearSession on empty store: %v", err)
	}
	if err := s.ClearSession(); err != nil {
		t.Fatalf("second ClearSession: %v", err)
	}
}
