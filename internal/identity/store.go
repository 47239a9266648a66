package identity

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwrk-planet/textroom/internal/domain"

	"github.com/google/uuid"
	"github.com/tidwall/buntdb"
)

// Ключи локального key->string хранилища. Форма сессии каноническая:
// room и user как два отдельных json-значения.
const (
	keyUserID      = "identity:user_id"
	keySessionRoom = "session:room"
	keySessionUser = "session:user"
)

// Store — локальная идентичность и последняя сессия, переживающие рестарт процесса.
// Никаких сетевых вызовов.
type Store struct {
	db *buntdb.DB
}

func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUserID возвращает сохранённый идентификатор или создаёт и сохраняет новый.
func (s *Store) GetOrCreateUserID() (string, error) {
	var id string
	err := s.db.Update(func(tx *buntdb.Tx) error {
		v, err := tx.Get(keyUserID)
		if err == nil {
			id = v
			return nil
		}
		if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		id = uuid.NewString()
		_, _, err = tx.Set(keyUserID, id, nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SaveSession(room *domain.Room, user domain.User) error {
	rj, err := json.Marshal(room)
	if err != nil {
		return err
	}
	uj, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(keySessionRoom, string(rj), nil); err != nil {
			return err
		}
		_, _, err := tx.Set(keySessionUser, string(uj), nil)
		return err
	})
}

// LoadSession возвращает (nil, nil, nil), если сессия не сохранена.
func (s *Store) LoadSession() (*domain.Room, *domain.User, error) {
	var room domain.Room
	var user domain.User
	found := false

	err := s.db.View(func(tx *buntdb.Tx) error {
		rj, err := tx.Get(keySessionRoom)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		uj, err := tx.Get(keySessionUser)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(rj), &room); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(uj), &user); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, nil, err
	}
	return &room, &user, nil
}

// ClearSession стирает сохранённую пару room/user. user_id остаётся.
func (s *Store) ClearSession() error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(keySessionRoom); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if _, err := tx.Delete(keySessionUser); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		return nil
	})
}
