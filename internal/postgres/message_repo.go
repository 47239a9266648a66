package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/textroom/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Save(ctx context.Context, roomID, userID, displayName, text string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, user_id, display_name, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, room_id, user_id, display_name, text, created_at
	`, roomID, userID, displayName, text)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.DisplayName, &m.Text, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Get читает одно сообщение комнаты. Нужен ленте изменений: слишком
// длинные строки приходят в NOTIFY одним id, без тела.
func (r *MessageRepository) Get(ctx context.Context, id, roomID string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, room_id, user_id, display_name, text, created_at
		FROM messages
		WHERE id = $1 AND room_id = $2
	`, id, roomID)

	var m domain.Message
	if err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.DisplayName, &m.Text, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// DeleteOwn — единственная проверка владения сообщением во всей системе:
// room_id и user_id входят в предикат DELETE, отдельного чтения перед удалением нет.
func (r *MessageRepository) DeleteOwn(ctx context.Context, id, roomID, userID string) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM messages WHERE id=$1 AND room_id=$2 AND user_id=$3`,
		id, roomID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageDeleteFailed
	}
	return nil
}

// History возвращает всю историю комнаты по возрастанию created_at.
func (r *MessageRepository) History(ctx context.Context, roomID string) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, user_id, display_name, text, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.DisplayName, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
