package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/textroom/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// Upsert — идемпотентный join по ключу (room_id, user_id): повторный вход обновляет
// существующую строку, не создаёт дубликат. Конфликт по (room_id, display_name) под
// другим user_id мапится в domain.ErrNameTaken.
func (r *MemberRepository) Upsert(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO room_members (room_id, user_id, display_name, is_online, is_typing)
		VALUES ($1, $2, $3, TRUE, FALSE)
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    is_online    = TRUE,
		    is_typing    = FALSE,
		    last_seen_at = now()
		RETURNING id, joined_at, last_seen_at, is_online, is_typing`
	err := r.db.QueryRow(ctx, query, m.RoomID, m.UserID, m.DisplayName).
		Scan(&m.ID, &m.JoinedAt, &m.LastSeenAt, &m.IsOnline, &m.IsTyping)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "display_name") {
			return domain.ErrNameTaken
		}
		return err
	}
	return nil
}

func (r *MemberRepository) SetOnline(ctx context.Context, roomID, userID string, online bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_members SET is_online=$3, is_typing=FALSE, last_seen_at=now() WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, online)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}

func (r *MemberRepository) SetTyping(ctx context.Context, roomID, userID string, typing bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_members SET is_typing=$3 WHERE room_id=$1 AND user_id=$2 AND is_online`,
		roomID, userID, typing)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}

func (r *MemberRepository) ListActive(ctx context.Context, roomID string) ([]domain.Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, user_id, display_name, joined_at, last_seen_at, is_online, is_typing
		FROM room_members
		WHERE room_id=$1 AND is_online
		ORDER BY joined_at ASC, id ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.DisplayName,
			&m.JoinedAt, &m.LastSeenAt, &m.IsOnline, &m.IsTyping); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *MemberRepository) TouchHeartbeat(ctx context.Context, roomID, userID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_members SET last_seen_at=now() WHERE room_id=$1 AND user_id=$2 AND is_online`,
		roomID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotInRoom
	}
	return nil
}
