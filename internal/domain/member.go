package domain

import "time"

type Member struct {
	ID          string    `db:"id" json:"id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	JoinedAt    time.Time `db:"joined_at" json:"joined_at"`
	LastSeenAt  time.Time `db:"last_seen_at" json:"last_seen_at"`
	IsOnline    bool      `db:"is_online" json:"is_online"`
	IsTyping    bool      `db:"is_typing" json:"is_typing"`
}
