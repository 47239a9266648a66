package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomItem struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberItem struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	IsTyping    bool      `json:"is_typing"`
}

type MembersResponse struct {
	Items []MemberItem `json:"items"`
}

type MessageItem struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Items []MessageItem `json:"items"`
}
