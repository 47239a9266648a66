package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/textroom/internal/domain"
	"github.com/cwrk-planet/textroom/internal/service"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc   *service.RoomService
	memberSvc *service.MemberService
	chatSvc   *service.ChatService
}

func NewHandler(room *service.RoomService, member *service.MemberService, chat *service.ChatService) *Handler {
	return &Handler{
		roomSvc:   room,
		memberSvc: member,
		chatSvc:   chat,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms/by-code/{code}
func (h *Handler) GetRoomByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	room, err := h.roomSvc.FindRoomByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoomByCode:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomItem{
		ID:        room.ID,
		Code:      room.Code,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
	})
}

// GET /rooms/{id}/members
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	items, err := h.memberSvc.ListActiveMembers(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.GetMembers:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := MembersResponse{Items: make([]MemberItem, 0, len(items))}
	for _, m := range items {
		resp.Items = append(resp.Items, MemberItem{
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			JoinedAt:    m.JoinedAt,
			LastSeenAt:  m.LastSeenAt,
			IsTyping:    m.IsTyping,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}/messages
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	items, err := h.chatSvc.History(r.Context(), roomID)
	if err != nil {
		slog.Error("handler.GetMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := MessagesResponse{Items: make([]MessageItem, 0, len(items))}
	for _, m := range items {
		resp.Items = append(resp.Items, MessageItem{
			ID:          m.ID,
			RoomID:      m.RoomID,
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			Text:        m.Text,
			CreatedAt:   m.CreatedAt.Truncate(time.Millisecond),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
