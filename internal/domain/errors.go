package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrCodeTaken           = errors.New("room code already taken")
	ErrRoomCreateFailed    = errors.New("room creation failed")
	ErrNameTaken           = errors.New("display name already taken in the room")
	ErrNotInRoom           = errors.New("user not in the room")
	ErrMessageNotFound     = errors.New("message not found")
	ErrMessageDeleteFailed = errors.New("message delete failed")
	ErrNoActiveSession     = errors.New("no active session")
	ErrSessionActive       = errors.New("session already active")
	ErrJoinInProgress      = errors.New("join or create already in progress")
)
