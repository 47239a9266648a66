package realtime

import (
	"testing"
)

func TestDecodeMessageInsert(t *testing.T) {
	payload := `{
		"table": "messages",
		"op": "INSERT",
		"room_id": "room-1",
		"message": {
			"id": "msg-1",
			"room_id": "room-1",
			"user_id": "user-1",
			"display_name": "Alice",
			"text": "hi",
			"created_at": "2025-06-01T12:00:00Z"
		}
	}`

	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Table != TableMessages || ev.Op != OpInsert || ev.RoomID != "room-1" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Message == nil || ev.Message.Text != "hi" || ev.Message.DisplayName != "Alice" {
		t.Fatalf("message = %+v", ev.Message)
	}
}

func TestDecodeMessageDelete(t *testing.T) {
	payload := `{"table":"messages","op":"DELETE","room_id":"room-1","message_id":"msg-1"}`

	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Op != OpDelete || ev.MessageID != "msg-1" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Message != nil {
		t.Fatalf("delete event carries a full message: %+v", ev.Message)
	}
}

func TestDecodeMemberChange(t *testing.T) {
	payload := `{"table":"room_members","op":"UPDATE","room_id":"room-1"}`

	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if ev.Table != TableMembers || ev.Op != OpUpdate || ev.RoomID != "room-1" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
