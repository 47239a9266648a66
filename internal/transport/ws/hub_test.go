package ws

import (
	"testing"

	"github.com/cwrk-planet/textroom/internal/realtime"
)

type fakeConn struct {
	roomID string
	got    []realtime.WireMessage
}

func (c *fakeConn) Send(msg realtime.WireMessage) error {
	c.got = append(c.got, msg)
	return nil
}

func (c *fakeConn) Close() error   { return nil }
func (c *fakeConn) RoomID() string { return c.roomID }

func TestBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{roomID: "room-a"}
	b := &fakeConn{roomID: "room-b"}
	hub.Add(a)
	hub.Add(b)

	hub.Broadcast("room-a", realtime.WireMessage{Type: realtime.TypeEvent})

	if len(a.got) != 1 {
		t.Fatalf("room-a conn got %d messages, want 1", len(a.got))
	}
	if len(b.got) != 0 {
		t.Fatalf("room-b conn got %d messages, want 0", len(b.got))
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{roomID: "room-a"}
	hub.Add(c)
	hub.Remove(c)

	hub.Broadcast("room-a", realtime.WireMessage{Type: realtime.TypeEvent})

	if len(c.got) != 0 {
		t.Fatalf("removed conn got %d messages", len(c.got))
	}
}

func TestBroadcastUnknownRoom(t *testing.T) {
	hub := NewHub()
	// не должно паниковать
	hub.Broadcast("missing", realtime.WireMessage{Type: realtime.TypeEvent})
}
