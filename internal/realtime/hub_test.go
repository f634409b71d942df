package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishToRoom(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(4)
	sub.Join(RoomOrder("o1"))

	other := hub.Subscribe(4)
	other.Join(RoomOrder("o2"))

	hub.Publish(RoomOrder("o1"), Event{Name: "order:statusUpdate", Data: "preparing"})

	select {
	case ev := <-sub.C():
		assert.Equal(t, "order:statusUpdate", ev.Name)
	default:
		t.Fatal("expected event for joined room")
	}

	select {
	case ev := <-other.C():
		t.Fatalf("unexpected event for other room: %v", ev)
	default:
	}
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(4)
	sub.Join(RoomRiders)
	sub.Leave(RoomRiders)

	hub.Publish(RoomRiders, Event{Name: "new-order-available"})

	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected event after leave: %v", ev)
	default:
	}
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(1)
	sub.Join(RoomRiders)

	hub.Publish(RoomRiders, Event{Name: "first"})
	hub.Publish(RoomRiders, Event{Name: "second"})

	ev := <-sub.C()
	assert.Equal(t, "first", ev.Name)

	select {
	case ev := <-sub.C():
		t.Fatalf("second event should have been dropped, got %v", ev)
	default:
	}
}

func TestHubCloseRoomEvictsWithoutClosing(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(4)
	sub.Join(RoomOrder("o1"))
	sub.Join(RoomRiders)

	hub.CloseRoom(RoomOrder("o1"))

	hub.Publish(RoomOrder("o1"), Event{Name: "stale"})
	hub.Publish(RoomRiders, Event{Name: "still-subscribed"})

	ev := <-sub.C()
	assert.Equal(t, "still-subscribed", ev.Name)
	assert.Zero(t, hub.RoomSize(RoomOrder("o1")))
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(4)
	sub.Join(RoomAdmin)

	sub.Close()
	require.NotPanics(t, sub.Close)

	_, open := <-sub.C()
	assert.False(t, open)
	assert.Zero(t, hub.RoomSize(RoomAdmin))

	// Publishing after close must not panic or deliver.
	hub.Publish(RoomAdmin, Event{Name: "late"})
}
