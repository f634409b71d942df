// Package realtime implements the in-process event layer: per-order rooms,
// the rider pool topic, and the live-location relay. Transports (WebSocket,
// poll endpoints) subscribe here; services publish here. The hub never
// blocks a publisher: slow subscribers drop events and catch up from the
// authoritative store on the next read.
package realtime

import (
	"sync"
)

// Room names. Per-order rooms scope delivery to the sessions that joined
// the order; RoomRiders and RoomAdmin are shared topics.
const (
	RoomRiders = "riders"
	RoomAdmin  = "admin"
)

// RoomOrder returns the room name scoping events to one order.
func RoomOrder(orderID string) string { return "order:" + orderID }

// RoomCustomer returns the room carrying customer-private events (OTP).
func RoomCustomer(customerID string) string { return "customer:" + customerID }

// RoomRider returns the room addressing a single rider session.
func RoomRider(riderID string) string { return "rider:" + riderID }

// Event is a named payload delivered to room subscribers.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Hub fans events out to subscribers by room. All methods are safe for
// concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscriber is one consumer session. Events arrive on C in receipt order
// per room. A subscriber that falls behind its buffer loses events rather
// than stalling publishers.
type Subscriber struct {
	hub    *Hub
	ch     chan Event
	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// Subscribe registers a new subscriber with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{
		hub:   h,
		ch:    make(chan Event, buffer),
		rooms: make(map[string]struct{}),
	}
}

// C is the subscriber's event stream. It is closed by Close.
func (s *Subscriber) C() <-chan Event { return s.ch }

// Join adds the subscriber to a room. Joining twice is a no-op.
func (s *Subscriber) Join(room string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.rooms[room] = struct{}{}
	s.mu.Unlock()

	h := s.hub
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	h.mu.Unlock()
}

// Leave removes the subscriber from a room.
func (s *Subscriber) Leave(room string) {
	s.mu.Lock()
	delete(s.rooms, room)
	s.mu.Unlock()

	s.hub.detach(s, room)
}

// Close tears the subscriber down: it leaves every room and closes C.
// Close is idempotent.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.rooms = make(map[string]struct{})
	s.mu.Unlock()

	for _, room := range rooms {
		s.hub.detach(s, room)
	}
	close(s.ch)
}

func (h *Hub) detach(s *Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish delivers an event to every subscriber of the room. Delivery is
// non-blocking; a full subscriber buffer drops the event for that
// subscriber only.
func (h *Hub) Publish(room string, ev Event) {
	h.mu.RLock()
	members := h.rooms[room]
	targets := make([]*Subscriber, 0, len(members))
	for s := range members {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.mu.Lock()
		if !s.closed {
			select {
			case s.ch <- ev:
			default:
			}
		}
		s.mu.Unlock()
	}
}

// CloseRoom evicts every subscriber from a room without closing their
// streams. Used when an order reaches a terminal state so former viewers
// stop receiving its events.
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	members := h.rooms[room]
	delete(h.rooms, room)
	h.mu.Unlock()

	for s := range members {
		s.mu.Lock()
		delete(s.rooms, room)
		s.mu.Unlock()
	}
}

// RoomSize returns the current subscriber count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
