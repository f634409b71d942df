package realtime

import (
	"sync"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
)

// Sample is one rider location reading. RecordedAt is the rider-side sample
// time; the tracker compares it to reject stale samples delivered out of
// order.
type Sample struct {
	Location   geo.Point
	Heading    float64
	RecordedAt time.Time
}

// Tracker keeps the latest known location per order with last-write-wins
// semantics on RecordedAt. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]Sample
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]Sample)}
}

// Apply records a sample for an order. It returns false when the sample is
// not newer than the latest applied one, in which case the caller must not
// relay it.
func (t *Tracker) Apply(orderID string, s Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.latest[orderID]; ok && !s.RecordedAt.After(cur.RecordedAt) {
		return false
	}
	t.latest[orderID] = s
	return true
}

// Latest returns the most recent sample for an order.
func (t *Tracker) Latest(orderID string) (Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.latest[orderID]
	return s, ok
}

// Forget drops an order's location once it leaves an active delivery state,
// so a delivered or cancelled order's former viewers cannot read it back.
func (t *Tracker) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, orderID)
}
