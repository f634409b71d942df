package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
)

func TestTrackerRejectsOutOfOrderSamples(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	t1 := Sample{Location: geo.Point{Lat: 27.70, Lng: 85.32}, RecordedAt: base}
	t2 := Sample{Location: geo.Point{Lat: 27.71, Lng: 85.33}, RecordedAt: base.Add(10 * time.Second)}
	t3 := Sample{Location: geo.Point{Lat: 27.72, Lng: 85.34}, RecordedAt: base.Add(20 * time.Second)}

	// Arrival order t3, t1, t2: only t3 sticks.
	assert.True(t, tracker.Apply("o1", t3))
	assert.False(t, tracker.Apply("o1", t1))
	assert.False(t, tracker.Apply("o1", t2))

	latest, ok := tracker.Latest("o1")
	assert.True(t, ok)
	assert.Equal(t, t3.Location, latest.Location)
}

func TestTrackerRejectsEqualTimestamp(t *testing.T) {
	tracker := NewTracker()
	at := time.Now()

	assert.True(t, tracker.Apply("o1", Sample{RecordedAt: at}))
	assert.False(t, tracker.Apply("o1", Sample{RecordedAt: at}))
}

func TestTrackerForget(t *testing.T) {
	tracker := NewTracker()

	tracker.Apply("o1", Sample{RecordedAt: time.Now()})
	tracker.Forget("o1")

	_, ok := tracker.Latest("o1")
	assert.False(t, ok)

	// Orders are tracked independently.
	tracker.Apply("o2", Sample{RecordedAt: time.Now()})
	_, ok = tracker.Latest("o2")
	assert.True(t, ok)
}
