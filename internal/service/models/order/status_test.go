package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"pending to preparing", StatusPending, StatusPreparing, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to delivered", StatusPending, StatusDelivered, false},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing to out for delivery", StatusPreparing, StatusOutForDelivery, true},
		{"preparing to delivered", StatusPreparing, StatusDelivered, false},
		{"out for delivery to delivered", StatusOutForDelivery, StatusDelivered, true},
		{"out for delivery to cancelled", StatusOutForDelivery, StatusCancelled, false},
		{"delivered is terminal", StatusDelivered, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPreparing, false},
		{"no self transition", StatusPreparing, StatusPreparing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusOutForDelivery.IsTerminal())

	assert.True(t, StatusPending.IsCancellable())
	assert.True(t, StatusConfirmed.IsCancellable())
	assert.True(t, StatusPreparing.IsCancellable())
	assert.False(t, StatusOutForDelivery.IsCancellable())
	assert.False(t, StatusDelivered.IsCancellable())

	assert.True(t, StatusPreparing.IsActiveDelivery())
	assert.True(t, StatusOutForDelivery.IsActiveDelivery())
	assert.False(t, StatusPending.IsActiveDelivery())
	assert.False(t, StatusDelivered.IsActiveDelivery())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, st)

	// Legacy alias normalizes to the canonical status.
	st, err = ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, st)

	_, err = ParseStatus("unknown")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBiddableStatuses(t *testing.T) {
	assert.Equal(t, []Status{StatusPending, StatusConfirmed, StatusPreparing}, BiddableStatuses())
}
