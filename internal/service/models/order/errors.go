package order

import "errors"

var (
	// ErrNotFound is returned when no order exists for the given id.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidStatus is returned when a wire status does not parse.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidTransition is returned when a requested transition is not
	// allowed by the state machine, including repeated calls against an
	// order already past that state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyAssigned is returned when a rider tries to accept an order
	// another rider already holds. Callers must treat this as a conflict,
	// not retry.
	ErrAlreadyAssigned = errors.New("order already assigned to another rider")

	// ErrNotAssignee is returned when a rider acts on an order assigned to
	// someone else.
	ErrNotAssignee = errors.New("order not assigned to this rider")

	// ErrNotCancellable is returned when cancellation is requested past the
	// cancellable window.
	ErrNotCancellable = errors.New("order can no longer be cancelled")

	// ErrNoActiveOTP is returned when verification is attempted but no code
	// has been issued for the order.
	ErrNoActiveOTP = errors.New("no active delivery code for order")

	// ErrInvalidOTP is returned on a code mismatch. The active code stays
	// valid and may be re-entered.
	ErrInvalidOTP = errors.New("invalid delivery code")

	// ErrEmptyOrder is returned when checkout is attempted with no items.
	ErrEmptyOrder = errors.New("order has no items")
)
