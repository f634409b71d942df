package iorderrepo

import (
	"context"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Insert stores a new order with its items.
	Insert(ctx context.Context, o *order.Order) error

	// GetByID fetches one order.
	GetByID(ctx context.Context, id string) (*order.Order, error)

	// Query retrieves orders based on filter criteria.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// AssignRider conditionally assigns a rider and advances the order to
	// preparing. The write applies only while the order is unassigned and
	// in a biddable status; it returns false when the guard fails.
	AssignRider(ctx context.Context, orderID, riderID string, at time.Time) (bool, error)

	// UpdateStatus conditionally moves the order from one exact status to
	// another. Returns false when the order was not in the from status.
	UpdateStatus(ctx context.Context, orderID string, from, to order.Status, at time.Time) (bool, error)

	// SetOTP stores the active delivery code. The write applies only while
	// the order is out for delivery.
	SetOTP(ctx context.Context, orderID, code string, at time.Time) (bool, error)

	// MarkDelivered finalizes delivery: the write applies only when the
	// order is out for delivery and the stored code equals the submitted
	// one. On success the code is cleared. codPaid flips payment status to
	// paid for cash-on-delivery orders.
	MarkDelivered(ctx context.Context, orderID, code string, codPaid bool, at time.Time) (bool, error)

	// Cancel applies cancellation fields while the order is still in a
	// cancellable status. Returns false when the guard fails.
	Cancel(ctx context.Context, orderID, reason string, by order.CancelledBy, at time.Time) (bool, error)

	// CountDeliveredSince returns delivered orders and their summed totals
	// for a rider since the given instant.
	CountDeliveredSince(ctx context.Context, riderID string, since time.Time) (int, int64, error)

	// CountActiveForRider returns the rider's orders in active delivery
	// statuses.
	CountActiveForRider(ctx context.Context, riderID string) (int, error)
}
