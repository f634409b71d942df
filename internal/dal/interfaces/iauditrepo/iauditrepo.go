package iauditrepo

import (
	"context"

	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
)

// IAuditRepository defines the interface for the transition audit log.
type IAuditRepository interface {
	// Insert records one order status transition.
	Insert(ctx context.Context, entry auditlog.Entry) error

	// ListByOrder returns the transition history of an order, oldest first.
	ListByOrder(ctx context.Context, orderID string) ([]auditlog.Entry, error)
}
