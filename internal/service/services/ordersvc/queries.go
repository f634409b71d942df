package ordersvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// GetOrder fetches one order. Callers apply their own view: the transport
// strips the delivery code for anyone but the customer.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	work := s.uowFactory.New()
	return work.OrderRepository().GetByID(ctx, orderID)
}

// ListCustomerOrders pages through a customer's orders, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string, limit, offset int) ([]order.Order, error) {
	work := s.uowFactory.New()
	return work.OrderRepository().Query(ctx, &order.QueryOrdersModel{
		CustomerIds: []string{customerID},
		Limit:       limit,
		Offset:      offset,
	})
}

// ListOrders is the admin listing with arbitrary filters.
func (s *OrderService) ListOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	work := s.uowFactory.New()
	return work.OrderRepository().Query(ctx, filter)
}

// AvailableOrders returns the pool of unassigned biddable orders visible to
// an approved, online rider. Codes are stripped from the results.
func (s *OrderService) AvailableOrders(ctx context.Context, riderID string) ([]order.Order, error) {
	rd, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if err := riderEligible(rd); err != nil {
		return nil, err
	}

	work := s.uowFactory.New()
	orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{
		Statuses:   order.BiddableStatuses(),
		Unassigned: true,
	})
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i] = orders[i].View()
	}

	return orders, nil
}

// RiderOrders lists a rider's orders, optionally filtered by status. Codes
// are stripped: riders collect them from customers, never from the API.
func (s *OrderService) RiderOrders(ctx context.Context, riderID string, statuses []order.Status, limit, offset int) ([]order.Order, error) {
	work := s.uowFactory.New()
	orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{
		RiderIds: []string{riderID},
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i] = orders[i].View()
	}

	return orders, nil
}

// TrackStatus answers the polling fallback from the cache when possible,
// falling through to the database on a miss.
func (s *OrderService) TrackStatus(ctx context.Context, orderID string) (order.Status, time.Time, error) {
	if s.cache != nil {
		st, at, ok, err := s.cache.GetOrderStatus(ctx, orderID)
		if err != nil {
			slog.Warn("status cache read failed", "order_id", orderID, "error", err)
		} else if ok {
			return order.Status(st), at, nil
		}
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", time.Time{}, err
	}
	s.cacheStatus(ctx, orderID, o.Status)

	return o.Status, o.UpdatedAt, nil
}

// History returns the audit trail of an order, oldest first.
func (s *OrderService) History(ctx context.Context, orderID string) ([]auditlog.Entry, error) {
	work := s.uowFactory.New()
	return work.AuditRepository().ListByOrder(ctx, orderID)
}
