package ordersvc

import (
	"context"
	"log/slog"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// Accept assigns an order to a rider. The conditional write guarantees a
// single winner under concurrent accepts: losers get ErrAlreadyAssigned. A
// repeated accept by the current assignee returns the order unchanged.
func (s *OrderService) Accept(ctx context.Context, orderID, riderID string) (*order.Order, error) {
	rd, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if err := riderEligible(rd); err != nil {
		return nil, err
	}

	now := s.now()

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	applied, err := work.OrderRepository().AssignRider(ctx, orderID, riderID, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The guard failed: decide between an idempotent repeat, a lost
		// race, and a dead order. The earlier read may predate a rival's
		// commit, so classify from a fresh row.
		o, err = work.OrderRepository().GetByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if o.AssignedTo(riderID) {
			return o, nil
		}
		if o.Assigned() {
			return nil, order.ErrAlreadyAssigned
		}
		return nil, order.ErrInvalidTransition
	}

	taken := event.OrderTaken{OrderID: orderID}
	if err := s.stageEvent(ctx, work, orderID, event.NameOrderTaken, "order.taken", taken); err != nil {
		return nil, err
	}
	update := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(order.StatusPreparing),
		Message: statusMessage(order.StatusPreparing),
	}
	if err := s.stageEvent(ctx, work, orderID, event.NameStatusUpdate, "order.status_update", update); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(o.Status),
		ToStatus:   string(order.StatusPreparing),
		Actor:      auditlog.ActorRider,
		ActorID:    riderID,
		Note:       "order accepted",
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	o.RiderID = &riderID
	o.Status = order.StatusPreparing
	o.AcceptedAt = &now
	o.UpdatedAt = now

	s.hub.Publish(realtime.RoomRiders, realtime.Event{Name: event.NameOrderTaken, Data: taken})
	s.broadcastStatus(orderID, order.StatusPreparing)
	s.cacheStatus(ctx, orderID, order.StatusPreparing)

	slog.Info("order accepted", "order_id", orderID, "rider_id", riderID)

	return o, nil
}

// Pickup marks the order picked up and out for delivery. Only the assigned
// rider may call it, and only from preparing.
func (s *OrderService) Pickup(ctx context.Context, orderID, riderID string) (*order.Order, error) {
	now := s.now()

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.AssignedTo(riderID) {
		return nil, order.ErrNotAssignee
	}

	applied, err := work.OrderRepository().UpdateStatus(ctx, orderID, order.StatusPreparing, order.StatusOutForDelivery, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, order.ErrInvalidTransition
	}

	update := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(order.StatusOutForDelivery),
		Message: statusMessage(order.StatusOutForDelivery),
	}
	if err := s.stageEvent(ctx, work, orderID, event.NameStatusUpdate, "order.status_update", update); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(order.StatusPreparing),
		ToStatus:   string(order.StatusOutForDelivery),
		Actor:      auditlog.ActorRider,
		ActorID:    riderID,
		Note:       "order picked up",
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	o.Status = order.StatusOutForDelivery
	o.PickedUpAt = &now
	o.UpdatedAt = now

	s.broadcastStatus(orderID, order.StatusOutForDelivery)
	s.cacheStatus(ctx, orderID, order.StatusOutForDelivery)

	slog.Info("order picked up", "order_id", orderID, "rider_id", riderID)

	return o, nil
}

// Cancel cancels an order on behalf of the given actor. Customers may only
// cancel their own orders before pickup; the assigned rider and the pool are
// notified.
func (s *OrderService) Cancel(ctx context.Context, orderID, reason string, by order.CancelledBy, actorID string) (*order.Order, error) {
	now := s.now()

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if by == order.CancelledByCustomer && o.CustomerID != actorID {
		return nil, order.ErrNotFound
	}

	applied, err := work.OrderRepository().Cancel(ctx, orderID, reason, by, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, order.ErrNotCancellable
	}

	cancelled := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(order.StatusCancelled),
		Message: statusMessage(order.StatusCancelled),
	}
	if err := s.stageEvent(ctx, work, orderID, event.NameOrderCancelled, "order.cancelled", cancelled); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(o.Status),
		ToStatus:   string(order.StatusCancelled),
		Actor:      auditlog.Actor(by),
		ActorID:    actorID,
		Note:       reason,
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	o.Status = order.StatusCancelled
	o.CancelledAt = &now
	o.CancellationReason = reason
	o.CancelledBy = by
	o.UpdatedAt = now

	s.broadcastStatus(orderID, order.StatusCancelled)
	// Pull the order out of the pool and tell the assigned rider, if any.
	s.hub.Publish(realtime.RoomRiders, realtime.Event{Name: event.NameOrderCancelled, Data: event.OrderTaken{OrderID: orderID}})
	if o.RiderID != nil {
		s.hub.Publish(realtime.RoomRider(*o.RiderID), realtime.Event{Name: event.NameOrderCancelled, Data: cancelled})
	}
	s.cacheStatus(ctx, orderID, order.StatusCancelled)
	s.closeOut(orderID)

	slog.Info("order cancelled", "order_id", orderID, "cancelled_by", string(by), "reason", reason)

	return o, nil
}

// UpdateStatus applies an admin-driven transition, typically pending to
// confirmed. Cancellation and delivery have their own flows.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to order.Status, adminID string) (*order.Order, error) {
	if to == order.StatusCancelled {
		return s.Cancel(ctx, orderID, "cancelled by admin", order.CancelledByAdmin, adminID)
	}
	if to == order.StatusDelivered {
		// Delivery completes only through code verification.
		return nil, order.ErrInvalidTransition
	}

	now := s.now()

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, to) {
		return nil, order.ErrInvalidTransition
	}

	applied, err := work.OrderRepository().UpdateStatus(ctx, orderID, o.Status, to, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, order.ErrInvalidTransition
	}

	update := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(to),
		Message: statusMessage(to),
	}
	if err := s.stageEvent(ctx, work, orderID, event.NameStatusUpdate, "order.status_update", update); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(o.Status),
		ToStatus:   string(to),
		Actor:      auditlog.ActorAdmin,
		ActorID:    adminID,
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	o.Status = to
	o.UpdatedAt = now

	s.broadcastStatus(orderID, to)
	s.cacheStatus(ctx, orderID, to)

	return o, nil
}

// closeOut tears down realtime state once an order reaches a terminal
// status.
func (s *OrderService) closeOut(orderID string) {
	s.hub.CloseRoom(realtime.RoomOrder(orderID))
	s.tracker.Forget(orderID)
}
