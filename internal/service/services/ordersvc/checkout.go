package ordersvc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// CheckoutModel is the service-level input for placing an order. Item prices
// come from the catalog boundary; client-submitted totals are ignored and
// recomputed here.
type CheckoutModel struct {
	CustomerID      string
	Items           []order.Item
	ShippingAddress order.Address
	PaymentMethod   order.PaymentMethod
}

// Checkout places a new order. The order starts pending and unassigned, is
// announced to the rider pool, and its creation is staged to the broker
// outbox in the same transaction.
func (s *OrderService) Checkout(ctx context.Context, model CheckoutModel) (*order.Order, error) {
	if len(model.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}
	for _, it := range model.Items {
		if it.Quantity <= 0 || it.UnitPriceCents < 0 {
			return nil, order.ErrEmptyOrder
		}
	}
	if model.PaymentMethod == "" {
		model.PaymentMethod = order.PaymentMethodCOD
	}

	now := s.now()
	subtotal, charge, total := s.pricing.Price(model.Items)

	o := &order.Order{
		ID:                  uuid.NewString(),
		CustomerID:          model.CustomerID,
		Items:               model.Items,
		SubtotalCents:       subtotal,
		DeliveryChargeCents: charge,
		TotalCents:          total,
		ShippingAddress:     model.ShippingAddress,
		PaymentMethod:       model.PaymentMethod,
		PaymentStatus:       order.PaymentStatusPending,
		Status:              order.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = work.Rollback(ctx) }()

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return nil, err
	}

	announce := event.NewOrderAvailable{
		OrderID:    o.ID,
		City:       o.ShippingAddress.City,
		TotalCents: o.TotalCents,
		ItemCount:  len(o.Items),
	}
	if err := s.stageEvent(ctx, work, o.ID, event.NameNewOrderAvailable, "order.created", announce); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    o.ID,
		ToStatus:   string(order.StatusPending),
		Actor:      auditlog.ActorCustomer,
		ActorID:    o.CustomerID,
		Note:       "order placed",
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	s.hub.Publish(realtime.RoomRiders, realtime.Event{Name: event.NameNewOrderAvailable, Data: announce})
	s.cacheStatus(ctx, o.ID, o.Status)

	slog.Info("order placed",
		"order_id", o.ID,
		"customer_id", o.CustomerID,
		"total_cents", o.TotalCents,
	)

	return o, nil
}

// cacheStatus writes through the advisory status cache. Failures only log.
func (s *OrderService) cacheStatus(ctx context.Context, orderID string, st order.Status) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetOrderStatus(ctx, orderID, string(st), s.now()); err != nil {
		slog.Warn("failed to cache order status", "order_id", orderID, "error", err)
	}
}

// broadcastStatus pushes a status update to the order room and the admin
// dashboard.
func (s *OrderService) broadcastStatus(orderID string, st order.Status) {
	update := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(st),
		Message: statusMessage(st),
	}
	s.hub.Publish(realtime.RoomOrder(orderID), realtime.Event{Name: event.NameStatusUpdate, Data: update})
	s.hub.Publish(realtime.RoomAdmin, realtime.Event{Name: event.NameStatusUpdate, Data: update})
}
