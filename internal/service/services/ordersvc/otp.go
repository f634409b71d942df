package ordersvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

var otpSpace = big.NewInt(1_000_000)

// mintCode draws a uniform six digit code, leading zeros kept.
func mintCode() string {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		panic(fmt.Sprintf("crypto rand failed: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// GenerateOTP mints a delivery code for an order that is out for delivery
// and sends it to the customer. The rider triggers generation but never
// receives the code; re-issuing replaces the previous one.
func (s *OrderService) GenerateOTP(ctx context.Context, orderID, riderID string) error {
	now := s.now()

	work := s.uowFactory.New()
	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.AssignedTo(riderID) {
		return order.ErrNotAssignee
	}
	if o.Status != order.StatusOutForDelivery {
		return order.ErrInvalidTransition
	}

	code := mintCode()
	applied, err := work.OrderRepository().SetOTP(ctx, orderID, code, now)
	if err != nil {
		return err
	}
	if !applied {
		return order.ErrInvalidTransition
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(order.StatusOutForDelivery),
		ToStatus:   string(order.StatusOutForDelivery),
		Actor:      auditlog.ActorRider,
		ActorID:    riderID,
		Note:       "delivery code issued",
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return err
	}

	// The code goes to the customer's private room only. It is never
	// broadcast to the order room, which the rider may have joined.
	s.hub.Publish(realtime.RoomCustomer(o.CustomerID), realtime.Event{
		Name: event.NameDeliveryOTP,
		Data: event.DeliveryOTP{
			OrderID: orderID,
			Code:    code,
			Message: "Share this code with your rider to receive your order",
		},
	})

	slog.Info("delivery code issued", "order_id", orderID, "rider_id", riderID)

	return nil
}

// VerifyDelivery completes the handoff: an exact code match moves the order
// to delivered, clears the code, settles cash payments and credits the
// rider. A mismatch leaves the code valid for another attempt.
func (s *OrderService) VerifyDelivery(ctx context.Context, orderID, riderID, code string) (*order.Order, error) {
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
	if o.Status != order.StatusOutForDelivery {
		return nil, order.ErrInvalidTransition
	}
	if o.DeliveryOTP == nil {
		return nil, order.ErrNoActiveOTP
	}

	codPaid := o.PaymentMethod == order.PaymentMethodCOD
	applied, err := work.OrderRepository().MarkDelivered(ctx, orderID, code, codPaid, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, order.ErrInvalidOTP
	}

	update := event.StatusUpdate{
		OrderID: orderID,
		Status:  string(order.StatusDelivered),
		Message: statusMessage(order.StatusDelivered),
	}
	if err := s.stageEvent(ctx, work, orderID, event.NameStatusUpdate, "order.delivered", update); err != nil {
		return nil, err
	}

	entry := auditlog.Entry{
		OrderID:    orderID,
		FromStatus: string(order.StatusOutForDelivery),
		ToStatus:   string(order.StatusDelivered),
		Actor:      auditlog.ActorRider,
		ActorID:    riderID,
		Note:       "delivery code verified",
		OccurredAt: now,
	}
	if err := work.AuditRepository().Insert(ctx, entry); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	if err := s.riderRepo.IncrementDeliveries(ctx, riderID); err != nil {
		slog.Error("failed to credit rider delivery", "rider_id", riderID, "error", err)
	}

	o.Status = order.StatusDelivered
	o.DeliveryOTP = nil
	o.OTPVerifiedAt = &now
	o.DeliveredAt = &now
	if codPaid {
		o.PaymentStatus = order.PaymentStatusPaid
	}
	o.UpdatedAt = now

	s.broadcastStatus(orderID, order.StatusDelivered)
	s.cacheStatus(ctx, orderID, order.StatusDelivered)
	s.closeOut(orderID)

	slog.Info("order delivered", "order_id", orderID, "rider_id", riderID)

	return o, nil
}
