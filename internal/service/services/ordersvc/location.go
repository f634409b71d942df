package ordersvc

import (
	"context"
	"log/slog"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// RelayLocation ingests a rider location sample for an order and relays it
// to the order room. Samples older than the latest applied one are dropped,
// so late arrivals never move the marker backwards. Relay stops the moment
// the order leaves active delivery.
func (s *OrderService) RelayLocation(ctx context.Context, orderID, riderID string, sample realtime.Sample) error {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.AssignedTo(riderID) {
		return order.ErrNotAssignee
	}
	if !o.Status.IsActiveDelivery() {
		return order.ErrInvalidTransition
	}
	if sample.Location.IsZero() {
		// No GPS fix yet; nothing worth relaying.
		return nil
	}

	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = s.now()
	}

	if !s.tracker.Apply(orderID, sample) {
		// Stale sample, drop without error so riders on flaky links do
		// not see spurious failures.
		return nil
	}

	s.hub.Publish(realtime.RoomOrder(orderID), realtime.Event{
		Name: event.NameLiveLocation,
		Data: event.LiveLocation{
			OrderID:    orderID,
			Location:   sample.Location,
			Heading:    sample.Heading,
			RecordedAt: sample.RecordedAt,
		},
	})

	if err := s.riderRepo.UpdateLocation(ctx, riderID, sample.Location, sample.RecordedAt); err != nil {
		slog.Warn("failed to persist rider location", "rider_id", riderID, "error", err)
	}

	return nil
}

// LastKnownLocation returns the latest applied sample for an order, for
// customers who join mid-delivery.
func (s *OrderService) LastKnownLocation(orderID string) (realtime.Sample, bool) {
	return s.tracker.Latest(orderID)
}
