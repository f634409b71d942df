package ordersvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iriderrepo"
	"github.com/everestmart/delivery-svc/internal/dal/uow"
	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/models/outbox"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
)

const producerName = "delivery-svc"

// statusCache is the advisory order status cache. Write failures are logged
// and never fail the operation.
type statusCache interface {
	SetOrderStatus(ctx context.Context, orderID, status string, at time.Time) error
	GetOrderStatus(ctx context.Context, orderID string) (status string, updatedAt time.Time, ok bool, err error)
}

// OrderService owns the order lifecycle: checkout, the accept race, pickup,
// the delivery code handshake and cancellation. Every transition commits
// atomically with its outbox events and audit entry, then fans out over the
// realtime hub.
type OrderService struct {
	uowFactory uow.IUnitOfWorkFactory
	riderRepo  iriderrepo.IRiderRepository
	cache      statusCache
	hub        *realtime.Hub
	tracker    *realtime.Tracker
	pricing    order.Pricing
	exchange   string
	maxRetries int
	now        func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		pricing: order.Pricing{
			DeliveryFeeCents:           viper.GetInt64("pricing.delivery_fee_cents"),
			FreeDeliveryThresholdCents: viper.GetInt64("pricing.free_delivery_threshold_cents"),
		},
		exchange:   viper.GetString("rabbitmq.exchange"),
		maxRetries: 5,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.uowFactory == nil {
		panic("order service requires a unit of work factory")
	}
	if s.hub == nil {
		s.hub = realtime.NewHub()
	}
	if s.tracker == nil {
		s.tracker = realtime.NewTracker()
	}

	return s
}

// WithUnitOfWorkFactory sets the transactional repository factory.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(f uow.IUnitOfWorkFactory) option {
	return func(s *OrderService) {
		s.uowFactory = f
	}
}

// WithRiderRepository sets the rider repository used for eligibility checks.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRiderRepository(r iriderrepo.IRiderRepository) option {
	return func(s *OrderService) {
		s.riderRepo = r
	}
}

// WithStatusCache sets the advisory status cache.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithStatusCache(c statusCache) option {
	return func(s *OrderService) {
		s.cache = c
	}
}

// WithHub sets the realtime hub shared with the transports.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHub(h *realtime.Hub) option {
	return func(s *OrderService) {
		s.hub = h
	}
}

// WithTracker sets the live location tracker shared with the transports.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTracker(t *realtime.Tracker) option {
	return func(s *OrderService) {
		s.tracker = t
	}
}

// WithPricing overrides the delivery charge rule.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPricing(p order.Pricing) option {
	return func(s *OrderService) {
		s.pricing = p
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// Hub returns the realtime hub so transports can subscribe.
func (s *OrderService) Hub() *realtime.Hub {
	return s.hub
}

// Tracker returns the live location tracker.
func (s *OrderService) Tracker() *realtime.Tracker {
	return s.tracker
}

// stageEvent appends one broker event to the outbox inside the caller's
// transaction. routingKey follows the order.{action} topic scheme consumed
// downstream.
func (s *OrderService) stageEvent(
	ctx context.Context,
	work uow.IUnitOfWork,
	orderID, eventType, routingKey string,
	payload any,
) error {
	env := event.Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: s.now(),
		Producer:   producerName,
		OrderID:    orderID,
		Payload:    event.MustMarshal(payload),
	}

	now := s.now()

	return work.OutboxRepository().Insert(ctx, outbox.Message{
		ExchangeName: s.exchange,
		RoutingKey:   routingKey,
		Payload:      event.MustMarshal(env),
		ContentType:  "application/json",
		MaxRetries:   s.maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
}

// riderEligible gates the pool: only approved, online riders may see or
// accept orders. Ineligible riders get the more specific of the two errors.
func riderEligible(rd *rider.Rider) error {
	if rd.Eligible() {
		return nil
	}
	if rd.Status != rider.StatusApproved {
		return rider.ErrNotApproved
	}
	return rider.ErrNotAvailable
}

// statusMessage is the human text shipped with status update events.
func statusMessage(st order.Status) string {
	switch st {
	case order.StatusConfirmed:
		return "Your order has been confirmed"
	case order.StatusPreparing:
		return "A rider has been assigned and your order is being prepared"
	case order.StatusOutForDelivery:
		return "Your order is out for delivery"
	case order.StatusDelivered:
		return "Your order has been delivered"
	case order.StatusCancelled:
		return "Your order has been cancelled"
	default:
		return "Your order has been placed"
	}
}
