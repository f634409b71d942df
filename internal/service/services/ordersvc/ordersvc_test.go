package ordersvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
	"github.com/everestmart/delivery-svc/internal/service/services/ordersvc"
)

type fixture struct {
	svc        *ordersvc.OrderService
	orderRepo  *memOrderRepo
	riderRepo  *memRiderRepo
	outboxRepo *memOutboxRepo
	auditRepo  *memAuditRepo
	hub        *realtime.Hub
	cache      *memCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orderRepo:  newMemOrderRepo(),
		riderRepo:  newMemRiderRepo(),
		outboxRepo: &memOutboxRepo{},
		auditRepo:  &memAuditRepo{},
		hub:        realtime.NewHub(),
		cache:      newMemCache(),
	}

	f.svc = ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWorkFactory(&memFactory{work: &memUOW{
			orderRepo:  f.orderRepo,
			outboxRepo: f.outboxRepo,
			auditRepo:  f.auditRepo,
		}}),
		ordersvc.WithRiderRepository(f.riderRepo),
		ordersvc.WithStatusCache(f.cache),
		ordersvc.WithHub(f.hub),
		ordersvc.WithTracker(realtime.NewTracker()),
		ordersvc.WithPricing(order.Pricing{DeliveryFeeCents: 4000, FreeDeliveryThresholdCents: 25000}),
	)

	return f
}

func (f *fixture) addRider(id string, status rider.ApprovalStatus, available bool) {
	_ = f.riderRepo.Insert(context.Background(), &rider.Rider{
		ID:          id,
		Name:        "Test Rider",
		Email:       id + "@example.com",
		Status:      status,
		IsAvailable: available,
	})
}

func (f *fixture) checkout(t *testing.T, customerID string) *order.Order {
	t.Helper()
	o, err := f.svc.Checkout(context.Background(), ordersvc.CheckoutModel{
		CustomerID:    customerID,
		Items:         []order.Item{{ProductID: "p1", Name: "Rice 5kg", Quantity: 2, UnitPriceCents: 6000}},
		PaymentMethod: order.PaymentMethodCOD,
	})
	require.NoError(t, err)
	return o
}

func drain(sub *realtime.Subscriber) []realtime.Event {
	var events []realtime.Event
	for {
		select {
		case ev := <-sub.C():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)

	pool := f.hub.Subscribe(8)
	pool.Join(realtime.RoomRiders)

	o := f.checkout(t, "cust-1")

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, int64(12000), o.SubtotalCents)
	assert.Equal(t, int64(4000), o.DeliveryChargeCents)
	assert.Equal(t, int64(16000), o.TotalCents)
	assert.Nil(t, o.RiderID)
	assert.Nil(t, o.DeliveryOTP)

	events := drain(pool)
	require.Len(t, events, 1)
	assert.Equal(t, event.NameNewOrderAvailable, events[0].Name)

	assert.Len(t, f.outboxRepo.messages, 1)
	assert.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, "pending", f.cache.statuses[o.ID])
}

func TestCheckoutRejectsEmptyAndInvalidItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), ordersvc.CheckoutModel{CustomerID: "cust-1"})
	assert.ErrorIs(t, err, order.ErrEmptyOrder)

	_, err = f.svc.Checkout(context.Background(), ordersvc.CheckoutModel{
		CustomerID: "cust-1",
		Items:      []order.Item{{ProductID: "p1", Quantity: 0, UnitPriceCents: 100}},
	})
	assert.ErrorIs(t, err, order.ErrEmptyOrder)
}

func TestAcceptFirstRiderWins(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)
	f.addRider("rider-2", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")

	pool := f.hub.Subscribe(8)
	pool.Join(realtime.RoomRiders)

	won, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, won.Status)
	require.NotNil(t, won.RiderID)
	assert.Equal(t, "rider-1", *won.RiderID)

	// The loser gets a conflict, not a retry invitation.
	_, err = f.svc.Accept(context.Background(), o.ID, "rider-2")
	assert.ErrorIs(t, err, order.ErrAlreadyAssigned)

	// A repeat by the winner is idempotent.
	again, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, "rider-1", *again.RiderID)

	events := drain(pool)
	require.NotEmpty(t, events)
	assert.Equal(t, event.NameOrderTaken, events[0].Name)
}

func TestAcceptLostRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	racing := &racingOrderRepo{memOrderRepo: f.orderRepo, rivalID: "rider-1"}
	f.svc = ordersvc.MustNewOrderService(
		ordersvc.WithUnitOfWorkFactory(&memFactory{work: &memUOW{
			orderRepo:  racing,
			outboxRepo: f.outboxRepo,
			auditRepo:  f.auditRepo,
		}}),
		ordersvc.WithRiderRepository(f.riderRepo),
		ordersvc.WithStatusCache(f.cache),
		ordersvc.WithHub(f.hub),
		ordersvc.WithTracker(realtime.NewTracker()),
		ordersvc.WithPricing(order.Pricing{DeliveryFeeCents: 4000, FreeDeliveryThresholdCents: 25000}),
	)
	f.addRider("rider-1", rider.StatusApproved, true)
	f.addRider("rider-2", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")

	// rider-2 read the order unassigned, but rider-1's accept committed
	// first; the loser must see a conflict, not a bad-transition error.
	_, err := f.svc.Accept(context.Background(), o.ID, "rider-2")
	assert.ErrorIs(t, err, order.ErrAlreadyAssigned)

	stored, err := f.orderRepo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RiderID)
	assert.Equal(t, "rider-1", *stored.RiderID)
}

func TestAcceptRequiresEligibleRider(t *testing.T) {
	f := newFixture(t)
	f.addRider("pending-rider", rider.StatusPending, true)
	f.addRider("offline-rider", rider.StatusApproved, false)

	o := f.checkout(t, "cust-1")

	_, err := f.svc.Accept(context.Background(), o.ID, "pending-rider")
	assert.ErrorIs(t, err, rider.ErrNotApproved)

	_, err = f.svc.Accept(context.Background(), o.ID, "offline-rider")
	assert.ErrorIs(t, err, rider.ErrNotAvailable)

	_, err = f.svc.Accept(context.Background(), o.ID, "ghost")
	assert.ErrorIs(t, err, rider.ErrNotFound)
}

func TestPickup(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")
	_, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)

	_, err = f.svc.Pickup(context.Background(), o.ID, "rider-2")
	assert.ErrorIs(t, err, order.ErrNotAssignee)

	picked, err := f.svc.Pickup(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusOutForDelivery, picked.Status)
	assert.NotNil(t, picked.PickedUpAt)

	// Pickup is not repeatable.
	_, err = f.svc.Pickup(context.Background(), o.ID, "rider-1")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestDeliveryCodeHandshake(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")
	_, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)

	// No code before the order is out for delivery.
	err = f.svc.GenerateOTP(context.Background(), o.ID, "rider-1")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = f.svc.Pickup(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)

	// Verification before a code exists fails distinctly.
	_, err = f.svc.VerifyDelivery(context.Background(), o.ID, "rider-1", "000000")
	assert.ErrorIs(t, err, order.ErrNoActiveOTP)

	customer := f.hub.Subscribe(8)
	customer.Join(realtime.RoomCustomer("cust-1"))
	riderRoom := f.hub.Subscribe(8)
	riderRoom.Join(realtime.RoomRider("rider-1"))

	require.NoError(t, f.svc.GenerateOTP(context.Background(), o.ID, "rider-1"))

	// The code reaches the customer room only.
	customerEvents := drain(customer)
	require.Len(t, customerEvents, 1)
	assert.Equal(t, event.NameDeliveryOTP, customerEvents[0].Name)
	payload, ok := customerEvents[0].Data.(event.DeliveryOTP)
	require.True(t, ok)
	assert.Len(t, payload.Code, 6)
	assert.Empty(t, drain(riderRoom), "rider must never receive the code")

	// A wrong code leaves the order and code untouched.
	wrong := "000000"
	if payload.Code == wrong {
		wrong = "000001"
	}
	_, err = f.svc.VerifyDelivery(context.Background(), o.ID, "rider-1", wrong)
	assert.ErrorIs(t, err, order.ErrInvalidOTP)

	stored, err := f.orderRepo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusOutForDelivery, stored.Status)
	require.NotNil(t, stored.DeliveryOTP)

	// The right code completes the handshake.
	delivered, err := f.svc.VerifyDelivery(context.Background(), o.ID, "rider-1", payload.Code)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, delivered.Status)
	assert.Nil(t, delivered.DeliveryOTP)
	assert.Equal(t, order.PaymentStatusPaid, delivered.PaymentStatus, "COD settles on delivery")

	rd, err := f.riderRepo.GetByID(context.Background(), "rider-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rd.TotalDeliveries)

	// Terminal state: no further verification, room torn down.
	_, err = f.svc.VerifyDelivery(context.Background(), o.ID, "rider-1", payload.Code)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Zero(t, f.hub.RoomSize(realtime.RoomOrder(o.ID)))
}

func TestReissueReplacesCode(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")
	_, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)
	_, err = f.svc.Pickup(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)

	customer := f.hub.Subscribe(8)
	customer.Join(realtime.RoomCustomer("cust-1"))

	require.NoError(t, f.svc.GenerateOTP(context.Background(), o.ID, "rider-1"))
	first := drain(customer)[0].Data.(event.DeliveryOTP).Code

	require.NoError(t, f.svc.GenerateOTP(context.Background(), o.ID, "rider-1"))
	second := drain(customer)[0].Data.(event.DeliveryOTP).Code

	stored, err := f.orderRepo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveryOTP)
	assert.Equal(t, second, *stored.DeliveryOTP)

	if first != second {
		_, err = f.svc.VerifyDelivery(context.Background(), o.ID, "rider-1", first)
		assert.ErrorIs(t, err, order.ErrInvalidOTP, "replaced code must not verify")
	}
}

func TestCancelWindow(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")

	// Another customer cannot cancel someone else's order.
	_, err := f.svc.Cancel(context.Background(), o.ID, "changed my mind", order.CancelledByCustomer, "cust-2")
	assert.ErrorIs(t, err, order.ErrNotFound)

	cancelled, err := f.svc.Cancel(context.Background(), o.ID, "changed my mind", order.CancelledByCustomer, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, order.CancelledByCustomer, cancelled.CancelledBy)

	// Once out for delivery, cancellation is closed.
	o2 := f.checkout(t, "cust-1")
	_, err = f.svc.Accept(context.Background(), o2.ID, "rider-1")
	require.NoError(t, err)
	_, err = f.svc.Pickup(context.Background(), o2.ID, "rider-1")
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), o2.ID, "too late", order.CancelledByCustomer, "cust-1")
	assert.ErrorIs(t, err, order.ErrNotCancellable)
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newFixture(t)

	o := f.checkout(t, "cust-1")

	confirmed, err := f.svc.UpdateStatus(context.Background(), o.ID, order.StatusConfirmed, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, confirmed.Status)

	// Skipping the state machine is rejected.
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, order.StatusOutForDelivery, "admin-1")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	// Delivery never happens by fiat.
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, order.StatusDelivered, "admin-1")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func TestAvailableOrdersPool(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)
	f.addRider("rider-2", rider.StatusApproved, true)
	f.addRider("offline", rider.StatusApproved, false)

	o1 := f.checkout(t, "cust-1")
	o2 := f.checkout(t, "cust-2")

	pool, err := f.svc.AvailableOrders(context.Background(), "rider-1")
	require.NoError(t, err)
	assert.Len(t, pool, 2)

	_, err = f.svc.AvailableOrders(context.Background(), "offline")
	assert.ErrorIs(t, err, rider.ErrNotAvailable)

	// Accepted orders leave the pool.
	_, err = f.svc.Accept(context.Background(), o1.ID, "rider-1")
	require.NoError(t, err)

	pool, err = f.svc.AvailableOrders(context.Background(), "rider-2")
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, o2.ID, pool[0].ID)
}

func TestRelayLocation(t *testing.T) {
	f := newFixture(t)
	f.addRider("rider-1", rider.StatusApproved, true)

	o := f.checkout(t, "cust-1")
	_, err := f.svc.Accept(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)
	_, err = f.svc.Pickup(context.Background(), o.ID, "rider-1")
	require.NoError(t, err)

	viewer := f.hub.Subscribe(8)
	viewer.Join(realtime.RoomOrder(o.ID))

	base := time.Now()
	newer := realtime.Sample{Location: geo.Point{Lat: 27.71, Lng: 85.33}, RecordedAt: base.Add(10 * time.Second)}
	older := realtime.Sample{Location: geo.Point{Lat: 27.70, Lng: 85.32}, RecordedAt: base}

	err = f.svc.RelayLocation(context.Background(), o.ID, "rider-2", newer)
	assert.ErrorIs(t, err, order.ErrNotAssignee)

	require.NoError(t, f.svc.RelayLocation(context.Background(), o.ID, "rider-1", newer))
	// The stale sample is dropped without error and without a broadcast.
	require.NoError(t, f.svc.RelayLocation(context.Background(), o.ID, "rider-1", older))
	// So is a zero point: no GPS fix means nothing to relay.
	require.NoError(t, f.svc.RelayLocation(context.Background(), o.ID, "rider-1",
		realtime.Sample{RecordedAt: base.Add(20 * time.Second)}))

	events := drain(viewer)
	require.Len(t, events, 1)
	loc := events[0].Data.(event.LiveLocation)
	assert.Equal(t, newer.Location, loc.Location)

	sample, ok := f.svc.LastKnownLocation(o.ID)
	require.True(t, ok)
	assert.Equal(t, newer.Location, sample.Location)
}

func TestTrackStatusFallsBackToStore(t *testing.T) {
	f := newFixture(t)

	o := f.checkout(t, "cust-1")

	// Warm read hits the cache.
	st, _, err := f.svc.TrackStatus(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, st)

	// A cold cache falls through to the store and repopulates.
	delete(f.cache.statuses, o.ID)
	st, _, err = f.svc.TrackStatus(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, st)
	assert.Equal(t, "pending", f.cache.statuses[o.ID])

	_, _, err = f.svc.TrackStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
}
