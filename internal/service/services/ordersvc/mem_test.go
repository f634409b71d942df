package ordersvc_test

import (
	"context"
	"sync"
	"time"

	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iauditrepo"
	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iorderrepo"
	"github.com/everestmart/delivery-svc/internal/dal/interfaces/ioutboxrepo"
	"github.com/everestmart/delivery-svc/internal/dal/uow"
	"github.com/everestmart/delivery-svc/internal/service/models/auditlog"
	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
	"github.com/everestmart/delivery-svc/internal/service/models/outbox"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
)

// In-memory repositories mirroring the conditional-update semantics of the
// postgres implementations.

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*order.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*order.Order)}
}

func (m *memOrderRepo) Insert(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []order.Order
	for _, o := range m.orders {
		if len(filter.CustomerIds) > 0 && !contains(filter.CustomerIds, o.CustomerID) {
			continue
		}
		if len(filter.RiderIds) > 0 && (o.RiderID == nil || !contains(filter.RiderIds, *o.RiderID)) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		if filter.Unassigned && o.RiderID != nil {
			continue
		}
		result = append(result, *o)
	}
	return result, nil
}

func (m *memOrderRepo) AssignRider(_ context.Context, orderID, riderID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.RiderID != nil || !containsStatus(order.BiddableStatuses(), o.Status) {
		return false, nil
	}
	o.RiderID = &riderID
	o.Status = order.StatusPreparing
	o.AcceptedAt = &at
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, orderID string, from, to order.Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if to == order.StatusOutForDelivery {
		o.PickedUpAt = &at
	}
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrderRepo) SetOTP(_ context.Context, orderID, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != order.StatusOutForDelivery {
		return false, nil
	}
	o.DeliveryOTP = &code
	o.OTPGeneratedAt = &at
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrderRepo) MarkDelivered(_ context.Context, orderID, code string, codPaid bool, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != order.StatusOutForDelivery || o.DeliveryOTP == nil || *o.DeliveryOTP != code {
		return false, nil
	}
	o.Status = order.StatusDelivered
	o.DeliveryOTP = nil
	o.OTPVerifiedAt = &at
	o.DeliveredAt = &at
	if codPaid {
		o.PaymentStatus = order.PaymentStatusPaid
	}
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrderRepo) Cancel(_ context.Context, orderID, reason string, by order.CancelledBy, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || !o.Status.IsCancellable() {
		return false, nil
	}
	o.Status = order.StatusCancelled
	o.CancelledAt = &at
	o.CancellationReason = reason
	o.CancelledBy = by
	o.UpdatedAt = at
	return true, nil
}

func (m *memOrderRepo) CountDeliveredSince(_ context.Context, riderID string, since time.Time) (int, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	var total int64
	for _, o := range m.orders {
		if o.RiderID != nil && *o.RiderID == riderID &&
			o.Status == order.StatusDelivered &&
			o.DeliveredAt != nil && !o.DeliveredAt.Before(since) {
			count++
			total += o.TotalCents
		}
	}
	return count, total, nil
}

func (m *memOrderRepo) CountActiveForRider(_ context.Context, riderID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int
	for _, o := range m.orders {
		if o.RiderID != nil && *o.RiderID == riderID && o.Status.IsActiveDelivery() {
			count++
		}
	}
	return count, nil
}

// racingOrderRepo lands a rival accept between the caller's read and its
// conditional update, reproducing a lost accept race.
type racingOrderRepo struct {
	*memOrderRepo
	rivalID string
	once    sync.Once
}

func (r *racingOrderRepo) AssignRider(ctx context.Context, orderID, riderID string, at time.Time) (bool, error) {
	r.once.Do(func() {
		_, _ = r.memOrderRepo.AssignRider(ctx, orderID, r.rivalID, at)
	})
	return r.memOrderRepo.AssignRider(ctx, orderID, riderID, at)
}

type memRiderRepo struct {
	mu     sync.Mutex
	riders map[string]*rider.Rider
}

func newMemRiderRepo() *memRiderRepo {
	return &memRiderRepo{riders: make(map[string]*rider.Rider)}
}

func (m *memRiderRepo) Insert(_ context.Context, r *rider.Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.riders[r.ID] = &cp
	return nil
}

func (m *memRiderRepo) GetByID(_ context.Context, id string) (*rider.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return nil, rider.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRiderRepo) GetByEmail(_ context.Context, email string) (*rider.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.riders {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rider.ErrNotFound
}

func (m *memRiderRepo) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.riders {
		if r.Email == email || r.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRiderRepo) List(_ context.Context, _, _ int) ([]rider.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []rider.Rider
	for _, r := range m.riders {
		result = append(result, *r)
	}
	return result, nil
}

func (m *memRiderRepo) UpdateApproval(_ context.Context, id string, status rider.ApprovalStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return rider.ErrNotFound
	}
	r.Status = status
	r.RejectionReason = reason
	return nil
}

func (m *memRiderRepo) SetAvailability(_ context.Context, id string, available bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return rider.ErrNotFound
	}
	r.IsAvailable = available
	r.LastOnline = &at
	return nil
}

func (m *memRiderRepo) UpdateLocation(_ context.Context, id string, loc geo.Point, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return rider.ErrNotFound
	}
	r.CurrentLocation = &loc
	r.LastLocationUpdate = &at
	return nil
}

func (m *memRiderRepo) IncrementDeliveries(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return rider.ErrNotFound
	}
	r.TotalDeliveries++
	return nil
}

type memOutboxRepo struct {
	mu       sync.Mutex
	messages []outbox.Message
}

func (m *memOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memOutboxRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.messages) {
		limit = len(m.messages)
	}
	return append([]outbox.Message(nil), m.messages[:limit]...), nil
}

func (m *memOutboxRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memOutboxRepo) UpdateRetry(_ context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].ID == id {
			m.messages[i].RetryCount = retryCount
			m.messages[i].LastError = lastError
			m.messages[i].NextRetryAt = nextRetryAt
		}
	}
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (m *memAuditRepo) Insert(_ context.Context, entry auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditRepo) ListByOrder(_ context.Context, orderID string) ([]auditlog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []auditlog.Entry
	for _, e := range m.entries {
		if e.OrderID == orderID {
			result = append(result, e)
		}
	}
	return result, nil
}

// memUOW satisfies the unit of work over the in-memory repositories; there
// is no transaction to manage.
type memUOW struct {
	orderRepo  iorderrepo.IOrderRepository
	outboxRepo *memOutboxRepo
	auditRepo  *memAuditRepo
}

func (u *memUOW) Begin(context.Context) error    { return nil }
func (u *memUOW) Commit(context.Context) error   { return nil }
func (u *memUOW) Rollback(context.Context) error { return nil }
func (u *memUOW) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}
func (u *memUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}
func (u *memUOW) AuditRepository() iauditrepo.IAuditRepository {
	return u.auditRepo
}

type memFactory struct {
	work *memUOW
}

func (f *memFactory) New() uow.IUnitOfWork { return f.work }

type memCache struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newMemCache() *memCache {
	return &memCache{statuses: make(map[string]string)}
}

func (c *memCache) SetOrderStatus(_ context.Context, orderID, status string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderID] = status
	return nil
}

func (c *memCache) GetOrderStatus(_ context.Context, orderID string) (string, time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.statuses[orderID]
	return st, time.Time{}, ok, nil
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func containsStatus(values []order.Status, v order.Status) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
