package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	dalpg "github.com/everestmart/delivery-svc/internal/dal/postgres"
	"github.com/everestmart/delivery-svc/internal/service/models/order"
)

// OrderRepository implements the order repository for PostgreSQL. Items and
// the shipping address are stored as JSONB alongside the order row; every
// lifecycle write is a conditional UPDATE so the database enforces the
// single-writer and transition guards.
type OrderRepository struct {
	conn dalpg.Querier
}

// NewOrderRepository creates a new order repository over a pool or an open
// transaction.
func NewOrderRepository(conn dalpg.Querier) *OrderRepository {
	return &OrderRepository{conn: conn}
}

var orderColumns = []string{
	"id",
	"customer_id",
	"items",
	"subtotal_cents",
	"delivery_charge_cents",
	"total_cents",
	"shipping_address",
	"payment_method",
	"payment_status",
	"status",
	"rider_id",
	"delivery_otp",
	"otp_generated_at",
	"otp_verified_at",
	"cancelled_at",
	"cancellation_reason",
	"cancelled_by",
	"accepted_at",
	"picked_up_at",
	"delivered_at",
	"created_at",
	"updated_at",
}

// Insert stores a new order with its items.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query, args, err := sq.Insert("orders").
		Columns(
			"id",
			"customer_id",
			"items",
			"subtotal_cents",
			"delivery_charge_cents",
			"total_cents",
			"shipping_address",
			"payment_method",
			"payment_status",
			"status",
			"delivery_otp",
			"otp_generated_at",
			"created_at",
			"updated_at",
		).
		Values(
			o.ID,
			o.CustomerID,
			items,
			o.SubtotalCents,
			o.DeliveryChargeCents,
			o.TotalCents,
			address,
			string(o.PaymentMethod),
			string(o.PaymentStatus),
			string(o.Status),
			o.DeliveryOTP,
			o.OTPGeneratedAt,
			o.CreatedAt,
			o.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID fetches one order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	return o, nil
}

// Query retrieves orders based on filter criteria.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.CustomerIds) > 0 {
		builder = builder.Where(sq.Eq{"customer_id": filter.CustomerIds})
	}
	if len(filter.RiderIds) > 0 {
		builder = builder.Where(sq.Eq{"rider_id": filter.RiderIds})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.Unassigned {
		builder = builder.Where(sq.Eq{"rider_id": nil})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// AssignRider conditionally assigns a rider. First successful accept wins:
// the row guard requires the order to be unassigned and biddable.
func (r *OrderRepository) AssignRider(ctx context.Context, orderID, riderID string, at time.Time) (bool, error) {
	biddable := make([]string, 0, 3)
	for _, s := range order.BiddableStatuses() {
		biddable = append(biddable, string(s))
	}

	query, args, err := sq.Update("orders").
		Set("rider_id", riderID).
		Set("status", string(order.StatusPreparing)).
		Set("accepted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID}).
		Where(sq.Eq{"rider_id": nil}).
		Where(sq.Eq{"status": biddable}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build assign query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to assign rider: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateStatus conditionally moves the order between two exact statuses.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, from, to order.Status, at time.Time) (bool, error) {
	builder := sq.Update("orders").
		Set("status", string(to)).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID}).
		Where(sq.Eq{"status": string(from)}).
		PlaceholderFormat(sq.Dollar)

	if to == order.StatusOutForDelivery {
		builder = builder.Set("picked_up_at", at)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build status update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SetOTP stores the active delivery code while the order is out for
// delivery. Re-issuing replaces the previous code.
func (r *OrderRepository) SetOTP(ctx context.Context, orderID, code string, at time.Time) (bool, error) {
	query, args, err := sq.Update("orders").
		Set("delivery_otp", code).
		Set("otp_generated_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID}).
		Where(sq.Eq{"status": string(order.StatusOutForDelivery)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build otp update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to set otp: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkDelivered finalizes delivery when the submitted code matches the
// stored one. The code is cleared in the same write.
func (r *OrderRepository) MarkDelivered(ctx context.Context, orderID, code string, codPaid bool, at time.Time) (bool, error) {
	builder := sq.Update("orders").
		Set("status", string(order.StatusDelivered)).
		Set("delivery_otp", nil).
		Set("otp_verified_at", at).
		Set("delivered_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID}).
		Where(sq.Eq{"status": string(order.StatusOutForDelivery)}).
		Where(sq.Eq{"delivery_otp": code}).
		PlaceholderFormat(sq.Dollar)

	if codPaid {
		builder = builder.Set("payment_status", string(order.PaymentStatusPaid))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build delivery update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to mark delivered: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Cancel applies cancellation fields while the order is still cancellable.
func (r *OrderRepository) Cancel(ctx context.Context, orderID, reason string, by order.CancelledBy, at time.Time) (bool, error) {
	cancellable := make([]string, 0, 3)
	for _, s := range []order.Status{order.StatusPending, order.StatusConfirmed, order.StatusPreparing} {
		cancellable = append(cancellable, string(s))
	}

	query, args, err := sq.Update("orders").
		Set("status", string(order.StatusCancelled)).
		Set("cancelled_at", at).
		Set("cancellation_reason", reason).
		Set("cancelled_by", string(by)).
		Set("updated_at", at).
		Where(sq.Eq{"id": orderID}).
		Where(sq.Eq{"status": cancellable}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build cancel query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// CountDeliveredSince returns delivered orders and summed totals for a
// rider since the given instant.
func (r *OrderRepository) CountDeliveredSince(ctx context.Context, riderID string, since time.Time) (int, int64, error) {
	query, args, err := sq.Select("COUNT(*)", "COALESCE(SUM(total_cents), 0)").
		From("orders").
		Where(sq.Eq{"rider_id": riderID}).
		Where(sq.Eq{"status": string(order.StatusDelivered)}).
		Where(sq.GtOrEq{"delivered_at": since}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build earnings query: %w", err)
	}

	var count int
	var total int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count, &total); err != nil {
		return 0, 0, fmt.Errorf("failed to query delivered stats: %w", err)
	}

	return count, total, nil
}

// CountActiveForRider returns the rider's orders in active delivery
// statuses.
func (r *OrderRepository) CountActiveForRider(ctx context.Context, riderID string) (int, error) {
	active := []string{
		string(order.StatusPreparing),
		string(order.StatusOutForDelivery),
	}

	query, args, err := sq.Select("COUNT(*)").
		From("orders").
		Where(sq.Eq{"rider_id": riderID}).
		Where(sq.Eq{"status": active}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build active count query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active orders: %w", err)
	}

	return count, nil
}

// scanOrder reads one row in orderColumns order.
func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o             order.Order
		items         []byte
		address       []byte
		paymentMethod string
		paymentStatus string
		status        string
		cancelledBy   *string
		cancelledNote *string
	)

	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&items,
		&o.SubtotalCents,
		&o.DeliveryChargeCents,
		&o.TotalCents,
		&address,
		&paymentMethod,
		&paymentStatus,
		&status,
		&o.RiderID,
		&o.DeliveryOTP,
		&o.OTPGeneratedAt,
		&o.OTPVerifiedAt,
		&o.CancelledAt,
		&cancelledNote,
		&cancelledBy,
		&o.AcceptedAt,
		&o.PickedUpAt,
		&o.DeliveredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
	}
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	if cancelledNote != nil {
		o.CancellationReason = *cancelledNote
	}
	if cancelledBy != nil {
		o.CancelledBy = order.CancelledBy(*cancelledBy)
	}

	return &o, nil
}
