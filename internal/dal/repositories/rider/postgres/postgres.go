package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	dalpg "github.com/everestmart/delivery-svc/internal/dal/postgres"
	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
)

// RiderRepository implements the rider repository for PostgreSQL.
type RiderRepository struct {
	conn dalpg.Querier
}

// NewRiderRepository creates a new rider repository.
func NewRiderRepository(conn dalpg.Querier) *RiderRepository {
	return &RiderRepository{conn: conn}
}

var riderColumns = []string{
	"id",
	"name",
	"email",
	"phone",
	"password_hash",
	"status",
	"rejection_reason",
	"is_available",
	"location_lat",
	"location_lng",
	"last_location_update",
	"total_deliveries",
	"last_online",
	"created_at",
	"updated_at",
}

// Insert stores a new rider account.
func (r *RiderRepository) Insert(ctx context.Context, rd *rider.Rider) error {
	var lat, lng *float64
	if rd.CurrentLocation != nil {
		lat = &rd.CurrentLocation.Lat
		lng = &rd.CurrentLocation.Lng
	}

	query, args, err := sq.Insert("riders").
		Columns(
			"id",
			"name",
			"email",
			"phone",
			"password_hash",
			"status",
			"rejection_reason",
			"is_available",
			"location_lat",
			"location_lng",
			"total_deliveries",
			"created_at",
			"updated_at",
		).
		Values(
			rd.ID,
			rd.Name,
			rd.Email,
			rd.Phone,
			rd.PasswordHash,
			string(rd.Status),
			rd.RejectionReason,
			rd.IsAvailable,
			lat,
			lng,
			rd.TotalDeliveries,
			rd.CreatedAt,
			rd.UpdatedAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert rider: %w", err)
	}

	return nil
}

// GetByID fetches one rider.
func (r *RiderRepository) GetByID(ctx context.Context, id string) (*rider.Rider, error) {
	return r.getBy(ctx, sq.Eq{"id": id})
}

// GetByEmail fetches a rider by normalized email.
func (r *RiderRepository) GetByEmail(ctx context.Context, email string) (*rider.Rider, error) {
	return r.getBy(ctx, sq.Eq{"email": email})
}

func (r *RiderRepository) getBy(ctx context.Context, pred sq.Eq) (*rider.Rider, error) {
	query, args, err := sq.Select(riderColumns...).
		From("riders").
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	row := r.conn.QueryRow(ctx, query, args...)
	rd, err := scanRider(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rider.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rider: %w", err)
	}

	return rd, nil
}

// ExistsByEmailOrPhone reports whether an account already uses the email or
// phone.
func (r *RiderRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("riders").
		Where(sq.Or{sq.Eq{"email": email}, sq.Eq{"phone": phone}}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check rider existence: %w", err)
	}

	return count > 0, nil
}

// List pages through riders for the admin back-office.
func (r *RiderRepository) List(ctx context.Context, limit, offset int) ([]rider.Rider, error) {
	builder := sq.Select(riderColumns...).
		From("riders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query riders: %w", err)
	}
	defer rows.Close()

	var riders []rider.Rider
	for rows.Next() {
		rd, err := scanRider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rider: %w", err)
		}
		riders = append(riders, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return riders, nil
}

// UpdateApproval sets the admin approval status and optional reason.
func (r *RiderRepository) UpdateApproval(ctx context.Context, id string, status rider.ApprovalStatus, reason string) error {
	query, args, err := sq.Update("riders").
		Set("status", string(status)).
		Set("rejection_reason", reason).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build approval update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rider.ErrNotFound
	}

	return nil
}

// SetAvailability toggles the online flag and stamps last online.
func (r *RiderRepository) SetAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	query, args, err := sq.Update("riders").
		Set("is_available", available).
		Set("last_online", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build availability update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rider.ErrNotFound
	}

	return nil
}

// UpdateLocation stores the rider's current position.
func (r *RiderRepository) UpdateLocation(ctx context.Context, id string, loc geo.Point, at time.Time) error {
	query, args, err := sq.Update("riders").
		Set("location_lat", loc.Lat).
		Set("location_lng", loc.Lng).
		Set("last_location_update", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build location update: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rider.ErrNotFound
	}

	return nil
}

// IncrementDeliveries bumps the delivered counter after a verified handoff.
func (r *RiderRepository) IncrementDeliveries(ctx context.Context, id string) error {
	query, args, err := sq.Update("riders").
		Set("total_deliveries", sq.Expr("total_deliveries + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build increment query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to increment deliveries: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rider.ErrNotFound
	}

	return nil
}

func scanRider(row pgx.Row) (*rider.Rider, error) {
	var (
		rd     rider.Rider
		status string
		reason *string
		lat    *float64
		lng    *float64
	)

	err := row.Scan(
		&rd.ID,
		&rd.Name,
		&rd.Email,
		&rd.Phone,
		&rd.PasswordHash,
		&status,
		&reason,
		&rd.IsAvailable,
		&lat,
		&lng,
		&rd.LastLocationUpdate,
		&rd.TotalDeliveries,
		&rd.LastOnline,
		&rd.CreatedAt,
		&rd.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rd.Status = rider.ApprovalStatus(status)
	if reason != nil {
		rd.RejectionReason = *reason
	}
	if lat != nil && lng != nil {
		rd.CurrentLocation = &geo.Point{Lat: *lat, Lng: *lng}
	}

	return &rd, nil
}
