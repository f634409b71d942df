package rider

import (
	"errors"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
)

// ApprovalStatus is the admin-controlled lifecycle state of a rider account.
type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "pending"
	StatusApproved  ApprovalStatus = "approved"
	StatusRejected  ApprovalStatus = "rejected"
	StatusSuspended ApprovalStatus = "suspended"
)

// ParseApprovalStatus validates a wire approval status.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	switch st := ApprovalStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return st, nil
	default:
		return "", ErrInvalidApprovalStatus
	}
}

var (
	// ErrNotFound is returned when no rider exists for the given id.
	ErrNotFound = errors.New("rider not found")

	// ErrAlreadyExists is returned on signup with a taken email or phone.
	ErrAlreadyExists = errors.New("rider already exists")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidApprovalStatus is returned when a wire value does not parse.
	ErrInvalidApprovalStatus = errors.New("invalid approval status")

	// ErrNotApproved is returned when a pending, rejected or suspended
	// rider attempts an operation that requires approval.
	ErrNotApproved = errors.New("rider account not approved")

	// ErrNotAvailable is returned when an offline rider tries to accept an
	// order.
	ErrNotAvailable = errors.New("rider must be online to accept orders")
)

// Rider represents a delivery rider.
type Rider struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	PasswordHash string         `json:"-"`
	Status       ApprovalStatus `json:"status"`

	// RejectionReason is set when Status is rejected.
	RejectionReason string `json:"rejectionReason,omitempty"`

	// IsAvailable is the rider-controlled online toggle. Only approved,
	// available riders see the available-orders pool.
	IsAvailable bool `json:"isAvailable"`

	CurrentLocation    *geo.Point `json:"currentLocation,omitempty"`
	LastLocationUpdate *time.Time `json:"lastLocationUpdate,omitempty"`

	TotalDeliveries int        `json:"totalDeliveries"`
	LastOnline      *time.Time `json:"lastOnline,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Eligible reports whether the rider may see and accept pool orders.
func (r *Rider) Eligible() bool {
	return r.Status == StatusApproved && r.IsAvailable
}

// Earnings is the commission summary returned to the rider dashboard.
type Earnings struct {
	TodayDeliveries   int   `json:"todayDeliveries"`
	TodayCents        int64 `json:"todayEarningsCents"`
	WeekCents         int64 `json:"weeklyEarningsCents"`
	MonthCents        int64 `json:"monthlyEarningsCents"`
	TotalDeliveries   int   `json:"totalDeliveries"`
	ActiveOrders      int   `json:"activeOrders"`
	CommissionPercent int   `json:"commissionPercent"`
}
