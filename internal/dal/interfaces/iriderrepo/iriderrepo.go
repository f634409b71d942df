package iriderrepo

import (
	"context"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
)

// IRiderRepository is an interface for the rider postgres repository.
type IRiderRepository interface {
	// Insert stores a new rider account.
	Insert(ctx context.Context, r *rider.Rider) error

	// GetByID fetches one rider.
	GetByID(ctx context.Context, id string) (*rider.Rider, error)

	// GetByEmail fetches a rider by normalized email.
	GetByEmail(ctx context.Context, email string) (*rider.Rider, error)

	// ExistsByEmailOrPhone reports whether an account already uses the
	// email or phone.
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)

	// List pages through riders for the admin back-office.
	List(ctx context.Context, limit, offset int) ([]rider.Rider, error)

	// UpdateApproval sets the admin approval status and optional reason.
	UpdateApproval(ctx context.Context, id string, status rider.ApprovalStatus, reason string) error

	// SetAvailability toggles the online flag and stamps last online.
	SetAvailability(ctx context.Context, id string, available bool, at time.Time) error

	// UpdateLocation stores the rider's current position.
	UpdateLocation(ctx context.Context, id string, loc geo.Point, at time.Time) error

	// IncrementDeliveries bumps the delivered counter after a verified
	// handoff.
	IncrementDeliveries(ctx context.Context, id string) error
}
