package ridersvc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iorderrepo"
	"github.com/everestmart/delivery-svc/internal/dal/interfaces/iriderrepo"
	"github.com/everestmart/delivery-svc/internal/realtime"
	"github.com/everestmart/delivery-svc/internal/service/models/event"
	"github.com/everestmart/delivery-svc/internal/service/models/rider"
	"github.com/everestmart/delivery-svc/pkg/auth"
)

// RiderService owns rider accounts: signup, login, admin approval, the
// availability toggle and the earnings summary.
type RiderService struct {
	riderRepo         iriderrepo.IRiderRepository
	orderRepo         iorderrepo.IOrderRepository
	hub               *realtime.Hub
	commissionPercent int
	now               func() time.Time
}

// option is a function that configures the RiderService.
type option func(*RiderService)

// MustNewRiderService creates a new RiderService.
func MustNewRiderService(opts ...option) *RiderService {
	s := &RiderService{
		commissionPercent: viper.GetInt("earnings.commission_percent"),
		now:               time.Now,
	}
	if s.commissionPercent == 0 {
		s.commissionPercent = 10
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.riderRepo == nil {
		panic("rider service requires a rider repository")
	}
	if s.orderRepo == nil {
		panic("rider service requires an order repository")
	}
	if s.hub == nil {
		s.hub = realtime.NewHub()
	}

	return s
}

// WithRiderRepository sets the rider repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRiderRepository(r iriderrepo.IRiderRepository) option {
	return func(s *RiderService) {
		s.riderRepo = r
	}
}

// WithOrderRepository sets the order repository used for earnings.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(r iorderrepo.IOrderRepository) option {
	return func(s *RiderService) {
		s.orderRepo = r
	}
}

// WithHub sets the realtime hub shared with the transports.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHub(h *realtime.Hub) option {
	return func(s *RiderService) {
		s.hub = h
	}
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *RiderService) {
		s.now = now
	}
}

// SignupModel is the service-level input for rider registration.
type SignupModel struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// Signup registers a rider account. New accounts start pending and stay
// locked out until an admin approves them.
func (s *RiderService) Signup(ctx context.Context, model SignupModel) (*rider.Rider, error) {
	email := strings.ToLower(strings.TrimSpace(model.Email))

	exists, err := s.riderRepo.ExistsByEmailOrPhone(ctx, email, model.Phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, rider.ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(model.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rd := &rider.Rider{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(model.Name),
		Email:        email,
		Phone:        model.Phone,
		PasswordHash: string(hash),
		Status:       rider.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.riderRepo.Insert(ctx, rd); err != nil {
		return nil, err
	}

	slog.Info("rider registered", "rider_id", rd.ID)

	return rd, nil
}

// Login authenticates a rider and returns a signed token. Accounts that are
// not approved authenticate but are told why they cannot work; rejected and
// suspended accounts get no token.
func (s *RiderService) Login(ctx context.Context, email, password string) (string, *rider.Rider, error) {
	rd, err := s.riderRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, rider.ErrNotFound) {
		return "", nil, rider.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rd.PasswordHash), []byte(password)); err != nil {
		return "", nil, rider.ErrInvalidCredentials
	}

	if rd.Status == rider.StatusRejected || rd.Status == rider.StatusSuspended {
		return "", rd, rider.ErrNotApproved
	}

	token, err := auth.NewToken(rd.ID, auth.RoleRider)
	if err != nil {
		return "", nil, err
	}

	return token, rd, nil
}

// Get fetches one rider.
func (s *RiderService) Get(ctx context.Context, id string) (*rider.Rider, error) {
	return s.riderRepo.GetByID(ctx, id)
}

// List pages through riders for the admin back-office.
func (s *RiderService) List(ctx context.Context, limit, offset int) ([]rider.Rider, error) {
	return s.riderRepo.List(ctx, limit, offset)
}

// SetApproval applies an admin approval decision.
func (s *RiderService) SetApproval(ctx context.Context, riderID string, status rider.ApprovalStatus, reason string) (*rider.Rider, error) {
	if err := s.riderRepo.UpdateApproval(ctx, riderID, status, reason); err != nil {
		return nil, err
	}

	slog.Info("rider approval updated", "rider_id", riderID, "status", string(status))

	return s.riderRepo.GetByID(ctx, riderID)
}

// SetAvailability flips the rider's online toggle. Only approved riders can
// go online. The admin dashboard is notified.
func (s *RiderService) SetAvailability(ctx context.Context, riderID string, available bool) (*rider.Rider, error) {
	rd, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if available && rd.Status != rider.StatusApproved {
		return nil, rider.ErrNotApproved
	}

	now := s.now()
	if err := s.riderRepo.SetAvailability(ctx, riderID, available, now); err != nil {
		return nil, err
	}

	rd.IsAvailable = available
	rd.LastOnline = &now
	rd.UpdatedAt = now

	s.hub.Publish(realtime.RoomAdmin, realtime.Event{
		Name: event.NameRiderStatus,
		Data: event.RiderStatus{RiderID: riderID, IsAvailable: available},
	})

	return rd, nil
}

// Earnings computes the commission summary over today, the current week and
// the current month. The commission is a flat percentage of delivered order
// totals.
func (s *RiderService) Earnings(ctx context.Context, riderID string) (*rider.Earnings, error) {
	rd, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int((now.Weekday()+6)%7)) // Monday
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	todayCount, todayTotal, err := s.orderRepo.CountDeliveredSince(ctx, riderID, dayStart)
	if err != nil {
		return nil, err
	}
	_, weekTotal, err := s.orderRepo.CountDeliveredSince(ctx, riderID, weekStart)
	if err != nil {
		return nil, err
	}
	_, monthTotal, err := s.orderRepo.CountDeliveredSince(ctx, riderID, monthStart)
	if err != nil {
		return nil, err
	}
	active, err := s.orderRepo.CountActiveForRider(ctx, riderID)
	if err != nil {
		return nil, err
	}

	commission := int64(s.commissionPercent)

	return &rider.Earnings{
		TodayDeliveries:   todayCount,
		TodayCents:        todayTotal * commission / 100,
		WeekCents:         weekTotal * commission / 100,
		MonthCents:        monthTotal * commission / 100,
		TotalDeliveries:   rd.TotalDeliveries,
		ActiveOrders:      active,
		CommissionPercent: s.commissionPercent,
	}, nil
}
