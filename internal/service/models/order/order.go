package order

import (
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "online"
)

// PaymentStatus tracks settlement of the order amount.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// CancelledBy identifies which actor cancelled an order.
type CancelledBy string

const (
	CancelledByCustomer CancelledBy = "customer"
	CancelledByAdmin    CancelledBy = "admin"
	CancelledBySystem   CancelledBy = "system"
)

// Item is one order line. UnitPriceCents is resolved server-side at checkout
// and never trusted from the client.
type Item struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Address is the structured delivery address, optionally geocoded.
type Address struct {
	FullName     string     `json:"fullName"`
	Phone        string     `json:"phone"`
	AddressLine1 string     `json:"addressLine1"`
	AddressLine2 string     `json:"addressLine2,omitempty"`
	Landmark     string     `json:"landmark,omitempty"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Pincode      string     `json:"pincode"`
	Coordinates  *geo.Point `json:"coordinates,omitempty"`
}

// Order represents a delivery order in the system.
type Order struct {
	ID                  string        `json:"id"`
	CustomerID          string        `json:"customerId"`
	Items               []Item        `json:"items"`
	SubtotalCents       int64         `json:"subtotalCents"`
	DeliveryChargeCents int64         `json:"deliveryChargeCents"`
	TotalCents          int64         `json:"totalCents"`
	ShippingAddress     Address       `json:"shippingAddress"`
	PaymentMethod       PaymentMethod `json:"paymentMethod"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	Status              Status        `json:"status"`

	// RiderID is nil until a rider accepts the order. At most one rider is
	// ever assigned.
	RiderID *string `json:"riderId,omitempty"`

	// DeliveryOTP is the active handoff code. Nil when no code has been
	// issued or after successful verification. Never serialized to riders;
	// the rider-facing view strips it (see View).
	DeliveryOTP    *string    `json:"deliveryOtp,omitempty"`
	OTPGeneratedAt *time.Time `json:"otpGeneratedAt,omitempty"`
	OTPVerifiedAt  *time.Time `json:"otpVerifiedAt,omitempty"`

	CancelledAt        *time.Time  `json:"cancelledAt,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	CancelledBy        CancelledBy `json:"cancelledBy,omitempty"`

	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	PickedUpAt  *time.Time `json:"pickedUpAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View returns a copy of the order with the OTP stripped, safe to serialize
// to riders and the admin dashboard.
func (o Order) View() Order {
	o.DeliveryOTP = nil
	return o
}

// Assigned reports whether a rider holds the order.
func (o *Order) Assigned() bool {
	return o.RiderID != nil
}

// AssignedTo reports whether the given rider holds the order.
func (o *Order) AssignedTo(riderID string) bool {
	return o.RiderID != nil && *o.RiderID == riderID
}
