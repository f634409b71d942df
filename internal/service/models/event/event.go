package event

import (
	"encoding/json"
	"time"

	"github.com/everestmart/delivery-svc/internal/service/models/geo"
)

// Event names pushed over the realtime layer and mirrored to the outbox.
const (
	NameStatusUpdate      = "order:statusUpdate"
	NameNewOrderAvailable = "new-order-available"
	NameOrderTaken        = "order-taken"
	NameOrderCancelled    = "order-cancelled"
	NameLiveLocation      = "live-location"
	NameDeliveryOTP       = "delivery-otp"
	NameRiderStatus       = "rider-status-changed"
)

// Envelope wraps every event published to the message broker.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	OrderID    string          `json:"order_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// StatusUpdate is broadcast to the per-order room on every transition.
type StatusUpdate struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewOrderAvailable is pushed to the rider pool when a checkout lands.
type NewOrderAvailable struct {
	OrderID    string `json:"orderId"`
	City       string `json:"city"`
	TotalCents int64  `json:"totalCents"`
	ItemCount  int    `json:"itemCount"`
}

// OrderTaken tells the pool an order left the available set.
type OrderTaken struct {
	OrderID string `json:"orderId"`
}

// LiveLocation is relayed to the subscribed customer session. RecordedAt is
// the rider-side sample time used to drop out-of-order samples.
type LiveLocation struct {
	OrderID    string    `json:"orderId"`
	Location   geo.Point `json:"location"`
	Heading    float64   `json:"heading,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// DeliveryOTP carries the active handoff code to the customer room only.
type DeliveryOTP struct {
	OrderID string `json:"orderId"`
	Code    string `json:"deliveryOTP"`
	Message string `json:"message,omitempty"`
}

// RiderStatus announces availability toggles to the admin dashboard.
type RiderStatus struct {
	RiderID     string `json:"riderId"`
	IsAvailable bool   `json:"isAvailable"`
}

// MustMarshal marshals a payload that cannot legitimately fail.
func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
