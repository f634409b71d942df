package auditlog

import "time"

// Actor identifies who drove an order transition.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorRider    Actor = "rider"
	ActorAdmin    Actor = "admin"
	ActorSystem   Actor = "system"
)

// Entry records a single order status transition.
type Entry struct {
	ID         int64     `json:"id"`
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      Actor     `json:"actor"`
	ActorID    string    `json:"actor_id"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
