package order

// Status represents the current progress of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// statusAliases maps legacy spellings accepted at the boundary onto
// canonical statuses. The service itself never emits an alias.
var statusAliases = map[string]Status{
	"shipped": StatusOutForDelivery,
}

// Accept may move an order straight from pending to preparing: confirmation
// is an admin step that riders are not required to wait for.
var validNext = map[Status]map[Status]bool{
	StatusPending:        {StatusConfirmed: true, StatusPreparing: true, StatusCancelled: true},
	StatusConfirmed:      {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing:      {StatusOutForDelivery: true, StatusCancelled: true},
	StatusOutForDelivery: {StatusDelivered: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// IsCancellable reports whether a customer may still cancel the order.
func (s Status) IsCancellable() bool {
	return validNext[s][StatusCancelled]
}

// IsActiveDelivery reports whether a rider is actively working the order,
// which is when live location relay is allowed.
func (s Status) IsActiveDelivery() bool {
	return s == StatusPreparing || s == StatusOutForDelivery
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus validates a wire status, normalizing accepted aliases.
func ParseStatus(s string) (Status, error) {
	if alias, ok := statusAliases[s]; ok {
		return alias, nil
	}
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

// BiddableStatuses are the statuses in which an unassigned order is visible
// in the available-orders pool.
func BiddableStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusPreparing}
}
