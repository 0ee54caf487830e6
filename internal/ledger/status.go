package ledger

// Status is the persisted order status.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusAccepted  Status = "accepted"
	StatusInKitchen Status = "in_kitchen"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusRefunded  Status = "refunded"
)

var transitions = map[Status][]Status{
	StatusPlaced:    {StatusAccepted, StatusCanceled},
	StatusAccepted:  {StatusInKitchen, StatusCanceled},
	StatusInKitchen: {StatusReady, StatusCanceled},
	StatusReady:     {StatusServed, StatusCanceled},
	StatusServed:    {StatusCompleted, StatusCanceled},
	StatusCompleted: {StatusRefunded},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	switch s {
	case StatusPlaced, StatusAccepted, StatusInKitchen, StatusReady,
		StatusServed, StatusCompleted, StatusCanceled, StatusRefunded:
		return s, true
	}
	return "", false
}

// CanTransition reports whether from -> to is an edge of the order state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Editable reports whether line items may still change. Served orders are
// locked: the bill has been presented.
func Editable(s Status) bool {
	switch s {
	case StatusPlaced, StatusAccepted, StatusInKitchen, StatusReady:
		return true
	}
	return false
}

// AwaitingPayment reports whether a captured payment may still accept the order.
func AwaitingPayment(s Status) bool {
	return s == StatusPlaced
}
