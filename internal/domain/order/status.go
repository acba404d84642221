package order

// Status is the lifecycle state of an order. Cart is the only pre-order
// state; every other status represents a placed order.
type Status string

const (
	StatusCart             Status = "cart"
	StatusNew              Status = "new"
	StatusPaymentReceived  Status = "payment_received"
	StatusPaymentSucceeded Status = "payment_succeeded"
	StatusPaymentRejected  Status = "payment_rejected"
	StatusInProgress       Status = "in_progress"
	StatusSent             Status = "sent"
)

// validNext encodes the forward-only transition set. Cart to New is reachable
// only through Checkout, never through a manual status edit, so it is absent
// here. PaymentRejected and Sent are terminal.
var validNext = map[Status]map[Status]bool{
	StatusNew:              {StatusPaymentReceived: true},
	StatusPaymentReceived:  {StatusPaymentSucceeded: true, StatusPaymentRejected: true},
	StatusPaymentSucceeded: {StatusInProgress: true},
	StatusPaymentRejected:  {},
	StatusInProgress:       {StatusSent: true},
	StatusSent:             {},
}

// CanTransition reports whether a manual status edit from one state to
// another is allowed.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusCart, StatusNew, StatusPaymentReceived, StatusPaymentSucceeded,
		StatusPaymentRejected, StatusInProgress, StatusSent:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
