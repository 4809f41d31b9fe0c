package order

// Status represents the lifecycle status of an order
type Status string

const (
	StatusNone      Status = ""
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusFulfilled, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsFulfilledOrLater reports whether the order has shipped
func (s Status) IsFulfilledOrLater() bool {
	return s == StatusFulfilled || s == StatusDelivered
}

// StatusEvent carries the facts from an inbound order event that drive a
// status transition. FinancialStatus is the platform's value verbatim
// ("paid", "pending", "authorized", ...).
type StatusEvent struct {
	Cancelled       bool
	FinancialStatus string
}

// Paid reports whether the event declares the order as paid
func (e StatusEvent) Paid() bool {
	return e.FinancialStatus == "paid"
}

// NextStatus computes the status an order moves to when an event arrives.
// It is a pure function so the transition rules are testable without
// storage. current is StatusNone for an order seen for the first time.
//
// Rules, in precedence order:
//   - terminal states (delivered, cancelled) never change
//   - a cancellation wins over any financial status
//   - fulfilled is sticky: a stale unpaid re-delivery must not regress it
//   - otherwise the financial status decides between paid and created
func NextStatus(current Status, e StatusEvent) Status {
	if current.IsTerminal() {
		return current
	}
	if e.Cancelled {
		return StatusCancelled
	}
	if current == StatusFulfilled {
		return StatusFulfilled
	}
	if e.Paid() {
		return StatusPaid
	}
	return StatusCreated
}
