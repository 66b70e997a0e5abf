package enums

import "fmt"

// OrderAction identifies one entry in an order's append-only action log.
type OrderAction string

const (
	OrderActionCreated        OrderAction = "created"
	OrderActionApproved       OrderAction = "approved"
	OrderActionDelivered      OrderAction = "delivered"
	OrderActionRejected       OrderAction = "rejected"
	OrderActionCancelled      OrderAction = "cancelled"
	OrderActionDisputed       OrderAction = "disputed"
	OrderActionAdminApproved  OrderAction = "admin_approved"
	OrderActionAdminRejected  OrderAction = "admin_rejected"
	OrderActionAdminDelivered OrderAction = "admin_delivered"
)

var validOrderActions = []OrderAction{
	OrderActionCreated,
	OrderActionApproved,
	OrderActionDelivered,
	OrderActionRejected,
	OrderActionCancelled,
	OrderActionDisputed,
	OrderActionAdminApproved,
	OrderActionAdminRejected,
	OrderActionAdminDelivered,
}

// String implements fmt.Stringer.
func (a OrderAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known OrderAction.
func (a OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}
