package enums

import "fmt"

// OrderStatus tracks the lifecycle of a manual-verification order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusApproved       OrderStatus = "approved"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusRejected       OrderStatus = "rejected"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusDisputed       OrderStatus = "disputed"
	OrderStatusAdminDelivered OrderStatus = "admin_delivered"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusDisputed,
	OrderStatusAdminDelivered,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status only leaves through arbitration.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled, OrderStatusAdminDelivered:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
