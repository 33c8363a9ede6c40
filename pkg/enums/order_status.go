package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks where an order is in fulfilment.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// OrDefault maps the empty status stored on legacy orders to Pending.
func (s OrderStatus) OrDefault() OrderStatus {
	if strings.TrimSpace(string(s)) == "" {
		return OrderStatusPending
	}
	return s
}

// ParseOrderStatus converts raw input into an OrderStatus. Matching ignores case
// so "shipped" and "Shipped" are the same status.
func ParseOrderStatus(value string) (OrderStatus, error) {
	value = strings.TrimSpace(value)
	for _, candidate := range validOrderStatuses {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
