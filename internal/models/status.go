package models

import (
	"errors"
	"fmt"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ErrInvalidTransition is returned when a status change breaks the lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

// AllStatuses lists every known status in lifecycle order.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending,
		StatusConfirmed,
		StatusProcessing,
		StatusShipped,
		StatusDelivered,
		StatusCancelled,
	}
}

// ParseOrderStatus accepts only the six known statuses.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	for _, s := range AllStatuses() {
		if string(s) == value {
			return s, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order in status from may move to to.
// Staying in a non-terminal status is allowed so notes can be edited.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition wraps ErrInvalidTransition with the offending pair.
func CheckTransition(from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
