package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder       = errors.New("order has no items")
	ErrNonPositiveTotal = errors.New("order total must be greater than zero")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrPaymentReferenceUsed means another order already carries the
	// gateway reference.
	ErrPaymentReferenceUsed = errors.New("payment reference already used by another order")
)

// invalidItemError reports a cart line that cannot be ordered.
type invalidItemError struct {
	ProductID string
	Quantity  int
	UnitPrice float64
}

func (e invalidItemError) Error() string {
	return fmt.Sprintf("invalid item %s: quantity %d at %.2f", e.ProductID, e.Quantity, e.UnitPrice)
}

// IsInvalidItem reports whether err was caused by an unorderable cart line.
func IsInvalidItem(err error) bool {
	var itemErr invalidItemError
	return errors.As(err, &itemErr)
}
