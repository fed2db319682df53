package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrMalformedOrder = errors.New("malformed order")

// OrderLine is one ordered product with a positive quantity.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// Order is a decoded order-placement event. The ID is assigned by the
// upstream producer and doubles as the idempotency key; an Order is
// immutable once decoded.
type Order struct {
	ID          string
	CustomerRef string
	Lines       []OrderLine
	CreatedAt   time.Time
}

// Validate reports whether the order is well-formed enough to fulfill.
// Anything rejected here can never succeed and is dead-lettered, not
// retried.
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedOrder)
	}
	if len(o.Lines) == 0 {
		return fmt.Errorf("%w: empty item list", ErrMalformedOrder)
	}
	for i, line := range o.Lines {
		if line.ProductID == "" {
			return fmt.Errorf("%w: line %d missing product id", ErrMalformedOrder, i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has non-positive quantity %d", ErrMalformedOrder, i, line.Quantity)
		}
	}
	return nil
}
