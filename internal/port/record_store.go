package port

import (
	"context"
	"errors"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

// ErrConflict is returned by Update when the stored record's version no
// longer matches the caller's copy. The caller re-reads and resumes from
// the actual state instead of overwriting blindly.
var ErrConflict = errors.New("fulfillment record conflict")

// RecordStore holds the durable fulfillment record per order ID. It is
// the sole synchronization point between concurrent fulfillment attempts
// for the same order.
type RecordStore interface {
	// GetOrCreate atomically returns the record for orderID, creating a
	// pending one if none exists. Exactly one concurrent caller creates;
	// the rest observe the created record. created reports which case
	// this call hit.
	GetOrCreate(ctx context.Context, orderID string) (*domain.FulfillmentRecord, bool, error)

	// Update persists the record with a version check, bumping the
	// version on success. Returns ErrConflict if the stored version has
	// moved on.
	Update(ctx context.Context, record *domain.FulfillmentRecord) error

	// Get returns the record for orderID, or nil if none exists.
	Get(ctx context.Context, orderID string) (*domain.FulfillmentRecord, error)
}
