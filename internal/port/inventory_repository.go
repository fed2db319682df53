package port

import (
	"context"
	"errors"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

var (
	// ErrInsufficientStock means the adjustment would drive stock below
	// zero. Not retryable without operator intervention.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownProduct means the referenced product has no inventory
	// record at all.
	ErrUnknownProduct = errors.New("unknown product")
)

// InventoryRepository owns per-product stock levels. Adjustments are
// atomic per product; callers never read-then-write stock themselves.
type InventoryRepository interface {
	// Adjust applies delta (negative for a sale) to the product's stock
	// and returns the new level. The (orderID, lineNo) pair keys the
	// adjustment: applying the same pair again is a no-op returning the
	// current level, so a redelivery or crash-resume decrements at most
	// once. Fails with ErrInsufficientStock rather than letting stock go
	// negative, or ErrUnknownProduct if no record exists.
	Adjust(ctx context.Context, orderID string, lineNo int, productID string, delta int) (int, error)

	// Get retrieves inventory by product ID, nil if absent.
	Get(ctx context.Context, productID string) (*domain.Inventory, error)

	// UpsertStock sets the absolute stock level, creating the record if
	// needed. Used for seeding and operational corrections.
	UpsertStock(ctx context.Context, productID string, stock int) error
}
