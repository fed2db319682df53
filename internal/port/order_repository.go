package port

import (
	"context"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

// OrderRepository durably stores decoded orders.
type OrderRepository interface {
	// Save persists the order and its lines. Saving an order ID that is
	// already stored is a no-op success, so a crash between the insert
	// and the fulfillment-record update cannot produce a duplicate row
	// on redelivery.
	Save(ctx context.Context, order domain.Order) error
}
