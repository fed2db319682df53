package port

import "github.com/storefront/order-fulfillment/internal/core/domain"

// OrderTransformer decodes a raw message payload into an Order. A decode
// error marks the payload as poison: it can never succeed and is
// dead-lettered instead of retried.
type OrderTransformer interface {
	JSONToOrder(payload []byte) (domain.Order, error)
}
