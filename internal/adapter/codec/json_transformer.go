package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

// flexID accepts the order identifier as either a JSON string or a
// JSON number; producers disagree on which they send.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// orderPayload mirrors the wire format published on the orders topic.
// Customer fields beyond the reference are opaque to fulfillment and
// dropped here.
type orderPayload struct {
	ID       flexID `json:"id"`
	Customer string `json:"customer"`
	ItemList []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"itemList"`
	CreatedAt time.Time `json:"createdAt"`
}

// JSONTransformer decodes order-placement payloads into domain orders.
type JSONTransformer struct{}

func NewJSONTransformer() *JSONTransformer {
	return &JSONTransformer{}
}

func (t *JSONTransformer) JSONToOrder(payload []byte) (domain.Order, error) {
	var raw orderPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrMalformedOrder, err)
	}

	order := domain.Order{
		ID:          string(raw.ID),
		CustomerRef: raw.Customer,
		CreatedAt:   raw.CreatedAt,
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	for _, item := range raw.ItemList {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}
