package codec

import (
	"errors"
	"testing"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

func TestJSONToOrder_Valid(t *testing.T) {
	tr := NewJSONTransformer()

	payload := []byte(`{"id":"A1","customer":"cust-7","itemList":[{"productId":"P1","quantity":3},{"productId":"P2","quantity":1}]}`)

	order, err := tr.JSONToOrder(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID != "A1" {
		t.Errorf("expected id A1, got %s", order.ID)
	}
	if order.CustomerRef != "cust-7" {
		t.Errorf("expected customer cust-7, got %s", order.CustomerRef)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Lines))
	}
	if order.Lines[0].ProductID != "P1" || order.Lines[0].Quantity != 3 {
		t.Errorf("unexpected line 0: %+v", order.Lines[0])
	}
	if order.CreatedAt.IsZero() {
		t.Error("expected a creation timestamp")
	}
}

func TestJSONToOrder_NumericID(t *testing.T) {
	tr := NewJSONTransformer()

	payload := []byte(`{"id":42,"itemList":[{"productId":"P1","quantity":1}]}`)

	order, err := tr.JSONToOrder(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "42" {
		t.Errorf("expected id 42, got %s", order.ID)
	}
}

func TestJSONToOrder_MalformedJSON(t *testing.T) {
	tr := NewJSONTransformer()

	_, err := tr.JSONToOrder([]byte(`{not json`))
	if !errors.Is(err, domain.ErrMalformedOrder) {
		t.Errorf("expected ErrMalformedOrder, got: %v", err)
	}
}

func TestJSONToOrder_MissingItemList(t *testing.T) {
	tr := NewJSONTransformer()

	_, err := tr.JSONToOrder([]byte(`{"id":"A1"}`))
	if !errors.Is(err, domain.ErrMalformedOrder) {
		t.Errorf("expected ErrMalformedOrder, got: %v", err)
	}
}

func TestJSONToOrder_MissingID(t *testing.T) {
	tr := NewJSONTransformer()

	_, err := tr.JSONToOrder([]byte(`{"itemList":[{"productId":"P1","quantity":1}]}`))
	if !errors.Is(err, domain.ErrMalformedOrder) {
		t.Errorf("expected ErrMalformedOrder, got: %v", err)
	}
}

func TestJSONToOrder_NonPositiveQuantity(t *testing.T) {
	tr := NewJSONTransformer()

	for _, payload := range []string{
		`{"id":"A1","itemList":[{"productId":"P1","quantity":0}]}`,
		`{"id":"A1","itemList":[{"productId":"P1","quantity":-2}]}`,
	} {
		_, err := tr.JSONToOrder([]byte(payload))
		if !errors.Is(err, domain.ErrMalformedOrder) {
			t.Errorf("payload %s: expected ErrMalformedOrder, got: %v", payload, err)
		}
	}
}
