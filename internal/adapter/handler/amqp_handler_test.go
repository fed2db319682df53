package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/order-fulfillment/internal/core/domain"
)

// Mock transformer
type mockTransformer struct {
	order domain.Order
	err   error
	calls int
}

func (m *mockTransformer) JSONToOrder(payload []byte) (domain.Order, error) {
	m.calls++
	return m.order, m.err
}

// Mock fulfiller
type mockFulfiller struct {
	outcome domain.Outcome
	err     error
	calls   int
}

func (m *mockFulfiller) Fulfill(ctx context.Context, order domain.Order) (domain.Outcome, error) {
	m.calls++
	return m.outcome, m.err
}

func newTestIntake(tr *mockTransformer, f *mockFulfiller) *MessageIntake {
	return NewMessageIntake(tr, f, 5*time.Second, zap.NewNop())
}

func TestOnMessage_AppliedAcks(t *testing.T) {
	tr := &mockTransformer{order: domain.Order{ID: "A1"}}
	f := &mockFulfiller{outcome: domain.OutcomeApplied}
	intake := newTestIntake(tr, f)

	decision := intake.OnMessage(context.Background(), []byte(`{}`))
	if decision != Ack {
		t.Errorf("expected ack, got %s", decision)
	}
	if f.calls != 1 {
		t.Errorf("expected 1 fulfill call, got %d", f.calls)
	}
}

func TestOnMessage_TransientRetries(t *testing.T) {
	tr := &mockTransformer{order: domain.Order{ID: "A1"}}
	f := &mockFulfiller{outcome: domain.OutcomeTransient, err: errors.New("storage unreachable")}
	intake := newTestIntake(tr, f)

	decision := intake.OnMessage(context.Background(), []byte(`{}`))
	if decision != Retry {
		t.Errorf("expected retry, got %s", decision)
	}
}

func TestOnMessage_PermanentDeadLetters(t *testing.T) {
	tr := &mockTransformer{order: domain.Order{ID: "A1"}}
	f := &mockFulfiller{outcome: domain.OutcomePermanent, err: errors.New("insufficient stock")}
	intake := newTestIntake(tr, f)

	decision := intake.OnMessage(context.Background(), []byte(`{}`))
	if decision != DeadLetter {
		t.Errorf("expected dead-letter, got %s", decision)
	}
}

func TestOnMessage_DecodeFailureDeadLettersWithoutFulfill(t *testing.T) {
	tr := &mockTransformer{err: domain.ErrMalformedOrder}
	f := &mockFulfiller{outcome: domain.OutcomeApplied}
	intake := newTestIntake(tr, f)

	decision := intake.OnMessage(context.Background(), []byte(`{"id":`))
	if decision != DeadLetter {
		t.Errorf("expected dead-letter, got %s", decision)
	}
	if f.calls != 0 {
		t.Errorf("fulfiller must not run for poison input, got %d calls", f.calls)
	}
}
