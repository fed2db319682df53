package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/order-fulfillment/internal/core/domain"
	"github.com/storefront/order-fulfillment/internal/port"
)

// maxConflictRetries bounds how often one Fulfill call re-reads the
// record after losing a version race before handing the message back
// for redelivery.
const maxConflictRetries = 3

var ErrOrderFailed = errors.New("order previously marked failed")

// FulfillmentService executes the idempotent fulfillment protocol: one
// durable record per order ID witnesses which effects have been applied,
// so redeliveries and crash-resumes never double-persist an order or
// double-decrement inventory.
type FulfillmentService struct {
	records   port.RecordStore
	orders    port.OrderRepository
	inventory port.InventoryRepository
	logger    *zap.Logger
}

func NewFulfillmentService(records port.RecordStore, orders port.OrderRepository, inventory port.InventoryRepository, logger *zap.Logger) *FulfillmentService {
	return &FulfillmentService{
		records:   records,
		orders:    orders,
		inventory: inventory,
		logger:    logger,
	}
}

// Fulfill applies the order's effects exactly once. The returned Outcome
// always classifies the attempt; err carries detail for logging and is
// nil only when the outcome is OutcomeApplied.
func (s *FulfillmentService) Fulfill(ctx context.Context, order domain.Order) (domain.Outcome, error) {
	if err := order.Validate(); err != nil {
		return domain.OutcomePermanent, err
	}

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		record, created, err := s.records.GetOrCreate(ctx, order.ID)
		if err != nil {
			return domain.OutcomeTransient, fmt.Errorf("record lookup failed: %w", err)
		}

		switch record.Status {
		case domain.FulfillmentApplied:
			// Duplicate delivery of a completed order.
			return domain.OutcomeApplied, nil
		case domain.FulfillmentFailed:
			return domain.OutcomePermanent, fmt.Errorf("%w: %s", ErrOrderFailed, order.ID)
		}

		if !created {
			// Claim the pending record before touching storage. Losing
			// this version race means another worker is advancing the
			// same order; back off and let redelivery retry.
			record.Attempts++
			if err := s.records.Update(ctx, record); err != nil {
				if errors.Is(err, port.ErrConflict) {
					continue
				}
				return domain.OutcomeTransient, fmt.Errorf("record claim failed: %w", err)
			}
		}

		outcome, err := s.apply(ctx, order, record)
		if errors.Is(err, port.ErrConflict) {
			continue
		}
		return outcome, err
	}

	return domain.OutcomeTransient, fmt.Errorf("order %s: too many record conflicts", order.ID)
}

// apply runs steps 3-5 of the protocol against a claimed record. A
// port.ErrConflict return means the caller should re-read and resume.
func (s *FulfillmentService) apply(ctx context.Context, order domain.Order, record *domain.FulfillmentRecord) (domain.Outcome, error) {
	if !record.OrderSaved {
		if err := s.orders.Save(ctx, order); err != nil {
			return domain.OutcomeTransient, fmt.Errorf("save order %s: %w", order.ID, err)
		}
		record.OrderSaved = true
		if err := s.records.Update(ctx, record); err != nil {
			return domain.OutcomeTransient, fmt.Errorf("update record %s: %w", order.ID, err)
		}
	}

	for idx, line := range order.Lines {
		if record.LineApplied(idx) {
			continue
		}

		// Bump the record version before the decrement so a concurrent
		// attempt holding a stale copy conflicts here, before its side
		// effect, not after.
		if err := s.records.Update(ctx, record); err != nil {
			return domain.OutcomeTransient, fmt.Errorf("reserve line %d of %s: %w", idx, order.ID, err)
		}

		_, err := s.inventory.Adjust(ctx, order.ID, idx, line.ProductID, -line.Quantity)
		if err != nil {
			if errors.Is(err, port.ErrInsufficientStock) || errors.Is(err, port.ErrUnknownProduct) {
				return s.fail(ctx, order, record, err)
			}
			return domain.OutcomeTransient, fmt.Errorf("adjust %s for order %s: %w", line.ProductID, order.ID, err)
		}

		record.MarkLineApplied(idx)
		if err := s.records.Update(ctx, record); err != nil {
			return domain.OutcomeTransient, fmt.Errorf("update record %s: %w", order.ID, err)
		}
	}

	record.Status = domain.FulfillmentApplied
	if err := s.records.Update(ctx, record); err != nil {
		return domain.OutcomeTransient, fmt.Errorf("update record %s: %w", order.ID, err)
	}

	s.logger.Info("order fulfilled",
		zap.String("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
		zap.Int("attempts", record.Attempts),
	)
	return domain.OutcomeApplied, nil
}

// fail marks the record failed so redeliveries of the same order resolve
// to a permanent failure instead of re-running the protocol.
func (s *FulfillmentService) fail(ctx context.Context, order domain.Order, record *domain.FulfillmentRecord, cause error) (domain.Outcome, error) {
	record.Status = domain.FulfillmentFailed
	if err := s.records.Update(ctx, record); err != nil {
		if errors.Is(err, port.ErrConflict) {
			return domain.OutcomeTransient, err
		}
		return domain.OutcomeTransient, fmt.Errorf("mark order %s failed: %w", order.ID, err)
	}

	s.logger.Warn("order permanently failed",
		zap.String("order_id", order.ID),
		zap.Error(cause),
	)
	return domain.OutcomePermanent, fmt.Errorf("order %s: %w", order.ID, cause)
}
