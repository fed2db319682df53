package handler

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/storefront/order-fulfillment/internal/core/domain"
	"github.com/storefront/order-fulfillment/internal/port"
)

// AckDecision is what the intake tells the broker about a delivery.
type AckDecision int

const (
	// Ack removes the message: its effects are applied (or were already).
	Ack AckDecision = iota
	// Retry requeues the message for redelivery after a transient failure.
	Retry
	// DeadLetter rejects the message to the dead-letter exchange; it can
	// never succeed.
	DeadLetter
)

func (d AckDecision) String() string {
	switch d {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case DeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// Fulfiller is the slice of the fulfillment service the intake needs.
type Fulfiller interface {
	Fulfill(ctx context.Context, order domain.Order) (domain.Outcome, error)
}

// MessageIntake decodes raw order payloads and drives the fulfillment
// service, translating every outcome into an acknowledgment decision so
// no fault ever propagates to the broker client.
type MessageIntake struct {
	transformer port.OrderTransformer
	fulfiller   Fulfiller
	timeout     time.Duration
	logger      *zap.Logger
}

func NewMessageIntake(transformer port.OrderTransformer, fulfiller Fulfiller, timeout time.Duration, logger *zap.Logger) *MessageIntake {
	return &MessageIntake{
		transformer: transformer,
		fulfiller:   fulfiller,
		timeout:     timeout,
		logger:      logger,
	}
}

// OnMessage processes one raw payload and returns the acknowledgment
// decision for it.
func (h *MessageIntake) OnMessage(ctx context.Context, payload []byte) AckDecision {
	order, err := h.transformer.JSONToOrder(payload)
	if err != nil {
		// Poison message: decoding will never start succeeding.
		h.logger.Warn("dead-lettering undecodable message",
			zap.Error(err),
			zap.ByteString("payload", payload),
		)
		return DeadLetter
	}

	outcome, err := h.fulfiller.Fulfill(ctx, order)

	var decision AckDecision
	switch outcome {
	case domain.OutcomeApplied:
		decision = Ack
	case domain.OutcomeTransient:
		decision = Retry
	default:
		decision = DeadLetter
	}

	h.logger.Info("order message processed",
		zap.String("order_id", order.ID),
		zap.String("outcome", outcome.String()),
		zap.String("decision", decision.String()),
		zap.Error(err),
	)
	return decision
}

// ConsumeLoop drains deliveries with workerCount parallel workers until
// the channel closes, applying each decision through the broker's manual
// ack API. Returns once all workers have drained.
func (h *MessageIntake) ConsumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery, workerCount int) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for delivery := range deliveries {
				h.handleDelivery(ctx, delivery)
			}
		}()
	}
	wg.Wait()
}

func (h *MessageIntake) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	msgCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var err error
	switch h.OnMessage(msgCtx, delivery.Body) {
	case Ack:
		err = delivery.Ack(false)
	case Retry:
		err = delivery.Nack(false, true)
	case DeadLetter:
		err = delivery.Nack(false, false)
	}
	if err != nil {
		h.logger.Error("acknowledgment failed",
			zap.Uint64("delivery_tag", delivery.DeliveryTag),
			zap.Error(err),
		)
	}
}
