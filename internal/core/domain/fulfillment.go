package domain

import "time"

// Outcome classifies the result of one fulfillment attempt. The intake
// layer maps it to an acknowledgment decision, so every attempt must
// resolve to exactly one of these.
type Outcome int

const (
	// OutcomeApplied means the order's effects are durably applied,
	// either by this attempt or a previous one.
	OutcomeApplied Outcome = iota
	// OutcomeTransient means the attempt hit a recoverable failure and a
	// redelivery should retry it.
	OutcomeTransient
	// OutcomePermanent means the order can never be fulfilled and must
	// not be retried.
	OutcomePermanent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeTransient:
		return "transient_failure"
	case OutcomePermanent:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

type FulfillmentStatus string

const (
	FulfillmentPending FulfillmentStatus = "pending"
	FulfillmentApplied FulfillmentStatus = "applied"
	FulfillmentFailed  FulfillmentStatus = "failed"
)

// FulfillmentRecord is the durable witness of fulfillment progress for
// one order ID. It is created pending before any side effect, advanced
// line by line, and never deleted, which is what makes at-least-once
// redelivery safe to process.
type FulfillmentRecord struct {
	OrderID      string            `json:"order_id"`
	Status       FulfillmentStatus `json:"status"`
	OrderSaved   bool              `json:"order_saved"`
	AppliedLines []int             `json:"applied_lines"`
	Attempts     int               `json:"attempts"`
	Version      int               `json:"version"` // optimistic locking
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// LineApplied reports whether the inventory adjustment for the line at
// idx has already succeeded.
func (r *FulfillmentRecord) LineApplied(idx int) bool {
	for _, applied := range r.AppliedLines {
		if applied == idx {
			return true
		}
	}
	return false
}

// MarkLineApplied records a successful inventory adjustment for idx.
func (r *FulfillmentRecord) MarkLineApplied(idx int) {
	if !r.LineApplied(idx) {
		r.AppliedLines = append(r.AppliedLines, idx)
	}
}
