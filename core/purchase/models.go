package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is monotonic: once a purchase reaches a terminal state no further
// transition is applied. This is the idempotence guard that makes duplicate
// event delivery safe.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Purchase records one purchase attempt. Its id doubles as the correlation
// token embedded in the provider checkout session at creation time.
type Purchase struct {
	ID        string          `json:"_id"`
	CourseID  string          `json:"courseId"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"` // discounted price, 2dp
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Payment-outcome event types. Anything else is acknowledged as a no-op.
type EventType string

const (
	EventSucceeded EventType = "payment_intent.succeeded"
	EventFailed    EventType = "payment_intent.payment_failed"
)

// Event is a decoded payment-outcome event. IntentID is the provider's
// payment-transaction id; it resolves to a purchase via the checkout-session
// correlation token.
type Event struct {
	Type     EventType
	IntentID string
}
