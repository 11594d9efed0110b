// Package ledger persists the audit trail for webhook processing: an
// immutable receipt per inbound event and one terminal outcome per
// processed payment.
package ledger

import (
	"time"
)

// Outcome result statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Receipt records that a webhook arrived, written before any processing so
// that a total processing failure still leaves evidence of the event.
type Receipt struct {
	ID         string
	PaymentID  string
	ReceivedAt time.Time
}

// PaymentSnapshot captures the payment as delivered by the webhook.
type PaymentSnapshot struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	LocationID string `json:"location_id"`
	OrderID    string `json:"order_id"`
}

// AccountSnapshot captures the loyalty account after a successful grant.
type AccountSnapshot struct {
	ID             string `json:"id"`
	Balance        int    `json:"balance"`
	LifetimePoints int    `json:"lifetime_points"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Result is the terminal status of a processed payment.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Outcome is the terminal audit record for one processed payment. It is
// written exactly once, at the end of the grant flow, and never mutated.
type Outcome struct {
	ID         string           `json:"id"`
	Payment    PaymentSnapshot  `json:"payment"`
	GivenName  string           `json:"given_name,omitempty"`
	FamilyName string           `json:"family_name,omitempty"`
	Account    *AccountSnapshot `json:"loyalty_account,omitempty"`
	Result     Result           `json:"result"`
	RecordedAt time.Time        `json:"recorded_at"`
}
