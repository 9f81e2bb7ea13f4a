// Package events defines the outbound event contract for ledger
// mutations. Consumers (realtime dashboards, reminder schedulers) are
// external; this package only publishes.
package events

import (
	"context"
	"time"
)

// Event types emitted by the settlement engine.
const (
	TypeSettlementApplied  = "settlement.applied"
	TypeSettlementReversed = "settlement.reversed"
)

// Event is the envelope written to the broker.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	OwnerID    string    `json:"ownerId"`
	EntryID    string    `json:"entryId"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher delivers events to an external broker.
// Delivery is best-effort after commit: a publish failure must never
// roll back the settlement it describes.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used in tests and broker-less setups.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
