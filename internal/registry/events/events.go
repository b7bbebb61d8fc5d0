// Package events carries registry notifications to external consumers.
//
// Emission is fire-and-forget: the engine never blocks on, or fails because
// of, the notification path. Indexers and UIs subscribe on the Kafka topic.
package events

import (
	"time"

	id "registrar/pkg/domain"
)

// Action names a registry event for consumers.
type Action string

const (
	ActionDomainRegistered Action = "domain_registered"
	ActionDomainRenewed    Action = "domain_renewed"
	ActionTargetUpdated    Action = "resolution_target_updated"
	ActionFeeUpdated       Action = "fee_updated"
	ActionTLDAdded         Action = "tld_added"
	ActionTLDRemoved       Action = "tld_removed"
	ActionBatchCompleted   Action = "batch_completed"
)

// Event is emitted from the engine to capture a committed state change.
// Keep it transport-agnostic so sinks can fan out.
type Event struct {
	Action    Action       `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	Name      string       `json:"name,omitempty"`
	TLD       string       `json:"tld,omitempty"`
	Owner     id.AccountID `json:"owner,omitempty"`
	Target    id.AccountID `json:"target,omitempty"`
	Years     int          `json:"years,omitempty"`
	Fee       int64        `json:"fee,omitempty"`
	ExpiresAt time.Time    `json:"expires_at,omitempty"`
	// Count carries the entry count for batch completion events.
	Count int `json:"count,omitempty"`
	// Bucket and Price describe fee table changes.
	Bucket int   `json:"bucket,omitempty"`
	Price  int64 `json:"price,omitempty"`
	// RequestID correlates the event with the originating request.
	RequestID string `json:"request_id,omitempty"`
}
