// Package audit captures signup audit events. Events are written to a
// transactional outbox and published to Kafka by the outbox worker; Kafka is
// the durable stream consumed by downstream compliance tooling.
package audit

import (
	"time"

	"enrolld/pkg/domain"
)

// Action names the audited operation.
type Action string

const (
	ActionSignupCompleted   Action = "signup_completed"
	ActionSignupFailed      Action = "signup_failed"
	ActionIdentityUpgraded  Action = "identity_upgraded"
	ActionIdentityRefreshed Action = "identity_refreshed"
	ActionSignupConflict    Action = "signup_conflict"
)

// Outcome of the audited operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// Event is emitted from domain logic to capture signup outcomes. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	Email         string
	Action        Action
	Outcome       Outcome
	MemberID      domain.MemberID
	Source        string
	CorrelationID string
	BatchID       domain.BatchID
	// Detail carries a short human-readable note (error class, partial
	// sub-write names). Never raw internal errors.
	Detail string
}
