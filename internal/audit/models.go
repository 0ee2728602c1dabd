// Package audit captures structured, append-only operational events emitted by
// domain logic. The per-candidate timeline answers "what happened to this
// person"; the audit trail answers "who did what across the system" and feeds
// compliance reporting. Keep events transport-agnostic so stores and sinks can
// fan out.
package audit

import (
	"context"
	"time"

	id "passage/pkg/domain"
)

// Action names the auditable operations.
type Action string

const (
	ActionStageAdvanced   Action = "stage_advanced"
	ActionStageOverridden Action = "stage_overridden"
	ActionStageRolledBack Action = "stage_rolled_back"
	ActionCandidateHeld   Action = "candidate_held"
	ActionCandidateResumed Action = "candidate_resumed"
	ActionTransitionDenied Action = "transition_denied"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp   time.Time
	CandidateID id.CandidateID
	Actor       string
	Action      Action
	FromStage   string
	ToStage     string
	Reason      string
	RequestID   string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCandidate(ctx context.Context, candidateID id.CandidateID) ([]Event, error)
}
