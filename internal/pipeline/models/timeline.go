package models

import (
	"time"

	id "passage/pkg/domain"
)

// EventType tags timeline entries. Rollback eligibility and history scans
// filter on these tags, never on title strings.
type EventType string

const (
	EventStageTransition EventType = "STAGE_TRANSITION"
	EventSystem          EventType = "SYSTEM"
	EventManualOverride  EventType = "MANUAL_OVERRIDE"
	EventNote            EventType = "NOTE"
	EventAlert           EventType = "ALERT"
	EventDocument        EventType = "DOCUMENT"
)

// TimelineEvent is an immutable audit-log entry on a candidate. The timeline
// is ordered newest-first; entries are prepended and never rewritten.
type TimelineEvent struct {
	ID        id.EventID  `json:"id"`
	Type      EventType   `json:"type"`
	Title     string      `json:"title"`
	Timestamp time.Time   `json:"timestamp"`
	Actor     string      `json:"actor"`
	Stage     Stage       `json:"stage"`
	FromStage Stage       `json:"fromStage,omitempty"`
	ToStage   Stage       `json:"toStage,omitempty"`

	// Compensating marks a rollback entry. In the effective stage history it
	// closes the position its forward record opened, so consecutive rollbacks
	// keep walking backward instead of oscillating.
	Compensating bool `json:"compensating,omitempty"`
}

// IsStageRecord reports whether the event records a pipeline position, i.e.
// whether a rollback may restore its stage. Only transition, system, and
// override entries qualify; notes and document events never move a candidate.
func (e TimelineEvent) IsStageRecord() bool {
	switch e.Type {
	case EventStageTransition, EventSystem, EventManualOverride:
		return true
	default:
		return false
	}
}

// Timeline is the per-candidate history, newest first.
type Timeline []TimelineEvent

// Prepend returns a new timeline with the event at the head. The receiver is
// never mutated; candidates flow through the system by value.
func (t Timeline) Prepend(e TimelineEvent) Timeline {
	out := make(Timeline, 0, len(t)+1)
	out = append(out, e)
	out = append(out, t...)
	return out
}

// StageRecords returns the effective stage history, newest first. This is the
// sole input to rollback. The history is replayed oldest-first as a stack of
// occupied positions: a forward record opens a new position unless it repeats
// the stage on top (hold and resume entries annotate the position they happen
// in, wherever the record that opened it sits in the timeline), and a
// compensating rollback entry closes the top position, so the history reads as
// if the undone transition and its rollback had both never happened.
func (t Timeline) StageRecords() []TimelineEvent {
	var stack []TimelineEvent
	for i := len(t) - 1; i >= 0; i-- {
		e := t[i]
		if !e.IsStageRecord() {
			continue
		}
		if e.Compensating {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if n := len(stack); n > 0 && stack[n-1].Stage == e.Stage {
			continue
		}
		stack = append(stack, e)
	}

	records := make([]TimelineEvent, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		records = append(records, stack[i])
	}
	return records
}
