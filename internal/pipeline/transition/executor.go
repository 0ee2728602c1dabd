// Package transition implements the sole writer of candidate stage state.
// Every stage change, override, rollback, and hold flows through the Executor,
// which validates against the stage graph, applies the change all-or-nothing
// on a copy, and records exactly one timeline event per change.
package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"passage/internal/audit"
	pipelinemetrics "passage/internal/pipeline/metrics"
	"passage/internal/pipeline/models"
	"passage/internal/pipeline/stage"
	id "passage/pkg/domain"
	dErrors "passage/pkg/domain-errors"
	"passage/pkg/requestcontext"
)

// Action names the operations consumers may request on a candidate.
type Action string

const (
	ActionAdvance  Action = "advance"
	ActionRollback Action = "rollback"
	ActionHold     Action = "hold"
	ActionResume   Action = "resume"
)

// AuditPublisher records operational audit events. Optional; a nil publisher
// disables auditing without changing transition semantics.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Executor validates and applies stage changes. It never mutates its input;
// callers receive an updated copy to persist and feed back into the sync
// coordinator.
type Executor struct {
	graph   *stage.Graph
	logger  *slog.Logger
	metrics *pipelinemetrics.Metrics
	auditor AuditPublisher
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger for configuration-error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithMetrics enables transition metrics.
func WithMetrics(m *pipelinemetrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithAuditPublisher enables audit-trail emission.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(e *Executor) { e.auditor = p }
}

// New constructs an Executor over the given stage graph.
func New(graph *stage.Graph, opts ...Option) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("stage graph is required")
	}
	e := &Executor{graph: graph}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CanPerformAction reports whether an action is currently allowed for the
// candidate. Denials are expected, user-facing conditions carried in the
// Decision reason; only unknown stages return an error.
func (e *Executor) CanPerformAction(ctx context.Context, c *models.Candidate, action Action) (stage.Decision, error) {
	switch action {
	case ActionAdvance:
		if _, ok, err := e.graph.Next(c.Stage); err != nil {
			return stage.Decision{}, e.configErr(ctx, err)
		} else if !ok {
			return stage.Decision{Reason: "Candidate is already at the final stage"}, nil
		}
		decision, err := e.graph.Evaluate(c)
		if err != nil {
			return stage.Decision{}, e.configErr(ctx, err)
		}
		return decision, nil

	case ActionRollback:
		records := c.Timeline.StageRecords()
		if len(records) < 2 {
			return stage.Decision{Reason: "No earlier stage recorded to roll back to"}, nil
		}
		return stage.Decision{Allowed: true}, nil

	case ActionHold:
		if c.StageStatus == models.StageStatusOnHold {
			return stage.Decision{Reason: "Candidate is already on hold"}, nil
		}
		return stage.Decision{Allowed: true}, nil

	case ActionResume:
		if c.StageStatus != models.StageStatusOnHold {
			return stage.Decision{Reason: "Candidate is not on hold"}, nil
		}
		return stage.Decision{Allowed: true}, nil

	default:
		return stage.Decision{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown action %q", action)
	}
}

// PerformTransition advances the candidate to target. Target must be the next
// stage in the pipeline order and the exit guard of the stage being left must
// pass. All-or-nothing: on any failure the input is untouched and no event is
// recorded.
//
// Errors: CodeGuardViolation with the verbatim guard reason on a blocked
// transition; CodeConfiguration for unknown stages.
func (e *Executor) PerformTransition(ctx context.Context, c *models.Candidate, target models.Stage, actor string) (*models.Candidate, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.TransitionDuration.Observe(time.Since(start).Seconds())
		}
	}()

	next, ok, err := e.graph.Next(c.Stage)
	if err != nil {
		return nil, e.configErr(ctx, err)
	}
	if !ok {
		return nil, e.deny(ctx, c, target, "Candidate is already at the final stage")
	}
	if target != next {
		if _, err := e.graph.IndexOf(target); err != nil {
			return nil, e.configErr(ctx, err)
		}
		return nil, e.deny(ctx, c, target, fmt.Sprintf("Candidate can only advance to %s", next))
	}

	decision, err := e.graph.Evaluate(c)
	if err != nil {
		return nil, e.configErr(ctx, err)
	}
	if !decision.Allowed {
		return nil, e.deny(ctx, c, target, decision.Reason)
	}

	updated := e.applyStageChange(ctx, c, target, actor, models.EventStageTransition,
		fmt.Sprintf("Stage advanced from %s to %s", c.Stage, target))
	e.observe(ctx, c, updated, audit.ActionStageAdvanced, actor, "advance")
	return updated, nil
}

// OverrideTransition moves the candidate to an arbitrary known stage, skipping
// the forward-only rule and exit guard. Reserved for explicitly authorized
// manual corrections; the override is recorded as a MANUAL_OVERRIDE event so
// rollback and audit still see it.
func (e *Executor) OverrideTransition(ctx context.Context, c *models.Candidate, target models.Stage, actor, note string) (*models.Candidate, error) {
	if _, err := e.graph.IndexOf(target); err != nil {
		return nil, e.configErr(ctx, err)
	}
	if target == c.Stage {
		return nil, dErrors.New(dErrors.CodeGuardViolation, "Candidate is already in the requested stage")
	}

	title := fmt.Sprintf("Stage manually set from %s to %s", c.Stage, target)
	if note != "" {
		title = title + ": " + note
	}
	updated := e.applyStageChange(ctx, c, target, actor, models.EventManualOverride, title)
	e.observe(ctx, c, updated, audit.ActionStageOverridden, actor, "override")
	return updated, nil
}

// RollbackTransition restores the stage recorded by the second-most-recent
// stage event in the candidate's own history. It is a compensating action, not
// an undo: the forward event stays in the timeline and the rollback itself is
// recorded as a MANUAL_OVERRIDE entry.
//
// When fewer than two stage records exist the rollback is a no-op and the
// returned bool is false.
func (e *Executor) RollbackTransition(ctx context.Context, c *models.Candidate, actor string) (*models.Candidate, bool, error) {
	records := c.Timeline.StageRecords()
	if len(records) < 2 {
		return c, false, nil
	}

	restored := records[1].Stage
	if _, err := e.graph.IndexOf(restored); err != nil {
		// A stage record pointing outside the pipeline order means the
		// history itself is corrupt. Surface loudly, abort this operation.
		return nil, false, e.configErr(ctx, dErrors.Wrap(err, dErrors.CodeConfiguration,
			fmt.Sprintf("candidate %s history references unknown stage", c.ID)))
	}

	updated := e.applyStageChange(ctx, c, restored, actor, models.EventManualOverride,
		fmt.Sprintf("Rolled back from %s to %s", c.Stage, restored))
	updated.Timeline[0].Compensating = true
	if e.metrics != nil {
		e.metrics.RollbacksTotal.Inc()
	}
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.Event{
			Timestamp:   requestcontext.Now(ctx),
			CandidateID: c.ID,
			Actor:       actor,
			Action:      audit.ActionStageRolledBack,
			FromStage:   c.Stage.String(),
			ToStage:     restored.String(),
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	return updated, true, nil
}

// Hold parks the candidate within their current stage.
func (e *Executor) Hold(ctx context.Context, c *models.Candidate, actor, reason string) (*models.Candidate, error) {
	decision, err := e.CanPerformAction(ctx, c, ActionHold)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeGuardViolation, decision.Reason)
	}
	updated := e.setStatus(ctx, c, models.StageStatusOnHold, actor,
		fmt.Sprintf("Placed on hold in %s: %s", c.Stage, reason))
	e.observe(ctx, c, updated, audit.ActionCandidateHeld, actor, "")
	return updated, nil
}

// Resume lifts a hold, returning the candidate to in-progress.
func (e *Executor) Resume(ctx context.Context, c *models.Candidate, actor string) (*models.Candidate, error) {
	decision, err := e.CanPerformAction(ctx, c, ActionResume)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, dErrors.New(dErrors.CodeGuardViolation, decision.Reason)
	}
	updated := e.setStatus(ctx, c, models.StageStatusInProgress, actor,
		fmt.Sprintf("Resumed work in %s", c.Stage))
	e.observe(ctx, c, updated, audit.ActionCandidateResumed, actor, "")
	return updated, nil
}

// applyStageChange builds the updated candidate value: new stage, entry clock
// reset, substatus back to pending, and exactly one timeline event prepended.
func (e *Executor) applyStageChange(ctx context.Context, c *models.Candidate, target models.Stage, actor string, eventType models.EventType, title string) *models.Candidate {
	now := requestcontext.Now(ctx)
	updated := c.Clone()
	updated.Timeline = updated.Timeline.Prepend(models.TimelineEvent{
		ID:        id.NewEventID(),
		Type:      eventType,
		Title:     title,
		Timestamp: now,
		Actor:     actor,
		Stage:     target,
		FromStage: c.Stage,
		ToStage:   target,
	})
	updated.Stage = target
	updated.StageStatus = models.StageStatusPending
	updated.StageEnteredAt = now
	updated.UpdatedAt = now
	return updated
}

func (e *Executor) setStatus(ctx context.Context, c *models.Candidate, status models.StageStatus, actor, title string) *models.Candidate {
	now := requestcontext.Now(ctx)
	updated := c.Clone()
	updated.Timeline = updated.Timeline.Prepend(models.TimelineEvent{
		ID:        id.NewEventID(),
		Type:      models.EventSystem,
		Title:     title,
		Timestamp: now,
		Actor:     actor,
		Stage:     c.Stage,
	})
	updated.StageStatus = status
	updated.UpdatedAt = now
	return updated
}

// deny wraps a blocked transition as a guard violation and records it.
func (e *Executor) deny(ctx context.Context, c *models.Candidate, target models.Stage, reason string) error {
	if e.metrics != nil {
		e.metrics.GuardDenialsTotal.WithLabelValues(c.Stage.String()).Inc()
	}
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.Event{
			Timestamp:   requestcontext.Now(ctx),
			CandidateID: c.ID,
			Actor:       requestcontext.Actor(ctx),
			Action:      audit.ActionTransitionDenied,
			FromStage:   c.Stage.String(),
			ToStage:     target.String(),
			Reason:      reason,
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	return dErrors.New(dErrors.CodeGuardViolation, reason)
}

// configErr logs configuration errors loudly before returning them; they
// indicate a deployment or data bug and must never be swallowed.
func (e *Executor) configErr(ctx context.Context, err error) error {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, "pipeline configuration error", "error", err)
	}
	return err
}

func (e *Executor) observe(ctx context.Context, before, after *models.Candidate, action audit.Action, actor, kind string) {
	if e.metrics != nil && kind != "" {
		e.metrics.TransitionsTotal.WithLabelValues(after.Stage.String(), kind).Inc()
	}
	if e.auditor != nil {
		e.auditor.Emit(ctx, audit.Event{
			Timestamp:   requestcontext.Now(ctx),
			CandidateID: before.ID,
			Actor:       actor,
			Action:      action,
			FromStage:   before.Stage.String(),
			ToStage:     after.Stage.String(),
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
}
