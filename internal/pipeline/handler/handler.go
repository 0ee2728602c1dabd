// Package handler wires the pipeline and collection operations to HTTP. It is
// the thin consumer surface: no business logic, every mutation delegated to
// the transition executor and written through the coordinator's optimistic
// path.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"passage/internal/collection"
	"passage/internal/pipeline/models"
	"passage/internal/pipeline/sla"
	"passage/internal/pipeline/transition"
	id "passage/pkg/domain"
	dErrors "passage/pkg/domain-errors"
	"passage/pkg/platform/httputil"
	"passage/pkg/requestcontext"
)

// Coordinator is the collection surface the handler consumes.
type Coordinator interface {
	Refresh(ctx context.Context) error
	ApplyDelta(ctx context.Context, d collection.Delta)
	Mutate(ctx context.Context, c *models.Candidate) error
	Get(candidateID id.CandidateID) (*models.Candidate, bool)
	GetAll() []*models.Candidate
	State() collection.State
	Degraded() bool
}

// Intake creates new candidate records in the backend.
type Intake interface {
	Create(ctx context.Context, c *models.Candidate) error
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	coordinator Coordinator
	executor    *transition.Executor
	slaEngine   *sla.Engine
	intake      Intake
	logger      *slog.Logger
}

// New constructs the pipeline handler.
func New(coordinator Coordinator, executor *transition.Executor, slaEngine *sla.Engine, intake Intake, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		executor:    executor,
		slaEngine:   slaEngine,
		intake:      intake,
		logger:      logger,
	}
}

// RegisterReads mounts the read-only endpoints.
func (h *Handler) RegisterReads(r chi.Router) {
	r.Get("/candidates", h.handleList)
	r.Get("/candidates/{id}", h.handleGet)
	r.Get("/candidates/{id}/sla", h.handleSLA)
	r.Get("/candidates/{id}/actions/{action}", h.handleCanPerform)
	r.Get("/pipeline/sla-summary", h.handleSLASummary)
	r.Get("/sync/state", h.handleSyncState)
}

// RegisterWrites mounts the mutating endpoints; the router wraps these in the
// auth middleware.
func (h *Handler) RegisterWrites(r chi.Router) {
	r.Post("/candidates", h.handleCreate)
	r.Post("/candidates/{id}/advance", h.handleAdvance)
	r.Post("/candidates/{id}/override", h.handleOverride)
	r.Post("/candidates/{id}/rollback", h.handleRollback)
	r.Post("/candidates/{id}/hold", h.handleHold)
	r.Post("/candidates/{id}/resume", h.handleResume)
	r.Post("/sync/refresh", h.handleRefresh)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": h.coordinator.GetAll(),
		"state":      string(h.coordinator.State()),
		"degraded":   h.coordinator.Degraded(),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleSLA(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	report := h.slaEngine.Calculate(r.Context(), c)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"critical": h.slaEngine.IsCritical(report),
	})
}

func (h *Handler) handleSLASummary(w http.ResponseWriter, r *http.Request) {
	summary := h.slaEngine.Summarize(r.Context(), h.coordinator.GetAll())
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleCanPerform(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	action := transition.Action(chi.URLParam(r, "action"))
	decision, err := h.executor.CanPerformAction(r.Context(), c, action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, actionResponse{Allowed: decision.Allowed, Reason: decision.Reason})
}

func (h *Handler) handleSyncState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, syncStateResponse{
		State:    string(h.coordinator.State()),
		Degraded: h.coordinator.Degraded(),
		Count:    len(h.coordinator.GetAll()),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createCandidateRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	c, err := models.NewCandidate(id.NewCandidateID(), req.FullName, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c.Email = req.Email
	c.PhoneNumber = req.PhoneNumber

	if err := h.intake.Create(ctx, c); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeSyncFailure, "failed to create candidate"))
		return
	}
	// Reflect the new record immediately; the push echo confirming it is
	// idempotent against this insert.
	h.coordinator.ApplyDelta(ctx, collection.Delta{Op: collection.OpInsert, Candidate: c})
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[advanceRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	target, err := models.ParseStage(req.TargetStage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.executor.PerformTransition(ctx, c, target, requestcontext.Actor(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.persist(w, ctx, updated)
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[overrideRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	target, err := models.ParseStage(req.TargetStage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.executor.OverrideTransition(ctx, c, target, requestcontext.Actor(ctx), req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.persist(w, ctx, updated)
}

func (h *Handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	updated, rolledBack, err := h.executor.RollbackTransition(ctx, c, requestcontext.Actor(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !rolledBack {
		httputil.WriteError(w, dErrors.New(dErrors.CodeGuardViolation, "No earlier stage recorded to roll back to"))
		return
	}
	h.persist(w, ctx, updated)
}

func (h *Handler) handleHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[holdRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	updated, err := h.executor.Hold(ctx, c, requestcontext.Actor(ctx), req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.persist(w, ctx, updated)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	updated, err := h.executor.Resume(ctx, c, requestcontext.Actor(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.persist(w, ctx, updated)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Refresh(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.handleSyncState(w, r)
}

// persist writes the updated candidate through the coordinator's optimistic
// path and reports the outcome. A failed write still returns the coordinator's
// post-reconciliation view of the world via the error envelope.
func (h *Handler) persist(w http.ResponseWriter, ctx context.Context, updated *models.Candidate) {
	if err := h.coordinator.Mutate(ctx, updated); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// lookup resolves the {id} path parameter against the coordinator.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*models.Candidate, bool) {
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	c, ok := h.coordinator.Get(candidateID)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "candidate not found"))
		return nil, false
	}
	return c, true
}
