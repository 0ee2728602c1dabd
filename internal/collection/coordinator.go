// Package collection implements the sync coordinator: the single in-process
// owner of the current known candidate collection. It reconciles three input
// sources — explicit full refreshes from the persistence service, push-channel
// deltas, and locally originated optimistic mutations — and falls back to a
// durable snapshot when the backend is unreachable.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	collmetrics "passage/internal/collection/metrics"
	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	dErrors "passage/pkg/domain-errors"
	"passage/pkg/platform/circuit"
	"passage/pkg/platform/sentinel"
)

// State is the collection lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	// StateDegraded means the last refresh failed but a cached snapshot is
	// serving reads. Non-fatal; cleared by the next successful refresh.
	StateDegraded State = "degraded"
	// StateEmptyError means refresh failed with no cache to fall back on.
	StateEmptyError State = "empty_error"
)

// Coordinator owns the canonical in-memory candidate collection for one
// session. All other components are stateless; they operate on values handed
// out by the coordinator and feed results back in through Mutate.
//
// Concurrency: a single mutex guards the collection. The critical discipline
// is that no lock is held across a backend or snapshot call; every completion
// re-validates the instance generation before touching state, so late
// completions after Close are discarded.
type Coordinator struct {
	persistence Persistence
	snapshots   SnapshotStore
	push        PushSource
	logger      *slog.Logger
	metrics     *collmetrics.Metrics
	breaker     *circuit.Breaker

	group singleflight.Group

	mu          sync.Mutex
	state       State
	byID        map[id.CandidateID]*models.Candidate
	order       []id.CandidateID
	generation  uint64
	closed      bool
	unsubscribe func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSnapshotStore enables the durable offline fallback.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(c *Coordinator) { c.snapshots = s }
}

// WithPushSource wires the push channel; Start subscribes to it.
func WithPushSource(p PushSource) Option {
	return func(c *Coordinator) { c.push = p }
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMetrics enables collection metrics.
func WithMetrics(m *collmetrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New constructs a coordinator over the persistence service.
func New(persistence Persistence, opts ...Option) (*Coordinator, error) {
	if persistence == nil {
		return nil, fmt.Errorf("persistence service is required")
	}
	c := &Coordinator{
		persistence: persistence,
		state:       StateUninitialized,
		byID:        make(map[id.CandidateID]*models.Candidate),
		breaker: circuit.New("persistence",
			circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start subscribes to the push source (when configured) and performs the
// initial refresh. A refresh failure is not fatal when a snapshot covers it;
// the session simply starts degraded.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.push != nil {
		unsub, err := c.push.Subscribe(ctx, c.ApplyDelta)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeSyncFailure, "failed to subscribe to push channel")
		}
		c.mu.Lock()
		c.unsubscribe = unsub
		c.mu.Unlock()
	}
	return c.Refresh(ctx)
}

// Refresh reloads the full collection from the persistence service. Calls are
// coalesced: at most one refresh is in flight at a time, and concurrent
// callers share its result.
//
// On failure the coordinator serves the durable snapshot and reports nil
// (degraded is a warning, not an error); with no snapshot available it empties
// the collection and returns a CodeSyncFailure error. After repeated failures
// the circuit opens and refreshes go straight to the fallback until a
// connectivity signal or a successful write closes it.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sentinel.ErrClosed
	}
	gen := c.generation
	if c.state == StateUninitialized {
		c.state = StateLoading
	}
	c.mu.Unlock()

	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx, gen)
	})
	return err
}

func (c *Coordinator) doRefresh(ctx context.Context, gen uint64) error {
	if c.breaker.IsOpen() {
		// The backend is known-bad; serve the fallback without hammering it.
		// NotifyOnline resets the breaker when connectivity returns, and a
		// successful optimistic write closes it too.
		return c.fallback(ctx, gen, dErrors.New(dErrors.CodeSyncFailure, "persistence circuit open"))
	}

	start := time.Now()
	candidates, err := c.persistence.List(ctx)
	if c.metrics != nil {
		c.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
			c.logger.WarnContext(ctx, "persistence circuit opened", "error", err)
		}
		return c.fallback(ctx, gen, err)
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "persistence connectivity restored")
	}

	c.mu.Lock()
	if c.generation != gen {
		// Session was torn down (or superseded) while the read was in
		// flight; the result no longer belongs to anyone.
		c.mu.Unlock()
		return sentinel.ErrClosed
	}
	c.replaceLocked(candidates)
	c.state = StateReady
	c.observeRefresh("ok")
	saved := c.copyAllLocked()
	c.mu.Unlock()

	c.saveSnapshot(ctx, saved)
	return nil
}

// fallback handles a refresh that could not use the backend: serve the durable
// snapshot when one exists, empty-error otherwise. Snapshot I/O happens off
// the lock; the generation is re-checked before any state is touched.
func (c *Coordinator) fallback(ctx context.Context, gen uint64, cause error) error {
	var cached []*models.Candidate
	haveSnapshot := false
	if c.snapshots != nil {
		loaded, loadErr := c.snapshots.Load(ctx)
		if loadErr == nil {
			cached, haveSnapshot = loaded, true
		} else if !errors.Is(loadErr, sentinel.ErrNotFound) && c.logger != nil {
			c.logger.WarnContext(ctx, "failed to load snapshot", "error", loadErr)
		}
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return sentinel.ErrClosed
	}
	if haveSnapshot {
		c.replaceLocked(cached)
		c.state = StateDegraded
		c.observeRefresh("degraded")
		if c.metrics != nil {
			c.metrics.SnapshotFallbacks.Inc()
		}
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.WarnContext(ctx, "serving cached snapshot; backend unreachable",
				"candidates", len(cached), "error", cause)
		}
		return nil
	}
	c.replaceLocked(nil)
	c.state = StateEmptyError
	c.observeRefresh("error")
	c.mu.Unlock()
	return dErrors.Wrap(cause, dErrors.CodeSyncFailure, "backend unreachable and no cached snapshot available")
}

// ApplyDelta merges one push-channel delta into the collection. Insert and
// update replace-or-insert by id; delete removes by id. Duplicate delivery of
// the same delta is a no-op by construction (last value wins).
//
// A malformed delta is never applied: the coordinator falls back to a full
// refresh, prioritizing consistency over latency.
func (c *Coordinator) ApplyDelta(ctx context.Context, d Delta) {
	if err := d.Validate(); err != nil {
		if c.metrics != nil {
			c.metrics.MappingFailures.Inc()
		}
		if c.logger != nil {
			c.logger.WarnContext(ctx, "malformed push delta; falling back to full refresh", "error", err)
		}
		if refreshErr := c.Refresh(ctx); refreshErr != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "recovery refresh failed", "error", refreshErr)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	switch d.Op {
	case OpInsert, OpUpdate:
		c.upsertLocked(d.Candidate.Clone())
	case OpDelete:
		c.removeLocked(d.Key())
	}
	if c.metrics != nil {
		c.metrics.DeltasTotal.WithLabelValues(string(d.Op)).Inc()
		c.metrics.CollectionSize.Set(float64(len(c.byID)))
	}
}

// Mutate applies a locally originated change optimistically, then writes it
// through to the persistence service. The local value is visible immediately;
// if the backend write fails the coordinator reverts by full refresh rather
// than attempting a diff-based undo, because the collection may have diverged
// further during the write.
func (c *Coordinator) Mutate(ctx context.Context, candidate *models.Candidate) error {
	if candidate == nil {
		return dErrors.New(dErrors.CodeBadRequest, "candidate is required")
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sentinel.ErrClosed
	}
	gen := c.generation
	c.upsertLocked(candidate.Clone())
	c.mu.Unlock()

	err := c.persistence.Update(ctx, candidate)

	c.mu.Lock()
	stale := c.generation != gen
	c.mu.Unlock()
	if stale {
		// Torn down while the write was in flight; nothing left to reconcile.
		return sentinel.ErrClosed
	}

	if err != nil {
		c.breaker.RecordFailure()
		if c.logger != nil {
			c.logger.WarnContext(ctx, "optimistic write failed; reconciling via refresh",
				"candidate_id", candidate.ID.String(), "error", err)
		}
		if refreshErr := c.Refresh(ctx); refreshErr != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "reconciliation refresh failed", "error", refreshErr)
		}
		return dErrors.Wrap(err, dErrors.CodeSyncFailure, "failed to persist change; local state reverted")
	}
	c.breaker.RecordSuccess()
	return nil
}

// Get returns a copy of one candidate.
func (c *Coordinator) Get(candidateID id.CandidateID) (*models.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	found, ok := c.byID[candidateID]
	if !ok {
		return nil, false
	}
	return found.Clone(), true
}

// GetAll returns copies of every candidate in stable insertion order.
func (c *Coordinator) GetAll() []*models.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyAllLocked()
}

// State returns the collection lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Degraded reports whether reads are being served from the cached snapshot.
func (c *Coordinator) Degraded() bool {
	return c.State() == StateDegraded
}

// NotifyOnline signals that network connectivity returned; the coordinator
// re-arms the circuit and re-issues a refresh to reconcile whatever was missed
// while offline.
func (c *Coordinator) NotifyOnline(ctx context.Context) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.breaker.Reset()
	if err := c.Refresh(ctx); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "reconnect refresh failed", "error", err)
	}
}

// Close tears the session down. Teardown is synchronous and immediate: the
// generation bump invalidates every in-flight completion, so no state mutation
// can occur after Close returns even if network operations finish later.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// replaceLocked swaps the whole collection. Caller holds c.mu.
func (c *Coordinator) replaceLocked(candidates []*models.Candidate) {
	c.byID = make(map[id.CandidateID]*models.Candidate, len(candidates))
	c.order = c.order[:0]
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		c.upsertLocked(candidate.Clone())
	}
	if c.metrics != nil {
		c.metrics.CollectionSize.Set(float64(len(c.byID)))
	}
}

func (c *Coordinator) upsertLocked(candidate *models.Candidate) {
	if _, exists := c.byID[candidate.ID]; !exists {
		c.order = append(c.order, candidate.ID)
	}
	c.byID[candidate.ID] = candidate
}

func (c *Coordinator) removeLocked(candidateID id.CandidateID) {
	if _, exists := c.byID[candidateID]; !exists {
		return
	}
	delete(c.byID, candidateID)
	for i, cid := range c.order {
		if cid == candidateID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// copyAllLocked returns deep copies in stable insertion order. Caller holds c.mu.
func (c *Coordinator) copyAllLocked() []*models.Candidate {
	out := make([]*models.Candidate, 0, len(c.order))
	for _, cid := range c.order {
		if candidate, ok := c.byID[cid]; ok {
			out = append(out, candidate.Clone())
		}
	}
	return out
}

// saveSnapshot persists the copied collection best-effort, off the lock so a
// slow snapshot store never blocks reads.
func (c *Coordinator) saveSnapshot(ctx context.Context, candidates []*models.Candidate) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(ctx, candidates); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "failed to persist snapshot", "error", err)
	}
}

func (c *Coordinator) observeRefresh(outcome string) {
	if c.metrics != nil {
		c.metrics.RefreshesTotal.WithLabelValues(outcome).Inc()
	}
}
