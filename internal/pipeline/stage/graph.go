// Package stage owns the canonical pipeline order and the eligibility guards
// that must pass before a candidate may advance out of each stage. Everything
// here is a pure function of candidate state; no I/O, no mutation.
package stage

import (
	"passage/internal/pipeline/models"
	dErrors "passage/pkg/domain-errors"
)

// order is the fixed pipeline sequence. It is set at process start and never
// reordered dynamically.
var order = []models.Stage{
	models.StageRegistered,
	models.StageVerified,
	models.StageApplied,
	models.StageOfferAccepted,
	models.StageVisaProcessing,
	models.StageDeparted,
}

// Decision is a guard verdict. Reason is human-readable and surfaced verbatim
// when a transition is blocked.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// GuardFunc evaluates whether a candidate may leave a stage.
type GuardFunc func(c *models.Candidate) Decision

// Graph exposes the stage order and per-stage exit guards. Guard inputs that
// live outside the candidate record (document review, compliance evaluation,
// medical lookups) are injected as Providers so the graph itself stays pure.
type Graph struct {
	index  map[models.Stage]int
	guards map[models.Stage]GuardFunc
}

// New builds the graph with guards bound to the given providers.
func New(p Providers) *Graph {
	p = p.withDefaults()
	index := make(map[models.Stage]int, len(order))
	for i, s := range order {
		index[s] = i
	}
	return &Graph{
		index:  index,
		guards: buildGuards(p),
	}
}

// Order returns the pipeline sequence, first stage to terminal.
func (g *Graph) Order() []models.Stage {
	out := make([]models.Stage, len(order))
	copy(out, order)
	return out
}

// IndexOf returns the position of a stage for ordering comparisons.
//
// Errors: CodeConfiguration for a stage outside the fixed order; that is a
// data-integrity bug, not user error.
func (g *Graph) IndexOf(s models.Stage) (int, error) {
	i, ok := g.index[s]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeConfiguration, "stage %q is not in the pipeline order", s)
	}
	return i, nil
}

// Next returns the stage immediately following current. The bool is false when
// current is terminal.
func (g *Graph) Next(current models.Stage) (models.Stage, bool, error) {
	i, err := g.IndexOf(current)
	if err != nil {
		return "", false, err
	}
	if i == len(order)-1 {
		return "", false, nil
	}
	return order[i+1], true, nil
}

// IsAtLeast reports whether a is at or beyond b in the pipeline.
func (g *Graph) IsAtLeast(a, b models.Stage) (bool, error) {
	ia, err := g.IndexOf(a)
	if err != nil {
		return false, err
	}
	ib, err := g.IndexOf(b)
	if err != nil {
		return false, err
	}
	return ia >= ib, nil
}

// IsTerminal reports whether s is the final pipeline stage.
func (g *Graph) IsTerminal(s models.Stage) bool {
	i, ok := g.index[s]
	return ok && i == len(order)-1
}

// Guard returns the exit guard for a stage.
func (g *Graph) Guard(s models.Stage) (GuardFunc, error) {
	guard, ok := g.guards[s]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeConfiguration, "no guard registered for stage %q", s)
	}
	return guard, nil
}

// Evaluate runs the exit guard for the candidate's current stage.
func (g *Graph) Evaluate(c *models.Candidate) (Decision, error) {
	guard, err := g.Guard(c.Stage)
	if err != nil {
		return Decision{}, err
	}
	return guard(c), nil
}
