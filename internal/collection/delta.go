package collection

import (
	"context"

	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	dErrors "passage/pkg/domain-errors"
)

// Op is a push-channel operation.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Delta is one remote change delivered over the push channel, keyed by
// candidate id. Delivery is at-least-once; applying the same delta twice must
// leave the collection unchanged.
type Delta struct {
	Op        Op
	ID        id.CandidateID
	Candidate *models.Candidate
}

// Validate reports whether the delta can be applied as-is. A failing delta is
// a mapping failure: the coordinator refreshes instead of applying it.
func (d Delta) Validate() error {
	switch d.Op {
	case OpInsert, OpUpdate:
		if d.Candidate == nil {
			return dErrors.Newf(dErrors.CodeMappingFailure, "%s delta carries no candidate", d.Op)
		}
		return d.Candidate.Validate()
	case OpDelete:
		if d.ID.IsNil() {
			return dErrors.New(dErrors.CodeMappingFailure, "DELETE delta carries no id")
		}
		return nil
	default:
		return dErrors.Newf(dErrors.CodeMappingFailure, "unknown delta op %q", d.Op)
	}
}

// Key returns the candidate id the delta targets.
func (d Delta) Key() id.CandidateID {
	if d.Candidate != nil {
		return d.Candidate.ID
	}
	return d.ID
}

// Handler consumes deltas from a push source.
type Handler func(ctx context.Context, d Delta)

// PushSource is the asynchronous notification stream delivering remote
// insert/update/delete deltas. Subscribe returns an unsubscribe func that
// stops delivery synchronously; no handler call may begin after it returns.
type PushSource interface {
	Subscribe(ctx context.Context, h Handler) (func(), error)
}

// Persistence is the external backend service owning candidate records. The
// coordinator never performs SQL or HTTP itself; it only calls this interface.
type Persistence interface {
	List(ctx context.Context) ([]*models.Candidate, error)
	Update(ctx context.Context, c *models.Candidate) error
}

// SnapshotStore persists the full collection durably so sessions can start
// degraded while the backend is unreachable.
type SnapshotStore interface {
	Save(ctx context.Context, candidates []*models.Candidate) error
	// Load returns sentinel.ErrNotFound when no snapshot has been saved.
	Load(ctx context.Context) ([]*models.Candidate, error)
}
