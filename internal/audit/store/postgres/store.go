// Package postgres persists audit events to the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"passage/internal/audit"
	id "passage/pkg/domain"
)

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the audit_events table. Deployments run real migrations; this
// keeps integration tests self-contained.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	candidate_id UUID NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	from_stage TEXT NOT NULL DEFAULT '',
	to_stage TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_candidate_idx ON audit_events (candidate_id, occurred_at);
`

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	const q = `
		INSERT INTO audit_events (id, occurred_at, candidate_id, actor, action, from_stage, to_stage, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, q,
		uuid.New(),
		event.Timestamp,
		uuid.UUID(event.CandidateID),
		event.Actor,
		string(event.Action),
		event.FromStage,
		event.ToStage,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByCandidate returns events for one candidate, oldest first.
func (s *Store) ListByCandidate(ctx context.Context, candidateID id.CandidateID) ([]audit.Event, error) {
	const q = `
		SELECT occurred_at, candidate_id, actor, action, from_stage, to_stage, reason, request_id
		FROM audit_events
		WHERE candidate_id = $1
		ORDER BY occurred_at ASC`
	rows, err := s.db.QueryContext(ctx, q, uuid.UUID(candidateID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e      audit.Event
			cid    uuid.UUID
			action string
		)
		if err := rows.Scan(&e.Timestamp, &cid, &e.Actor, &action, &e.FromStage, &e.ToStage, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.CandidateID = id.CandidateID(cid)
		e.Action = audit.Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
