package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	"passage/pkg/platform/sentinel"
)

// Postgres implements the persistence service on PostgreSQL. Structured
// sub-documents (stage data, documents, timeline) live in JSONB columns; the
// hot filter columns (stage, entered-at) are first-class for reporting
// queries.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL candidate store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema creates the candidates table. Deployments run real migrations; this
// keeps integration tests self-contained.
const Schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id UUID PRIMARY KEY,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	stage_status TEXT NOT NULL,
	stage_entered_at TIMESTAMPTZ NOT NULL,
	stage_data JSONB NOT NULL DEFAULT '{}',
	documents JSONB NOT NULL DEFAULT '[]',
	timeline JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS candidates_stage_idx ON candidates (stage, stage_entered_at);
`

// Create stores a new candidate.
func (s *Postgres) Create(ctx context.Context, c *models.Candidate) error {
	stageData, documents, timeline, err := marshalSubdocs(c)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO candidates (id, full_name, email, phone_number, stage, stage_status,
			stage_entered_at, stage_data, documents, timeline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = s.db.ExecContext(ctx, q,
		uuid.UUID(c.ID), c.FullName, c.Email, c.PhoneNumber,
		string(c.Stage), string(c.StageStatus), c.StageEnteredAt,
		stageData, documents, timeline, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// List returns every candidate, oldest-created first so collection order is
// stable across refreshes.
func (s *Postgres) List(ctx context.Context) ([]*models.Candidate, error) {
	const q = `
		SELECT id, full_name, email, phone_number, stage, stage_status,
			stage_entered_at, stage_data, documents, timeline, created_at, updated_at
		FROM candidates
		ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one candidate.
func (s *Postgres) Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	const q = `
		SELECT id, full_name, email, phone_number, stage, stage_status,
			stage_entered_at, stage_data, documents, timeline, created_at, updated_at
		FROM candidates
		WHERE id = $1`
	row := s.db.QueryRowContext(ctx, q, uuid.UUID(candidateID))
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return c, err
}

// Update replaces the stored record by id (last writer wins by record
// identity, matching the sync model).
func (s *Postgres) Update(ctx context.Context, c *models.Candidate) error {
	stageData, documents, timeline, err := marshalSubdocs(c)
	if err != nil {
		return err
	}
	const q = `
		UPDATE candidates
		SET full_name = $2, email = $3, phone_number = $4, stage = $5, stage_status = $6,
			stage_entered_at = $7, stage_data = $8, documents = $9, timeline = $10, updated_at = $11
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q,
		uuid.UUID(c.ID), c.FullName, c.Email, c.PhoneNumber,
		string(c.Stage), string(c.StageStatus), c.StageEnteredAt,
		stageData, documents, timeline, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a candidate.
func (s *Postgres) Delete(ctx context.Context, candidateID id.CandidateID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, uuid.UUID(candidateID))
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete candidate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		c         models.Candidate
		cid       uuid.UUID
		stage     string
		status    string
		stageData []byte
		documents []byte
		timeline  []byte
		entered   time.Time
	)
	err := row.Scan(&cid, &c.FullName, &c.Email, &c.PhoneNumber, &stage, &status,
		&entered, &stageData, &documents, &timeline, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID = id.CandidateID(cid)
	c.Stage = models.Stage(stage)
	c.StageStatus = models.StageStatus(status)
	c.StageEnteredAt = entered
	if err := json.Unmarshal(stageData, &c.StageData); err != nil {
		return nil, fmt.Errorf("decode stage data: %w", err)
	}
	if err := json.Unmarshal(documents, &c.Documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	if err := json.Unmarshal(timeline, &c.Timeline); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}
	return &c, nil
}

func marshalSubdocs(c *models.Candidate) (stageData, documents, timeline []byte, err error) {
	if stageData, err = json.Marshal(c.StageData); err != nil {
		return nil, nil, nil, fmt.Errorf("encode stage data: %w", err)
	}
	docs := c.Documents
	if docs == nil {
		docs = []models.Document{}
	}
	if documents, err = json.Marshal(docs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode documents: %w", err)
	}
	events := c.Timeline
	if events == nil {
		events = models.Timeline{}
	}
	if timeline, err = json.Marshal(events); err != nil {
		return nil, nil, nil, fmt.Errorf("encode timeline: %w", err)
	}
	return stageData, documents, timeline, nil
}
