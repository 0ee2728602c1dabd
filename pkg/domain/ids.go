// Package domain holds typed identifiers shared across modules. Wrapping
// uuid.UUID in distinct named types keeps candidate and event identifiers from
// being mixed up at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "passage/pkg/domain-errors"
)

// CandidateID identifies a candidate record.
type CandidateID uuid.UUID

// EventID identifies a timeline or audit event.
type EventID uuid.UUID

// NewCandidateID mints a fresh candidate identifier.
func NewCandidateID() CandidateID {
	return CandidateID(uuid.New())
}

// NewEventID mints a fresh event identifier.
func NewEventID() EventID {
	return EventID(uuid.New())
}

// ParseCandidateID constructs a CandidateID from external input.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CandidateID{}, err
	}
	return CandidateID(u), nil
}

// ParseEventID constructs an EventID from external input.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id CandidateID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is the zero value.
func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the identifier in canonical UUID form. Defined types do
// not inherit uuid.UUID's encoding methods, so these are spelled out to keep
// the JSON and database representations as strings.
func (id CandidateID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *CandidateID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	*id = CandidateID(u)
	return nil
}

func (id EventID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is the zero value.
func (id EventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the identifier in canonical UUID form.
func (id EventID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	*id = EventID(u)
	return nil
}
