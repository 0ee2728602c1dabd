package models

import (
	"strings"
	"time"

	id "passage/pkg/domain"
	dErrors "passage/pkg/domain-errors"
)

// DocumentType names the documents guards care about. Other document kinds
// pass through untouched.
type DocumentType string

const (
	DocumentPassport        DocumentType = "passport"
	DocumentPoliceClearance DocumentType = "police_clearance"
	DocumentContract        DocumentType = "contract"
	DocumentMedicalReport   DocumentType = "medical_report"
)

// DocumentStatus is the review state of an uploaded document.
type DocumentStatus string

const (
	DocumentMissing  DocumentStatus = "missing"
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// Document is a read-only view of an uploaded document. Upload and review live
// outside this module; guards only consult type and status.
type Document struct {
	Type   DocumentType   `json:"type"`
	Status DocumentStatus `json:"status"`
}

// MedicalStatus tracks the medical examination sub-state consulted by
// medical-gated stage guards.
type MedicalStatus string

const (
	MedicalNotStarted MedicalStatus = "not_started"
	MedicalScheduled  MedicalStatus = "scheduled"
	MedicalPassed     MedicalStatus = "passed"
	MedicalFailed     MedicalStatus = "failed"
)

// VisaStatus tracks the visa application sub-state.
type VisaStatus string

const (
	VisaNotStarted VisaStatus = "not_started"
	VisaSubmitted  VisaStatus = "submitted"
	VisaGranted    VisaStatus = "granted"
	VisaRejected   VisaStatus = "rejected"
)

// StageData carries the free-form per-stage metadata consulted by transition
// guards. Fields are written by external collaborators (forms, document
// review); this module reads them only.
type StageData struct {
	Medical           MedicalStatus `json:"medical,omitempty"`
	Visa              VisaStatus    `json:"visa,omitempty"`
	OfferLetterSigned bool          `json:"offerLetterSigned,omitempty"`
	TicketBooked      bool          `json:"ticketBooked,omitempty"`
	Destination       string        `json:"destination,omitempty"`
	Employer          string        `json:"employer,omitempty"`
}

// Candidate is the central entity: one workforce applicant moving through the
// placement pipeline.
//
// Invariants:
//   - Stage is always a member of the stage graph's fixed order.
//   - StageEnteredAt <= now; reset on every forward or rollback transition.
//   - Every stage change produces exactly one new timeline event recording the
//     prior and new stage.
//
// Stage, StageStatus, StageEnteredAt, and transition timeline entries are
// written exclusively by the transition executor. Everything else is edited by
// external collaborators and reconciled by the sync coordinator.
type Candidate struct {
	ID             id.CandidateID `json:"id"`
	FullName       string         `json:"fullName"`
	Email          string         `json:"email,omitempty"`
	PhoneNumber    string         `json:"phoneNumber,omitempty"`
	Stage          Stage          `json:"stage"`
	StageStatus    StageStatus    `json:"stageStatus"`
	StageEnteredAt time.Time      `json:"stageEnteredAt"`
	StageData      StageData      `json:"stageData"`
	Documents      []Document     `json:"documents,omitempty"`
	Timeline       Timeline       `json:"timeline,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewCandidate builds a candidate entering the pipeline at the first stage.
// Intake (quick-add or full application) is the only producer.
func NewCandidate(candidateID id.CandidateID, fullName string, now time.Time) (*Candidate, error) {
	fullName = strings.TrimSpace(fullName)
	if candidateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "candidate id is required")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name is required")
	}
	return &Candidate{
		ID:             candidateID,
		FullName:       fullName,
		Stage:          StageRegistered,
		StageStatus:    StageStatusPending,
		StageEnteredAt: now,
		StageData:      StageData{Medical: MedicalNotStarted, Visa: VisaNotStarted},
		Timeline: Timeline{{
			ID:        id.NewEventID(),
			Type:      EventSystem,
			Title:     "Candidate registered",
			Timestamp: now,
			Actor:     "system",
			Stage:     StageRegistered,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// DocumentStatusOf returns the status of the first document of the given type,
// or DocumentMissing when none exists.
func (c *Candidate) DocumentStatusOf(t DocumentType) DocumentStatus {
	for _, d := range c.Documents {
		if d.Type == t {
			return d.Status
		}
	}
	return DocumentMissing
}

// Clone returns a deep copy. The coordinator hands copies to consumers so
// nothing outside it can alias the canonical collection.
func (c *Candidate) Clone() *Candidate {
	out := *c
	if c.Documents != nil {
		out.Documents = make([]Document, len(c.Documents))
		copy(out.Documents, c.Documents)
	}
	if c.Timeline != nil {
		out.Timeline = make(Timeline, len(c.Timeline))
		copy(out.Timeline, c.Timeline)
	}
	return &out
}

// Validate checks the fields the sync layer cannot tolerate being wrong. Push
// deltas failing validation are treated as mapping failures, never applied.
func (c *Candidate) Validate() error {
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeMappingFailure, "candidate id is missing")
	}
	if !c.Stage.IsValid() {
		return dErrors.Newf(dErrors.CodeMappingFailure, "unknown stage %q", c.Stage)
	}
	if c.StageStatus != "" && !c.StageStatus.IsValid() {
		return dErrors.Newf(dErrors.CodeMappingFailure, "unknown stage status %q", c.StageStatus)
	}
	return nil
}
