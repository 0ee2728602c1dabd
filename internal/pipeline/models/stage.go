package models

import dErrors "passage/pkg/domain-errors"

// Stage is one ordered step in the candidate placement pipeline.
// Invariant: a candidate's stage is always a member of the fixed stage order
// owned by the stage graph; only the transition executor writes it.
//
// Usage: construct via ParseStage at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Stage string

const (
	StageRegistered     Stage = "registered"
	StageVerified       Stage = "verified"
	StageApplied        Stage = "applied"
	StageOfferAccepted  Stage = "offer_accepted"
	StageVisaProcessing Stage = "visa_processing"
	StageDeparted       Stage = "departed"
)

// validStages is the single source of truth for valid stage values.
var validStages = map[Stage]bool{
	StageRegistered:     true,
	StageVerified:       true,
	StageApplied:        true,
	StageOfferAccepted:  true,
	StageVisaProcessing: true,
	StageDeparted:       true,
}

// ParseStage constructs a Stage from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseStage(s string) (Stage, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "stage cannot be empty")
	}
	st := Stage(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown stage %q", s)
	}
	return st, nil
}

// IsValid checks if the stage is one of the supported enum values.
func (s Stage) IsValid() bool {
	return validStages[s]
}

func (s Stage) String() string {
	return string(s)
}

// StageStatus is a descriptive substate within a stage. It is not a pipeline
// position; holding a candidate never changes their stage.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusOnHold     StageStatus = "on_hold"
)

var validStageStatuses = map[StageStatus]bool{
	StageStatusPending:    true,
	StageStatusInProgress: true,
	StageStatusOnHold:     true,
}

// IsValid checks if the status is one of the supported enum values.
func (s StageStatus) IsValid() bool {
	return validStageStatuses[s]
}

func (s StageStatus) String() string {
	return string(s)
}
