// Package sla computes elapsed-time-in-stage and urgency classification for
// candidate snapshots. Pure computation: no mutation, no I/O, clock injected
// via requestcontext.
package sla

import "passage/internal/pipeline/models"

// PolicyTable holds the per-stage day limits. Stages absent from the table
// (terminal stages) are exempt from SLA tracking.
type PolicyTable map[models.Stage]int

// DefaultPolicy is the standard placement SLA: how many days a candidate is
// expected to remain in each stage before intervention.
func DefaultPolicy() PolicyTable {
	return PolicyTable{
		models.StageRegistered:     7,
		models.StageVerified:       2,
		models.StageApplied:        14,
		models.StageOfferAccepted:  10,
		models.StageVisaProcessing: 30,
	}
}

// Limit returns the day limit for a stage. The bool is false for exempt
// stages.
func (p PolicyTable) Limit(s models.Stage) (int, bool) {
	limit, ok := p[s]
	return limit, ok
}
