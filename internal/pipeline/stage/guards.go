package stage

import (
	"strings"

	"passage/internal/pipeline/models"
)

// Providers are the external read functions guards consult. The defaults read
// the candidate record directly; deployments with separate document or medical
// services swap their own in. Providers must be pure: no mutation, no I/O.
type Providers struct {
	// DocumentStatus resolves the review status of a document type.
	DocumentStatus func(c *models.Candidate, t models.DocumentType) models.DocumentStatus
	// MedicalStatus resolves the medical examination sub-state.
	MedicalStatus func(c *models.Candidate) models.MedicalStatus
	// VisaStatus resolves the visa application sub-state.
	VisaStatus func(c *models.Candidate) models.VisaStatus
}

func (p Providers) withDefaults() Providers {
	if p.DocumentStatus == nil {
		p.DocumentStatus = func(c *models.Candidate, t models.DocumentType) models.DocumentStatus {
			return c.DocumentStatusOf(t)
		}
	}
	if p.MedicalStatus == nil {
		p.MedicalStatus = func(c *models.Candidate) models.MedicalStatus {
			return c.StageData.Medical
		}
	}
	if p.VisaStatus == nil {
		p.VisaStatus = func(c *models.Candidate) models.VisaStatus {
			return c.StageData.Visa
		}
	}
	return p
}

// buildGuards binds the per-stage exit rules to the providers. The guard for a
// stage answers "may this candidate leave it", so the terminal stage carries a
// guard that always denies.
func buildGuards(p Providers) map[models.Stage]GuardFunc {
	return map[models.Stage]GuardFunc{
		models.StageRegistered: func(c *models.Candidate) Decision {
			if strings.TrimSpace(c.FullName) == "" {
				return deny("Candidate name is missing")
			}
			if c.Email == "" && c.PhoneNumber == "" {
				return deny("Candidate has no contact details on file")
			}
			return allow()
		},

		models.StageVerified: func(c *models.Candidate) Decision {
			if s := p.DocumentStatus(c, models.DocumentPassport); s != models.DocumentApproved {
				if s == models.DocumentMissing {
					return deny("Passport document not uploaded")
				}
				return deny("Passport document not approved")
			}
			if p.DocumentStatus(c, models.DocumentPoliceClearance) == models.DocumentRejected {
				return deny("Police clearance certificate was rejected")
			}
			return allow()
		},

		models.StageApplied: func(c *models.Candidate) Decision {
			switch p.MedicalStatus(c) {
			case models.MedicalPassed:
				// fall through to document checks
			case models.MedicalFailed:
				return deny("Medical examination failed")
			default:
				return deny("Medical examination not completed")
			}
			if p.DocumentStatus(c, models.DocumentPoliceClearance) != models.DocumentApproved {
				return deny("Police clearance certificate not approved")
			}
			return allow()
		},

		models.StageOfferAccepted: func(c *models.Candidate) Decision {
			if !c.StageData.OfferLetterSigned {
				return deny("Offer letter has not been signed")
			}
			return allow()
		},

		models.StageVisaProcessing: func(c *models.Candidate) Decision {
			switch p.VisaStatus(c) {
			case models.VisaGranted:
				// fall through to travel checks
			case models.VisaRejected:
				return deny("Visa application was rejected")
			default:
				return deny("Visa has not been granted")
			}
			if !c.StageData.TicketBooked {
				return deny("Travel ticket has not been booked")
			}
			return allow()
		},

		models.StageDeparted: func(c *models.Candidate) Decision {
			return deny("Candidate has completed the pipeline")
		},
	}
}
