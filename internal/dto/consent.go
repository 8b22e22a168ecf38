package dto

import "github.com/noah-isme/coaching-notes-api/internal/models"

// RecordConsentRequest appends a grant or denial to the ledger.
type RecordConsentRequest struct {
	SubjectID   string             `json:"subjectId" binding:"required"`
	ConsentType models.ConsentType `json:"consentType" binding:"required"`
	Granted     bool               `json:"granted"`
	Method      string             `json:"method"`
}

// WithdrawConsentRequest appends a withdrawal for an active grant.
type WithdrawConsentRequest struct {
	SubjectID   string             `json:"subjectId" binding:"required"`
	ConsentType models.ConsentType `json:"consentType" binding:"required"`
	Reason      string             `json:"reason,omitempty"`
}

// ConsentStatusResponse reports the computed current state.
type ConsentStatusResponse struct {
	SubjectID   string               `json:"subjectId"`
	ConsentType models.ConsentType   `json:"consentType"`
	Status      models.ConsentStatus `json:"status"`
}
