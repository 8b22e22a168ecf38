package dto

import "github.com/noah-isme/coaching-notes-api/internal/models"

// SubmitDataSubjectRequest opens a GDPR-style request for a subject.
type SubmitDataSubjectRequest struct {
	SubjectID   string             `json:"subjectId" binding:"required"`
	RequestType models.RequestType `json:"requestType" binding:"required"`
	Details     string             `json:"details"`
}

// UpdateRequestStatusRequest moves a request through the review workflow.
type UpdateRequestStatusRequest struct {
	Status models.RequestStatus `json:"status" binding:"required"`
}
