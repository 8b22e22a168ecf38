package dto

import "github.com/noah-isme/coaching-notes-api/internal/models"

// SubmitBulkRequest starts a bulk mutation over many note ids.
type SubmitBulkRequest struct {
	Kind    models.BulkKind    `json:"kind" binding:"required"`
	NoteIDs []string           `json:"noteIds" binding:"required,min=1"`
	Params  *models.BulkParams `json:"params,omitempty"`
}

// SubmitBulkResponse acknowledges an accepted operation.
type SubmitBulkResponse struct {
	OperationID string            `json:"operationId"`
	Status      models.BulkStatus `json:"status"`
}
