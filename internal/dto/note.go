package dto

import "github.com/noah-isme/coaching-notes-api/internal/models"

// CreateNoteRequest is the payload for creating a note.
type CreateNoteRequest struct {
	ClientID    string                  `json:"clientId" binding:"required"`
	SessionID   string                  `json:"sessionId" binding:"required"`
	Title       *string                 `json:"title,omitempty"`
	Body        string                  `json:"body"`
	Category    string                  `json:"category"`
	Tags        []string                `json:"tags"`
	AccessLevel models.AccessLevel      `json:"accessLevel" binding:"omitempty,accesslevel"`
	Privacy     *models.PrivacySettings `json:"privacy,omitempty"`
	Encrypted   bool                    `json:"encrypted"`
}

// UpdateNoteRequest is a partial patch; nil fields are left untouched.
type UpdateNoteRequest struct {
	Title    *string  `json:"title,omitempty"`
	Body     *string  `json:"body,omitempty"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// PrivacyChangeRequest updates the privacy tier and switches of a note.
type PrivacyChangeRequest struct {
	AccessLevel *models.AccessLevel     `json:"accessLevel,omitempty" binding:"omitempty,accesslevel"`
	Privacy     *models.PrivacySettings `json:"privacy,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
}

// ShareRequest adds or removes users from a note's share list.
type ShareRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
	Reason  string   `json:"reason,omitempty"`
}

// ArchiveRequest soft-archives a note with an operator-supplied reason.
type ArchiveRequest struct {
	ArchiveReason string `json:"archiveReason"`
	Reason        string `json:"reason,omitempty"`
}

// CategoryAssignRequest re-categorises a note.
type CategoryAssignRequest struct {
	Category string `json:"category" binding:"required"`
	Reason   string `json:"reason,omitempty"`
}
