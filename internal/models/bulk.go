package models

import (
	"time"

	"github.com/lib/pq"
)

// BulkKind enumerates supported bulk mutation kinds.
type BulkKind string

const (
	BulkKindDelete         BulkKind = "delete"
	BulkKindTagAdd         BulkKind = "tag_add"
	BulkKindTagRemove      BulkKind = "tag_remove"
	BulkKindArchive        BulkKind = "archive"
	BulkKindRestore        BulkKind = "restore"
	BulkKindPrivacyChange  BulkKind = "privacy_change"
	BulkKindCategoryAssign BulkKind = "category_assign"
)

// ValidBulkKind reports whether the value is a known kind.
func ValidBulkKind(kind BulkKind) bool {
	switch kind {
	case BulkKindDelete, BulkKindTagAdd, BulkKindTagRemove, BulkKindArchive,
		BulkKindRestore, BulkKindPrivacyChange, BulkKindCategoryAssign:
		return true
	}
	return false
}

// BulkStatus captures executor states for a bulk operation.
type BulkStatus string

const (
	BulkStatusPending         BulkStatus = "pending"
	BulkStatusRunning         BulkStatus = "running"
	BulkStatusCompleted       BulkStatus = "completed"
	BulkStatusPartiallyFailed BulkStatus = "partially_failed"
	BulkStatusFailed          BulkStatus = "failed"
)

// Terminal reports whether the status is final.
func (s BulkStatus) Terminal() bool {
	return s == BulkStatusCompleted || s == BulkStatusPartiallyFailed || s == BulkStatusFailed
}

// BulkItemResult is the per-note outcome inside a bulk operation report.
type BulkItemResult struct {
	OperationID string  `db:"operation_id" json:"-"`
	NoteID      string  `db:"note_id" json:"note_id"`
	Success     bool    `db:"success" json:"success"`
	Reason      *string `db:"reason" json:"reason,omitempty"`
}

// BulkOperation is one mutation kind applied to many notes as a single
// trackable unit. Once terminal it becomes read-only history.
type BulkOperation struct {
	ID            string         `db:"id" json:"id"`
	Kind          BulkKind       `db:"kind" json:"kind"`
	InitiatorID   string         `db:"initiator_id" json:"initiator_id"`
	InitiatorRole UserRole       `db:"initiator_role" json:"initiator_role"`
	Status        BulkStatus     `db:"status" json:"status"`
	TargetIDs     pq.StringArray `db:"target_ids" json:"target_ids"`
	Params        []byte         `db:"params" json:"params,omitempty"`
	SuccessCount  int            `db:"success_count" json:"success_count"`
	FailureCount  int            `db:"failure_count" json:"failure_count"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	StartedAt     *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`

	Items []BulkItemResult `db:"-" json:"items,omitempty"`
}

// BulkParams carries the kind-specific payload of a bulk operation.
type BulkParams struct {
	Tags          []string         `json:"tags,omitempty"`
	Category      string           `json:"category,omitempty"`
	AccessLevel   AccessLevel      `json:"access_level,omitempty"`
	Privacy       *PrivacySettings `json:"privacy,omitempty"`
	ArchiveReason string           `json:"archive_reason,omitempty"`
}
