package models

import (
	"time"

	"github.com/lib/pq"
)

// AccessLevel is the coarse visibility tier of a note.
type AccessLevel string

const (
	AccessLevelPrivate      AccessLevel = "private"
	AccessLevelSupervisor   AccessLevel = "supervisor"
	AccessLevelTeam         AccessLevel = "team"
	AccessLevelOrganization AccessLevel = "organization"
)

// ValidAccessLevel reports whether the value is a known tier.
func ValidAccessLevel(level AccessLevel) bool {
	switch level {
	case AccessLevelPrivate, AccessLevelSupervisor, AccessLevelTeam, AccessLevelOrganization:
		return true
	}
	return false
}

// PrivacySettings groups the per-note privacy switches as exposed to callers.
type PrivacySettings struct {
	AllowExport         bool `json:"allow_export"`
	AllowSharing        bool `json:"allow_sharing"`
	RequireReason       bool `json:"require_reason_for_access"`
	SensitiveContent    bool `json:"sensitive_content"`
	SupervisionRequired bool `json:"supervision_required"`
	AutoDeleteAfterDays *int `json:"auto_delete_after_days,omitempty"`
	RetentionPeriodDays *int `json:"retention_period_days,omitempty"`
}

// Note represents a coaching note and its privacy state.
type Note struct {
	ID        string  `db:"id" json:"id"`
	OwnerID   string  `db:"owner_id" json:"owner_id"`
	ClientID  string  `db:"client_id" json:"client_id"`
	SessionID string  `db:"session_id" json:"session_id"`
	Title     *string `db:"title" json:"title,omitempty"`
	Body      string  `db:"body" json:"body"`
	Category  string  `db:"category" json:"category"`

	Tags pq.StringArray `db:"tags" json:"tags"`

	AccessLevel         AccessLevel    `db:"access_level" json:"access_level"`
	AllowExport         bool           `db:"allow_export" json:"allow_export"`
	AllowSharing        bool           `db:"allow_sharing" json:"allow_sharing"`
	RequireReason       bool           `db:"require_reason" json:"require_reason_for_access"`
	SensitiveContent    bool           `db:"sensitive_content" json:"sensitive_content"`
	SupervisionRequired bool           `db:"supervision_required" json:"supervision_required"`
	AutoDeleteAfterDays *int           `db:"auto_delete_after_days" json:"auto_delete_after_days,omitempty"`
	RetentionPeriodDays *int           `db:"retention_period_days" json:"retention_period_days,omitempty"`
	SharedWith          pq.StringArray `db:"shared_with" json:"shared_with"`
	Encrypted           bool           `db:"encrypted" json:"encrypted"`

	IsArchived    bool    `db:"is_archived" json:"is_archived"`
	ArchiveReason *string `db:"archive_reason" json:"archive_reason,omitempty"`

	AccessCount    int64      `db:"access_count" json:"access_count"`
	LastAccessedAt *time.Time `db:"last_accessed_at" json:"last_accessed_at,omitempty"`

	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Privacy returns the caller-facing view of the note's privacy switches.
func (n *Note) Privacy() PrivacySettings {
	return PrivacySettings{
		AllowExport:         n.AllowExport,
		AllowSharing:        n.AllowSharing,
		RequireReason:       n.RequireReason,
		SensitiveContent:    n.SensitiveContent,
		SupervisionRequired: n.SupervisionRequired,
		AutoDeleteAfterDays: n.AutoDeleteAfterDays,
		RetentionPeriodDays: n.RetentionPeriodDays,
	}
}

// SharedWithContains reports whether the user id is on the share list.
func (n *Note) SharedWithContains(userID string) bool {
	for _, id := range n.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// NoteFilter constrains candidate selection for search and retention.
type NoteFilter struct {
	OwnerID         string
	ClientID        string
	SessionID       string
	Category        string
	Tags            []string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	IncludeArchived bool
}
