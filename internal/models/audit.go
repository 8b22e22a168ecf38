package models

import "time"

// AuditEntry is one immutable record of an access or mutation attempt.
// Entries are never updated or deleted once written; the storage layer
// enforces this with append-only rules on the table.
type AuditEntry struct {
	ID           string    `db:"id" json:"id"`
	NoteID       string    `db:"note_id" json:"note_id"`
	ActorID      string    `db:"actor_id" json:"actor_id"`
	ActorRole    UserRole  `db:"actor_role" json:"actor_role"`
	Action       Action    `db:"action" json:"action"`
	Success      bool      `db:"success" json:"success"`
	DenialReason *string   `db:"denial_reason" json:"denial_reason,omitempty"`
	OldValues    []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues    []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter constrains audit queries. Zero values mean "any".
type AuditFilter struct {
	NoteID   string
	ActorID  string
	Action   Action
	DateFrom *time.Time
	DateTo   *time.Time
	Success  *bool
	Page     int
	PageSize int
}
