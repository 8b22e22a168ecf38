package models

import "time"

// SavedSearch is a persisted, versioned search definition owned by a user.
// The presentation layer stores nothing locally; it replays the query blob.
type SavedSearch struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Query     []byte    `db:"query" json:"query"`
	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
