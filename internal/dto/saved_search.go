package dto

import "encoding/json"

// CreateSavedSearchRequest persists a named search for the caller.
type CreateSavedSearchRequest struct {
	Name  string          `json:"name" binding:"required"`
	Query json.RawMessage `json:"query" binding:"required"`
}

// UpdateSavedSearchRequest replaces the stored query, bumping the version.
type UpdateSavedSearchRequest struct {
	Name  string          `json:"name,omitempty"`
	Query json.RawMessage `json:"query,omitempty"`
}
