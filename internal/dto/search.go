package dto

import (
	"time"

	"github.com/noah-isme/coaching-notes-api/internal/models"
)

// Sort fields accepted by the search API.
const (
	SortRelevance = "relevance"
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
)

// SearchRequest is the query object for note search.
type SearchRequest struct {
	Text            string     `json:"text"`
	Tags            []string   `json:"tags,omitempty"`
	Category        string     `json:"category,omitempty"`
	DateFrom        *time.Time `json:"dateFrom,omitempty"`
	DateTo          *time.Time `json:"dateTo,omitempty"`
	ClientID        string     `json:"clientId,omitempty"`
	SessionID       string     `json:"sessionId,omitempty"`
	IncludeArchived bool       `json:"includeArchived,omitempty"`
	Reason          string     `json:"reason,omitempty"`

	SortField string `json:"sortField,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
}

// SearchResult is one scored hit.
type SearchResult struct {
	Note  models.Note `json:"note"`
	Score int         `json:"score,omitempty"`
}

// SearchResponse carries scored, access-filtered, paginated results.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}
