package models

import "time"

// RequestType enumerates GDPR-style data subject request kinds.
type RequestType string

const (
	RequestTypeAccess        RequestType = "access"
	RequestTypeRectification RequestType = "rectification"
	RequestTypeErasure       RequestType = "erasure"
	RequestTypePortability   RequestType = "portability"
	RequestTypeRestriction   RequestType = "restriction"
	RequestTypeObjection     RequestType = "objection"
)

// ValidRequestType reports whether the value is a known request kind.
func ValidRequestType(t RequestType) bool {
	switch t {
	case RequestTypeAccess, RequestTypeRectification, RequestTypeErasure,
		RequestTypePortability, RequestTypeRestriction, RequestTypeObjection:
		return true
	}
	return false
}

// RequestStatus captures the review workflow state.
type RequestStatus string

const (
	RequestStatusSubmitted RequestStatus = "submitted"
	RequestStatusInReview  RequestStatus = "in_review"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusRejected  RequestStatus = "rejected"
)

// CanTransitionTo encodes the legal request state machine:
// submitted → in_review → {fulfilled, rejected}.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestStatusSubmitted:
		return next == RequestStatusInReview
	case RequestStatusInReview:
		return next == RequestStatusFulfilled || next == RequestStatusRejected
	}
	return false
}

// DataSubjectRequest tracks one GDPR-style request through review.
type DataSubjectRequest struct {
	ID          string        `db:"id" json:"id"`
	SubjectID   string        `db:"subject_id" json:"subject_id"`
	RequestType RequestType   `db:"request_type" json:"request_type"`
	Details     string        `db:"details" json:"details"`
	SubmittedBy string        `db:"submitted_by" json:"submitted_by"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}
