package models

import "time"

// ConsentType enumerates the processing purposes a subject can consent to.
type ConsentType string

const (
	ConsentDataCollection ConsentType = "data_collection"
	ConsentDataProcessing ConsentType = "data_processing"
	ConsentDataSharing    ConsentType = "data_sharing"
	ConsentAnalytics      ConsentType = "analytics"
	ConsentExport         ConsentType = "export"
)

// ValidConsentType reports whether the value is a known purpose.
func ValidConsentType(t ConsentType) bool {
	switch t {
	case ConsentDataCollection, ConsentDataProcessing, ConsentDataSharing, ConsentAnalytics, ConsentExport:
		return true
	}
	return false
}

// ConsentStatus is the computed "current" state for a subject and type.
type ConsentStatus string

const (
	ConsentStatusGranted ConsentStatus = "granted"
	ConsentStatusDenied  ConsentStatus = "denied"
	ConsentStatusUnknown ConsentStatus = "unknown"
)

// ConsentRecord is one row of the append-only consent ledger. Withdrawal
// never deletes a grant: it appends a new record with WithdrawnAt set.
type ConsentRecord struct {
	ID            string      `db:"id" json:"id"`
	SubjectID     string      `db:"subject_id" json:"subject_id"`
	ConsentType   ConsentType `db:"consent_type" json:"consent_type"`
	Granted       bool        `db:"granted" json:"granted"`
	Method        string      `db:"method" json:"method"`
	PolicyVersion string      `db:"policy_version" json:"policy_version"`
	WithdrawnAt   *time.Time  `db:"withdrawn_at" json:"withdrawn_at,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}
