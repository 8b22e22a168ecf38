package models

// Action enumerates the auditable operations on a note.
type Action string

const (
	ActionView           Action = "view"
	ActionExport         Action = "export"
	ActionModify         Action = "modify"
	ActionDelete         Action = "delete"
	ActionShare          Action = "share"
	ActionUnshare        Action = "unshare"
	ActionArchive        Action = "archive"
	ActionRestore        Action = "restore"
	ActionPrivacyChange  Action = "privacy_change"
	ActionCategoryAssign Action = "category_assign"

	// Aggregate actions recorded once per bulk operation or erasure
	// fulfilment rather than per note.
	ActionBulkStart    Action = "bulk_start"
	ActionBulkComplete Action = "bulk_complete"
	ActionErasure      Action = "erasure"
)

// Denial reason codes returned to the presentation layer.
const (
	DenialInsufficientAccess = "insufficient_access_level"
	DenialReasonRequired     = "reason_required"
	DenialSharingDisabled    = "sharing_disabled"
	DenialExportDisabled     = "export_disabled"
	DenialNotFound           = "not_found"
)

// Decision is the outcome of one access-control evaluation. Denials are
// values, not errors: a deny still flows through the audit path.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denial carrying a machine-readable reason code.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
