package models

import "time"

// TagCategory distinguishes the fixed taxonomy from user-defined tags.
type TagCategory string

const (
	TagCategoryPredefined TagCategory = "predefined"
	TagCategoryCustom     TagCategory = "custom"
)

// PredefinedTags is the fixed coaching taxonomy seeded at startup.
var PredefinedTags = []string{
	"goal-setting",
	"progress-review",
	"action-plan",
	"feedback",
	"wellbeing",
	"career-development",
	"conflict",
	"onboarding",
	"performance",
	"follow-up",
}

// TagRecord tracks one vocabulary entry and its usage count.
type TagRecord struct {
	Name       string      `db:"name" json:"name"`
	Category   TagCategory `db:"category" json:"category"`
	UsageCount int64       `db:"usage_count" json:"usage_count"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
