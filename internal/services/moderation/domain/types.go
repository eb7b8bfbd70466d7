// Package domain holds the moderation types and the auto-hide
// threshold rule
package domain

import "time"

// Reportable content types
const (
	ContentProgressEntry = "progress_entry"
	ContentGroup         = "group"
	ContentUsername      = "username"
)

// ReportInput flags a piece of content
type ReportInput struct {
	ContentType string `json:"content_type" validate:"required,oneof=progress_entry group username"`
	ContentID   string `json:"content_id" validate:"required,uuid"`
	Reason      string `json:"reason" validate:"max=1000"`
}

// ReportResult acknowledges a report. AutoHidden is set when this
// report tipped a progress entry over the threshold
type ReportResult struct {
	ID         string    `json:"id"`
	AutoHidden bool      `json:"auto_hidden"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisputeInput contests a removal
type DisputeInput struct {
	ContentType string `json:"content_type" validate:"required,oneof=progress_entry group username"`
	ContentID   string `json:"content_id" validate:"required,uuid"`
	Explanation string `json:"explanation" validate:"required,max=2000"`
}

// DisputeResult acknowledges a dispute
type DisputeResult struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryRef is the slice of a progress entry moderation needs
type EntryRef struct {
	ID               string
	OwnerID          string
	GroupID          string
	ModerationStatus string
	Note             string
	LogTitle         string
}

// ScreenText is what the safety vendor sees for a reported entry
func (e EntryRef) ScreenText() string {
	switch {
	case e.LogTitle != "" && e.Note != "":
		return e.LogTitle + "\n" + e.Note
	case e.LogTitle != "":
		return e.LogTitle
	default:
		return e.Note
	}
}

// AutoHideThreshold is the distinct-reporter count that hides a
// progress entry, as a function of the group's active-member count:
// small groups hide on 2 reports, mid-size on 3, and large groups on
// 10% of the roster capped at 5
func AutoHideThreshold(activeMembers int) int {
	switch {
	case activeMembers <= 10:
		return 2
	case activeMembers <= 50:
		return 3
	default:
		n := activeMembers / 10
		if n > 5 {
			n = 5
		}
		return n
	}
}
