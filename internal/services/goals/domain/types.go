// Package domain holds goal and progress types and ports
package domain

import "time"

// Metric types
const (
	MetricBinary   = "binary"
	MetricNumeric  = "numeric"
	MetricDuration = "duration"
	MetricJournal  = "journal"
)

// Moderation statuses carried on progress entries
const (
	ModerationOK       = "ok"
	ModerationHidden   = "hidden"
	ModerationRemoved  = "removed"
	ModerationDisputed = "disputed"
)

// PhotoWindow bounds how long after logging a photo may still be attached
const PhotoWindow = 15 * time.Minute

// PhotoLifetime is how long an attached photo stays viewable before it
// reads as expired
const PhotoLifetime = 24 * time.Hour

// MaxRangeDays caps from/to spans on progress reads
const MaxRangeDays = 366

// GoalsPerGroup mirrors the database cap so limit errors carry a number
const GoalsPerGroup = 100

// Goal is one habit tracked inside a group
type Goal struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Cadence        string    `json:"cadence"`
	MetricType     string    `json:"metric_type"`
	TargetValue    *float64  `json:"target_value,omitempty"`
	Unit           *string   `json:"unit,omitempty"`
	ActiveDays     *int      `json:"active_days,omitempty"`
	LogTitlePrompt *string   `json:"log_title_prompt,omitempty"`
	TemplateGoalID *string   `json:"template_goal_id,omitempty"`
	CreatedBy      *string   `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Entry is one logged progress row. UserID is nil once its author
// deleted their account
type Entry struct {
	ID               string    `json:"id"`
	GoalID           string    `json:"goal_id"`
	UserID           *string   `json:"user_id"`
	Value            float64   `json:"value"`
	Note             *string   `json:"note,omitempty"`
	LogTitle         *string   `json:"log_title,omitempty"`
	PeriodStart      time.Time `json:"period_start"`
	UserTimezone     string    `json:"-"`
	LoggedAt         time.Time `json:"logged_at"`
	ModerationStatus string    `json:"moderation_status"`
	HasPhoto         bool      `json:"has_photo"`
}

// Photo is the stored 1:1 attachment of an entry
type Photo struct {
	ID              string     `json:"id"`
	ProgressEntryID string     `json:"progress_entry_id"`
	UserID          *string    `json:"user_id,omitempty"`
	ObjectPath      string     `json:"-"`
	WidthPx         int        `json:"width_px"`
	HeightPx        int        `json:"height_px"`
	ExpiresAt       time.Time  `json:"expires_at"`
	ObjectDeletedAt *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PhotoView is a photo ready for a client: freshly signed URL plus dims
type PhotoView struct {
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	WidthPx   int       `json:"width_px"`
	HeightPx  int       `json:"height_px"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateGoalInput adds a goal to a group
type CreateGoalInput struct {
	Title          string   `json:"title" validate:"required,min=1,max=120"`
	Description    string   `json:"description" validate:"max=500"`
	Cadence        string   `json:"cadence" validate:"required,oneof=daily weekly monthly yearly"`
	MetricType     string   `json:"metric_type" validate:"required,oneof=binary numeric duration journal"`
	TargetValue    *float64 `json:"target_value" validate:"omitempty,gte=0"`
	Unit           *string  `json:"unit" validate:"omitempty,max=24"`
	ActiveDays     *int     `json:"active_days" validate:"omitempty,min=1,max=127"`
	LogTitlePrompt *string  `json:"log_title_prompt" validate:"omitempty,max=200"`
}

// UpdateGoalInput patches a goal; nil fields keep their value. Cadence
// and metric are fixed at creation since changing them would re-bucket
// everyone's history
type UpdateGoalInput struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=120"`
	Description    *string  `json:"description" validate:"omitempty,max=500"`
	TargetValue    *float64 `json:"target_value" validate:"omitempty,gte=0"`
	Unit           *string  `json:"unit" validate:"omitempty,max=24"`
	ActiveDays     *int     `json:"active_days" validate:"omitempty,min=1,max=127"`
	LogTitlePrompt *string  `json:"log_title_prompt" validate:"omitempty,max=200"`
}

// LogProgressInput records one period's progress against a goal
type LogProgressInput struct {
	GoalID   string   `json:"goal_id" validate:"required,uuid"`
	UserDate string   `json:"user_date" validate:"required,datetime=2006-01-02"`
	Timezone string   `json:"timezone" validate:"omitempty,max=64"`
	Value    *float64 `json:"value" validate:"omitempty,gte=0"`
	Note     *string  `json:"note" validate:"omitempty,max=2000"`
	LogTitle *string  `json:"log_title" validate:"omitempty,max=200"`
}

// UpdateEntryInput edits the caller's own entry
type UpdateEntryInput struct {
	Value    *float64 `json:"value" validate:"omitempty,gte=0"`
	Note     *string  `json:"note" validate:"omitempty,max=2000"`
	LogTitle *string  `json:"log_title" validate:"omitempty,max=200"`
}

// NewEntry is the progress insert shape
type NewEntry struct {
	GoalID       string
	UserID       string
	Value        float64
	Note         *string
	LogTitle     *string
	PeriodStart  time.Time
	UserTimezone string
}

// NewPhoto is the photo insert shape
type NewPhoto struct {
	ProgressEntryID string
	UserID          string
	ObjectPath      string
	WidthPx         int
	HeightPx        int
	ExpiresAt       time.Time
}

// EntryLite is the slice of an entry shown on goal lists
type EntryLite struct {
	ID       string    `json:"id"`
	UserID   *string   `json:"user_id"`
	Value    float64   `json:"value"`
	LogTitle *string   `json:"log_title,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}

// GoalProgress is a goal plus its current-period standing
type GoalProgress struct {
	Goal
	PeriodStart      time.Time   `json:"period_start"`
	Entries          []EntryLite `json:"entries"`
	CompletedMembers int         `json:"completed_members"`
}

// RosterMember is one active member on the group roster
type RosterMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	HasAvatar   bool   `json:"has_avatar"`
}

// GroupGoalList is the batched goals-with-progress payload
type GroupGoalList struct {
	GroupID string         `json:"group_id"`
	Goals   []GoalProgress `json:"goals"`
	Members []RosterMember `json:"members"`
}

// GoalAggregate sums one member's standing on one goal over a range
type GoalAggregate struct {
	GoalID      string   `json:"goal_id"`
	Title       string   `json:"title"`
	Cadence     string   `json:"cadence"`
	MetricType  string   `json:"metric_type"`
	Unit        *string  `json:"unit,omitempty"`
	TargetValue *float64 `json:"target_value,omitempty"`
	Entries     int      `json:"entries"`
	Completed   float64  `json:"completed"`
	Total       float64  `json:"total"`
	Percentage  int      `json:"percentage"`
}

// MemberProgress is one member's aggregate across a group's goals
type MemberProgress struct {
	GroupID string          `json:"group_id"`
	UserID  string          `json:"user_id"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Goals   []GoalAggregate `json:"goals"`
}
