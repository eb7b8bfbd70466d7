// Package domain holds challenge types and ports
package domain

import (
	"time"

	groupsdomain "pursue/internal/services/groups/domain"
)

// MaxStartLeadDays is how far ahead a challenge may be scheduled
const MaxStartLeadDays = 30

// Detail is the created challenge's group view
type Detail = groupsdomain.Detail

// Template is one reusable challenge blueprint
type Template struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Emoji        *string        `json:"emoji,omitempty"`
	Category     string         `json:"category"`
	DurationDays *int           `json:"duration_days,omitempty"`
	IsFeatured   bool           `json:"is_featured"`
	Goals        []TemplateGoal `json:"goals"`
}

// TemplateGoal is a goal blueprint inside a template
type TemplateGoal struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Cadence     string   `json:"cadence"`
	MetricType  string   `json:"metric_type"`
	TargetValue *float64 `json:"target_value,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
}

// CreateChallengeInput creates a challenge group. With a template the
// duration, goals, and fallback name come from it; without one the
// caller supplies an end date and at least one goal
type CreateChallengeInput struct {
	TemplateID  *string                 `json:"template_id" validate:"omitempty,uuid"`
	Name        string                  `json:"name" validate:"omitempty,max=80"`
	Description string                  `json:"description" validate:"max=500"`
	IconEmoji   *string                 `json:"icon_emoji" validate:"omitempty,max=16"`
	IconColor   *string                 `json:"icon_color" validate:"omitempty,hexcolor"`
	Visibility  string                  `json:"visibility" validate:"omitempty,oneof=public private"`
	AutoApprove bool                    `json:"auto_approve"`
	Language    *string                 `json:"language" validate:"omitempty,bcp47_language_tag"`
	StartDate   string                  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     *string                 `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Goals       []groupsdomain.GoalSeed `json:"goals" validate:"omitempty,max=20,dive"`
}

// SeedGoal is a goal row created together with its challenge, carrying
// the template linkage when seeded from one
type SeedGoal struct {
	Title          string
	Description    string
	Cadence        string
	MetricType     string
	TargetValue    *float64
	Unit           *string
	TemplateGoalID *string
}

// Challenge is the slice of a group row the lifecycle works on
type Challenge struct {
	ID         string
	Name       string
	Emoji      *string
	StartDate  time.Time
	EndDate    time.Time
	Status     string
	TemplateID *string
}

// InviteCard is the shareable challenge summary. Attribution names
// whoever shares it, resolved when the card is fetched
type InviteCard struct {
	ChallengeID string      `json:"challenge_id"`
	Name        string      `json:"name"`
	Emoji       *string     `json:"emoji,omitempty"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Code        string      `json:"code"`
	URL         string      `json:"url"`
	InvitedBy   Attribution `json:"invited_by"`
}

// Attribution identifies the sharing member
type Attribution struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// StatusTransitions reports one status-job run
type StatusTransitions struct {
	Activated int `json:"activated"`
	Completed int `json:"completed"`
}

// CompletionRun reports one completion-push run
type CompletionRun struct {
	Challenges int `json:"challenges"`
	Notified   int `json:"notified"`
}

// MemberResult is one member's completion summary over the whole
// challenge window
type MemberResult struct {
	UserID     string `json:"user_id"`
	Percentage int    `json:"percentage"`
}
