// Package domain holds the reminder types and the pure scheduling logic:
// preference defaults, learned logging bands, and dispatch eligibility.
package domain

import (
	"fmt"
	"time"
)

// Reminder modes
const (
	ModeSmart = "smart"
	ModeFixed = "fixed"
)

// Aggressiveness levels. Gentle keeps the band tight, aggressive widens it.
const (
	AggGentle     = "gentle"
	AggNormal     = "normal"
	AggAggressive = "aggressive"
)

// Defaults for absent preference rows
const (
	DefaultQuietStart = 22
	DefaultQuietEnd   = 7
)

// MinSamples is the floor below which no pattern is learned
const MinSamples = 5

// PatternLookback bounds the entries the pattern job considers
const PatternLookback = 90 * 24 * time.Hour

// EffectivenessWindow is how soon after a reminder a progress entry must
// land for the reminder to count as effective
const EffectivenessWindow = 3 * time.Hour

// EffectivenessLookback bounds the reminders the daily evaluation scans
const EffectivenessLookback = 7 * 24 * time.Hour

// Preference is a user's per-goal reminder settings
type Preference struct {
	GoalID         string    `json:"goal_id"`
	Enabled        bool      `json:"enabled"`
	Mode           string    `json:"mode"`
	FixedHour      *int      `json:"fixed_hour,omitempty"`
	Aggressiveness string    `json:"aggressiveness"`
	QuietStart     int       `json:"quiet_hours_start"`
	QuietEnd       int       `json:"quiet_hours_end"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// DefaultPreference is what an absent row behaves as
func DefaultPreference(goalID string) Preference {
	return Preference{
		GoalID:         goalID,
		Enabled:        true,
		Mode:           ModeSmart,
		Aggressiveness: AggNormal,
		QuietStart:     DefaultQuietStart,
		QuietEnd:       DefaultQuietEnd,
	}
}

// PreferenceInput is the settable subset of a preference
type PreferenceInput struct {
	Enabled        *bool  `json:"enabled"`
	Mode           string `json:"mode" validate:"omitempty,oneof=smart fixed"`
	FixedHour      *int   `json:"fixed_hour" validate:"omitempty,min=0,max=23"`
	Aggressiveness string `json:"aggressiveness" validate:"omitempty,oneof=gentle normal aggressive"`
	QuietStart     *int   `json:"quiet_hours_start" validate:"omitempty,min=0,max=23"`
	QuietEnd       *int   `json:"quiet_hours_end" validate:"omitempty,min=0,max=23"`
}

// Pattern is a learned logging band for one (user, goal)
type Pattern struct {
	UserID     string
	GoalID     string
	HourStart  int
	HourEnd    int
	Confidence float64
	SampleSize int
}

// PatternReport summarizes one pattern-learning run
type PatternReport struct {
	Pairs   int `json:"pairs"`
	Learned int `json:"learned"`
	Removed int `json:"removed"`
}

// DispatchReport summarizes one dispatch sweep
type DispatchReport struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
}

// EffectivenessReport summarizes one evaluation run
type EffectivenessReport struct {
	Evaluated int `json:"evaluated"`
	Effective int `json:"effective"`
}

// DedupeKey is the stable key that makes dispatch idempotent: one reminder
// per (user, goal) per goal period
func DedupeKey(userID, goalID string, periodStart time.Time) string {
	return fmt.Sprintf("reminder:%s:%s:%s", userID, goalID, periodStart.Format("2006-01-02"))
}
