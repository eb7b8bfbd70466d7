package domain

import (
	"context"
	"time"

	"pursue/internal/core/period"
	groupsdomain "pursue/internal/services/groups/domain"
)

// ServicePort is the reminders surface: preference CRUD for the HTTP layer
// plus the three scheduled runs the jobs module drives
type ServicePort interface {
	Preferences(ctx context.Context, userID string) ([]Preference, error)
	SetPreference(ctx context.Context, userID, goalID string, in PreferenceInput) (Preference, error)

	RunRecalculatePatterns(ctx context.Context, now time.Time) (PatternReport, error)
	RunDispatch(ctx context.Context, now time.Time) (DispatchReport, error)
	RunEffectiveness(ctx context.Context, now time.Time) (EffectivenessReport, error)
}

// GroupGuardPort is the membership slice the service consults before
// accepting a preference write. The groups service satisfies it
type GroupGuardPort interface {
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// NotifierPort delivers the reminder push + inbox row. Satisfied by the
// notifications fanout.
type NotifierPort interface {
	ReminderDue(ctx context.Context, userID, goalID, goalTitle, groupID string) error
}

// HourSample is one (user, goal, local hour) bucket from the pattern query
type HourSample struct {
	UserID string
	GoalID string
	Hour   int
	Count  int
}

// Candidate is one enabled (user, goal) pair the dispatch sweep considers,
// with preference and pattern columns pre-joined
type Candidate struct {
	UserID     string
	GoalID     string
	GoalTitle  string
	GroupID    string
	Cadence    period.Cadence
	ActiveDays int
	Timezone   string
	Pref       Preference
	Pattern    *Pattern
}

// Storage is the reminders persistence surface
type Storage interface {
	PreferencesForUser(ctx context.Context, userID string) ([]Preference, error)
	UpsertPreference(ctx context.Context, userID, goalID string, p Preference) (Preference, error)

	// GoalGroup resolves a live goal to its group; ok is false when the
	// goal is missing or deleted
	GoalGroup(ctx context.Context, goalID string) (groupID string, ok bool, err error)

	HourSamples(ctx context.Context, since time.Time) ([]HourSample, error)
	UpsertPattern(ctx context.Context, p Pattern, calculatedAt time.Time) error
	DeletePatternsBefore(ctx context.Context, cutoff time.Time) (int, error)

	Candidates(ctx context.Context) ([]Candidate, error)
	EntryExists(ctx context.Context, goalID, userID string, periodStart time.Time) (bool, error)

	// InsertReminderLog records a send under its dedupe key; inserted is
	// false when the key already exists
	InsertReminderLog(ctx context.Context, userID, goalID, dedupeKey string, periodStart, sentAt time.Time) (inserted bool, err error)
	EvaluateEffectiveness(ctx context.Context, since, now time.Time, window time.Duration) (evaluated, effective int, err error)
}
