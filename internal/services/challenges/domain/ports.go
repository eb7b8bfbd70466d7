package domain

import (
	"context"
	"time"

	goalsdomain "pursue/internal/services/goals/domain"
	groupsdomain "pursue/internal/services/groups/domain"
	subsdomain "pursue/internal/services/subscriptions/domain"
)

// ServicePort is the challenges surface mounted over HTTP plus the two
// scheduled runs the jobs module drives
type ServicePort interface {
	Templates(ctx context.Context, userID string) ([]Template, error)
	Create(ctx context.Context, userID string, in CreateChallengeInput) (Detail, error)
	Cancel(ctx context.Context, userID, challengeID string) error
	InviteCard(ctx context.Context, userID, challengeID string) (InviteCard, error)

	RunStatusUpdate(ctx context.Context, now time.Time) (StatusTransitions, error)
	RunCompletionPushes(ctx context.Context) (CompletionRun, error)
}

// GroupGuardPort is the slice of the groups service challenges consult.
// The groups service satisfies it
type GroupGuardPort interface {
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
	Creator(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// EntitlementsPort is the slice of the subscriptions module challenges
// consult
type EntitlementsPort interface {
	Entitlement(ctx context.Context, userID string) (subsdomain.Entitlement, error)
	CheckGroupCap(ctx context.Context, userID string) error
}

// NotifierPort fans lifecycle events out to the notifications module.
// Calls run after commit; failures log and never fail the request
type NotifierPort interface {
	ChallengeCancelled(ctx context.Context, groupID, name string, recipients []string) error
	ChallengeCompleted(ctx context.Context, groupID, name string, results []MemberResult) error
}

// EmbedderPort refreshes the created challenge's search embedding.
// Runs detached post-commit; nil skips it
type EmbedderPort interface {
	RefreshGroup(ctx context.Context, groupID string) error
}

// Storage is the persistence surface for templates, challenge rows, and
// the lifecycle jobs
type Storage interface {
	Templates(ctx context.Context) ([]Template, error)
	TemplateByID(ctx context.Context, id string) (Template, bool, error)
	RecordSuggestions(ctx context.Context, userID string, templateIDs []string) error
	// MarkSuggestionUsed stamps used_at, inserting the row when the user
	// found the template without a suggestion
	MarkSuggestionUsed(ctx context.Context, userID, templateID string) error

	InsertChallenge(ctx context.Context, g groupsdomain.NewGroup) (groupsdomain.Group, error)
	ChallengeByID(ctx context.Context, id string) (Challenge, bool, error)
	SetStatus(ctx context.Context, id, status string) error
	InsertCreatorMembership(ctx context.Context, groupID, userID string) error
	InsertInvite(ctx context.Context, groupID, code, createdBy string) error
	InviteCode(ctx context.Context, groupID string) (string, bool, error)
	InsertChallengeGoals(ctx context.Context, groupID, createdBy string, seeds []SeedGoal) error
	InsertHeatRow(ctx context.Context, groupID string) error
	InsertActivity(ctx context.Context, groupID string, userID *string, activityType string, metadata map[string]any) error

	ActiveMemberIDs(ctx context.Context, groupID string) ([]string, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	UserTimezone(ctx context.Context, userID string) (string, error)

	ActivateDue(ctx context.Context, today time.Time) (int, error)
	CompleteDue(ctx context.Context, today time.Time) (int, error)
	CompletionPending(ctx context.Context, limit int) ([]Challenge, error)
	MarkCompletionNotified(ctx context.Context, groupID string) error

	// ChallengeGoals and WindowEntries feed the completion math; both
	// scan only the columns the aggregate needs
	ChallengeGoals(ctx context.Context, groupID string) ([]goalsdomain.Goal, error)
	WindowEntries(ctx context.Context, groupID string, from, to time.Time) ([]goalsdomain.Entry, error)
}
