package domain

import (
	"context"
	"time"

	challdomain "pursue/internal/services/challenges/domain"
	groupsdomain "pursue/internal/services/groups/domain"
)

// ServicePort is the notification surface mounted over HTTP
type ServicePort interface {
	RegisterDevice(ctx context.Context, userID string, in RegisterDeviceInput) (Device, error)
	UnregisterDevice(ctx context.Context, userID, token string) error

	Inbox(ctx context.Context, userID, cursor string, limit int) (InboxPage, error)
	MarkRead(ctx context.Context, userID string, in MarkReadInput) (MarkReadResult, error)
	Unread(ctx context.Context, userID string) (UnreadCount, error)

	SendNudge(ctx context.Context, userID string, in NudgeInput) (Nudge, error)
	NudgeStatus(ctx context.Context, userID, groupID string) (NudgeStatus, error)
}

// FanoutPort is the cross-module delivery surface. It satisfies the
// notifier ports the groups, feed, challenges, and reminders modules
// declare; every call writes inbox rows and pushes best-effort
type FanoutPort interface {
	JoinPending(ctx context.Context, groupID, groupName, joinerID string) error
	JoinRequested(ctx context.Context, groupID, groupName, requesterID, requestID string) error
	RequestApproved(ctx context.Context, groupID, groupName, userID string) error
	RequestDeclined(ctx context.Context, groupID, groupName, userID string) error

	ReactionAdded(ctx context.Context, recipientID, groupID, activityID, emoji, reactorName string) error

	ChallengeCancelled(ctx context.Context, groupID, name string, recipients []string) error
	ChallengeCompleted(ctx context.Context, groupID, name string, results []challdomain.MemberResult) error

	ReminderDue(ctx context.Context, userID, goalID, goalTitle, groupID string) error
	WeeklyRecap(ctx context.Context, userID, groupID, groupName, week string, entries int) (bool, error)
}

// GroupGuardPort is the membership slice nudges consult. The groups
// service satisfies it
type GroupGuardPort interface {
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// PushPort delivers to device tokens. The push adapter satisfies it;
// a disabled adapter drops messages silently
type PushPort interface {
	Enabled() bool
	SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string, collapseKey string) error
}

// Storage is the notification persistence surface
type Storage interface {
	UpsertDevice(ctx context.Context, userID, token, platform string) (Device, error)
	DeleteDevice(ctx context.Context, userID, token string) (bool, error)
	TokensForUsers(ctx context.Context, userIDs []string) (map[string][]string, error)

	InsertNotification(ctx context.Context, userID, ntype, title, body string, data map[string]any) error
	// InsertRecapNotification inserts at most once per (user, week);
	// it reports whether a row was written
	InsertRecapNotification(ctx context.Context, userID, title, body string, data map[string]any, week string) (bool, error)
	Inbox(ctx context.Context, userID string, before *InboxKey, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)

	InsertNudge(ctx context.Context, senderID, recipientID, groupID string, goalID *string, localDate time.Time) (Nudge, error)
	NudgedToday(ctx context.Context, senderID, groupID string, localDate time.Time) ([]string, error)

	UserTimezone(ctx context.Context, userID string) (string, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	GroupAdminIDs(ctx context.Context, groupID string) ([]string, error)
	GoalTitle(ctx context.Context, goalID string) (string, bool, error)
}
