package domain

import (
	"context"

	groupsdomain "pursue/internal/services/groups/domain"
)

// ServicePort is the feed surface mounted over HTTP
type ServicePort interface {
	Feed(ctx context.Context, userID, groupID string, offset, limit int) (Page, error)
	React(ctx context.Context, userID, activityID string, in ReactInput) (ReactResult, error)
	Unreact(ctx context.Context, userID, activityID string) error
}

// GroupGuardPort is the membership slice the feed consults. The groups
// service satisfies it
type GroupGuardPort interface {
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// ObjectStorePort mints signed photo URLs. Uploads stay with the goals
// service; the feed only reads
type ObjectStorePort interface {
	SignedURL(ctx context.Context, path string) (string, error)
}

// NotifierPort pushes reaction events to the notifications module.
// Calls run detached post-commit and never fail the request
type NotifierPort interface {
	ReactionAdded(ctx context.Context, recipientID, groupID, activityID, emoji, reactorName string) error
}

// Storage is the feed persistence surface
type Storage interface {
	Activities(ctx context.Context, groupID string, limit, offset int) ([]ActivityRow, error)
	PhotosByEntries(ctx context.Context, entryIDs []string) ([]PhotoRow, error)
	ReactionsByActivities(ctx context.Context, activityIDs []string) ([]ReactionRow, error)

	ActivityByID(ctx context.Context, id string) (ActivityRef, bool, error)
	// UpsertReaction returns the emoji it replaced, nil on a first
	// reaction
	UpsertReaction(ctx context.Context, activityID, userID, emoji string) (*string, error)
	DeleteReaction(ctx context.Context, activityID, userID string) (bool, error)

	DisplayName(ctx context.Context, userID string) (string, error)
}
