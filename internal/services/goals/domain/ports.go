package domain

import (
	"context"
	"time"

	groupsdomain "pursue/internal/services/groups/domain"
)

// ServicePort is the goals surface mounted over HTTP
type ServicePort interface {
	CreateGoal(ctx context.Context, userID, groupID string, in CreateGoalInput) (Goal, error)
	GoalsWithProgress(ctx context.Context, userID, groupID string) (GroupGoalList, error)
	Goal(ctx context.Context, userID, goalID string) (Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, in UpdateGoalInput) (Goal, error)
	ArchiveGoal(ctx context.Context, userID, goalID string) error

	LogProgress(ctx context.Context, userID string, in LogProgressInput) (Entry, error)
	GoalEntries(ctx context.Context, userID, goalID string, from, to time.Time) ([]Entry, error)
	MyGoalEntries(ctx context.Context, userID, goalID string, from, to time.Time) ([]Entry, error)
	UpdateEntry(ctx context.Context, userID, entryID string, in UpdateEntryInput) (Entry, error)
	DeleteEntry(ctx context.Context, userID, entryID string) error
	MemberProgress(ctx context.Context, userID, groupID, memberID string, from, to time.Time) (MemberProgress, error)

	AttachPhoto(ctx context.Context, userID, entryID string, data []byte) (PhotoView, error)
	PhotoFor(ctx context.Context, userID, entryID string) (PhotoView, error)
	DeletePhoto(ctx context.Context, userID, entryID string) error
}

// GroupGuardPort is the slice of the groups service that places a
// caller before goal-scoped work. The groups service satisfies it
type GroupGuardPort interface {
	Group(ctx context.Context, groupID string) (groupsdomain.Group, error)
	Member(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
	Admin(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// WriteGuardPort answers whether the caller's subscription lets them
// write in a group. The subscriptions service satisfies it
type WriteGuardPort interface {
	CanUserWriteInGroup(ctx context.Context, userID, groupID string) error
}

// ObjectStorePort stores and signs photo blobs
type ObjectStorePort interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	SignedURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// Storage is the transactional persistence surface for goals, progress
// entries, and photos
type Storage interface {
	InsertGoal(ctx context.Context, groupID, createdBy string, in CreateGoalInput) (Goal, error)
	GoalByID(ctx context.Context, goalID string) (Goal, bool, error)
	// GoalForEntry resolves an entry's parent goal, archived included,
	// so old entries stay reachable for edits and photo reads
	GoalForEntry(ctx context.Context, goalID string) (Goal, bool, error)
	GoalsForGroup(ctx context.Context, groupID string) ([]Goal, error)
	UpdateGoal(ctx context.Context, goalID string, in UpdateGoalInput) (Goal, bool, error)
	ArchiveGoal(ctx context.Context, goalID string) (bool, error)

	InsertEntry(ctx context.Context, in NewEntry) (Entry, error)
	EntryByID(ctx context.Context, entryID string) (Entry, bool, error)
	UpdateEntry(ctx context.Context, entryID string, in UpdateEntryInput) (Entry, bool, error)
	DeleteEntry(ctx context.Context, entryID string) (bool, error)

	// EntriesSince is the single range scan behind goals-with-progress:
	// every entry for the given goals from minPeriod forward
	EntriesSince(ctx context.Context, goalIDs []string, minPeriod time.Time) ([]Entry, error)
	EntriesForGoal(ctx context.Context, goalID string, from, to time.Time) ([]Entry, error)
	EntriesForGoalUser(ctx context.Context, goalID, userID string, from, to time.Time) ([]Entry, error)
	EntriesForMember(ctx context.Context, groupID, userID string, from, to time.Time) ([]Entry, error)
	CountEntries(ctx context.Context, goalID, userID string) (int, error)

	Roster(ctx context.Context, groupID string) ([]RosterMember, error)
	UserTimezone(ctx context.Context, userID string) (string, error)
	SetUserTimezone(ctx context.Context, userID, tz string) error

	InsertPhoto(ctx context.Context, p NewPhoto) (Photo, error)
	PhotoByEntry(ctx context.Context, entryID string) (Photo, bool, error)
	PhotosByEntryIDs(ctx context.Context, entryIDs []string) ([]Photo, error)
	MarkPhotoDeleted(ctx context.Context, photoID string) error

	InsertActivity(ctx context.Context, groupID string, userID *string, activityType string, metadata map[string]any) error
}
