package domain

import (
	"context"

	groupsdomain "pursue/internal/services/groups/domain"
)

// ServicePort is the moderation surface mounted over HTTP
type ServicePort interface {
	Report(ctx context.Context, userID string, in ReportInput) (ReportResult, error)
	Dispute(ctx context.Context, userID string, in DisputeInput) (DisputeResult, error)
}

// GroupGuardPort is the membership slice moderation consults before
// accepting a progress-entry report. The groups service satisfies it
type GroupGuardPort interface {
	ActiveMember(ctx context.Context, userID, groupID string) (groupsdomain.Membership, error)
}

// ScreenPort is the external safety vendor. Reported text runs through
// it post-commit; a disabled vendor leaves the reporter threshold as the
// only trigger
type ScreenPort interface {
	Enabled() bool
	CheckText(ctx context.Context, text string) (allowed bool, labels []string, err error)
}

// Storage is the moderation persistence surface
type Storage interface {
	InsertReport(ctx context.Context, reporterID, contentType, contentID, reason string) (string, error)
	DistinctReporters(ctx context.Context, contentType, contentID string) (int, error)
	InsertDispute(ctx context.Context, disputantID, contentType, contentID, explanation string) (string, error)

	EntryRef(ctx context.Context, entryID string) (EntryRef, bool, error)
	SetEntryStatus(ctx context.Context, entryID, from, to string) (bool, error)
	ActiveMemberCount(ctx context.Context, groupID string) (int, error)

	PublicGroupExists(ctx context.Context, groupID string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}
