package domain

import (
	"context"
	"time"

	challdomain "pursue/internal/services/challenges/domain"
	groupdomain "pursue/internal/services/groups/domain"
	remdomain "pursue/internal/services/reminders/domain"
	subdomain "pursue/internal/services/subscriptions/domain"
)

// ServicePort is what the HTTP layer drives
type ServicePort interface {
	UpdateChallengeStatuses(ctx context.Context, now time.Time) (challdomain.StatusTransitions, error)
	ProcessCompletionPushes(ctx context.Context) (challdomain.CompletionRun, error)
	CalculateHeat(ctx context.Context, now time.Time) (groupdomain.HeatReport, subdomain.SweepReport, error)
	ProcessReminders(ctx context.Context, now time.Time) (remdomain.DispatchReport, error)
	RecalculatePatterns(ctx context.Context, now time.Time) (remdomain.PatternReport, error)
	UpdateEffectiveness(ctx context.Context, now time.Time) (remdomain.EffectivenessReport, error)
	WeeklyRecap(ctx context.Context, now time.Time) (RecapReport, error)
}

// ChallengePort is the slice of the challenges module the jobs drive
type ChallengePort interface {
	RunStatusUpdate(ctx context.Context, now time.Time) (challdomain.StatusTransitions, error)
	RunCompletionPushes(ctx context.Context) (challdomain.CompletionRun, error)
}

// HeatPort is the slice of the groups module the jobs drive
type HeatPort interface {
	RunDaily(ctx context.Context, now time.Time) (groupdomain.HeatReport, error)
}

// SubscriptionPort is the slice of the subscriptions module the jobs drive
type SubscriptionPort interface {
	SweepDowngrades(ctx context.Context, now time.Time) (subdomain.SweepReport, error)
}

// ReminderPort is the slice of the reminders module the jobs drive
type ReminderPort interface {
	RunDispatch(ctx context.Context, now time.Time) (remdomain.DispatchReport, error)
	RunRecalculatePatterns(ctx context.Context, now time.Time) (remdomain.PatternReport, error)
	RunEffectiveness(ctx context.Context, now time.Time) (remdomain.EffectivenessReport, error)
}

// RecapNotifier delivers the weekly summary; inserted is false when the
// member already got this week's recap
type RecapNotifier interface {
	WeeklyRecap(ctx context.Context, userID, groupID, groupName, week string, entries int) (bool, error)
}

// RecapRow is one member's entry count for one group over the recap window
type RecapRow struct {
	UserID    string
	GroupID   string
	GroupName string
	Entries   int
}

// Storage is the jobs persistence surface
type Storage interface {
	RecapRows(ctx context.Context, since, until time.Time) ([]RecapRow, error)
}
