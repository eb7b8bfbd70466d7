package domain

import (
	"context"
	"time"

	subsdomain "pursue/internal/services/subscriptions/domain"
)

// NewGroup is the insert record shared by plain groups and challenges
type NewGroup struct {
	Name               string
	Description        string
	IconEmoji          *string
	IconColor          *string
	Visibility         string
	AutoApprove        bool
	Language           *string
	CreatorUserID      string
	IsChallenge        bool
	ChallengeStartDate *time.Time
	ChallengeEndDate   *time.Time
	ChallengeStatus    *string
	TemplateID         *string
}

// Storage is the persistence surface for groups, memberships, invites,
// and join requests
type Storage interface {
	InsertGroup(ctx context.Context, g NewGroup) (Group, error)
	GroupByID(ctx context.Context, groupID string) (Group, bool, error)
	UpdateGroup(ctx context.Context, groupID string, in UpdateGroupInput) (Group, bool, error)
	HardDeleteGroup(ctx context.Context, groupID string) error
	SoftDeleteGroup(ctx context.Context, groupID string) error
	SetCreator(ctx context.Context, groupID, userID string) error

	SetIcon(ctx context.Context, groupID string, data []byte, mime string) error
	IconByID(ctx context.Context, groupID string) (Icon, bool, error)

	MembershipFor(ctx context.Context, groupID, userID string) (Membership, bool, error)
	InsertMembership(ctx context.Context, groupID, userID, role, status string) error
	SetMembershipStatus(ctx context.Context, groupID, userID, status string) error
	SetMembershipRole(ctx context.Context, groupID, userID, role string) error
	DeleteMembership(ctx context.Context, groupID, userID string) (bool, error)
	Members(ctx context.Context, groupID string) ([]Member, error)
	ActiveMemberCount(ctx context.Context, groupID string) (int, error)
	ActiveAdminCountExcluding(ctx context.Context, groupID, userID string) (int, error)
	SuccessorCandidates(ctx context.Context, groupID, excludeUserID string) ([]Candidate, error)
	MembershipsByUser(ctx context.Context, userID string) ([]Membership, error)
	// PurgeMembershipRows drops whatever membership rows remain for a user,
	// declined ones and rows pointing at folded groups included
	PurgeMembershipRows(ctx context.Context, userID string) error

	LiveInvite(ctx context.Context, groupID string) (InviteRow, bool, error)
	LookupCode(ctx context.Context, code string) (CodeLookup, bool, error)
	InsertInvite(ctx context.Context, groupID, code, createdBy string) error
	RevokeInvites(ctx context.Context, groupID string) error

	PendingRequestCount(ctx context.Context, userID string) (int, error)
	LastDecline(ctx context.Context, groupID, userID string) (time.Time, bool, error)
	InsertJoinRequest(ctx context.Context, groupID, userID, note string) (JoinRequest, error)
	JoinRequestByID(ctx context.Context, requestID string) (JoinRequest, bool, error)
	ReviewJoinRequest(ctx context.Context, requestID, status, reviewerID string) (bool, error)
	PendingRequestsForGroup(ctx context.Context, groupID string) ([]JoinRequest, error)
	// DeleteRequestNotifications clears the admin inbox rows once a
	// request is reviewed
	DeleteRequestNotifications(ctx context.Context, requestID string) error

	InsertActivity(ctx context.Context, groupID string, userID *string, activityType string, metadata map[string]any) error
	InsertSeedGoals(ctx context.Context, groupID string, seeds []GoalSeed, createdBy string) error
	InsertHeatRow(ctx context.Context, groupID string) error
	HeatFor(ctx context.Context, groupID string) (HeatRow, bool, error)

	ExportRows(ctx context.Context, groupID string, from, to time.Time) ([]ExportRow, error)
}

// ServicePort is the groups surface mounted over HTTP.
// RemoveUserFromAllGroups also backs account deletion in the users module
type ServicePort interface {
	Create(ctx context.Context, userID string, in CreateGroupInput) (Detail, error)
	Get(ctx context.Context, userID, groupID string) (Detail, error)
	Update(ctx context.Context, userID, groupID string, in UpdateGroupInput) (Detail, error)
	Delete(ctx context.Context, userID, groupID string) error
	Icon(ctx context.Context, userID, groupID string) (Icon, error)
	SetIcon(ctx context.Context, userID, groupID string, data []byte) (Detail, error)

	JoinByCode(ctx context.Context, userID string, in JoinByCodeInput) (JoinResult, error)
	RequestJoin(ctx context.Context, userID, groupID string, in JoinRequestInput) (JoinResult, error)
	PendingRequests(ctx context.Context, userID, groupID string) ([]JoinRequest, error)
	Approve(ctx context.Context, userID, groupID, requestID string) error
	Decline(ctx context.Context, userID, groupID, requestID string) error

	Members(ctx context.Context, userID, groupID string) ([]Member, error)
	RemoveMember(ctx context.Context, userID, groupID, memberID string) error
	ChangeRole(ctx context.Context, userID, groupID, memberID string, in ChangeRoleInput) error
	Leave(ctx context.Context, userID, groupID string) (LeaveResult, error)

	Invite(ctx context.Context, userID, groupID string) (InviteInfo, error)
	RegenerateInvite(ctx context.Context, userID, groupID string) (InviteInfo, error)

	ExportProgress(ctx context.Context, userID, groupID string, from, to time.Time) (Export, error)

	RemoveUserFromAllGroups(ctx context.Context, userID string) error
}

// GuardsPort resolves the caller's standing before group-scoped work.
// Malformed ids and missing groups both answer not-found so outsiders
// cannot probe which groups exist
type GuardsPort interface {
	// Group returns the live group or not-found
	Group(ctx context.Context, groupID string) (Group, error)
	// Member admits any membership that does not deny read
	Member(ctx context.Context, userID, groupID string) (Membership, error)
	// ActiveMember admits status=active only
	ActiveMember(ctx context.Context, userID, groupID string) (Membership, error)
	// Admin admits active creators and admins
	Admin(ctx context.Context, userID, groupID string) (Membership, error)
	// Creator admits the creator only
	Creator(ctx context.Context, userID, groupID string) (Membership, error)
}

// NotifierPort fans membership events out to the notifications module.
// Calls run after commit; failures log and never fail the request
type NotifierPort interface {
	JoinPending(ctx context.Context, groupID, groupName, joinerID string) error
	JoinRequested(ctx context.Context, groupID, groupName, requesterID, requestID string) error
	RequestApproved(ctx context.Context, groupID, groupName, userID string) error
	RequestDeclined(ctx context.Context, groupID, groupName, userID string) error
}

// EntitlementsPort is the slice of the subscriptions module groups consults
type EntitlementsPort interface {
	Entitlement(ctx context.Context, userID string) (subsdomain.Entitlement, error)
	CheckGroupCap(ctx context.Context, userID string) error
	CanUserWriteInGroup(ctx context.Context, userID, groupID string) error
	ExportCapDays(ctx context.Context, userID string) (int, error)
}

// EmbedderPort refreshes a group's search embedding after its identity
// changes. Calls run detached post-commit; nil keeps discover
// trigram-only
type EmbedderPort interface {
	RefreshGroup(ctx context.Context, groupID string) error
}

// HeatRow is the persisted heat state of one group
type HeatRow struct {
	GroupID          string
	Score            float64
	Tier             int
	StreakDays       int
	PeakScore        float64
	PeakDate         *time.Time
	LastCalculatedAt *time.Time
	YesterdayGCR     float64
	BaselineGCR      float64
}

// HeatDay is one history sample
type HeatDay struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
	Tier  int       `json:"tier"`
	GCR   float64   `json:"gcr"`
}

// HeatNow is the member-visible current heat
type HeatNow struct {
	GroupID      string     `json:"group_id"`
	Score        float64    `json:"score"`
	Tier         int        `json:"tier"`
	TierName     string     `json:"tier_name"`
	StreakDays   int        `json:"streak_days"`
	PeakScore    float64    `json:"peak_score"`
	PeakDate     *time.Time `json:"peak_date,omitempty"`
	CalculatedAt *time.Time `json:"last_calculated_at,omitempty"`
}

// HeatHistory is the premium history view with rolling stats
type HeatHistory struct {
	GroupID string    `json:"group_id"`
	Days    []HeatDay `json:"days"`
	Avg7    float64   `json:"avg_7d"`
	Avg30   float64   `json:"avg_30d"`
	Trend   string    `json:"trend"`
}

// HeatJobRow carries one group's counters into the daily run
type HeatJobRow struct {
	GroupID        string
	Members        int
	Goals          int
	PairsLogged    int
	WeekActivities int
	MembersWeekAgo int
	Prev           HeatRow
}

// HeatReport summarizes one daily heat run
type HeatReport struct {
	GroupsProcessed int `json:"groups_processed"`
	GroupsSkipped   int `json:"groups_skipped"`
}

// HeatStorage is the persistence surface of the heat engine
type HeatStorage interface {
	GroupsForHeat(ctx context.Context, now time.Time) ([]HeatJobRow, error)
	SaveHeat(ctx context.Context, h HeatRow) error
	InsertHeatDay(ctx context.Context, groupID string, day HeatDay) error
	HeatFor(ctx context.Context, groupID string) (HeatRow, bool, error)
	HeatHistoryDays(ctx context.Context, groupID string, days int) ([]HeatDay, error)
}

// HeatPort serves heat reads and the daily recalculation
type HeatPort interface {
	Current(ctx context.Context, userID, groupID string) (HeatNow, error)
	History(ctx context.Context, userID, groupID string, days int) (HeatHistory, error)
	RunDaily(ctx context.Context, now time.Time) (HeatReport, error)
}
