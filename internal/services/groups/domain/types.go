// Package domain holds groups types and ports
package domain

import "time"

// Membership roles
const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
	RoleMember  = "member"
)

// Membership statuses
const (
	MembershipActive   = "active"
	MembershipPending  = "pending"
	MembershipDeclined = "declined"
)

// Group visibility
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Join request statuses
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDeclined = "declined"
)

// MaxPendingRequests caps open join requests per user
const MaxPendingRequests = 10

// DeclineCooldown is how long a declined requester waits before asking the
// same group again
const DeclineCooldown = 30 * 24 * time.Hour

// SuccessorWindow is the recency band within which joined_at breaks the tie
const SuccessorWindow = 48 * time.Hour

// Group is one accountability group or challenge
type Group struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	IconEmoji          *string    `json:"icon_emoji,omitempty"`
	IconColor          *string    `json:"icon_color,omitempty"`
	HasIcon            bool       `json:"has_icon"`
	Visibility         string     `json:"visibility"`
	AutoApprove        bool       `json:"auto_approve"`
	IsChallenge        bool       `json:"is_challenge"`
	ChallengeStartDate *time.Time `json:"challenge_start_date,omitempty"`
	ChallengeEndDate   *time.Time `json:"challenge_end_date,omitempty"`
	ChallengeStatus    *string    `json:"challenge_status,omitempty"`
	TemplateID         *string    `json:"template_id,omitempty"`
	Language           *string    `json:"language,omitempty"`
	CreatorUserID      *string    `json:"creator_user_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Detail is a group plus the caller's standing and the live counters
type Detail struct {
	Group
	MemberCount      int     `json:"member_count"`
	Role             string  `json:"role,omitempty"`
	MembershipStatus string  `json:"membership_status,omitempty"`
	HeatScore        float64 `json:"heat_score"`
	HeatTier         int     `json:"heat_tier"`
	InviteCode       string  `json:"invite_code,omitempty"`
	InviteURL        string  `json:"invite_url,omitempty"`
}

// GoalSeed describes a goal created together with its group
type GoalSeed struct {
	Title       string   `json:"title" validate:"required,min=1,max=120"`
	Description string   `json:"description" validate:"max=500"`
	Cadence     string   `json:"cadence" validate:"required,oneof=daily weekly monthly yearly"`
	MetricType  string   `json:"metric_type" validate:"required,oneof=binary numeric duration journal"`
	TargetValue *float64 `json:"target_value" validate:"omitempty,gte=0"`
	Unit        *string  `json:"unit" validate:"omitempty,max=24"`
}

// CreateGroupInput creates a plain (non-challenge) group
type CreateGroupInput struct {
	Name        string     `json:"name" validate:"required,min=1,max=80"`
	Description string     `json:"description" validate:"max=500"`
	IconEmoji   *string    `json:"icon_emoji" validate:"omitempty,max=16"`
	IconColor   *string    `json:"icon_color" validate:"omitempty,hexcolor"`
	Visibility  string     `json:"visibility" validate:"omitempty,oneof=public private"`
	AutoApprove bool       `json:"auto_approve"`
	Language    *string    `json:"language" validate:"omitempty,bcp47_language_tag"`
	Goals       []GoalSeed `json:"goals" validate:"omitempty,max=20,dive"`
}

// UpdateGroupInput patches group settings. Absent fields keep their values
type UpdateGroupInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IconEmoji   *string `json:"icon_emoji" validate:"omitempty,max=16"`
	IconColor   *string `json:"icon_color" validate:"omitempty,hexcolor"`
	Visibility  *string `json:"visibility" validate:"omitempty,oneof=public private"`
	AutoApprove *bool   `json:"auto_approve"`
	Language    *string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// Membership is one user's standing in one group
type Membership struct {
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// IsAdmin reports whether the membership carries admin rights
func (m Membership) IsAdmin() bool {
	return m.Status == MembershipActive && (m.Role == RoleCreator || m.Role == RoleAdmin)
}

// Member is one roster row with the user's public fields joined in
type Member struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	HasAvatar   bool      `json:"has_avatar"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Icon is the stored group icon image
type Icon struct {
	Data      []byte
	MIME      string
	UpdatedAt time.Time
}

// JoinByCodeInput joins a group through an invite code
type JoinByCodeInput struct {
	Code string `json:"code" validate:"required,min=6,max=32"`
}

// JoinRequestInput asks to join a public group
type JoinRequestInput struct {
	Note string `json:"note" validate:"max=280"`
}

// JoinResult reports what a join attempt produced
type JoinResult struct {
	GroupID          string `json:"group_id"`
	MembershipStatus string `json:"membership_status"`
}

// JoinRequest is one pending or reviewed join request
type JoinRequest struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	UserID      string     `json:"user_id"`
	DisplayName string     `json:"display_name,omitempty"`
	Note        string     `json:"note"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// ChangeRoleInput promotes or demotes a member
type ChangeRoleInput struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

// LeaveResult reports what leaving did to the group
type LeaveResult struct {
	GroupDeleted     bool   `json:"group_deleted"`
	PromotedUserID   string `json:"promoted_user_id,omitempty"`
	PromotedUserRole string `json:"promoted_user_role,omitempty"`
}

// InviteInfo is the shareable invite state of a group
type InviteInfo struct {
	Code      string    `json:"code"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteRow is a stored invite code
type InviteRow struct {
	ID        string
	GroupID   string
	Code      string
	CreatedBy *string
	RevokedAt *time.Time
	CreatedAt time.Time
}

// CodeLookup is an invite code resolved to its group for joining
type CodeLookup struct {
	InviteRow
	GroupName       string
	IsChallenge     bool
	ChallengeStatus *string
}

// Candidate is one active member considered for successor promotion
type Candidate struct {
	UserID     string
	Role       string
	JoinedAt   time.Time
	LastActive time.Time
}

// ExportRow is one member x goal x period aggregate in a progress export
type ExportRow struct {
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	GoalID      string    `json:"goal_id"`
	GoalTitle   string    `json:"goal_title"`
	MetricType  string    `json:"metric_type"`
	PeriodStart time.Time `json:"period_start"`
	Completed   float64   `json:"completed"`
	Target      float64   `json:"target"`
	Percentage  int       `json:"percentage"`
}

// Export is the workbook input contract for a progress export
type Export struct {
	GroupID string      `json:"group_id"`
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	Rows    []ExportRow `json:"rows"`
}
