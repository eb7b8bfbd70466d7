// Package domain holds the notification module's wire types and the
// nudge day math
package domain

import "time"

// Inbox paging bounds
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Notification types written to the inbox
const (
	TypeJoinPending        = "join_pending"
	TypeJoinRequested      = "join_requested"
	TypeRequestApproved    = "request_approved"
	TypeRequestDeclined    = "request_declined"
	TypeReaction           = "reaction"
	TypeChallengeCancelled = "challenge_cancelled"
	TypeChallengeCompleted = "challenge_completed"
	TypeReminder           = "reminder"
	TypeNudge              = "nudge"
	TypeWeeklyRecap        = "weekly_recap"
)

// Device is one registered push target
type Device struct {
	ID           string    `json:"id"`
	Platform     string    `json:"platform"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterDeviceInput registers or refreshes a push token
type RegisterDeviceInput struct {
	FCMToken string `json:"fcm_token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// UnregisterDeviceInput drops a push token
type UnregisterDeviceInput struct {
	FCMToken string `json:"fcm_token" validate:"required,max=4096"`
}

// Notification is one inbox row
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"notification_type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}

// InboxPage is one page of the inbox, newest first
type InboxPage struct {
	Notifications []Notification `json:"notifications"`
	NextCursor    string         `json:"next_cursor,omitempty"`
	UnreadCount   int            `json:"unread_count"`
}

// InboxKey is the keyset cursor payload for inbox paging
type InboxKey struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// MarkReadInput marks specific rows read, or everything when All is set
type MarkReadInput struct {
	IDs []string `json:"ids" validate:"omitempty,max=100,dive,uuid"`
	All bool     `json:"all"`
}

// MarkReadResult reports how many rows flipped
type MarkReadResult struct {
	Marked int `json:"marked"`
}

// UnreadCount is the badge payload
type UnreadCount struct {
	Count int `json:"count"`
}

// NudgeInput pokes one groupmate, optionally about a specific goal
type NudgeInput struct {
	RecipientID string  `json:"recipient_id" validate:"required,uuid"`
	GroupID     string  `json:"group_id" validate:"required,uuid"`
	GoalID      *string `json:"goal_id" validate:"omitempty,uuid"`
}

// Nudge is one sent nudge
type Nudge struct {
	ID              string    `json:"id"`
	RecipientID     string    `json:"recipient_id"`
	GroupID         string    `json:"group_id"`
	GoalID          *string   `json:"goal_id,omitempty"`
	SenderLocalDate string    `json:"sender_local_date"`
	SentAt          time.Time `json:"sent_at"`
}

// NudgeStatus maps recipient ids to whether the caller already nudged
// them today (the caller's local day)
type NudgeStatus struct {
	GroupID     string          `json:"group_id"`
	LocalDate   string          `json:"local_date"`
	SentToToday map[string]bool `json:"sent_to_today"`
}

// LocalDate resolves now to a calendar date in the named zone, falling
// back to UTC when the zone string is unknown
func LocalDate(now time.Time, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
