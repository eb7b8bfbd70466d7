// Package domain holds users types and ports
package domain

import "time"

// Profile is the authenticated user's own view of their account
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name"`
	Timezone           string    `json:"timezone"`
	HasAvatar          bool      `json:"has_avatar"`
	Tier               string    `json:"tier"`
	SubscriptionStatus string    `json:"subscription_status"`
	GroupLimit         int       `json:"group_limit"`
	CurrentGroupCount  int       `json:"current_group_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// UpdateProfileInput is a partial profile patch
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=60"`
	Timezone    *string `json:"timezone" validate:"omitempty,max=64"`
}

// Avatar is the stored avatar image
type Avatar struct {
	Data      []byte
	MIME      string
	UpdatedAt time.Time
}

// GroupSummary is one row of the user's group list
type GroupSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	IconEmoji        *string   `json:"icon_emoji,omitempty"`
	IconColor        *string   `json:"icon_color,omitempty"`
	Visibility       string    `json:"visibility"`
	IsChallenge      bool      `json:"is_challenge"`
	ChallengeStatus  *string   `json:"challenge_status,omitempty"`
	Role             string    `json:"role"`
	MembershipStatus string    `json:"membership_status"`
	MemberCount      int       `json:"member_count"`
	HeatScore        float64   `json:"heat_score"`
	HeatTier         int       `json:"heat_tier"`
	JoinedAt         time.Time `json:"joined_at"`
}
