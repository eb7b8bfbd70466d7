// Package domain holds the discover ranker types and ports
package domain

import "time"

// Browse sorts, usable only when no text query is present. A query
// switches the listing to ranked search
const (
	SortHeat    = "heat"
	SortNewest  = "newest"
	SortMembers = "members"

	// KindSearch marks ranked-search cursors
	KindSearch = "search"
)

// Listing limits
const (
	DefaultLimit = 20
	MaxLimit     = 50

	SuggestionLimit = 10
	MinSuggestionQ  = 2
)

// SearchInput is the parsed /discover/groups query string
type SearchInput struct {
	Q          string
	Categories []string
	Language   string
	Sort       string
	Cursor     string
	Limit      int
}

// Card is one discoverable group
type Card struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	IconEmoji          *string    `json:"icon_emoji,omitempty"`
	IconColor          *string    `json:"icon_color,omitempty"`
	Language           *string    `json:"language,omitempty"`
	MemberCount        int        `json:"member_count"`
	HeatTier           int        `json:"heat_tier"`
	TierName           string     `json:"tier_name"`
	IsChallenge        bool       `json:"is_challenge"`
	ChallengeStartDate *time.Time `json:"challenge_start_date,omitempty"`
	ChallengeEndDate   *time.Time `json:"challenge_end_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Page is one listing page with the token for the next one
type Page struct {
	Groups     []Card  `json:"groups"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// PublicDetail is the logged-out-safe group page behind a share link
type PublicDetail struct {
	Card
	GoalTitles []string `json:"goal_titles"`
	InviteURL  string   `json:"invite_url,omitempty"`
}

// Row is one scanned listing row: the card columns plus the raw sort
// keys the next cursor is minted from
type Row struct {
	ID                 string
	Name               string
	Description        string
	IconEmoji          *string
	IconColor          *string
	Language           *string
	IsChallenge        bool
	ChallengeStartDate *time.Time
	ChallengeEndDate   *time.Time
	CreatedAt          time.Time
	MemberCount        int
	HeatScore          float64
	LangMatch          int
	Combined           float64
}

// PublicRow is the detail row with its goal titles and live code
type PublicRow struct {
	Row
	GoalTitles []string
	InviteCode *string
}
