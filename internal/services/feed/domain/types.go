// Package domain holds the feed's wire types plus the pure reaction
// and photo-visibility logic
package domain

import "time"

// Paging bounds for the group feed
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// TypeProgressLogged marks the activity rows that may carry a photo
const TypeProgressLogged = "progress_logged"

// Activity is one feed row with its actor, optional photo, and reaction
// rollup. Actor reads null once the author deletes their account; Photo
// reads null whenever no usable signed URL exists
type Activity struct {
	ID        string         `json:"id"`
	Type      string         `json:"activity_type"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`

	Actor     *Actor          `json:"actor"`
	Photo     *Photo          `json:"photo"`
	Reactions ReactionSummary `json:"reactions"`
}

// Actor identifies who performed the activity
type Actor struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Photo is the signed view of a progress photo
type Photo struct {
	URL       string    `json:"url"`
	WidthPx   int       `json:"width_px"`
	HeightPx  int       `json:"height_px"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmojiAgg aggregates one emoji on one activity
type EmojiAgg struct {
	Count              int      `json:"count"`
	ReactorIDs         []string `json:"reactor_ids"`
	CurrentUserReacted bool     `json:"current_user_reacted"`
}

// TopReactor is one line of the compact attribution list
type TopReactor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ReactionSummary is the per-activity reaction rollup
type ReactionSummary struct {
	Emojis      map[string]EmojiAgg `json:"emojis"`
	TopReactors []TopReactor        `json:"top_reactors"`
}

// Page is one slice of a group's feed, newest first
type Page struct {
	Activities []Activity `json:"activities"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
	HasMore    bool       `json:"has_more"`
}

// ReactInput carries the emoji for a reaction upsert
type ReactInput struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// ReactResult reports the upsert outcome. Replaced flags a swap from a
// different emoji; repeating the same one reads false
type ReactResult struct {
	Emoji    string `json:"emoji"`
	Replaced bool   `json:"replaced"`
}

// ActivityRow is the raw feed row before photos and reactions join in.
// ActorName stays nil when the author is soft-deleted
type ActivityRow struct {
	ID        string
	GroupID   string
	Type      string
	Metadata  map[string]any
	CreatedAt time.Time
	ActorID   *string
	ActorName *string
}

// PhotoRow is the photo candidate linked to one progress entry
type PhotoRow struct {
	EntryID    string
	ObjectPath string
	WidthPx    int
	HeightPx   int
	ExpiresAt  time.Time
	ObjectGone bool
	OwnerID    *string
	Moderation string
}

// ReactionRow is one user's reaction on one activity
type ReactionRow struct {
	ActivityID  string
	UserID      string
	Emoji       string
	DisplayName string
	CreatedAt   time.Time
}

// ActivityRef locates an activity for the reaction endpoints
type ActivityRef struct {
	ID      string
	GroupID string
	Type    string
	OwnerID *string
}

// ClampPage normalizes the offset and limit query values
func ClampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return offset, limit
}
