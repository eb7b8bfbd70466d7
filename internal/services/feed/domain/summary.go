package domain

// Pure feed math: reaction summarization, attribution formatting, and
// the photo overlay. Deterministic so the rules stay testable without a
// database.

import (
	"strings"
	"time"

	goalsdomain "pursue/internal/services/goals/domain"
)

// MaxTopReactors caps the attribution list
const MaxTopReactors = 3

// EntryID extracts the linked progress entry from a progress_logged
// activity's metadata
func EntryID(meta map[string]any) (string, bool) {
	v, ok := meta["progress_entry_id"].(string)
	return v, ok && v != ""
}

// PhotoUsable reports whether a photo row can be shown to the viewer:
// the stored object must still exist, the retention clock must not have
// run out, and the moderation overlay applies; owners see their own
// rows, everyone else only clean ones
func PhotoUsable(viewerID string, p PhotoRow, now time.Time) bool {
	if p.ObjectGone || !now.Before(p.ExpiresAt) {
		return false
	}
	if p.OwnerID != nil && *p.OwnerID == viewerID {
		return true
	}
	return p.Moderation == goalsdomain.ModerationOK
}

// ShortName compacts a display name to "First L." for attribution
// lines and push copy. Single-word names pass through; blanks read as
// Someone
func ShortName(full string) string {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "Someone"
	case 1:
		return fields[0]
	}
	initial := []rune(fields[len(fields)-1])[0]
	return fields[0] + " " + string(initial) + "."
}

// Summarize folds one activity's reactions into the wire rollup. Rows
// arrive newest first and at most one per user, so top_reactors is the
// leading slice of the input; the viewer's own reaction, if any, moves
// to the head
func Summarize(rows []ReactionRow, viewerID string) ReactionSummary {
	sum := ReactionSummary{
		Emojis:      map[string]EmojiAgg{},
		TopReactors: []TopReactor{},
	}
	for _, r := range rows {
		agg := sum.Emojis[r.Emoji]
		agg.Count++
		agg.ReactorIDs = append(agg.ReactorIDs, r.UserID)
		if r.UserID == viewerID {
			agg.CurrentUserReacted = true
		}
		sum.Emojis[r.Emoji] = agg
	}

	for _, r := range rows {
		if r.UserID == viewerID {
			continue
		}
		sum.TopReactors = append(sum.TopReactors, TopReactor{UserID: r.UserID, Name: ShortName(r.DisplayName)})
	}
	for _, r := range rows {
		if r.UserID == viewerID {
			head := TopReactor{UserID: r.UserID, Name: ShortName(r.DisplayName)}
			sum.TopReactors = append([]TopReactor{head}, sum.TopReactors...)
			break
		}
	}
	if len(sum.TopReactors) > MaxTopReactors {
		sum.TopReactors = sum.TopReactors[:MaxTopReactors]
	}
	return sum
}
