package domain

import (
	"time"

	"pursue/internal/core/period"
)

// Challenge statuses stored on a group row
const (
	ChallengeUpcoming  = "upcoming"
	ChallengeActive    = "active"
	ChallengeCompleted = "completed"
	ChallengeCancelled = "cancelled"
)

// Challenge windows derived at read time
const (
	WindowBefore    = "before"
	WindowActive    = "active"
	WindowAfter     = "after"
	WindowCompleted = "completed"
	WindowCancelled = "cancelled"
)

// ChallengeWindow places today against a challenge group's dates.
// Terminal statuses win outright; otherwise the dates decide, so a
// status the hourly job has not flipped yet cannot block a log inside
// the real window. Non-challenge groups always read active. today must
// carry the acting user's local calendar date
func ChallengeWindow(g Group, today time.Time) string {
	if !g.IsChallenge {
		return WindowActive
	}
	if g.ChallengeStatus != nil {
		switch *g.ChallengeStatus {
		case ChallengeCompleted:
			return WindowCompleted
		case ChallengeCancelled:
			return WindowCancelled
		}
	}
	d := period.Date(today)
	if g.ChallengeStartDate != nil && d.Before(period.Date(*g.ChallengeStartDate)) {
		return WindowBefore
	}
	if g.ChallengeEndDate != nil && d.After(period.Date(*g.ChallengeEndDate)) {
		return WindowAfter
	}
	return WindowActive
}
