// Package service implements the notification inbox, device registry,
// and nudges
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pursue/internal/core/cursor"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/notifications/domain"
)

// Config carries the cross-module ports. Push may be nil in tests;
// deliveries then stop at the inbox
type Config struct {
	Guards domain.GroupGuardPort
	Push   domain.PushPort
}

// Svc implements domain.ServicePort and domain.FanoutPort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var (
	_ domain.ServicePort = (*Svc)(nil)
	_ domain.FanoutPort  = (*Svc)(nil)
)

// New constructs the notifications service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("notifications service requires a database")
	}
	if binder == nil {
		panic("notifications service requires a storage binder")
	}
	if cfg.Guards == nil {
		panic("notifications service requires the groups guard port")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

// RegisterDevice records or refreshes a push token for the caller
func (s *Svc) RegisterDevice(ctx context.Context, userID string, in domain.RegisterDeviceInput) (domain.Device, error) {
	var d domain.Device
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		d, err = s.binder.Bind(q).UpsertDevice(ctx, userID, in.FCMToken, in.Platform)
		return err
	})
	return d, err
}

// UnregisterDevice drops a token. Unknown tokens read as success so
// clients can retry logout flows freely
func (s *Svc) UnregisterDevice(ctx context.Context, userID, token string) error {
	if token == "" {
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "fcm_token is required"), "fcm_token")
	}
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		_, err := s.binder.Bind(q).DeleteDevice(ctx, userID, token)
		return err
	})
}

// Inbox pages the caller's notifications newest first. Cursors that
// fail to parse restart at the first page
func (s *Svc) Inbox(ctx context.Context, userID, cur string, limit int) (domain.InboxPage, error) {
	if limit <= 0 {
		limit = domain.DefaultLimit
	}
	if limit > domain.MaxLimit {
		limit = domain.MaxLimit
	}
	var before *domain.InboxKey
	if cur != "" {
		var k domain.InboxKey
		if cursor.Decode(cur, &k) && k.ID != "" {
			before = &k
		}
	}

	var (
		rows   []domain.Notification
		unread int
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		if rows, err = st.Inbox(ctx, userID, before, limit+1); err != nil {
			return err
		}
		unread, err = st.UnreadCount(ctx, userID)
		return err
	})
	if err != nil {
		return domain.InboxPage{}, err
	}

	page := domain.InboxPage{Notifications: rows, UnreadCount: unread}
	if len(rows) > limit {
		page.Notifications = rows[:limit]
		last := page.Notifications[limit-1]
		page.NextCursor = cursor.Encode(domain.InboxKey{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	if page.Notifications == nil {
		page.Notifications = []domain.Notification{}
	}
	return page, nil
}

// MarkRead flips the named rows, or the whole inbox when All is set
func (s *Svc) MarkRead(ctx context.Context, userID string, in domain.MarkReadInput) (domain.MarkReadResult, error) {
	if !in.All && len(in.IDs) == 0 {
		return domain.MarkReadResult{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "ids or all is required"), "ids")
	}
	var marked int
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		var err error
		if in.All {
			marked, err = st.MarkAllRead(ctx, userID)
		} else {
			marked, err = st.MarkRead(ctx, userID, in.IDs)
		}
		return err
	})
	return domain.MarkReadResult{Marked: marked}, err
}

// Unread returns the badge count
func (s *Svc) Unread(ctx context.Context, userID string) (domain.UnreadCount, error) {
	var n int
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		n, err = s.binder.Bind(q).UnreadCount(ctx, userID)
		return err
	})
	return domain.UnreadCount{Count: n}, err
}

// SendNudge pokes a groupmate. Both parties must be active members of
// the group; the one-per-day rule runs on the sender's local date
func (s *Svc) SendNudge(ctx context.Context, userID string, in domain.NudgeInput) (domain.Nudge, error) {
	if in.RecipientID == userID {
		return domain.Nudge{}, perr.InvalidArgf("you cannot nudge yourself")
	}
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, in.GroupID); err != nil {
		return domain.Nudge{}, err
	}
	if _, err := s.cfg.Guards.ActiveMember(ctx, in.RecipientID, in.GroupID); err != nil {
		// the recipient's standing reads as not-found either way
		return domain.Nudge{}, perr.NotFoundf("member not found")
	}

	var (
		nudge      domain.Nudge
		senderName string
		goalTitle  string
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		tz, err := st.UserTimezone(ctx, userID)
		if err != nil {
			return err
		}
		if in.GoalID != nil {
			if uuid.Validate(*in.GoalID) != nil {
				return perr.NotFoundf("goal not found")
			}
			title, ok, err := st.GoalTitle(ctx, *in.GoalID)
			if err != nil {
				return err
			}
			if !ok {
				return perr.NotFoundf("goal not found")
			}
			goalTitle = title
		}
		if nudge, err = st.InsertNudge(ctx, userID, in.RecipientID, in.GroupID, in.GoalID, domain.LocalDate(s.now(), tz)); err != nil {
			return err
		}
		senderName, err = st.DisplayName(ctx, userID)
		return err
	})
	if err != nil {
		return domain.Nudge{}, err
	}

	body := senderName + " is cheering you on"
	if goalTitle != "" {
		body = senderName + " nudged you about " + goalTitle
	}
	s.deliver(ctx, []string{in.RecipientID}, domain.TypeNudge, "You got a nudge", body, map[string]any{
		"group_id": in.GroupID,
		"nudge_id": nudge.ID,
	}, "nudge:"+in.RecipientID)
	return nudge, nil
}

// NudgeStatus reports which groupmates the caller already nudged today
func (s *Svc) NudgeStatus(ctx context.Context, userID, groupID string) (domain.NudgeStatus, error) {
	if _, err := s.cfg.Guards.ActiveMember(ctx, userID, groupID); err != nil {
		return domain.NudgeStatus{}, err
	}
	var (
		day  time.Time
		sent []string
	)
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		tz, err := st.UserTimezone(ctx, userID)
		if err != nil {
			return err
		}
		day = domain.LocalDate(s.now(), tz)
		sent, err = st.NudgedToday(ctx, userID, groupID, day)
		return err
	})
	if err != nil {
		return domain.NudgeStatus{}, err
	}

	m := make(map[string]bool, len(sent))
	for _, id := range sent {
		m[id] = true
	}
	return domain.NudgeStatus{GroupID: groupID, LocalDate: day.Format("2006-01-02"), SentToToday: m}, nil
}
