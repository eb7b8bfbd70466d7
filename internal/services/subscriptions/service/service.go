// Package service implements subscription operations and plan enforcement
package service

import (
	"context"
	"time"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/subscriptions/domain"
)

// Config carries the service knobs
type Config struct {
	Receipts domain.ReceiptVerifier
}

// Svc implements the subscriptions ports
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
	now    func() time.Time
}

var (
	_ domain.ServicePort      = (*Svc)(nil)
	_ domain.EntitlementsPort = (*Svc)(nil)
)

// New constructs the subscriptions service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("subscriptions service requires a database")
	}
	if binder == nil {
		panic("subscriptions service requires a storage binder")
	}
	if cfg.Receipts == nil {
		panic("subscriptions service requires a receipt verifier")
	}
	return &Svc{db: db, binder: binder, cfg: cfg, now: time.Now}
}

func rowPtr(row domain.SubscriptionRow, found bool) *domain.SubscriptionRow {
	if !found {
		return nil
	}
	return &row
}

// Snapshot serves the owning user's full subscription view and keeps the
// cached plan columns on users in step with what it just derived
func (s *Svc) Snapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		latest, found, err := st.LatestSubscription(ctx, userID)
		if err != nil {
			return err
		}
		count, err := st.ActiveGroupCount(ctx, userID)
		if err != nil {
			return err
		}

		lp := rowPtr(latest, found)
		ent := domain.Derive(lp, count, s.now())
		snap = domain.Snapshot{
			Tier:              ent.Tier,
			Status:            ent.Status,
			GroupLimit:        ent.GroupLimit,
			CurrentGroupCount: count,
		}
		if found {
			snap.ExpiresAt = latest.ExpiresAt
			snap.Platform = latest.Platform
			if ent.Tier == domain.TierPremium {
				snap.AutoRenew = latest.AutoRenew
			}
		}

		if ent.Status == domain.StatusOverLimit {
			dg, ok, err := st.LatestDowngrade(ctx, userID)
			if err != nil {
				return err
			}
			if ok && !domain.StaleSelection(dg, lp) {
				until := dg.ReadOnlyUntil()
				snap.ReadOnlyUntil = &until
				if dg.KeptGroupID != nil {
					snap.KeptGroupID = *dg.KeptGroupID
				}
			} else {
				snap.SelectionRequired = true
			}
		}

		return st.SyncUserTier(ctx, userID, ent, count)
	})
	return snap, err
}

// Eligibility says whether the user can buy premium right now
func (s *Svc) Eligibility(ctx context.Context, userID string) (domain.Eligibility, error) {
	ent, err := s.Entitlement(ctx, userID)
	if err != nil {
		return domain.Eligibility{}, err
	}

	switch {
	case ent.Tier == domain.TierPremium:
		return domain.Eligibility{Tier: ent.Tier, Reason: "already on premium"}, nil
	case !s.cfg.Receipts.Enabled():
		return domain.Eligibility{Tier: ent.Tier, Reason: "purchases are unavailable right now"}, nil
	default:
		return domain.Eligibility{CanUpgrade: true, Tier: ent.Tier, ProductID: domain.ProductPremiumAnnual}, nil
	}
}

// VerifyPurchase validates a store purchase and grants premium.
// Replaying a transaction the store already settled is a no-op that still
// returns the current state, since mobile clients re-send receipts freely
func (s *Svc) VerifyPurchase(ctx context.Context, userID string, in domain.VerifyPurchaseInput) (domain.Snapshot, error) {
	product := in.ProductID
	if product == "" {
		product = domain.ProductPremiumAnnual
	}
	if product != domain.ProductPremiumAnnual {
		return domain.Snapshot{}, perr.Reasoned(perr.ErrorCodeValidation, "UNSUPPORTED_PRODUCT", "only the annual premium plan can be purchased")
	}

	rec, err := s.cfg.Receipts.Verify(ctx, in.Platform, in.PurchaseToken, product)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if rec.ProductID != "" && rec.ProductID != domain.ProductPremiumAnnual {
		return domain.Snapshot{}, perr.Reasoned(perr.ErrorCodeValidation, "UNSUPPORTED_PRODUCT", "only the annual premium plan can be purchased")
	}

	now := s.now()
	if !rec.ExpiresAt.After(now) {
		return domain.Snapshot{}, perr.Reasoned(perr.ErrorCodeValidation, "RECEIPT_INVALID", "purchase term has already ended")
	}

	var snap domain.Snapshot
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		existing, found, err := st.SubscriptionByToken(ctx, userID, in.Platform, in.PurchaseToken)
		if err != nil {
			return err
		}

		var subID string
		if found {
			subID = existing.ID
			if err := st.RenewSubscription(ctx, subID, rec.ExpiresAt, rec.AutoRenew); err != nil {
				return err
			}
		} else {
			expires := rec.ExpiresAt
			subID, err = st.InsertSubscription(ctx, domain.SubscriptionRow{
				UserID:                 userID,
				Tier:                   domain.TierPremium,
				Status:                 domain.StatusActive,
				StartedAt:              now,
				ExpiresAt:              &expires,
				Platform:               in.Platform,
				PlatformSubscriptionID: rec.TransactionID,
				PurchaseToken:          in.PurchaseToken,
				AutoRenew:              rec.AutoRenew,
			})
			if err != nil {
				return err
			}
		}

		inserted, err := st.InsertTransaction(ctx, domain.TransactionRow{
			UserID:                userID,
			SubscriptionID:        subID,
			Platform:              in.Platform,
			PlatformTransactionID: rec.TransactionID,
			ProductID:             product,
			AmountCents:           rec.AmountCents,
			PurchasedAt:           now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			logger.C(ctx).Info().
				Str("platform", in.Platform).
				Msg("subscriptions: store transaction replayed")
		}

		count, err := st.ActiveGroupCount(ctx, userID)
		if err != nil {
			return err
		}
		ent := domain.Entitlement{
			Tier:       domain.TierPremium,
			Status:     domain.StatusActive,
			GroupLimit: domain.PremiumGroupLimit,
		}
		if err := st.SyncUserTier(ctx, userID, ent, count); err != nil {
			return err
		}

		expires := rec.ExpiresAt
		snap = domain.Snapshot{
			Tier:              ent.Tier,
			Status:            ent.Status,
			GroupLimit:        ent.GroupLimit,
			CurrentGroupCount: count,
			ExpiresAt:         &expires,
			AutoRenew:         rec.AutoRenew,
			Platform:          in.Platform,
		}
		return nil
	})
	return snap, err
}

// SelectKeptGroup records which group an over-limit user keeps writable.
// The others turn read-only until the window lapses and the sweep removes
// them. Choosing again simply replaces the earlier choice
func (s *Svc) SelectKeptGroup(ctx context.Context, userID string, in domain.SelectGroupInput) (domain.DowngradeResult, error) {
	var res domain.DowngradeResult
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)

		latest, found, err := st.LatestSubscription(ctx, userID)
		if err != nil {
			return err
		}
		ids, err := st.ActiveGroupIDs(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		ent := domain.Derive(rowPtr(latest, found), len(ids), now)
		if ent.Status != domain.StatusOverLimit {
			return perr.Conflictf("no downgrade selection is pending")
		}

		keep := in.KeepGroupID
		kept := false
		removed := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == keep {
				kept = true
				continue
			}
			removed = append(removed, id)
		}
		if !kept {
			return perr.NotFoundf("group not found")
		}

		previous := domain.TierFree
		if found {
			previous = domain.TierPremium
		}
		row := domain.DowngradeRow{
			UserID:          userID,
			DowngradeDate:   now,
			PreviousTier:    previous,
			GroupsBefore:    len(ids),
			KeptGroupID:     &keep,
			RemovedGroupIDs: removed,
		}
		if _, err := st.InsertDowngrade(ctx, row); err != nil {
			return err
		}
		if err := st.SyncUserTier(ctx, userID, ent, len(ids)); err != nil {
			return err
		}

		res = domain.DowngradeResult{
			KeptGroupID:      keep,
			ReadOnlyGroupIDs: removed,
			ReadOnlyUntil:    row.ReadOnlyUntil(),
		}
		return nil
	})
	return res, err
}
