// Package service implements the discover ranker
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"pursue/internal/core/heat"
	"pursue/internal/core/invite"
	"pursue/internal/core/textnorm"
	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/platform/logger"
	"pursue/internal/services/discover/domain"
)

// maxQueryLen caps the folded text query before it reaches the ranker
// and the embedding vendor
const maxQueryLen = 100

// Config carries the discover dependencies. Embedder may be nil;
// search then runs trigram-only
type Config struct {
	Embedder domain.EmbedderPort
}

// Svc implements domain.ServicePort
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Storage]
	cfg    Config
}

var _ domain.ServicePort = (*Svc)(nil)

// New constructs the discover service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Storage], cfg Config) *Svc {
	if db == nil {
		panic("discover service requires a database")
	}
	if binder == nil {
		panic("discover service requires a storage binder")
	}
	return &Svc{db: db, binder: binder, cfg: cfg}
}

// Search lists public groups: ranked against the query when one is
// present, otherwise browsed under the requested sort. Cursor tokens
// from a different mode, or broken ones, restart at the first page
func (s *Svc) Search(ctx context.Context, in domain.SearchInput) (domain.Page, error) {
	q := truncate(textnorm.Fold(in.Q))
	kind, ok := domain.NormalizeSort(q, in.Sort)
	if !ok {
		return domain.Page{}, perr.WithField(
			perr.Newf(perr.ErrorCodeValidation, "sort must be one of heat, newest, members"), "sort")
	}
	lang := textnorm.CanonicalLang(in.Language)
	cats := cleanCategories(in.Categories)
	limit := domain.ClampLimit(in.Limit)
	after := domain.DecodeCursor(in.Cursor, kind)

	var (
		rows []domain.Row
		err  error
	)
	if kind == domain.KindSearch {
		vec := s.queryVector(ctx, q)
		err = s.db.Tx(ctx, func(tx repokit.Queryer) error {
			var err error
			rows, err = s.binder.Bind(tx).Search(ctx, domain.SearchParams{
				Q: q, Language: lang, Categories: cats,
				QueryVec: vec, After: after, Limit: limit + 1,
			})
			return err
		})
	} else {
		err = s.db.Tx(ctx, func(tx repokit.Queryer) error {
			var err error
			rows, err = s.binder.Bind(tx).Browse(ctx, domain.BrowseParams{
				Sort: kind, Language: lang, Categories: cats,
				After: after, Limit: limit + 1,
			})
			return err
		})
	}
	if err != nil {
		return domain.Page{}, err
	}

	page := domain.Page{Groups: make([]domain.Card, 0, min(len(rows), limit))}
	if len(rows) > limit {
		rows = rows[:limit]
		token := domain.NextCursor(kind, rows[limit-1])
		page.NextCursor = &token
	}
	for _, r := range rows {
		page.Groups = append(page.Groups, card(r))
	}
	return page, nil
}

// PublicDetail serves the share-link view of one public group
func (s *Svc) PublicDetail(ctx context.Context, groupID string) (domain.PublicDetail, error) {
	if uuid.Validate(groupID) != nil {
		return domain.PublicDetail{}, perr.NotFoundf("group not found")
	}

	var det domain.PublicDetail
	err := s.db.Tx(ctx, func(tx repokit.Queryer) error {
		row, found, err := s.binder.Bind(tx).PublicByID(ctx, groupID)
		if err != nil {
			return err
		}
		if !found {
			return perr.NotFoundf("group not found")
		}
		det = domain.PublicDetail{Card: card(row.Row), GoalTitles: row.GoalTitles}
		if det.GoalTitles == nil {
			det.GoalTitles = []string{}
		}
		if row.InviteCode != nil {
			if row.IsChallenge {
				det.InviteURL = invite.ChallengeURL(*row.InviteCode)
			} else {
				det.InviteURL = invite.JoinURL(*row.InviteCode)
			}
		}
		return nil
	})
	return det, err
}

// Suggestions completes a typed prefix with public group names
func (s *Svc) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = truncate(textnorm.Fold(q))
	if len([]rune(q)) < domain.MinSuggestionQ {
		return []string{}, nil
	}

	var out []string
	err := s.db.Tx(ctx, func(tx repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(tx).Suggest(ctx, q, domain.SuggestionLimit)
		return err
	})
	if out == nil {
		out = []string{}
	}
	return out, err
}

// RefreshGroup recomputes one group's search embedding from its name,
// description, and goal titles. Callers detach it post-commit; a
// disabled embedder makes it a no-op
func (s *Svc) RefreshGroup(ctx context.Context, groupID string) error {
	if s.cfg.Embedder == nil || !s.cfg.Embedder.Enabled() {
		return nil
	}

	var (
		doc   string
		found bool
	)
	err := s.db.Tx(ctx, func(tx repokit.Queryer) error {
		var err error
		doc, found, err = s.binder.Bind(tx).SearchDoc(ctx, groupID)
		return err
	})
	if err != nil || !found {
		return err
	}

	vec, err := s.cfg.Embedder.Embed(ctx, textnorm.Fold(doc))
	if err != nil {
		return err
	}
	if vec == nil {
		return nil
	}
	return s.db.Tx(ctx, func(tx repokit.Queryer) error {
		return s.binder.Bind(tx).SetEmbedding(ctx, groupID, pgvector.NewVector(vec))
	})
}

// queryVector embeds the search text, degrading to nil on any vendor
// trouble so the ranker falls back to trigram
func (s *Svc) queryVector(ctx context.Context, q string) *pgvector.Vector {
	if s.cfg.Embedder == nil || !s.cfg.Embedder.Enabled() {
		return nil
	}
	raw, err := s.cfg.Embedder.Embed(ctx, q)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("discover: query embedding failed, trigram only")
		return nil
	}
	if raw == nil {
		return nil
	}
	v := pgvector.NewVector(raw)
	return &v
}

func card(r domain.Row) domain.Card {
	tier := heat.TierOf(r.HeatScore)
	return domain.Card{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		IconEmoji:          r.IconEmoji,
		IconColor:          r.IconColor,
		Language:           r.Language,
		MemberCount:        r.MemberCount,
		HeatTier:           tier,
		TierName:           heat.TierName(tier),
		IsChallenge:        r.IsChallenge,
		ChallengeStartDate: r.ChallengeStartDate,
		ChallengeEndDate:   r.ChallengeEndDate,
		CreatedAt:          r.CreatedAt,
	}
}

func cleanCategories(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// truncate caps folded query text at maxQueryLen runes
func truncate(q string) string {
	r := []rune(q)
	if len(r) > maxQueryLen {
		return string(r[:maxQueryLen])
	}
	return q
}

