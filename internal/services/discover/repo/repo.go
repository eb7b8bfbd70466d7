// Package repo provides Postgres bindings for the discover ranker
package repo

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"pursue/internal/modkit/repokit"
	perr "pursue/internal/platform/errors"
	"pursue/internal/services/discover/domain"
)

type (
	// PG is a Postgres binder for domain.Storage
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

var _ domain.Storage = (*queries)(nil)

// NewPG returns a Postgres binder for discover storage
func NewPG() repokit.Binder[domain.Storage] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Storage { return &queries{q: q} }

// cardCols are the per-group columns every listing query projects.
// member_count, heat_score, and lang_match come from the surrounding
// query
const cardCols = `g.id, g.name, g.description, g.icon_emoji, g.icon_color, g.language,
		g.is_challenge, g.challenge_start_date, g.challenge_end_date, g.created_at`

// discoverable keeps listings to public live groups still worth
// joining: plain groups always, challenges only before their window
// closes
const discoverable = `g.visibility = 'public' AND g.deleted_at IS NULL
		AND (NOT g.is_challenge OR g.challenge_status IN ('upcoming', 'active'))`

// langMatchExpr ranks language fit: everything matches when no tag is
// supplied, untagged groups count as English for English requesters,
// anyone else needs an exact tag
const langMatchExpr = `CASE
			WHEN $1::text = '' THEN 1
			WHEN $1 = 'en' AND (g.language IS NULL OR g.language = 'en') THEN 1
			WHEN g.language = $1 THEN 1
			ELSE 0
		END`

// memberCountJoin counts the active roster per group
const memberCountJoin = `CROSS JOIN LATERAL (
			SELECT COUNT(*)::int AS n FROM group_memberships m
			WHERE m.group_id = g.id AND m.status = 'active'
		) mc`

// categoryFilter admits every group when no categories are supplied,
// otherwise only groups built from a template in one of them
const categoryFilter = `($2::text[] IS NULL OR EXISTS (
			SELECT 1 FROM group_templates t
			WHERE t.id = g.template_id AND t.category = ANY($2)))`

func scanRow(rows interface{ Scan(...any) error }) (domain.Row, error) {
	var r domain.Row
	err := rows.Scan(
		&r.ID, &r.Name, &r.Description, &r.IconEmoji, &r.IconColor, &r.Language,
		&r.IsChallenge, &r.ChallengeStartDate, &r.ChallengeEndDate, &r.CreatedAt,
		&r.MemberCount, &r.HeatScore, &r.LangMatch, &r.Combined,
	)
	return r, err
}

// Search ranks groups against a folded text query: the better of the
// name and goal-title word similarity, blended half and half with
// cosine similarity when both the group vector and the query vector
// exist. Admission needs a substring hit, a trigram above 0.3, or a
// semantic score above 0.3
func (r *queries) Search(ctx context.Context, p domain.SearchParams) ([]domain.Row, error) {
	var (
		lm    *int
		score *float64
		id    *string
	)
	if p.After != nil {
		lm, score, id = &p.After.LangMatch, &p.After.Score, &p.After.ID
	}

	rows, err := r.q.Query(ctx, `
		WITH base AS (
			SELECT `+cardCols+`,
				mc.n AS member_count,
				COALESCE(h.score, 0) AS heat_score,
				`+langMatchExpr+` AS lang_match,
				GREATEST(word_similarity($3, g.name), COALESCE(gt.best, 0)) AS trigram,
				CASE WHEN g.search_embedding IS NOT NULL AND $4::vector IS NOT NULL
					THEN 1 - (g.search_embedding <=> $4) END AS semantic,
				(g.name ILIKE '%' || $3 || '%'
					OR word_similarity($3, g.name) > 0.3
					OR COALESCE(gt.hit, FALSE)) AS text_hit
			FROM groups g
			LEFT JOIN group_heat h ON h.group_id = g.id
			`+memberCountJoin+`
			LEFT JOIN LATERAL (
				SELECT MAX(word_similarity($3, gl.title)) AS best,
					BOOL_OR(gl.title ILIKE '%' || $3 || '%'
						OR word_similarity($3, gl.title) > 0.3) AS hit
				FROM goals gl
				WHERE gl.group_id = g.id AND gl.deleted_at IS NULL
			) gt ON TRUE
			WHERE `+discoverable+` AND `+categoryFilter+`
		),
		scored AS (
			SELECT *, 0.5 * trigram + 0.5 * COALESCE(semantic, trigram) AS combined
			FROM base
			WHERE text_hit OR semantic > 0.3
		)
		SELECT id, name, description, icon_emoji, icon_color, language,
			is_challenge, challenge_start_date, challenge_end_date, created_at,
			member_count, heat_score, lang_match, combined
		FROM scored
		WHERE ($5::int IS NULL OR (lang_match, combined, id) < ($5, $6::float8, $7::uuid))
		ORDER BY lang_match DESC, combined DESC, id DESC
		LIMIT $8`,
		p.Language, textArray(p.Categories), p.Q, p.QueryVec, lm, score, id, p.Limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "discover search")
	}
	defer rows.Close()
	return collectRows(rows)
}

// browse sort keys and the cursor parameter's SQL type
var browseSorts = map[string]struct{ col, cast string }{
	domain.SortHeat:    {col: "heat_score", cast: "float8"},
	domain.SortNewest:  {col: "created_at", cast: "timestamptz"},
	domain.SortMembers: {col: "member_count", cast: "int"},
}

// Browse lists without a query, ordered by the chosen key
func (r *queries) Browse(ctx context.Context, p domain.BrowseParams) ([]domain.Row, error) {
	sort, ok := browseSorts[p.Sort]
	if !ok {
		sort = browseSorts[domain.SortHeat]
	}

	var (
		lm  *int
		key any
		id  *string
	)
	if p.After != nil {
		lm, id = &p.After.LangMatch, &p.After.ID
		switch p.Sort {
		case domain.SortNewest:
			key = p.After.CreatedAt
		case domain.SortMembers:
			key = p.After.Members
		default:
			key = p.After.Score
		}
	}

	q := fmt.Sprintf(`
		SELECT id, name, description, icon_emoji, icon_color, language,
			is_challenge, challenge_start_date, challenge_end_date, created_at,
			member_count, heat_score, lang_match, combined
		FROM (
			SELECT `+cardCols+`,
				mc.n AS member_count,
				COALESCE(h.score, 0) AS heat_score,
				`+langMatchExpr+` AS lang_match,
				0::float8 AS combined
			FROM groups g
			LEFT JOIN group_heat h ON h.group_id = g.id
			`+memberCountJoin+`
			WHERE `+discoverable+` AND `+categoryFilter+`
		) d
		WHERE ($3::int IS NULL OR (d.lang_match, d.%s, d.id) < ($3, $4::%s, $5::uuid))
		ORDER BY d.lang_match DESC, d.%s DESC, d.id DESC
		LIMIT $6`, sort.col, sort.cast, sort.col)

	rows, err := r.q.Query(ctx, q, p.Language, textArray(p.Categories), lm, key, id, p.Limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "discover browse")
	}
	defer rows.Close()
	return collectRows(rows)
}

// PublicByID loads the share-link view of one public group. The
// challenge-status gate does not apply; closed challenges keep their
// page
func (r *queries) PublicByID(ctx context.Context, groupID string) (domain.PublicRow, bool, error) {
	var (
		out  domain.PublicRow
		code *string
	)
	err := r.q.QueryRow(ctx, `
		SELECT `+cardCols+`,
			mc.n, COALESCE(h.score, 0),
			COALESCE(gl.titles, '{}'), ic.code
		FROM groups g
		LEFT JOIN group_heat h ON h.group_id = g.id
		`+memberCountJoin+`
		LEFT JOIN LATERAL (
			SELECT ARRAY_AGG(title ORDER BY created_at, id) AS titles
			FROM goals WHERE group_id = g.id AND deleted_at IS NULL
		) gl ON TRUE
		LEFT JOIN LATERAL (
			SELECT code FROM invite_codes i
			WHERE i.group_id = g.id AND i.revoked_at IS NULL
			LIMIT 1
		) ic ON TRUE
		WHERE g.id = $1 AND g.visibility = 'public' AND g.deleted_at IS NULL`, groupID).Scan(
		&out.ID, &out.Name, &out.Description, &out.IconEmoji, &out.IconColor, &out.Language,
		&out.IsChallenge, &out.ChallengeStartDate, &out.ChallengeEndDate, &out.CreatedAt,
		&out.MemberCount, &out.HeatScore, &out.GoalTitles, &code,
	)
	if repokit.NoRows(err) {
		return domain.PublicRow{}, false, nil
	}
	if err != nil {
		return domain.PublicRow{}, false, perr.FromPostgres(err, "discover detail")
	}
	out.InviteCode = code
	return out, true, nil
}

// Suggest returns distinct public group names starting with, or fuzzily
// close to, the folded prefix
func (r *queries) Suggest(ctx context.Context, q string, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT name
		FROM groups g
		WHERE `+discoverable+`
			AND (g.name ILIKE $1 || '%' OR word_similarity($1, g.name) > 0.3)
		GROUP BY name
		ORDER BY MAX(word_similarity($1, name)) DESC, name
		LIMIT $2`, q, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "discover suggest")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, perr.FromPostgres(err, "scan suggestion")
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "discover suggest")
	}
	return out, nil
}

// SearchDoc concatenates the text a group's embedding is computed from
func (r *queries) SearchDoc(ctx context.Context, groupID string) (string, bool, error) {
	var doc string
	err := r.q.QueryRow(ctx, `
		SELECT CONCAT_WS(' ', g.name, g.description,
			(SELECT STRING_AGG(title, ' ' ORDER BY created_at, id)
			 FROM goals WHERE group_id = g.id AND deleted_at IS NULL))
		FROM groups g
		WHERE g.id = $1 AND g.deleted_at IS NULL`, groupID).Scan(&doc)
	if repokit.NoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.FromPostgres(err, "load search doc")
	}
	return doc, true, nil
}

func (r *queries) SetEmbedding(ctx context.Context, groupID string, vec pgvector.Vector) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE groups SET search_embedding = $2 WHERE id = $1`, groupID, vec); err != nil {
		return perr.FromPostgres(err, "set search embedding")
	}
	return nil
}

func collectRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.Row, error) {
	var out []domain.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "scan discover row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "discover rows")
	}
	return out, nil
}

// textArray maps an empty filter to NULL so the SQL skips it
func textArray(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	return v
}
