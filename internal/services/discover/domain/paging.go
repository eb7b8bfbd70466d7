package domain

import (
	"time"

	"pursue/internal/core/cursor"
)

// PageKey is the decoded cursor tuple: the sort kind it was minted
// under, the last row's sort keys, and its id. Pages continue strictly
// below the tuple under the listing's descending order
type PageKey struct {
	Kind      string    `json:"k"`
	LangMatch int       `json:"l"`
	Score     float64   `json:"s"`
	CreatedAt time.Time `json:"t"`
	Members   int       `json:"m"`
	ID        string    `json:"id"`
}

// DecodeCursor unpacks a client token for the given sort kind. Tokens
// that fail to parse, or that were minted under a different kind, read
// as the first page
func DecodeCursor(token, kind string) *PageKey {
	var k PageKey
	if !cursor.Decode(token, &k) {
		return nil
	}
	if k.Kind != kind || k.ID == "" {
		return nil
	}
	return &k
}

// NextCursor mints the token continuing after the last row of a page
func NextCursor(kind string, last Row) string {
	k := PageKey{Kind: kind, LangMatch: last.LangMatch, ID: last.ID}
	switch kind {
	case KindSearch:
		k.Score = last.Combined
	case SortNewest:
		k.CreatedAt = last.CreatedAt
	case SortMembers:
		k.Members = last.MemberCount
	default:
		k.Score = last.HeatScore
	}
	return cursor.Encode(k)
}

// NormalizeSort resolves the effective sort kind: ranked search when a
// query is present, otherwise the requested browse sort (heat by
// default). Unknown sorts report false
func NormalizeSort(q, sort string) (string, bool) {
	if q != "" {
		return KindSearch, true
	}
	switch sort {
	case "", SortHeat:
		return SortHeat, true
	case SortNewest, SortMembers:
		return sort, true
	}
	return "", false
}

// ClampLimit pins a requested page size into [1, MaxLimit]
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
