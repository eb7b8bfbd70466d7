package service

import (
	"context"
	"testing"

	perr "pursue/internal/platform/errors"
	"pursue/internal/services/discover/domain"
)

func TestSearchRejectsUnknownSort(t *testing.T) {
	t.Parallel()

	s := &Svc{}
	_, err := s.Search(context.Background(), domain.SearchInput{Sort: "alphabetical"})
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("Search = %v, want validation error", err)
	}
}

func TestPublicDetailMalformedID(t *testing.T) {
	t.Parallel()

	s := &Svc{}
	_, err := s.PublicDetail(context.Background(), "not-a-uuid")
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("PublicDetail = %v, want not found", err)
	}
}

func TestSuggestionsShortQuery(t *testing.T) {
	t.Parallel()

	s := &Svc{}
	for _, q := range []string{"", "a", "  a  "} {
		out, err := s.Suggestions(context.Background(), q)
		if err != nil {
			t.Fatalf("Suggestions(%q): %v", q, err)
		}
		if len(out) != 0 {
			t.Fatalf("Suggestions(%q) = %v, want empty", q, out)
		}
	}
}

func TestCardTiering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		tier  int
		name  string
	}{
		{score: 0, tier: 0, name: "Cold"},
		{score: 34.9, tier: 3, name: "Flicker"},
		{score: 62.5, tier: 6, name: "Hot"},
		{score: 100, tier: 9, name: "Supernova"},
	}
	for _, tc := range tests {
		c := card(domain.Row{HeatScore: tc.score})
		if c.HeatTier != tc.tier || c.TierName != tc.name {
			t.Fatalf("card(%v) = tier %d %q, want %d %q", tc.score, c.HeatTier, c.TierName, tc.tier, tc.name)
		}
	}
}

func TestCleanCategories(t *testing.T) {
	t.Parallel()

	got := cleanCategories([]string{" fitness ", "", "  ", "learning"})
	if len(got) != 2 || got[0] != "fitness" || got[1] != "learning" {
		t.Fatalf("cleanCategories = %v", got)
	}
	if cleanCategories(nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}
