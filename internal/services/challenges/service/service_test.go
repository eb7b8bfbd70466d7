package service

import (
	"testing"
	"time"

	perr "pursue/internal/platform/errors"
	"pursue/internal/services/challenges/domain"
)

func TestChallengeEnd(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
	intp := func(i int) *int { return &i }
	datep := func(d time.Time) *time.Time { return &d }

	tests := []struct {
		name     string
		tpl      *domain.Template
		explicit *time.Time
		want     time.Time
		wantErr  bool
	}{
		{
			name: "template duration wins over an explicit end",
			tpl:  &domain.Template{DurationDays: intp(30)},
			explicit: datep(start.AddDate(0, 0, 90)),
			want: start.AddDate(0, 0, 29),
		},
		{
			name: "one-day template ends on its start",
			tpl:  &domain.Template{DurationDays: intp(1)},
			want: start,
		},
		{
			name:     "template without duration uses the explicit end",
			tpl:      &domain.Template{},
			explicit: datep(start.AddDate(0, 0, 13)),
			want:     start.AddDate(0, 0, 13),
		},
		{
			name:     "explicit end equal to start is a one-day challenge",
			explicit: datep(start),
			want:     start,
		},
		{
			name:    "missing end is rejected",
			wantErr: true,
		},
		{
			name:     "end before start is rejected",
			explicit: datep(start.AddDate(0, 0, -1)),
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := challengeEnd(start, tc.tpl, tc.explicit)
			if tc.wantErr {
				if !perr.IsCode(err, perr.ErrorCodeValidation) {
					t.Fatalf("challengeEnd = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("challengeEnd: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("challengeEnd = %s, want %s", got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
			}
		})
	}
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	strp := func(s string) *string { return &s }
	tpl := &domain.Template{
		Name:        "Couch to 5K",
		Description: "Run three times a week",
		Emoji:       strp("🏃"),
	}

	tests := []struct {
		name      string
		in        domain.CreateChallengeInput
		tpl       *domain.Template
		wantName  string
		wantDesc  string
		wantEmoji *string
	}{
		{
			name:     "no template passes trimmed fields through",
			in:       domain.CreateChallengeInput{Name: "  Morning Club  ", Description: " rise early "},
			wantName: "Morning Club", wantDesc: "rise early",
		},
		{
			name:     "blank fields fall back to the template",
			in:       domain.CreateChallengeInput{},
			tpl:      tpl,
			wantName: "Couch to 5K", wantDesc: "Run three times a week", wantEmoji: tpl.Emoji,
		},
		{
			name:     "whitespace name reads as blank",
			in:       domain.CreateChallengeInput{Name: "   "},
			tpl:      tpl,
			wantName: "Couch to 5K", wantDesc: "Run three times a week", wantEmoji: tpl.Emoji,
		},
		{
			name:      "submitted fields beat the template",
			in:        domain.CreateChallengeInput{Name: "Our 5K", Description: "with the crew", IconEmoji: strp("🔥")},
			tpl:       tpl,
			wantName:  "Our 5K",
			wantDesc:  "with the crew",
			wantEmoji: strp("🔥"),
		},
		{
			name:     "no template and blank name stays blank",
			in:       domain.CreateChallengeInput{},
			wantName: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			name, desc, emoji := resolveIdentity(tc.in, tc.tpl)
			if name != tc.wantName {
				t.Fatalf("name = %q, want %q", name, tc.wantName)
			}
			if desc != tc.wantDesc {
				t.Fatalf("desc = %q, want %q", desc, tc.wantDesc)
			}
			switch {
			case tc.wantEmoji == nil && emoji != nil:
				t.Fatalf("emoji = %q, want nil", *emoji)
			case tc.wantEmoji != nil && (emoji == nil || *emoji != *tc.wantEmoji):
				t.Fatalf("emoji = %v, want %q", emoji, *tc.wantEmoji)
			}
		})
	}
}
