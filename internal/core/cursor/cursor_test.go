package cursor

import (
	"testing"
	"time"
)

type feedKey struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

func TestRoundTrip(t *testing.T) {
	in := feedKey{
		CreatedAt: time.Date(2025, time.March, 10, 12, 30, 0, 0, time.UTC),
		ID:        "0d9f7c1e-2a4b-4bfa-9a31-9f6f0a6f7c11",
	}
	tok := Encode(in)
	if tok == "" {
		t.Fatal("Encode returned empty token")
	}

	var out feedKey
	if !Decode(tok, &out) {
		t.Fatalf("Decode(%q) failed", tok)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}

	// Re-encoding the decoded keys must reproduce the same bytes
	if again := Encode(out); again != tok {
		t.Fatalf("re-encode drifted: %q != %q", again, tok)
	}
}

func TestDecode_InvalidMeansFirstPage(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"not base64", "%%%%"},
		{"base64 but not json", "bm90LWpzb24"},
		{"json wrong shape", Encode([]int{1, 2, 3})},
		{"truncated", Encode(feedKey{ID: "x"})[:5]},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var out feedKey
			if Decode(tc.in, &out) {
				t.Fatalf("Decode(%q) should fail", tc.in)
			}
		})
	}
}

func TestDecode_ToleratesPadding(t *testing.T) {
	in := feedKey{ID: "abc"}
	tok := Encode(in) + "=="
	var out feedKey
	if !Decode(tok, &out) {
		t.Fatal("padded token should decode")
	}
	if out.ID != "abc" {
		t.Fatalf("got id %q, want abc", out.ID)
	}
}

func TestEncode_OmitsPadding(t *testing.T) {
	for _, id := range []string{"a", "ab", "abc", "abcd"} {
		tok := Encode(feedKey{ID: id})
		if len(tok) > 0 && tok[len(tok)-1] == '=' {
			t.Fatalf("token %q carries padding", tok)
		}
	}
}
