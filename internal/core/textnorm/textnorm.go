// Package textnorm folds user text for search matching and canonicalizes
// language tags for the discover ranker.
//
// Fold pipeline:
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKD decomposition so marks split off their base runes
// 3 Case folding
// 4 Remove zero-width and combining marks
// 5 Width fold fullwidth to ASCII
// 6 NFC recomposition
// 7 Collapse whitespace to single spaces and trim
package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline; the mark
		// strip only sees Mn runes when decomposition runs first
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
			norm.NFC,                           // recompose what survives
		)
	},
}

// Fold returns the folded form of s following the pipeline above. It is what
// trigram search, suggestion matching, and embedding inputs all operate on.
func Fold(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return collapseSpaces(ns)
}

// CanonicalLang reduces a BCP-47 tag to its lowercase base language,
// "en-US" -> "en". Unparseable or empty tags return "".
func CanonicalLang(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// IsEnglish reports whether tag canonicalizes to English. Groups without a
// language are ranked as English for English requesters.
func IsEnglish(tag string) bool {
	return CanonicalLang(tag) == "en"
}

// collapseSpaces converts whitespace runs to a single ASCII space and trims.
// Queries are one line, so unlike log text, newlines are not preserved.
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
