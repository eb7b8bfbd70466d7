// Package invite mints and validates the shareable codes that let users
// join groups and challenges.
package invite

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet is the code character set: uppercase letters minus the visually
// confusable I and O, plus the digits 2 through 9. Exactly 32 symbols, so a
// single random byte maps uniformly onto it.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	prefix   = "PURSUE"
	blockLen = 6
	blocks   = 2
)

// MaxAttempts bounds the mint loop when the unique index reports collisions.
const MaxAttempts = 12

// NewCode returns a fresh random code of shape PURSUE-XXXXXX-XXXXXX.
func NewCode() (string, error) {
	var b strings.Builder
	b.Grow(len(prefix) + blocks*(blockLen+1))
	b.WriteString(prefix)

	buf := make([]byte, blockLen)
	for i := 0; i < blocks; i++ {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("invite: read entropy: %w", err)
		}
		b.WriteByte('-')
		for _, r := range buf {
			b.WriteByte(Alphabet[int(r)&31])
		}
	}
	return b.String(), nil
}

// Normalize uppercases and trims a user-entered code so lookups tolerate
// case and stray whitespace.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Valid reports whether s already has the canonical shape and alphabet.
// Run Normalize first for user input.
func Valid(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != blocks+1 || parts[0] != prefix {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != blockLen {
			return false
		}
		for i := 0; i < len(p); i++ {
			if !strings.ContainsRune(Alphabet, rune(p[i])) {
				return false
			}
		}
	}
	return true
}

// JoinURL is the shareable link for a group invite code.
func JoinURL(code string) string {
	return "https://getpursue.app/join/" + code
}

// ChallengeURL is the shareable link for a challenge invite code.
func ChallengeURL(code string) string {
	return "https://getpursue.app/challenge/" + code
}
