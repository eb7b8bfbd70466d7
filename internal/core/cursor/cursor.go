// Package cursor implements the opaque keyset-pagination tokens used by
// list endpoints. A token is the previous page's sort keys plus row id,
// JSON-encoded then base64-url-encoded; pages continue strictly after it.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Encode packs v into an opaque token. Cursors are structs so field order,
// and therefore the byte form, is stable across round-trips.
func Encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode unpacks a client-supplied token into dst and reports success.
// Malformed or empty tokens return false; callers treat that as the first
// page rather than an error.
func Decode(s string, dst any) bool {
	if s == "" {
		return false
	}
	// accept padded and unpadded forms
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}
