package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "pursue/internal/platform/errors"
	pnet "pursue/internal/platform/net"
)

type fakeAuthPort struct {
	uid string
	err error
}

func (f fakeAuthPort) Parse(_ *http.Request) (string, error) { return f.uid, f.err }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// TestAuth_NilPort_PassesThrough verifies nil port means no auth gate
func TestAuth_NilPort_PassesThrough(t *testing.T) {
	t.Parallel()

	var hit bool
	h := Auth(nil, writeJSON)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !hit || rr.Code != http.StatusOK {
		t.Fatalf("expected pass-through, hit=%v code=%d", hit, rr.Code)
	}
}

// TestAuth_PortOK_SetsUserOnContext verifies user id lands on the request context
func TestAuth_PortOK_SetsUserOnContext(t *testing.T) {
	t.Parallel()

	var got string
	h := Auth(fakeAuthPort{uid: "u-42"}, writeJSON)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = pnet.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if got != "u-42" {
		t.Fatalf("UserID on context got %q want %q", got, "u-42")
	}
}

// TestAuth_PortError_WritesMappedStatus verifies errors short-circuit with mapped status
func TestAuth_PortError_WritesMappedStatus(t *testing.T) {
	t.Parallel()

	h := Auth(fakeAuthPort{err: perr.Unauthorizedf("missing bearer token")}, writeJSON)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("next handler should not run")
		}),
	)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}
