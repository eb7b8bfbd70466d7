package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter, status int) http.Handler {
	return rl.Middleware(KeyIP, writeJSON)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func doReq(h http.Handler, addr string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = addr
	h.ServeHTTP(rr, req)
	return rr
}

// TestRateLimiter_BlocksAfterBurst exhausts the bucket and expects 429 with Retry-After
func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(LimitPolicy{Requests: 3, Window: time.Minute})
	defer rl.Stop()
	h := limitedHandler(rl, http.StatusOK)

	for i := 0; i < 3; i++ {
		if rr := doReq(h, "10.0.0.1:1234"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}

	rr := doReq(h, "10.0.0.1:1234")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var body struct {
		Reason string         `json:"reason"`
		Meta   map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Reason != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("reason got %q", body.Reason)
	}
	if _, ok := body.Meta["retry_after_seconds"]; !ok {
		t.Fatalf("expected retry_after_seconds in meta, got %v", body.Meta)
	}
}

// TestRateLimiter_KeysAreIndependent verifies one client cannot exhaust another's bucket
func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(LimitPolicy{Requests: 1, Window: time.Minute})
	defer rl.Stop()
	h := limitedHandler(rl, http.StatusOK)

	if rr := doReq(h, "10.0.0.1:1"); rr.Code != http.StatusOK {
		t.Fatalf("first client first request: %d", rr.Code)
	}
	if rr := doReq(h, "10.0.0.1:1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("first client second request should be limited, got %d", rr.Code)
	}
	if rr := doReq(h, "10.0.0.2:1"); rr.Code != http.StatusOK {
		t.Fatalf("second client should be unaffected, got %d", rr.Code)
	}
}

// TestRateLimiter_CountFailuresOnly verifies successes never consume tokens
func TestRateLimiter_CountFailuresOnly(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(LimitPolicy{Requests: 2, Window: time.Hour, CountFailuresOnly: true})
	defer rl.Stop()

	okHandler := limitedHandler(rl, http.StatusOK)
	failHandler := limitedHandler(rl, http.StatusUnauthorized)

	// successes never trip the gate
	for i := 0; i < 10; i++ {
		if rr := doReq(okHandler, "10.0.0.9:1"); rr.Code != http.StatusOK {
			t.Fatalf("success %d unexpectedly limited: %d", i, rr.Code)
		}
	}

	// two failures drain the bucket
	for i := 0; i < 2; i++ {
		if rr := doReq(failHandler, "10.0.0.9:1"); rr.Code != http.StatusUnauthorized {
			t.Fatalf("failure %d passthrough status: %d", i, rr.Code)
		}
	}

	// now even a would-be success is gated
	if rr := doReq(okHandler, "10.0.0.9:1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after failures drained bucket, got %d", rr.Code)
	}
}

// TestKeyUser_FallsBackToIP covers anonymous requests
func TestKeyUser_FallsBackToIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "192.168.1.5:999"
	if got := KeyUser(req); got != "ip:192.168.1.5" {
		t.Fatalf("KeyUser got %q", got)
	}
}
