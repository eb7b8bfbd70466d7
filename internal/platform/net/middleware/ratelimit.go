package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	perr "pursue/internal/platform/errors"
	pnet "pursue/internal/platform/net"

	"golang.org/x/time/rate"
)

// LimitPolicy describes a keyed token bucket
// Requests tokens refill evenly across Window; Burst defaults to Requests
type LimitPolicy struct {
	Requests int
	Window   time.Duration
	Burst    int

	// CountFailuresOnly consumes a token only when the response status is >= 400
	// (login attempts: successes never trip the limiter)
	CountFailuresOnly bool
}

// KeyFunc derives the bucket key for a request
type KeyFunc func(r *http.Request) string

// KeyIP keys by client IP (RemoteAddr host, set upstream by RealIP)
func KeyIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyUser keys by authenticated user id, falling back to IP for anonymous requests
func KeyUser(r *http.Request) string {
	if uid := pnet.UserID(r.Context()); uid != "" {
		return "u:" + uid
	}
	return "ip:" + KeyIP(r)
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-key rate limiting for HTTP handlers
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	failOnly bool
	window   time.Duration

	stop chan struct{}
	once sync.Once
}

// NewRateLimiter creates a keyed limiter for the policy and starts its janitor
func NewRateLimiter(p LimitPolicy) *RateLimiter {
	burst := p.Burst
	if burst <= 0 {
		burst = p.Requests
	}
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(p.Requests) / p.Window.Seconds()),
		burst:    burst,
		failOnly: p.CountFailuresOnly,
		window:   p.Window,
		stop:     make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Stop terminates the janitor goroutine (tests and shutdown)
func (rl *RateLimiter) Stop() { rl.once.Do(func() { close(rl.stop) }) }

// janitor evicts buckets idle for longer than two windows
func (rl *RateLimiter) janitor() {
	interval := rl.window
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-t.C:
			rl.mu.Lock()
			for k, v := range rl.visitors {
				if now.Sub(v.lastSeen) > 2*rl.window {
					delete(rl.visitors, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// getLimiter returns the limiter for the given key, creating one if needed
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = time.Now()
		return v.lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{lim: lim, lastSeen: time.Now()}
	return lim
}

// Allow consumes a token for key, reporting whether the request may proceed
// and how long to wait before retrying when it may not
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	lim := rl.getLimiter(key)
	res := lim.Reserve()
	if !res.OK() {
		return false, rl.window
	}
	if d := res.Delay(); d > 0 {
		res.Cancel()
		return false, d
	}
	return true, 0
}

// retryAfter estimates the wait for one token to refill
func (rl *RateLimiter) retryAfter() time.Duration {
	if rl.limit <= 0 {
		return rl.window
	}
	return time.Duration(float64(time.Second) / float64(rl.limit))
}

// Penalize consumes a token for key without an allow check (failure accounting)
func (rl *RateLimiter) Penalize(key string) {
	_ = rl.getLimiter(key).Allow()
}

// Exhausted reports whether key's bucket is empty
func (rl *RateLimiter) Exhausted(key string) bool {
	return rl.getLimiter(key).Tokens() < 1
}

// Middleware wraps a handler with rate limiting keyed by key
// write is the JSON envelope writer (phttp.JSON shaped)
func (rl *RateLimiter) Middleware(key KeyFunc, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)

			if rl.failOnly {
				// failures consume; the gate only closes once the bucket is dry
				if rl.Exhausted(k) {
					rl.reject(w, r, rl.retryAfter(), write)
					return
				}
				cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(cw, r)
				if cw.status >= http.StatusBadRequest {
					rl.Penalize(k)
				}
				return
			}

			ok, retry := rl.Allow(k)
			if !ok {
				rl.reject(w, r, retry, write)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, retry time.Duration, write func(w http.ResponseWriter, status int, body any)) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	err := perr.WithMeta(
		perr.Reasoned(perr.ErrorCodeTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests"),
		map[string]any{"retry_after_seconds": secs},
	)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	status, body := pnet.Error(err, pnet.RequestID(r.Context()))
	write(w, status, body)
}
