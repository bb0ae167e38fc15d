// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out a token bucket per key (usually a client IP).
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    rate.Limit
	burst   int
	idle    time.Duration // entries unused this long are dropped
	now     func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing `limit` requests per `per`, with bursts of
// up to `limit`.
func New(limit int, per time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		entries: make(map[string]*entry),
		rate:    rate.Every(per / time.Duration(limit)),
		burst:   limit,
		idle:    per * 2,
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.sweepLocked(now)
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Reset forgets the bucket for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// sweepLocked drops idle entries. Callers hold l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if len(l.entries) < 1024 {
		return
	}
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.entries, k)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			writeTooMany(w, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeTooMany(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "rate_limited", "message": msg},
	})
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter limits login attempts both per client IP and per account
// identifier (username or email).
type LoginLimiter struct {
	ipLimiter      *Limiter
	accountLimiter *Limiter
}

// NewLoginLimiter allows perMinute attempts per IP per minute and half that
// (at least 1) per account over five minutes.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	acct := perMinute / 2
	if acct < 1 {
		acct = 1
	}
	return &LoginLimiter{
		ipLimiter:      New(perMinute, time.Minute),
		accountLimiter: New(acct, 5*time.Minute),
	}
}

// Check reports whether a login attempt should be allowed, and a message
// for the caller when it is not.
func (ll *LoginLimiter) Check(r *http.Request, login string) (bool, string) {
	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if key := strings.ToLower(strings.TrimSpace(login)); key != "" {
		if !ll.accountLimiter.Allow(key) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetAccount clears the per-account bucket after a successful login.
func (ll *LoginLimiter) ResetAccount(login string) {
	if key := strings.ToLower(strings.TrimSpace(login)); key != "" {
		ll.accountLimiter.Reset(key)
	}
}

// WriteLimited writes the standard 429 response.
func WriteLimited(w http.ResponseWriter, msg string) {
	writeTooMany(w, msg)
}
