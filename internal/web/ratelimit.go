package web

// ratelimit.go implements a fixed-window per-IP rate limiter. Counters
// for past windows are pruned lazily on access, so memory stays bounded
// by the number of distinct client IPs seen in the current window.

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// requestWindow is the rate limiting window for API requests.
const requestWindow = time.Minute

// rateLimiter tracks request counts per client IP per time window.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	counts  map[string]int
	started time.Time
}

// newRateLimiter creates a limiter allowing limit requests per window per IP.
func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		counts:  make(map[string]int),
		started: time.Now(),
	}
}

// middleware enforces the limit, answering 429 when a client exceeds it.
func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", l.window.String())
			http.Error(w, `{"error":"rate limit exceeded","code":"RATE429"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow counts one request for ip and reports whether it is within limit.
func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.started) >= l.window {
		l.counts = make(map[string]int)
		l.started = now
	}

	l.counts[ip]++
	return l.counts[ip] <= l.limit
}

// clientIP extracts the client IP, ignoring the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
