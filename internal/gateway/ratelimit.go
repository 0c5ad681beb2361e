package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter implements sliding-window rate limiting per client address.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string][]time.Time
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// allow reports whether another request from key fits the window.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	events := rl.clients[key]
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	events = events[i:]

	if len(events) >= rl.limit {
		rl.clients[key] = events
		return false
	}

	rl.clients[key] = append(events, now)

	// Opportunistically drop idle clients so the map stays bounded.
	if len(rl.clients) > 10_000 {
		for k, ev := range rl.clients {
			if len(ev) == 0 || ev[len(ev)-1].Before(cutoff) {
				delete(rl.clients, k)
			}
		}
	}
	return true
}

// rateLimitMiddleware rejects clients above the per-minute request limit
// with 429. A limit of zero disables the middleware.
func rateLimitMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(limit, time.Minute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !rl.allow(host) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
