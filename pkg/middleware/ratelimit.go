package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"gearshed-backend/pkg/utils"
)

// ipLimiter tracks one token-bucket limiter per client address. Entries
// that have been idle longer than ipLimiterTTL are dropped on the next
// sweep so the map does not grow without bound.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	limit    rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const ipLimiterTTL = 10 * time.Minute

func newIPLimiter(perMinute int) *ipLimiter {
	l := &ipLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		stop:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

// close stops the sweep goroutine.
func (l *ipLimiter) close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (l *ipLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.sweepIdle(now)
		case <-l.stop:
			return
		}
	}
}

func (l *ipLimiter) sweepIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > ipLimiterTTL {
			delete(l.limiters, ip)
		}
	}
}

// RateLimitByIP limits each client address to perMinute requests per
// minute. Intended for the unauthenticated auth endpoints where
// credential stuffing is the concern.
func RateLimitByIP(perMinute int) func(http.Handler) http.Handler {
	limiter := newIPLimiter(perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientIP(r)) {
				utils.WriteErrorResponseWithCode(w, http.StatusTooManyRequests,
					"RATE_LIMITED", "Too many requests, slow down", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
