package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// LocationLimiter throttles non-emergency location updates per user.
// Emergency updates never consult the limiter.
type LocationLimiter interface {
	Allow(userID string) bool
}

// RateLimiter is a per-user token bucket.
type RateLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	users map[string]*rate.Limiter
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		users: make(map[string]*rate.Limiter),
	}
}

func (l *RateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	limiter, ok := l.users[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.users[userID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
