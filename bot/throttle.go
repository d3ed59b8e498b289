package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dicewager/metrics"
)

// CommandLimiter throttles slash commands per user
type CommandLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
	metrics  *metrics.Engine
}

// NewCommandLimiter allows perMinute commands per user with the given burst.
// A non-positive rate disables throttling.
func NewCommandLimiter(perMinute float64, burst int, m *metrics.Engine) *CommandLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Duration(float64(time.Minute) / perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &CommandLimiter{
		limiters: make(map[int64]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		metrics:  m,
	}
}

// Allow reports whether userID may run command now
func (l *CommandLimiter) Allow(userID int64, command string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()

	if limiter.Allow() {
		return true
	}
	l.metrics.CommandThrottled(command)
	return false
}
