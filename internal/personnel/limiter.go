package personnel

import (
	"sync"

	"golang.org/x/time/rate"
)

// loginLimiter keeps one token bucket per account id.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func newLoginLimiter(r rate.Limit, b int) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		b:        b,
	}
}

func (l *loginLimiter) allow(id string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[id]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[id] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// reset drops the bucket after a successful login.
func (l *loginLimiter) reset(id string) {
	l.mu.Lock()
	delete(l.limiters, id)
	l.mu.Unlock()
}
