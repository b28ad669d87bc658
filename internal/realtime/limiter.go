package realtime

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const rateWindow = time.Minute

type window struct {
	start time.Time
	count int
}

// rateLimiter is a fixed-window counter per user id, kept in a bounded LRU
// so the tracked set can never grow without limit. Entries expire with the
// window; evicting an active entry under pressure just resets that user's
// budget, which is acceptable.
type rateLimiter struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *window]
	limit  int
	period time.Duration
	now    func() time.Time
}

func newRateLimiter(size, limit int, period time.Duration) *rateLimiter {
	return &rateLimiter{
		cache:  expirable.NewLRU[string, *window](size, nil, period),
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Allow records one request for the user and reports whether it is within
// the per-window budget.
func (l *rateLimiter) Allow(userID string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.cache.Get(userID)
	if !ok || now.Sub(w.start) >= l.period {
		l.cache.Add(userID, &window{start: now, count: 1})
		return true
	}
	w.count++
	return w.count <= l.limit
}
