package signoff

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle limits failed PIN attempts per PNO. Each failure consumes a token; a person with
// no tokens left is blocked until the bucket refills.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewThrottle allows maxFailures consecutive failures, then one more attempt per refill.
func NewThrottle(maxFailures int, refill time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(refill),
		burst:    maxFailures,
	}
}

func (t *Throttle) limiter(pno string) *rate.Limiter {
	key := strings.ToUpper(pno)

	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = l
	}

	return l
}

// Blocked reports whether pno has exhausted its failed attempts at now.
func (t *Throttle) Blocked(pno string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.limiter(pno).TokensAt(now) < 1
}

// Fail records a failed attempt for pno.
func (t *Throttle) Fail(pno string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.limiter(pno).AllowN(now, 1)
}

// Reset forgets the failures of pno after a successful attempt.
func (t *Throttle) Reset(pno string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.limiters, strings.ToUpper(pno))
}
