package session

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Throttle counts failed login attempts per username across every session. Once
// a username reaches the maximum number of failures it is locked out until the
// window that started with the first failure expires.
type Throttle struct {
	max   int
	cache *cache.Cache
	mu    sync.Mutex
}

// NewThrottle returns a Throttle allowing max failures per window. A max of zero
// or less disables the throttle entirely.
func NewThrottle(max int, window time.Duration) *Throttle {
	if window <= 0 {
		window = time.Minute * 5
	}
	return &Throttle{
		max:   max,
		cache: cache.New(window, window*2),
	}
}

// Allowed reports whether another login attempt may be made for the username.
func (t *Throttle) Allowed(username string) bool {
	if t == nil || t.max <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.cache.Get(username); ok {
		return v.(int) < t.max
	}
	return true
}

// Fail records a failed attempt for the username and returns the number of
// failures within the current window.
func (t *Throttle) Fail(username string) int {
	if t == nil || t.max <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.cache.Add(username, 1, cache.DefaultExpiration); err == nil {
		return 1
	}
	n, err := t.cache.IncrementInt(username, 1)
	if err != nil {
		// The entry expired between the two calls.
		t.cache.Set(username, 1, cache.DefaultExpiration)
		return 1
	}
	return n
}

// Reset clears the failures recorded for a username.
func (t *Throttle) Reset(username string) {
	if t == nil {
		return
	}
	t.cache.Delete(username)
}
