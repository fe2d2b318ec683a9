package signal

import (
	"sync"
	"time"
)

// ChatRateLimiter caps how many chat messages a user may broadcast inside a
// sliding window. Signaling traffic (offers, answers, candidates) is never
// limited.
type ChatRateLimiter struct {
	mu       sync.Mutex
	history  map[uint][]time.Time
	limit    int
	interval time.Duration
}

func NewChatRateLimiter(limit int, interval time.Duration) *ChatRateLimiter {
	return &ChatRateLimiter{
		history:  make(map[uint][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *ChatRateLimiter) Allow(userID uint) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[userID]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[userID] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[userID] = fresh
	return true
}
