package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatRateLimiter(t *testing.T) {
	rl := NewChatRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(1), "attempt %d inside the limit", i)
	}
	assert.False(t, rl.Allow(1), "fourth attempt is over the limit")

	// Other users have their own window.
	assert.True(t, rl.Allow(2))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow(1), "window expired")
}
