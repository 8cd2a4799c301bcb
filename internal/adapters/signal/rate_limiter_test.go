package signal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Meet/internal/adapters/signal"
)

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := signal.NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"))
	}
	assert.False(t, rl.Allow("a"))

	// Other participants have their own window.
	assert.True(t, rl.Allow("b"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := signal.NewRateLimiter(2, 50*time.Millisecond)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("a"))
}
