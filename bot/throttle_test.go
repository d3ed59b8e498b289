package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandLimiter_BurstPerUser(t *testing.T) {
	limiter := NewCommandLimiter(1, 2, nil)

	assert.True(t, limiter.Allow(1, "roll"))
	assert.True(t, limiter.Allow(1, "roll"))
	assert.False(t, limiter.Allow(1, "roll"))

	// other users have their own bucket
	assert.True(t, limiter.Allow(2, "roll"))
}

func TestCommandLimiter_Disabled(t *testing.T) {
	limiter := NewCommandLimiter(0, 0, nil)

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(1, "balance"))
	}
}
