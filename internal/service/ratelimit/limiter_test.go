package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBackoffDoublesAndResets(t *testing.T) {
	l := NewLimiter("coingecko", 30)
	assert.Equal(t, baseBackoff, l.Backoff())

	l.SignalRateLimited(0)
	assert.Equal(t, 2*baseBackoff, l.Backoff())
	l.SignalRateLimited(0)
	assert.Equal(t, 4*baseBackoff, l.Backoff())

	l.ResetBackoff()
	assert.Equal(t, baseBackoff, l.Backoff())
}

func TestLimiterPauseBlocksAllow(t *testing.T) {
	l := NewLimiter("feargreed", 600)
	require.True(t, l.Allow())

	l.SignalRateLimited(time.Hour)
	assert.False(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestKeyedIsolatesKeys(t *testing.T) {
	k := NewKeyed(1, 2, time.Minute)
	assert.True(t, k.Allow("a"))
	assert.True(t, k.Allow("a"))
	assert.False(t, k.Allow("a"))
	assert.True(t, k.Allow("b"))
}
