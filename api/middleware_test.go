package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPrincipalLimiter_SweepEvictsIdleBuckets(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: testNow}
	limiter := newPrincipalLimiter(6)
	limiter.now = clock.Now

	assert.True(t, limiter.allow(1))
	clock.Advance(30 * time.Second)
	assert.True(t, limiter.allow(2))
	require.Equal(t, 2, limiter.size())

	// Principal 1 has been idle for a full refill window, principal 2 has not
	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, limiter.sweep())
	assert.Equal(t, 1, limiter.size())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, limiter.sweep())
	assert.Zero(t, limiter.size())
}

func TestPrincipalLimiter_SweepKeepsActiveBuckets(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: testNow}
	limiter := newPrincipalLimiter(1)
	limiter.now = clock.Now

	require.True(t, limiter.allow(7))
	require.False(t, limiter.allow(7))

	clock.Advance(10 * time.Second)
	assert.Zero(t, limiter.sweep())

	// A surviving bucket keeps its spent budget
	assert.False(t, limiter.allow(7))
}

func TestPrincipalLimiter_RunSweeperStopsWithContext(t *testing.T) {
	t.Parallel()

	limiter := newPrincipalLimiter(60)
	limiter.now = func() time.Time { return testNow }
	limiter.allow(1)
	limiter.now = func() time.Time { return testNow.Add(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.runSweeper(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.size() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestPrincipalLimiter_NilRunSweeperWaitsForContext(t *testing.T) {
	t.Parallel()

	var limiter *principalLimiter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	limiter.runSweeper(ctx, time.Millisecond)
}
