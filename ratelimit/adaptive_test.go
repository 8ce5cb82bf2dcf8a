package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// fakeClock drives the limiter deterministically: sleep advances time
// instead of blocking.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

func newTestLimiter(t *testing.T, cfg Config) (*AdaptiveLimiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	l := NewAdaptiveLimiter(cfg, zap.NewNop())
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestWait_EnforcesMinInterval(t *testing.T) {
	l, clock := newTestLimiter(t, Config{Floor: time.Second, Ceiling: 5 * time.Second})

	var stamps []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Wait(context.Background()))
		stamps = append(stamps, clock.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, time.Second,
			"calls %d and %d issued %v apart, below min interval", i-1, i, gap)
	}
}

func TestWait_FirstCallDoesNotBlock(t *testing.T) {
	l, clock := newTestLimiter(t, DefaultConfig())
	start := clock.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Equal(t, start, clock.Now(), "first call should not wait")
}

func TestWait_CanceledContext(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultConfig())
	l.sleep = sleepCtx // real ctx-aware sleep

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWait_CanceledWaiterReleasesSlot(t *testing.T) {
	l, clock := newTestLimiter(t, Config{Floor: time.Second, Ceiling: 5 * time.Second})

	require.NoError(t, l.Wait(context.Background()))

	// Canceled waiters reserve a slot before sleeping; that reservation must
	// not survive the cancellation, or canceled calls stack up and push real
	// callers out indefinitely.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	l.sleep = sleepCtx
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, l.Wait(canceled), context.Canceled)
	}
	l.sleep = clock.Sleep

	start := clock.Now()
	require.NoError(t, l.Wait(context.Background()))
	gap := clock.Now().Sub(start)
	assert.LessOrEqual(t, gap, time.Second,
		"next caller waited %v against a %v min interval", gap, time.Second)
}

func TestThrottled_GrowsUpToCeiling(t *testing.T) {
	cfg := Config{Floor: time.Second, Ceiling: 5 * time.Second, Growth: 1.5, Shrink: 0.9}
	l, _ := newTestLimiter(t, cfg)

	prev := l.MinInterval()
	for i := 0; i < 20; i++ {
		l.Throttled()
		cur := l.MinInterval()
		assert.LessOrEqual(t, cur, cfg.Ceiling)
		if prev < cfg.Ceiling {
			assert.Greater(t, cur, prev, "interval must strictly grow below the ceiling")
		}
		prev = cur
	}
	assert.Equal(t, cfg.Ceiling, l.MinInterval())
}

func TestSucceeded_ShrinksDownToFloor(t *testing.T) {
	cfg := Config{Floor: time.Second, Ceiling: 5 * time.Second, Growth: 1.5, Shrink: 0.9}
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 10; i++ {
		l.Throttled()
	}
	for i := 0; i < 100; i++ {
		l.Succeeded()
		assert.GreaterOrEqual(t, l.MinInterval(), cfg.Floor)
	}
	assert.Equal(t, cfg.Floor, l.MinInterval())
}

// Property: under any sequence of throttle/success feedback the interval
// stays within [floor, ceiling].
func TestAdaptiveLimiter_BoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := Config{Floor: time.Second, Ceiling: 5 * time.Second, Growth: 1.5, Shrink: 0.9}
		l := NewAdaptiveLimiter(cfg, zap.NewNop())

		events := rapid.SliceOfN(rapid.Bool(), 1, 200).Draw(t, "events")
		for _, throttle := range events {
			if throttle {
				l.Throttled()
			} else {
				l.Succeeded()
			}
			got := l.MinInterval()
			if got < cfg.Floor || got > cfg.Ceiling {
				t.Fatalf("interval %v out of [%v, %v]", got, cfg.Floor, cfg.Ceiling)
			}
		}
	})
}

func TestConfig_Normalization(t *testing.T) {
	l := NewAdaptiveLimiter(Config{}, nil)
	assert.Equal(t, time.Second, l.MinInterval())
	assert.Equal(t, 5*time.Second, l.cfg.Ceiling)
}
