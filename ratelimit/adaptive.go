package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config configures an AdaptiveLimiter.
type Config struct {
	// Floor is the minimum inter-request interval the limiter never goes
	// below. Must be > 0.
	Floor time.Duration `yaml:"floor" json:"floor"`
	// Ceiling caps interval growth under sustained throttling.
	Ceiling time.Duration `yaml:"ceiling" json:"ceiling"`
	// Growth multiplies the interval on a throttling response.
	Growth float64 `yaml:"growth" json:"growth"`
	// Shrink multiplies the interval on a successful response.
	Shrink float64 `yaml:"shrink" json:"shrink"`
}

// DefaultConfig returns a limiter config suitable for most moderation APIs:
// one request per second at rest, up to five seconds apart under pressure.
func DefaultConfig() Config {
	return Config{
		Floor:   time.Second,
		Ceiling: 5 * time.Second,
		Growth:  1.5,
		Shrink:  0.9,
	}
}

func (c Config) normalized() Config {
	if c.Floor <= 0 {
		c.Floor = time.Second
	}
	if c.Ceiling < c.Floor {
		c.Ceiling = 5 * c.Floor
	}
	if c.Growth <= 1.0 {
		c.Growth = 1.5
	}
	if c.Shrink <= 0 || c.Shrink >= 1.0 {
		c.Shrink = 0.9
	}
	return c
}

// AdaptiveLimiter enforces a minimum spacing between requests to one
// upstream provider. It is a shared gate: the spacing holds across all
// callers regardless of which submission triggered the request.
type AdaptiveLimiter struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	minInterval time.Duration
	lastRequest time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAdaptiveLimiter creates a limiter starting at the configured floor.
func NewAdaptiveLimiter(cfg Config, logger *zap.Logger) *AdaptiveLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalized()
	return &AdaptiveLimiter{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "adaptive_limiter")),
		minInterval: cfg.Floor,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait blocks until the caller may issue the next request, then stamps the
// issuance time. Returns the context error if ctx is canceled while waiting;
// in that case no slot is consumed.
func (l *AdaptiveLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	prev := l.lastRequest
	var wait time.Duration
	if !prev.IsZero() {
		if elapsed := now.Sub(prev); elapsed < l.minInterval {
			wait = l.minInterval - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent callers space out
	// instead of all waking at the same instant.
	reserved := now.Add(wait)
	l.lastRequest = reserved
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if err := l.sleep(ctx, wait); err != nil {
		// A canceled wait issues no request; release the reservation so it
		// cannot push later callers out. A later caller may already have
		// reserved past ours, in which case its stamp stands.
		l.mu.Lock()
		if l.lastRequest.Equal(reserved) {
			l.lastRequest = prev
		}
		l.mu.Unlock()
		return err
	}
	return nil
}

// Throttled reports upstream throttling: the interval grows multiplicatively
// up to the ceiling.
func (l *AdaptiveLimiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()

	grown := time.Duration(float64(l.minInterval) * l.cfg.Growth)
	if grown > l.cfg.Ceiling {
		grown = l.cfg.Ceiling
	}
	if grown != l.minInterval {
		l.logger.Debug("interval grown after throttle",
			zap.Duration("from", l.minInterval),
			zap.Duration("to", grown),
		)
	}
	l.minInterval = grown
}

// Succeeded reports a successful upstream call: the interval decays back
// toward the floor.
func (l *AdaptiveLimiter) Succeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()

	shrunk := time.Duration(float64(l.minInterval) * l.cfg.Shrink)
	if shrunk < l.cfg.Floor {
		shrunk = l.cfg.Floor
	}
	l.minInterval = shrunk
}

// MinInterval returns the current spacing. Exposed for metrics and tests.
func (l *AdaptiveLimiter) MinInterval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minInterval
}
