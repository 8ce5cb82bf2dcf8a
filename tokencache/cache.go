package tokencache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BaSui01/censorgate/types"
)

// DefaultSafetyMargin is subtracted from the upstream TTL so a token is
// never used right at its expiry edge (clock skew, in-flight requests).
const DefaultSafetyMargin = 5 * time.Minute

// RefreshFunc performs the upstream credential exchange. It returns the
// token and its upstream-reported lifetime.
type RefreshFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// Cache caches one provider's bearer token. The zero value is not usable;
// construct with New.
type Cache struct {
	refresh RefreshFunc
	margin  time.Duration
	logger  *zap.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
	now   func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithSafetyMargin overrides the expiry safety margin.
func WithSafetyMargin(margin time.Duration) Option {
	return func(c *Cache) { c.margin = margin }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a token cache around the given refresh function.
func New(refresh RefreshFunc, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		refresh: refresh,
		margin:  DefaultSafetyMargin,
		logger:  logger.With(zap.String("component", "token_cache")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a valid token, refreshing it if needed. Concurrent callers
// during a refresh share one upstream exchange; a failed refresh is not
// cached, so the next caller retries independently.
func (c *Cache) Get(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		// Double check: a concurrent refresher may have finished between
		// the fast-path read and joining the flight.
		if tok, ok := c.cached(); ok {
			return tok, nil
		}

		tok, ttl, err := c.refresh(ctx)
		if err != nil {
			c.logger.Warn("token refresh failed", zap.Error(err))
			if types.GetErrorCode(err) != "" {
				return "", err
			}
			return "", types.NewAuthError("token refresh failed").WithCause(err)
		}

		margin := c.margin
		if margin >= ttl {
			// Keep at least half the lifetime usable for very short TTLs.
			margin = ttl / 2
		}
		c.mu.Lock()
		c.token = tok
		c.expiresAt = c.now().Add(ttl - margin)
		c.mu.Unlock()

		c.logger.Debug("token refreshed", zap.Duration("ttl", ttl))
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, forcing a refresh on the next Get.
// Used when the upstream rejects a token before its computed expiry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}
