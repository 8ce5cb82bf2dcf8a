package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/types"
)

// ErrCacheMiss is returned when no unexpired entry exists for a fingerprint.
var ErrCacheMiss = errors.New("cache miss")

const defaultSweepInterval = time.Minute

type entry struct {
	result    *types.CensorResult
	expiresAt time.Time
}

// Config configures a ResultCache.
type Config struct {
	// TTL bounds how long a verdict stays visible.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
	// Prefix namespaces Redis keys.
	Prefix string `yaml:"prefix" json:"prefix"`
	// SweepInterval controls background eviction of expired local entries.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// DefaultConfig returns cache defaults: five-minute verdicts.
func DefaultConfig() Config {
	return Config{
		TTL:           5 * time.Minute,
		Prefix:        "censorgate:result:",
		SweepInterval: defaultSweepInterval,
	}
}

// ResultCache maps content fingerprints to verdicts. The in-process level is
// authoritative; when a Redis client is supplied, entries are written through
// and read back on local misses so multiple gateway instances share verdicts.
type ResultCache struct {
	cfg    Config
	rdb    *redis.Client
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]entry

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewResultCache creates a result cache. rdb may be nil for a purely local
// cache.
func NewResultCache(rdb *redis.Client, cfg Config, logger *zap.Logger) *ResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	c := &ResultCache{
		cfg:     cfg,
		rdb:     rdb,
		logger:  logger.With(zap.String("component", "result_cache")),
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Lookup returns the cached verdict for a fingerprint, or ErrCacheMiss.
// Expired entries are treated as absent and evicted on read.
func (c *ResultCache) Lookup(ctx context.Context, fingerprint string) (*types.CensorResult, error) {
	c.mu.Lock()
	if e, ok := c.entries[fingerprint]; ok {
		if c.now().Before(e.expiresAt) {
			c.mu.Unlock()
			return e.result, nil
		}
		delete(c.entries, fingerprint)
	}
	c.mu.Unlock()

	if c.rdb == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.rdb.Get(ctx, c.cfg.Prefix+fingerprint).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.Error(err))
		}
		return nil, ErrCacheMiss
	}

	var res types.CensorResult
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("corrupt cache entry dropped", zap.Error(err))
		return nil, ErrCacheMiss
	}

	// Backfill the local level for the remaining lifetime.
	if ttl, err := c.rdb.TTL(ctx, c.cfg.Prefix+fingerprint).Result(); err == nil && ttl > 0 {
		c.mu.Lock()
		c.entries[fingerprint] = entry{result: &res, expiresAt: c.now().Add(ttl)}
		c.mu.Unlock()
	}
	return &res, nil
}

// Store inserts or overwrites a verdict with a fresh expiry.
func (c *ResultCache) Store(ctx context.Context, fingerprint string, result *types.CensorResult) {
	c.mu.Lock()
	c.entries[fingerprint] = entry{result: result, expiresAt: c.now().Add(c.cfg.TTL)}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("marshal cache entry failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.cfg.Prefix+fingerprint, data, c.cfg.TTL).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}

// Len returns the number of local entries, expired or not. For tests and
// metrics.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweeper.
func (c *ResultCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *ResultCache) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *ResultCache) sweep() {
	now := c.now()
	c.mu.Lock()
	for fp, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, fp)
		}
	}
	c.mu.Unlock()
}
