package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/types"
)

func testResult(content string, risk types.RiskLevel, reasons ...string) *types.CensorResult {
	return types.NewCensorResult(types.NewMessage(content, "test"), risk, reasons, nil)
}

func TestResultCache_LocalHitAndExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewResultCache(nil, Config{TTL: 5 * time.Minute}, zap.NewNop())
	defer c.Close()
	c.now = func() time.Time { return now }

	fp := types.Fingerprint(types.ContentTypeText, "hello")
	res := testResult("hello", types.RiskPass)
	c.Store(context.Background(), fp, res)

	got, err := c.Lookup(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	// Entry is logically absent once expired, and read evicts it.
	now = now.Add(5*time.Minute + time.Second)
	_, err = c.Lookup(context.Background(), fp)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_MissOnUnknown(t *testing.T) {
	c := NewResultCache(nil, DefaultConfig(), zap.NewNop())
	defer c.Close()
	_, err := c.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_StoreOverwrites(t *testing.T) {
	c := NewResultCache(nil, DefaultConfig(), zap.NewNop())
	defer c.Close()

	fp := "fp"
	c.Store(context.Background(), fp, testResult("a", types.RiskPass))
	c.Store(context.Background(), fp, testResult("a", types.RiskBlock, "term1"))

	got, err := c.Lookup(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, types.RiskBlock, got.Risk)
	assert.Equal(t, []string{"term1"}, got.Reasons)
}

func TestResultCache_RedisWriteThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := Config{TTL: 5 * time.Minute, Prefix: "censorgate:result:"}
	writer := NewResultCache(rdb, cfg, zap.NewNop())
	defer writer.Close()
	reader := NewResultCache(rdb, cfg, zap.NewNop())
	defer reader.Close()

	fp := types.Fingerprint(types.ContentTypeText, "shared")
	res := testResult("shared", types.RiskReview, "needs human")
	writer.Store(context.Background(), fp, res)

	// A second instance with a cold local level reads it back from Redis.
	got, err := reader.Lookup(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, types.RiskReview, got.Risk)
	assert.Equal(t, []string{"needs human"}, got.Reasons)

	// Redis expiry makes the entry absent.
	mr.FastForward(6 * time.Minute)
	cold := NewResultCache(rdb, cfg, zap.NewNop())
	defer cold.Close()
	_, err = cold.Lookup(context.Background(), fp)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_Sweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewResultCache(nil, Config{TTL: time.Minute}, zap.NewNop())
	defer c.Close()
	c.now = func() time.Time { return now }

	c.Store(context.Background(), "a", testResult("a", types.RiskPass))
	c.Store(context.Background(), "b", testResult("b", types.RiskPass))
	now = now.Add(2 * time.Minute)
	c.sweep()
	assert.Equal(t, 0, c.Len())
}
