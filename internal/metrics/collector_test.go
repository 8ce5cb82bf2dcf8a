package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("censorgate", reg, zap.NewNop())

	c.RecordSubmission("text", "pass")
	c.RecordSubmission("text", "pass")
	c.RecordSubmission("image", "block")
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCoalesced()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.submissionsTotal.WithLabelValues("text", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissionsTotal.WithLabelValues("image", "block")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.coalescedTotal))
}

func TestCollector_ProviderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("censorgate", reg, zap.NewNop())

	c.RecordProviderCall("baidu", 120*time.Millisecond, "")
	c.RecordProviderCall("baidu", 80*time.Millisecond, "RATE_LIMITED")
	c.SetProviderInterval("baidu", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.providerRequests.WithLabelValues("baidu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerErrors.WithLabelValues("baidu", "RATE_LIMITED")))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.providerInterval.WithLabelValues("baidu")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors must be able to coexist in one process (tests, multi
	// instance embedding) when given separate registries.
	a := NewCollector("censorgate", prometheus.NewRegistry(), nil)
	b := NewCollector("censorgate", prometheus.NewRegistry(), nil)
	a.RecordCacheHit()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.cacheHits))
}
