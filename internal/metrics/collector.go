// Package metrics provides internal metrics collection for the gateway.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the gateway's Prometheus metrics.
type Collector struct {
	submissionsTotal *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	coalescedTotal   prometheus.Counter

	providerRequests *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerInterval *prometheus.GaugeVec

	auditWrites  prometheus.Counter
	auditSkipped prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a collector registered on reg (the default registerer
// when nil).
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)

	return &Collector{
		submissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of moderation submissions",
		}, []string{"content_type", "risk"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Verdicts served from the result cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_misses_total",
			Help:      "Submissions that required upstream evaluation",
		}),
		coalescedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_submissions_total",
			Help:      "Duplicate submissions short-circuited while in flight",
		}),
		providerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Upstream provider calls",
		}, []string{"provider"}),
		providerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Upstream provider failures by error code",
		}, []string{"provider", "code"}),
		providerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		providerInterval: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_min_interval_seconds",
			Help:      "Current adaptive minimum inter-request interval",
		}, []string{"provider"}),
		auditWrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_total",
			Help:      "Audit records written",
		}),
		auditSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_skipped_total",
			Help:      "Audit writes skipped by the dedup window",
		}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// RecordSubmission counts one completed submission.
func (c *Collector) RecordSubmission(contentType, risk string) {
	c.submissionsTotal.WithLabelValues(contentType, risk).Inc()
}

// RecordCacheHit counts a verdict served from cache.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss counts a submission that went upstream.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }

// RecordCoalesced counts a duplicate short-circuited while in flight.
func (c *Collector) RecordCoalesced() { c.coalescedTotal.Inc() }

// RecordProviderCall records one upstream call and its outcome.
func (c *Collector) RecordProviderCall(provider string, duration time.Duration, errCode string) {
	c.providerRequests.WithLabelValues(provider).Inc()
	c.providerDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if errCode != "" {
		c.providerErrors.WithLabelValues(provider, errCode).Inc()
	}
}

// SetProviderInterval exports the adapter's current adaptive spacing.
func (c *Collector) SetProviderInterval(provider string, interval time.Duration) {
	c.providerInterval.WithLabelValues(provider).Set(interval.Seconds())
}

// RecordAuditWrite counts an audit record written.
func (c *Collector) RecordAuditWrite() { c.auditWrites.Inc() }

// RecordAuditSkipped counts an audit write suppressed by the dedup window.
func (c *Collector) RecordAuditSkipped() { c.auditSkipped.Inc() }
