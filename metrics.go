package blobpath

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for backend calls and the local
// cache. A nil *Metrics disables collection.
type Metrics struct {
	BackendOpsTotal   *prometheus.CounterVec
	BackendOpDuration *prometheus.HistogramVec
	CacheLookupsTotal *prometheus.CounterVec
	CacheBytesTotal   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BackendOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobpath_backend_ops_total",
				Help: "Total number of backend operations",
			},
			[]string{"scheme", "operation", "result"},
		),
		BackendOpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blobpath_backend_op_duration_seconds",
				Help:    "Backend operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scheme", "operation"},
		),
		CacheLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blobpath_cache_lookups_total",
				Help: "Local cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		CacheBytesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "blobpath_cache_downloaded_bytes_total",
				Help: "Bytes downloaded into the local cache",
			},
		),
	}
}

func (m *Metrics) cacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) cacheBytes(n int64) {
	if m == nil {
		return
	}
	m.CacheBytesTotal.Add(float64(n))
}
