package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ServiceName = "acidbackend"
)

var (
	PatternOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "pattern", "operations_total"),
		Help: "Pattern operations by operation and result",
	}, []string{"op", "result"})
	PatternValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "pattern", "validation_failures_total"),
		Help: "Pattern submissions rejected by validation",
	})
	PatternStoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prometheus.BuildFQName(ServiceName, "pattern", "store_duration_seconds"),
		Help:    "Duration of pattern store operations in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"op"})
	PatternEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(ServiceName, "pattern", "events_published_total"),
		Help: "Pattern lifecycle events handed to JetStream by type and result",
	}, []string{"type", "result"})
)
