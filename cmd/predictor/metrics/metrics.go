// Package metrics provides Prometheus instrumentation for the predictor.
//
// Metrics exposed:
//   - carvalue_gateway_predict_seconds: Histogram of model gateway call duration
//   - carvalue_pipeline_seconds: Histogram of pipeline duration by operation
//   - carvalue_cache_hits_total: Counter of prediction cache hits
//   - carvalue_cache_misses_total: Counter of prediction cache misses
//   - carvalue_errors_total: Counter of errors by stage and reason
//
// All metrics carry the model version as a constant label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor.
type Metrics struct {
	GatewayPredictSeconds prometheus.Histogram
	PipelineSeconds       *prometheus.HistogramVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	ErrorsTotal           *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(modelVersion string) *Metrics {
	constLabels := prometheus.Labels{"model_version": modelVersion}

	return &Metrics{
		GatewayPredictSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "carvalue_gateway_predict_seconds",
			Help:        "Time spent calling the model gateway",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		PipelineSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "carvalue_pipeline_seconds",
			Help:        "Time spent running an estimation pipeline operation",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "carvalue_cache_hits_total",
			Help:        "Total prediction cache hits",
			ConstLabels: constLabels,
		}),

		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "carvalue_cache_misses_total",
			Help:        "Total prediction cache misses",
			ConstLabels: constLabels,
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "carvalue_errors_total",
			Help:        "Total number of errors by stage and reason",
			ConstLabels: constLabels,
		}, []string{"stage", "reason"}),
	}
}

// RecordGatewayPredict records the duration of one gateway call.
func (m *Metrics) RecordGatewayPredict(seconds float64) {
	m.GatewayPredictSeconds.Observe(seconds)
}

// RecordPipeline records the duration of one pipeline operation.
func (m *Metrics) RecordPipeline(operation string, seconds float64) {
	m.PipelineSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(stage, reason string) {
	m.ErrorsTotal.WithLabelValues(stage, reason).Inc()
}
