package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the verification pipeline.
//
// All metrics are prefixed with "corroborate_":
//   - corroborate_upstream_attempts_total{upstream,outcome}
//   - corroborate_upstream_failures_total{upstream,reason}
//   - corroborate_upstream_attempt_duration_seconds{upstream}
//   - corroborate_quota_rejections_total{account}
//   - corroborate_adapter_fallbacks_total{adapter,reason}
//   - corroborate_dataset_cache_total{result}
//   - corroborate_verifications_total{verified}
//   - corroborate_verification_duration_seconds
//   - corroborate_verification_confidence
type Metrics struct {
	UpstreamAttempts    *prometheus.CounterVec
	UpstreamFailures    *prometheus.CounterVec
	UpstreamDuration    *prometheus.HistogramVec
	QuotaRejections     *prometheus.CounterVec
	AdapterFallbacks    *prometheus.CounterVec
	DatasetCache        *prometheus.CounterVec
	Verifications       *prometheus.CounterVec
	VerificationSeconds prometheus.Histogram
	Confidence          prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		UpstreamAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_upstream_attempts_total",
				Help: "Outbound request attempts by upstream and outcome",
			},
			[]string{"upstream", "outcome"}, // "ok" or a failure reason
		),
		UpstreamFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_upstream_failures_total",
				Help: "Calls that failed after exhausting retries, by reason",
			},
			[]string{"upstream", "reason"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corroborate_upstream_attempt_duration_seconds",
				Help:    "Duration of single outbound attempts",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 45},
			},
			[]string{"upstream"},
		),
		QuotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_quota_rejections_total",
				Help: "Calls refused locally because the account quota was exhausted",
			},
			[]string{"account"},
		),
		AdapterFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_adapter_fallbacks_total",
				Help: "Datasets replaced by archetype fallback data",
			},
			[]string{"adapter", "reason"},
		),
		DatasetCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_dataset_cache_total",
				Help: "Dataset cache lookups by result",
			},
			[]string{"result"}, // "hit" or "miss"
		),
		Verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corroborate_verifications_total",
				Help: "Completed story verifications",
			},
			[]string{"verified"},
		),
		VerificationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corroborate_verification_duration_seconds",
				Help:    "Wall-clock time of one story verification",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
		),
		Confidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corroborate_verification_confidence",
				Help:    "Aggregated confidence of verified stories",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}
}
