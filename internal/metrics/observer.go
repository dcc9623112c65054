// Package metrics records paste pipeline telemetry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for pipeline stages.
type Observer interface {
	RecordPaste(branch, outcome string)
	RecordConversion(duration time.Duration, err error)
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
	RecordCleanupFailure()
}

type nopObserver struct{}

func (nopObserver) RecordPaste(string, string)               {}
func (nopObserver) RecordConversion(time.Duration, error)    {}
func (nopObserver) RecordUpload(time.Duration, int64, error) {}
func (nopObserver) RecordCleanupFailure()                    {}

// Nop returns an Observer that discards everything.
func Nop() Observer {
	return nopObserver{}
}

// PrometheusObserver exports pipeline metrics to Prometheus.
type PrometheusObserver struct {
	pastes          *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	cleanupFailures prometheus.Counter
}

// NewPrometheusObserver registers the pipeline metrics with reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "imgpaste"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		pastes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pastes_total",
			Help:      "Handled paste events by branch and outcome.",
		}, []string{"branch", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of conversion and upload stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Count of conversion and upload failures.",
		}, []string{"stage"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative size of successfully uploaded images.",
		}),
		cleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Temporary files that could not be removed.",
		}),
	}

	collectors := []prometheus.Collector{o.pastes, o.stageDuration, o.stageErrors, o.uploadBytes, o.cleanupFailures}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pipeline metric: %w", err)
		}
	}
	return o, nil
}

// RecordPaste counts one handled paste.
func (o *PrometheusObserver) RecordPaste(branch, outcome string) {
	if o == nil {
		return
	}
	o.pastes.WithLabelValues(branch, outcome).Inc()
}

// RecordConversion tracks WebP conversion latency and failures.
func (o *PrometheusObserver) RecordConversion(duration time.Duration, err error) {
	o.recordStage("convert", duration, err)
}

// RecordUpload tracks upload latency, size and failures.
func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.recordStage("upload", duration, err)
	if err == nil && sizeBytes > 0 {
		o.uploadBytes.Add(float64(sizeBytes))
	}
}

// RecordCleanupFailure counts a temporary file left behind.
func (o *PrometheusObserver) RecordCleanupFailure() {
	if o == nil {
		return
	}
	o.cleanupFailures.Inc()
}

func (o *PrometheusObserver) recordStage(stage string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		o.stageErrors.WithLabelValues(stage).Inc()
	}
}
