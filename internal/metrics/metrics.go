// Package metrics holds the Prometheus instruments shared by the playback
// components.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ManifestsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "godash_manifests_built_total",
		Help: "Number of DASH manifests synthesized",
	})

	// StreamsDropped counts streams that passed filtering but were excluded
	// because a required field was missing.
	StreamsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godash_streams_dropped_total",
		Help: "Streams excluded from a manifest by kind and reason",
	}, []string{"kind", "reason"})

	SegmentSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godash_segment_skips_total",
		Help: "Segment skips by category and mode",
	}, []string{"category", "mode"})

	QueuePageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "godash_queue_page_fetches_total",
		Help: "Queue continuation page fetches by source kind and result",
	}, []string{"source", "result"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "godash_api_request_duration_seconds",
		Help:    "Backend API request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint", "status"})
)

func ObserveStreamDropped(kind, reason string) {
	StreamsDropped.WithLabelValues(kind, reason).Inc()
}

func ObserveSegmentSkip(category, mode string) {
	SegmentSkips.WithLabelValues(category, mode).Inc()
}

func ObserveQueuePageFetch(source, result string) {
	QueuePageFetches.WithLabelValues(source, result).Inc()
}

// ObserveAPIRequest records one backend request. A zero status means the
// request failed before a response arrived.
func ObserveAPIRequest(endpoint string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestDuration.WithLabelValues(endpoint, label).Observe(d.Seconds())
}
