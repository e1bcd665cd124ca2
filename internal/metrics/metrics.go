package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cpcoach_recommendations_total",
		Help: "Recommendation cycles by outcome.",
	}, []string{"fallback", "empty"})

	FeedbackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cpcoach_feedback_events_total",
		Help: "Solve and skip events processed.",
	}, []string{"kind", "auto_solved"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cpcoach_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	RatingSourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cpcoach_ratingsource_requests_total",
		Help: "Calls to the rating source API.",
	}, []string{"method", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cpcoach_cache_hits_total",
		Help: "Cache lookups by cache and hit/miss.",
	}, []string{"cache", "result"})

	CatalogProblems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cpcoach_catalog_problems",
		Help: "Problems in the current catalog snapshot.",
	})
)

func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
