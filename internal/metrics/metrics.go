// Package metrics exposes the Prometheus instruments used across the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelf_api_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Fingerprint Metrics
	FingerprintRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_fingerprint_recomputes_total",
			Help: "Fingerprint recomputations by outcome",
		},
		[]string{"result"}, // "written", "unchanged", "error"
	)

	FingerprintRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelf_fingerprint_recompute_duration_seconds",
			Help:    "Duration of a fingerprint recompute including the book lock wait",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Similarity / Recommendation Metrics
	SimilarityQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_similarity_queries_total",
			Help: "Similarity lookups by strategy and outcome",
		},
		[]string{"strategy", "result"}, // strategy: "embedding", "fingerprint"; result: "ok", "insufficient_data", "error"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelf_recommendation_duration_seconds",
			Help:    "Duration of a full recommendation plan",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendedBooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_recommended_books_total",
			Help: "Books emitted by the recommendation planner per strategy",
		},
		[]string{"strategy"}, // "fingerprint", "popular"
	)

	// Embedding Service Metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_embedding_requests_total",
			Help: "Embedding requests by outcome",
		},
		[]string{"result"}, // "ok", "cache_hit", "error", "breaker_open", "disabled"
	)

	EmbeddingBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelf_embedding_breaker_state",
			Help: "Embedding circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordFingerprintRecompute records one recompute and its outcome.
func RecordFingerprintRecompute(written bool, duration time.Duration, err error) {
	FingerprintRecomputeDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		FingerprintRecomputes.WithLabelValues("error").Inc()
	case written:
		FingerprintRecomputes.WithLabelValues("written").Inc()
	default:
		FingerprintRecomputes.WithLabelValues("unchanged").Inc()
	}
}

// RecordSimilarity records a similarity lookup.
func RecordSimilarity(strategy, result string) {
	SimilarityQueries.WithLabelValues(strategy, result).Inc()
}

// RecordRecommendation records a finished plan and how many books each strategy contributed.
func RecordRecommendation(duration time.Duration, perStrategy map[string]int) {
	RecommendationDuration.Observe(duration.Seconds())
	for strategy, n := range perStrategy {
		RecommendedBooks.WithLabelValues(strategy).Add(float64(n))
	}
}

// RecordEmbedding records an embedding request outcome.
func RecordEmbedding(result string) {
	EmbeddingRequests.WithLabelValues(result).Inc()
}
