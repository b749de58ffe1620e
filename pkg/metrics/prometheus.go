// Package metrics provides Prometheus metrics for the coach recommendation service.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// defaultLatencyBuckets are in milliseconds; feature builds and linear scoring
// sit well under one, remote scoring and HTTP calls reach into seconds.
var defaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout

// Breaker states reported by UpdateScorerBreakerState.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Manager manages all Prometheus metrics for the recommendation service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets   []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Recommendation pipeline
	recommendations     *prometheus.CounterVec
	candidatesScored    prometheus.Counter
	featureBuildLatency prometheus.Histogram
	scoringLatency      prometheus.Histogram
	predictedScore      prometheus.Histogram
	recommendationErrs  *prometheus.CounterVec

	// Loaded state
	rosterSize         prometheus.Gauge
	rosterDuplicates   prometheus.Counter
	rosterLoadDuration prometheus.Histogram
	featureColumns     prometheus.Gauge

	// Remote scorer
	scorerRequests     *prometheus.CounterVec
	scorerBreakerState prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry with opts. Call it
// during startup, before handlers resolve GetRegistry and before traffic.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coachfit",
		subsystem:        "recommender",
		latencyBuckets:   defaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.recommendations = auto.NewCounterVec(
		m.counterOpts("recommendations_total", "Recommendation requests served, by endpoint kind"),
		[]string{"kind"},
	)
	m.candidatesScored = auto.NewCounter(
		m.counterOpts("candidates_scored_total", "Coach candidates passed through the scorer"),
	)
	m.featureBuildLatency = auto.NewHistogram(
		m.histogramOpts("feature_build_latency_milliseconds", "Feature table build latency in milliseconds", m.latencyBuckets),
	)
	m.scoringLatency = auto.NewHistogram(
		m.histogramOpts("scoring_latency_milliseconds", "Scorer call latency in milliseconds", m.latencyBuckets),
	)
	m.predictedScore = auto.NewHistogram(
		m.histogramOpts("predicted_score", "Distribution of predicted suitability scores", prometheus.LinearBuckets(0.1, 0.1, 10)),
	)
	m.recommendationErrs = auto.NewCounterVec(
		m.counterOpts("recommendation_errors_total", "Failed recommendations by error kind"),
		[]string{"kind"},
	)

	m.rosterSize = auto.NewGauge(m.gaugeOpts("roster_size", "Coach records in the loaded roster"))
	m.rosterDuplicates = auto.NewCounter(
		m.counterOpts("roster_duplicates_total", "Duplicate roster records dropped while loading"),
	)
	m.rosterLoadDuration = auto.NewHistogram(
		m.histogramOpts("roster_load_duration_milliseconds", "Roster load duration in milliseconds", m.latencyBuckets),
	)
	m.featureColumns = auto.NewGauge(m.gaugeOpts("feature_columns", "Feature columns in the loaded schema"))

	m.scorerRequests = auto.NewCounterVec(
		m.counterOpts("scorer_requests_total", "Scorer invocations by scorer and outcome"),
		[]string{"scorer", "outcome"},
	)
	m.scorerBreakerState = auto.NewGauge(
		m.gaugeOpts("scorer_breaker_state", "Remote scorer circuit breaker state (0 closed, 1 half-open, 2 open)"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordRecommendation counts a served recommendation of the given kind
// (single, ranked, batch).
func RecordRecommendation(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendations.WithLabelValues(kind).Inc()
}

// RecordRecommendationError counts a failed recommendation by error kind.
func RecordRecommendationError(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendationErrs.WithLabelValues(kind).Inc()
}

// RecordCandidatesScored adds n scored candidates.
func RecordCandidatesScored(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.candidatesScored.Add(float64(n))
}

// RecordFeatureBuildLatency records feature build latency in milliseconds.
func RecordFeatureBuildLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.featureBuildLatency.Observe(latencyMs)
}

// RecordScoringLatency records scorer latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordPredictedScore observes a single predicted score.
func RecordPredictedScore(score float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.predictedScore.Observe(score)
}

// UpdateRosterSize sets the loaded roster size.
func UpdateRosterSize(n int) {
	globalManager.rosterSize.Set(float64(n))
}

// RecordRosterDuplicates adds dropped duplicate roster records.
func RecordRosterDuplicates(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.rosterDuplicates.Add(float64(n))
}

// RecordRosterLoadDuration records roster load duration in milliseconds.
func RecordRosterLoadDuration(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rosterLoadDuration.Observe(latencyMs)
}

// UpdateFeatureColumns sets the number of feature columns in the loaded schema.
func UpdateFeatureColumns(n int) {
	globalManager.featureColumns.Set(float64(n))
}

// RecordScorerRequest counts a scorer invocation.
func RecordScorerRequest(scorer, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.scorerRequests.WithLabelValues(scorer, outcome).Inc()
}

// UpdateScorerBreakerState sets the remote scorer breaker state gauge.
func UpdateScorerBreakerState(state int) {
	globalManager.scorerBreakerState.Set(float64(state))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// CollectSystemMetrics samples runtime memory, goroutine and GC figures once.
func CollectSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		last := ms.PauseNs[(ms.NumGC+255)%256]
		RecordSystemGCPauseTime(float64(last) / float64(time.Millisecond))
	}
}

// StartSystemCollector samples system metrics every refresh interval until
// ctx is cancelled.
func StartSystemCollector(ctx context.Context) {
	interval := globalManager.refreshInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		CollectSystemMetrics()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CollectSystemMetrics()
			}
		}
	}()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
