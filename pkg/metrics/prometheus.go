// Package metrics provides Prometheus metrics for the GAMX standings service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	resultsProcessed  prometheus.Counter
	resultsDuplicate  prometheus.Counter
	scoresComputed    *prometheus.CounterVec
	invalidScores     *prometheus.CounterVec
	targetSolves      *prometheus.CounterVec
	targetSearchSteps prometheus.Histogram
	scoringLatency    prometheus.Histogram

	// Standings
	standingsUpdates *prometheus.CounterVec
	trackedAthletes  *prometheus.GaugeVec
	standingsErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// customRegistry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

func init() { //nolint:gochecknoinits // metrics must exist before any package records
	customRegistry.MustRegister(collectors.NewBuildInfoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gamx",
		subsystem:        "standings",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.resultsProcessed = auto.NewCounter(m.counterOpts("results_processed_total", "Lift results scored and applied to the standings"))
	m.resultsDuplicate = auto.NewCounter(m.counterOpts("results_duplicate_total", "Lift results rejected as already seen"))
	m.scoresComputed = auto.NewCounterVec(m.counterOpts("scores_computed_total", "Scores computed by variant"), []string{"variant"})
	m.invalidScores = auto.NewCounterVec(m.counterOpts("scores_invalid_total", "Score requests that produced a sentinel"), []string{"variant", "reason"})
	m.targetSolves = auto.NewCounterVec(m.counterOpts("target_solves_total", "Target searches by variant and outcome"), []string{"variant", "outcome"})
	m.targetSearchSteps = auto.NewHistogram(m.histogramOpts("target_search_steps", "Candidate totals scored per target search",
		[]float64{1, 2, 3, 4, 6, 10, 25, 100, 600}))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts("scoring_latency_milliseconds", "Scoring latency in milliseconds",
		[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}))

	m.standingsUpdates = auto.NewCounterVec(m.counterOpts("updates_total", "Standings entries improved by variant"), []string{"variant"})
	m.trackedAthletes = auto.NewGaugeVec(m.gaugeOpts("tracked_athletes", "Athletes on the standings by variant"), []string{"variant"})
	m.standingsErrors = auto.NewCounter(m.counterOpts("errors_total", "Standings update failures"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Lift results waiting to be scored"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Lift results enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Lift results dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Lift results refused by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Workers in the pool"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently processing a result"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time to score and apply one result", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Results a worker failed to process"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component"), []string{"component", "error_type"})
	m.errorsByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Errors by type and severity"), []string{"error_type", "severity"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordResultProcessed counts a result applied to the standings.
func RecordResultProcessed() { globalManager.resultsProcessed.Inc() }

// RecordResultDuplicate counts a result rejected by the deduper.
func RecordResultDuplicate() { globalManager.resultsDuplicate.Inc() }

// RecordScoreComputed counts a successful score for variant.
func RecordScoreComputed(variant string) {
	globalManager.scoresComputed.WithLabelValues(variant).Inc()
}

// RecordInvalidScore counts a score request that ended in a sentinel.
func RecordInvalidScore(variant, reason string) {
	globalManager.invalidScores.WithLabelValues(variant, reason).Inc()
}

// RecordTargetSolve counts a target search and observes how many
// candidates it scored.
func RecordTargetSolve(variant, outcome string, steps int) {
	globalManager.targetSolves.WithLabelValues(variant, outcome).Inc()
	if steps > 0 {
		globalManager.targetSearchSteps.Observe(float64(steps))
	}
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordStandingsUpdate counts an improved standings entry.
func RecordStandingsUpdate(variant string) {
	globalManager.standingsUpdates.WithLabelValues(variant).Inc()
}

// RecordStandingsError counts a failed standings update.
func RecordStandingsError() { globalManager.standingsErrors.Inc() }

// UpdateTrackedAthletes sets the athlete count for variant.
func UpdateTrackedAthletes(variant string, count int) {
	globalManager.trackedAthletes.WithLabelValues(variant).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) { globalManager.workerActiveCount.Add(float64(delta)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry every metric is registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{Registry: customRegistry})
}
