// Package metrics provides Prometheus metrics for the workscore service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scoreBuckets cover the 0-10 score scale in half-point steps.
var scoreBuckets = prometheus.LinearBuckets(0, 0.5, 21) //nolint:gochecknoglobals // fixed bucket layout

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	finalScore        prometheus.Histogram
	scoringPolicies   *prometheus.CounterVec
	predictions       *prometheus.CounterVec
	scoringLatency    prometheus.Histogram
	scoringErrors     prometheus.Counter
	eventsProcessed   prometheus.Counter
	eventsDuplicate   prometheus.Counter
	leaderboardUpdate prometheus.Counter

	// Model lifecycle
	modelTrainings       *prometheus.CounterVec
	modelTrainDuration   prometheus.Histogram
	modelSamples         prometheus.Gauge
	modelLastTrainedUnix prometheus.Gauge

	// Registry and ranking board
	workersTotal       prometheus.Gauge
	rankedWorkers      prometheus.Gauge
	repositoryLatency  *prometheus.HistogramVec
	leaderboardErrors  prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "workscore",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.finalScore = m.histogram("final_score", "Distribution of final hybrid scores", scoreBuckets)
	m.scoringPolicies = m.counterVec("scoring_policies_total", "Edge-case policies applied while scoring", "policy")
	m.predictions = m.counterVec("predictions_total", "ML predictions requested by outcome", "outcome")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Latency of a full hybrid scoring call", m.histogramBuckets)
	m.scoringErrors = m.counter("scoring_errors_total", "Scoring jobs that failed")
	m.eventsProcessed = m.counter("events_processed_total", "Metrics events accepted for rescoring")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Duplicate metrics events dropped")
	m.leaderboardUpdate = m.counter("leaderboard_updates_total", "Ranking board upserts")

	m.modelTrainings = m.counterVec("model_trainings_total", "Model training runs by outcome", "outcome")
	m.modelTrainDuration = m.histogram("model_train_duration_milliseconds", "Model training duration", m.histogramBuckets)
	m.modelSamples = m.gauge("model_samples", "Number of records the current model was trained on")
	m.modelLastTrainedUnix = m.gauge("model_last_trained_unix", "Unix time the current model was trained")

	m.workersTotal = m.gauge("workers_total", "Workers in the registry")
	m.rankedWorkers = m.gauge("ranked_workers", "Workers on the ranking board")
	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Repository operation latency", "operation")
	m.leaderboardErrors = m.counter("leaderboard_errors_total", "Ranking board update failures")

	m.queueSize = m.gauge("queue_size", "Current size of the rescoring queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum rescoring queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Events dequeued")
	m.queueRejected = m.counterVec("queue_rejected_total", "Events rejected by the queue", "reason")

	m.workerCount = m.gauge("worker_count", "Scoring workers in the pool")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-event worker latency", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Scoring.

// ObserveFinalScore records a final hybrid score.
func ObserveFinalScore(score float64) { globalManager.finalScore.Observe(score) }

// RecordScoringPolicy counts an applied edge-case policy.
func RecordScoringPolicy(policy string) { globalManager.scoringPolicies.WithLabelValues(policy).Inc() }

// RecordPrediction counts a prediction attempt by outcome ("ok", "unavailable").
func RecordPrediction(outcome string) { globalManager.predictions.WithLabelValues(outcome).Inc() }

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() { globalManager.scoringErrors.Inc() }

// RecordEventProcessed increments the accepted events counter.
func RecordEventProcessed() { globalManager.eventsProcessed.Inc() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

// RecordLeaderboardUpdate increments the ranking board upsert counter.
func RecordLeaderboardUpdate() { globalManager.leaderboardUpdate.Inc() }

// RecordLeaderboardError increments the ranking board error counter.
func RecordLeaderboardError() { globalManager.leaderboardErrors.Inc() }

// Model lifecycle.

// RecordModelTraining counts a training run by outcome and, on success,
// publishes its sample count and completion time.
func RecordModelTraining(outcome string, durationMs float64, samples int, trainedUnix int64) {
	globalManager.modelTrainings.WithLabelValues(outcome).Inc()
	globalManager.modelTrainDuration.Observe(durationMs)
	if outcome == "ok" {
		globalManager.modelSamples.Set(float64(samples))
		globalManager.modelLastTrainedUnix.Set(float64(trainedUnix))
	}
}

// Registry and ranking board.

// UpdateWorkersTotal sets the number of registered workers.
func UpdateWorkersTotal(count int) { globalManager.workersTotal.Set(float64(count)) }

// UpdateRankedWorkers sets the number of workers on the ranking board.
func UpdateRankedWorkers(count int) { globalManager.rankedWorkers.Set(float64(count)) }

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Queue.

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

// RecordQueueRejected counts an event the queue refused.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors.

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

// System.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
