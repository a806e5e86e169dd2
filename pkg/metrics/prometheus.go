// Package metrics provides Prometheus metrics for the flashquiz service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the flashquiz service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Session metrics
	sessionsActive   prometheus.Gauge
	sessionsStarted  prometheus.Counter
	sessionsExpired  prometheus.Counter
	sessionsBusy     prometheus.Counter
	cardsServed      prometheus.Counter
	poolExhaustions  prometheus.Counter
	decksLoaded      prometheus.Gauge
	answersChecked   *prometheus.CounterVec
	emptyPoolRejects prometheus.Counter

	// Content generation metrics
	generationLatency *prometheus.HistogramVec
	generationErrors  *prometheus.CounterVec

	// Leaderboard metrics
	leaderboardSubmissions prometheus.Counter
	leaderboardSubmitTime  prometheus.Histogram
	leaderboardLockWait    prometheus.Histogram
	leaderboardErrors      *prometheus.CounterVec
	leaderboardMalformed   prometheus.Counter
	leaderboardReads       prometheus.Counter
	leaderboardEntries     prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "flashquiz",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)
	latencyBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_active"),
		Help: "Number of quiz sessions currently held in memory",
	})
	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_started_total"),
		Help: "Total number of quiz sessions started",
	})
	m.sessionsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_expired_total"),
		Help: "Total number of sessions removed by the idle sweeper",
	})
	m.sessionsBusy = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("sessions_busy_total"),
		Help: "Requests rejected because their session was already locked",
	})
	m.cardsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("cards_served_total"),
		Help: "Total number of cards drawn by all sessions",
	})
	m.poolExhaustions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("pool_exhaustions_total"),
		Help: "Number of times a session served its whole pool and reshuffled",
	})
	m.decksLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("decks_loaded"),
		Help: "Number of decks available to new sessions",
	})
	m.answersChecked = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("answers_checked_total"),
		Help: "Answers checked, by quiz mode and outcome",
	}, []string{"mode", "outcome"})
	m.emptyPoolRejects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("empty_pool_total"),
		Help: "Draw attempts against a deck without cards",
	})

	m.generationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("generation_latency_milliseconds"),
		Help:    "Latency of quiz content generation in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"provider", "mode"})
	m.generationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("generation_errors_total"),
		Help: "Failed quiz content generations",
	}, []string{"provider", "mode"})

	m.leaderboardSubmissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_submissions_total"),
		Help: "Leaderboard submissions that were persisted",
	})
	m.leaderboardSubmitTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("leaderboard_submit_milliseconds"),
		Help:    "Time spent inside the leaderboard critical section",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
	m.leaderboardLockWait = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("leaderboard_lock_wait_milliseconds"),
		Help:    "Time submitters waited for the leaderboard lock",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
	m.leaderboardErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_errors_total"),
		Help: "Leaderboard failures by kind (lock_timeout, persistence)",
	}, []string{"kind"})
	m.leaderboardMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_malformed_reads_total"),
		Help: "Reads that found an unparsable leaderboard and served an empty table",
	})
	m.leaderboardReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_reads_total"),
		Help: "Leaderboard reads",
	})
	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("leaderboard_entries"),
		Help: "Entries in the persisted leaderboard after the last submit",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
			Name: m.name("http_requests_total"),
			Help: "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
			Name:    m.name("http_request_duration_milliseconds"),
			Help:    "HTTP request duration in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_component_total"),
		Help: "Errors by component and error type",
	}, []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_type_total"),
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_by_endpoint_total"),
		Help: "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("error_latency_milliseconds"),
		Help:    "Latency of failed operations in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_memory_bytes"),
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("system_goroutines"),
		Help: "Number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("system_gc_pause_milliseconds"),
		Help:    "Average GC pause in milliseconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
	})
}

// Session metrics.

// UpdateSessionsActive sets the number of live sessions.
func UpdateSessionsActive(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionStarted increments the started sessions counter.
func RecordSessionStarted() {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsStarted.Inc()
}

// RecordSessionsExpired adds n to the expired sessions counter.
func RecordSessionsExpired(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.sessionsExpired.Add(float64(n))
}

// RecordSessionBusy increments the busy-session rejection counter.
func RecordSessionBusy() {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsBusy.Inc()
}

// RecordCardServed increments the served cards counter.
func RecordCardServed() {
	if !globalManager.enabled {
		return
	}
	globalManager.cardsServed.Inc()
}

// RecordPoolExhausted increments the reshuffle counter.
func RecordPoolExhausted() {
	if !globalManager.enabled {
		return
	}
	globalManager.poolExhaustions.Inc()
}

// RecordEmptyPool increments the empty pool counter.
func RecordEmptyPool() {
	if !globalManager.enabled {
		return
	}
	globalManager.emptyPoolRejects.Inc()
}

// UpdateDecksLoaded sets the number of loaded decks.
func UpdateDecksLoaded(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.decksLoaded.Set(float64(count))
}

// RecordAnswerChecked records an answer outcome ("correct" or "incorrect").
func RecordAnswerChecked(mode, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.answersChecked.WithLabelValues(mode, outcome).Inc()
}

// Generation metrics.

// RecordGenerationLatency records how long a generation call took.
func RecordGenerationLatency(provider, mode string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.generationLatency.WithLabelValues(provider, mode).Observe(latencyMs)
}

// RecordGenerationError increments the generation error counter.
func RecordGenerationError(provider, mode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.generationErrors.WithLabelValues(provider, mode).Inc()
}

// Leaderboard metrics.

// RecordLeaderboardSubmission increments the persisted submissions counter.
func RecordLeaderboardSubmission() {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardSubmissions.Inc()
}

// RecordLeaderboardSubmitLatency records time spent holding the leaderboard lock.
func RecordLeaderboardSubmitLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardSubmitTime.Observe(latencyMs)
}

// RecordLeaderboardLockWait records time spent waiting for the leaderboard lock.
func RecordLeaderboardLockWait(waitMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardLockWait.Observe(waitMs)
}

// RecordLeaderboardError increments the leaderboard error counter for kind.
func RecordLeaderboardError(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardErrors.WithLabelValues(kind).Inc()
}

// RecordLeaderboardMalformed increments the malformed read counter.
func RecordLeaderboardMalformed() {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardMalformed.Inc()
}

// RecordLeaderboardRead increments the read counter.
func RecordLeaderboardRead() {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardReads.Inc()
}

// UpdateLeaderboardEntries sets the current table length.
func UpdateLeaderboardEntries(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.leaderboardEntries.Set(float64(count))
}

// HTTP metrics.

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

// Error metrics.

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records how long a failed operation took.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval is how often callers should sample the system gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
