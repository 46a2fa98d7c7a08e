package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for lexilive. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	// Remote AI metrics
	AIRequests        *prometheus.CounterVec
	AIRequestDuration *prometheus.HistogramVec
	BreakerState      *prometheus.GaugeVec

	// Live session metrics
	ActiveSessions  prometheus.Gauge
	SessionDuration prometheus.Histogram
	FramesSent      prometheus.Counter
	ChunksScheduled prometheus.Counter
	ChunksDropped   prometheus.Counter
	Interruptions   prometheus.Counter

	// Word list metrics
	SavedWords prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates metrics registered with the default Prometheus registry
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWithRegistry creates metrics registered with reg
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: gatherer,

		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexilive_ai_requests_total",
			Help: "Total number of remote AI requests",
		}, []string{"provider", "operation", "result"}),
		AIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexilive_ai_request_duration_seconds",
			Help:    "Duration of remote AI requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5 minutes
		}, []string{"provider", "operation"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lexilive_ai_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lexilive_live_active_sessions",
			Help: "Current number of live practice sessions",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexilive_live_session_duration_seconds",
			Help:    "Duration of live practice sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexilive_live_frames_sent_total",
			Help: "Total number of microphone frames sent to the live endpoint",
		}),
		ChunksScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexilive_live_chunks_scheduled_total",
			Help: "Total number of response audio chunks scheduled for playback",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexilive_live_chunks_dropped_total",
			Help: "Total number of scheduled chunks dropped by interruptions",
		}),
		Interruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexilive_live_interruptions_total",
			Help: "Total number of server interruptions",
		}),

		SavedWords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lexilive_saved_words",
			Help: "Number of words in the saved list",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexilive_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lexilive_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAIRequest records one remote AI call
func (m *Metrics) RecordAIRequest(provider, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.AIRequests.WithLabelValues(provider, operation, result).Inc()
	m.AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// SetBreakerState records the state of a circuit breaker
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordSessionStarted increments the active session gauge
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// RecordSessionEnded decrements the active session gauge and records duration
func (m *Metrics) RecordSessionEnded(d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(d.Seconds())
}

// RecordFrameSent increments the frames sent counter
func (m *Metrics) RecordFrameSent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}

// RecordChunkScheduled increments the scheduled chunks counter
func (m *Metrics) RecordChunkScheduled() {
	if m == nil {
		return
	}
	m.ChunksScheduled.Inc()
}

// RecordInterruption records a server interruption and the chunks it dropped
func (m *Metrics) RecordInterruption(dropped int) {
	if m == nil {
		return
	}
	m.Interruptions.Inc()
	m.ChunksDropped.Add(float64(dropped))
}

// SetSavedWords sets the saved list size
func (m *Metrics) SetSavedWords(n int) {
	if m == nil {
		return
	}
	m.SavedWords.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
