package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/config"
)

// MetricsCollector collects and exposes metrics for the trust engine.
// A nil collector is valid and records nothing.
type MetricsCollector struct {
	config   *config.MetricsConfig
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Message analysis metrics
	messagesAnalyzedTotal *prometheus.CounterVec
	analysisDuration      prometheus.Histogram
	messageRiskScore      prometheus.Histogram

	// Trust store metrics
	trustUpdatesTotal    *prometheus.CounterVec
	trustScore           *prometheus.HistogramVec
	feedbackTotal        *prometheus.CounterVec
	storageOpsTotal      *prometheus.CounterVec
	callsRecordedTotal   *prometheus.CounterVec
	lastTrustUpdateEpoch prometheus.Gauge

	// Internal state
	mu             sync.RWMutex
	analyzed       int64
	blocked        int64
	rateLimited    int64
	storageErrors  int64
	feedbackAccept int64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(cfg *config.MetricsConfig, logger *zap.Logger) *MetricsCollector {
	if !cfg.Enabled {
		logger.Info("metrics collection disabled")
		return &MetricsCollector{
			config: cfg,
			logger: logger,
		}
	}

	histogramBuckets := cfg.HistogramBuckets
	if len(histogramBuckets) == 0 {
		histogramBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0}
	}

	collector := &MetricsCollector{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otpshield_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: histogramBuckets,
			},
			[]string{"method", "endpoint"},
		),

		messagesAnalyzedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_messages_analyzed_total",
				Help: "Total number of messages analyzed",
			},
			[]string{"outcome"}, // outcome: not_otp/allowed/blocked
		),

		analysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "otpshield_analysis_duration_seconds",
				Help:    "Message analysis duration in seconds",
				Buckets: histogramBuckets,
			},
		),

		messageRiskScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "otpshield_message_risk_score",
				Help:    "Distribution of OTP message risk scores",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),

		trustUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_trust_updates_total",
				Help: "Total number of trust record updates",
			},
			[]string{"entity", "trigger"}, // entity: sender/call, trigger: create/message/call/feedback
		),

		trustScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otpshield_trust_score",
				Help:    "Distribution of trust scores after an update",
				Buckets: []float64{10, 20, 30, 40, 50, 65, 75, 85, 95, 100},
			},
			[]string{"entity"},
		),

		feedbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_feedback_total",
				Help: "Total number of feedback submissions",
			},
			[]string{"entity", "feedback_type", "result"}, // result: accepted/rate_limited
		),

		storageOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_storage_operations_total",
				Help: "Total number of persistence operations",
			},
			[]string{"operation", "result"}, // operation: load/save, result: success/error
		),

		callsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otpshield_calls_recorded_total",
				Help: "Total number of calls recorded",
			},
			[]string{"direction", "answered"},
		),

		lastTrustUpdateEpoch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "otpshield_last_trust_update_timestamp_seconds",
				Help: "Unix time of the most recent trust update",
			},
		),
	}

	collector.registerMetrics()

	logger.Info("metrics collector initialized",
		zap.Int("histogram_buckets", len(histogramBuckets)))

	return collector
}

// registerMetrics registers all metrics with the collector's registry
func (m *MetricsCollector) registerMetrics() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		m.httpRequestsTotal,
		m.httpRequestDuration,

		m.messagesAnalyzedTotal,
		m.analysisDuration,
		m.messageRiskScore,

		m.trustUpdatesTotal,
		m.trustScore,
		m.feedbackTotal,
		m.storageOpsTotal,
		m.callsRecordedTotal,
		m.lastTrustUpdateEpoch,
	)
}

func (m *MetricsCollector) enabled() bool {
	return m != nil && m.config != nil && m.config.Enabled && m.registry != nil
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled() {
		return
	}

	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAnalysis records the outcome of one message analysis
func (m *MetricsCollector) RecordAnalysis(isOTP, blocked bool, riskScore float64, duration time.Duration) {
	if !m.enabled() {
		return
	}

	outcome := "not_otp"
	switch {
	case isOTP && blocked:
		outcome = "blocked"
	case isOTP:
		outcome = "allowed"
	}

	m.messagesAnalyzedTotal.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(duration.Seconds())
	if isOTP {
		m.messageRiskScore.Observe(riskScore)
	}

	m.mu.Lock()
	m.analyzed++
	if blocked {
		m.blocked++
	}
	m.mu.Unlock()
}

// RecordTrustUpdate records a trust record mutation and its resulting score
func (m *MetricsCollector) RecordTrustUpdate(entity, trigger string, score float64) {
	if !m.enabled() {
		return
	}

	m.trustUpdatesTotal.WithLabelValues(entity, trigger).Inc()
	m.trustScore.WithLabelValues(entity).Observe(score)
	m.lastTrustUpdateEpoch.Set(float64(time.Now().Unix()))
}

// RecordFeedback records an accepted or rejected feedback submission
func (m *MetricsCollector) RecordFeedback(entity, feedbackType string, accepted bool) {
	if !m.enabled() {
		return
	}

	result := "accepted"
	if !accepted {
		result = "rate_limited"
	}
	m.feedbackTotal.WithLabelValues(entity, feedbackType, result).Inc()

	m.mu.Lock()
	if accepted {
		m.feedbackAccept++
	} else {
		m.rateLimited++
	}
	m.mu.Unlock()
}

// RecordStorageOperation records a persistence load or save
func (m *MetricsCollector) RecordStorageOperation(operation string, err error) {
	if !m.enabled() {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
		m.mu.Lock()
		m.storageErrors++
		m.mu.Unlock()
	}
	m.storageOpsTotal.WithLabelValues(operation, result).Inc()
}

// RecordCall records a call history entry
func (m *MetricsCollector) RecordCall(direction string, answered bool) {
	if !m.enabled() {
		return
	}

	m.callsRecordedTotal.WithLabelValues(direction, strconv.FormatBool(answered)).Inc()
}

// Handler returns the Prometheus metrics handler for this collector
func (m *MetricsCollector) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GetStats returns current metrics statistics
func (m *MetricsCollector) GetStats() map[string]interface{} {
	if !m.enabled() {
		return map[string]interface{}{
			"metrics_enabled": false,
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"metrics_enabled":    true,
		"messages_analyzed":  m.analyzed,
		"messages_blocked":   m.blocked,
		"feedback_accepted":  m.feedbackAccept,
		"feedback_throttled": m.rateLimited,
		"storage_errors":     m.storageErrors,
		"block_rate": func() float64 {
			if m.analyzed > 0 {
				return float64(m.blocked) / float64(m.analyzed) * 100
			}
			return 0
		}(),
	}
}
