package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/config"
)

func newTestCollector(t *testing.T) *MetricsCollector {
	t.Helper()
	return NewMetricsCollector(&config.MetricsConfig{Enabled: true}, zap.NewNop())
}

func TestCollectorsDoNotShareRegistry(t *testing.T) {
	// Each collector owns its registry, so constructing two must not panic.
	a := newTestCollector(t)
	b := newTestCollector(t)

	a.RecordFeedback("call", "safe", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.feedbackTotal.WithLabelValues("call", "safe", "accepted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.feedbackTotal.WithLabelValues("call", "safe", "accepted")))
}

func TestRecordAnalysis(t *testing.T) {
	m := newTestCollector(t)

	m.RecordAnalysis(false, false, 0, time.Millisecond)
	m.RecordAnalysis(true, false, 0.3, time.Millisecond)
	m.RecordAnalysis(true, true, 0.9, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesAnalyzedTotal.WithLabelValues("not_otp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesAnalyzedTotal.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesAnalyzedTotal.WithLabelValues("blocked")))

	stats := m.GetStats()
	assert.Equal(t, int64(3), stats["messages_analyzed"])
	assert.Equal(t, int64(1), stats["messages_blocked"])
}

func TestRecordStorageAndFeedback(t *testing.T) {
	m := newTestCollector(t)

	m.RecordStorageOperation("save", nil)
	m.RecordStorageOperation("save", errors.New("disk full"))
	m.RecordFeedback("call", "scam", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageOpsTotal.WithLabelValues("save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedbackTotal.WithLabelValues("call", "scam", "rate_limited")))

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["storage_errors"])
	assert.Equal(t, int64(1), stats["feedback_throttled"])
}

func TestNilAndDisabledCollectorsAreNoops(t *testing.T) {
	var nilCollector *MetricsCollector
	disabled := NewMetricsCollector(&config.MetricsConfig{Enabled: false}, zap.NewNop())

	for _, m := range []*MetricsCollector{nilCollector, disabled} {
		assert.NotPanics(t, func() {
			m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
			m.RecordAnalysis(true, true, 1, time.Millisecond)
			m.RecordTrustUpdate("sender", "message", 50)
			m.RecordFeedback("sender", "safe", true)
			m.RecordStorageOperation("load", nil)
			m.RecordCall("incoming", true)
		})
		assert.Equal(t, false, m.GetStats()["metrics_enabled"])
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := newTestCollector(t)
	m.RecordTrustUpdate("sender", "message", 72.5)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "otpshield_trust_updates_total")
}
