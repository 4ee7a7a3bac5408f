package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/ml"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/scoring"
)

const (
	// MaxAnalysisHistory bounds the newest-first analysis history.
	MaxAnalysisHistory = 10

	DefaultDeviceID = "unknown-device"

	baseRisk            = 0.2
	untrustedRisk       = 0.5
	confidenceRisk      = 0.3
	unusualLocationRisk = 0.1

	blockThreshold = 0.5
)

const (
	analysisNotOTP      = "Not an OTP message"
	analysisUntrusted   = "OTP blocked - Sender not in trusted database"
	analysisSuspicious  = "OTP blocked - Suspicious message content"
	analysisTrustedSafe = "OTP verified safe - Trusted sender confirmed"
)

// AnalyzeOptions carries the optional request context for an analysis
type AnalyzeOptions struct {
	DeviceID string
	SenderID string
}

// MessageRiskEngine scores OTP messages for phishing risk and feeds the
// outcome into sender reputation.
type MessageRiskEngine struct {
	classifier    *ml.MessageClassifier
	locations     ml.LocationProvider
	senders       ml.SenderSource
	senderTrust   *SenderTrustService
	metrics       *metrics.MetricsCollector
	audit         *monitoring.AuditLogger
	logger        *zap.Logger
	now           func() time.Time
	defaultDevice string

	// trustedTokens is the upper-cased allowlist handed to the classifier;
	// trusted is the normalized set used for the sender check.
	trustedTokens []string
	trusted       map[string]struct{}

	mu      sync.RWMutex
	history []*models.AnalysisResult
}

// MessageEngineOptions configures a MessageRiskEngine
type MessageEngineOptions struct {
	TrustedSenders []string
	DefaultDevice  string
}

// NewMessageRiskEngine creates an engine. senderTrust may be nil, in which
// case Screen only analyzes.
func NewMessageRiskEngine(
	classifier *ml.MessageClassifier,
	locations ml.LocationProvider,
	senders ml.SenderSource,
	senderTrust *SenderTrustService,
	opts MessageEngineOptions,
	metricsCollector *metrics.MetricsCollector,
	auditLogger *monitoring.AuditLogger,
	logger *zap.Logger,
) *MessageRiskEngine {
	if opts.DefaultDevice == "" {
		opts.DefaultDevice = DefaultDeviceID
	}

	e := &MessageRiskEngine{
		classifier:    classifier,
		locations:     locations,
		senders:       senders,
		senderTrust:   senderTrust,
		metrics:       metricsCollector,
		audit:         auditLogger,
		logger:        logger,
		now:           time.Now,
		defaultDevice: opts.DefaultDevice,
		trusted:       make(map[string]struct{}, len(opts.TrustedSenders)),
		history:       make([]*models.AnalysisResult, 0, MaxAnalysisHistory),
	}
	for _, sender := range opts.TrustedSenders {
		e.trustedTokens = append(e.trustedTokens, strings.ToUpper(sender))
		e.trusted[models.NormalizeSenderID(sender)] = struct{}{}
	}
	return e
}

// AnalyzeMessage scores one message. It never fails: empty or non-OTP text
// yields a tagged result with zero risk.
func (e *MessageRiskEngine) AnalyzeMessage(ctx context.Context, text string, opts AnalyzeOptions) *models.AnalysisResult {
	start := time.Now()

	deviceID := opts.DeviceID
	if deviceID == "" {
		deviceID = e.defaultDevice
	}

	result := &models.AnalysisResult{
		Message:   text,
		Timestamp: e.now(),
		DeviceID:  deviceID,
		SenderID:  e.resolveSender(text, opts.SenderID),
	}

	otp, ok := ml.ExtractOTP(text)
	if !ok {
		result.Analysis = analysisNotOTP
		e.metrics.RecordAnalysis(false, false, 0, time.Since(start))
		return result
	}
	result.OTP = &otp
	result.IsOTPMessage = true

	_, result.IsTrustedSender = e.trusted[models.NormalizeSenderID(result.SenderID)]

	classification := e.classifier.Classify(text, e.trustedTokens)
	result.Classification = &classification

	if e.locations != nil {
		location := e.locations.Locate()
		result.Location = &location
		result.LocationRiskFlag = location.IsUnusual
	}

	components := models.RiskComponents{
		MessageRisk: classification.Confidence * confidenceRisk,
	}
	if !result.IsTrustedSender {
		components.SenderRisk = untrustedRisk
	}
	if result.LocationRiskFlag {
		components.LocationRisk = unusualLocationRisk
	}
	result.RiskComponents = components
	result.RiskScore = scoring.Clamp01(baseRisk + components.SenderRisk + components.MessageRisk + components.LocationRisk)
	result.IsBlocked = result.RiskScore > blockThreshold

	switch {
	case !result.IsBlocked:
		result.Analysis = analysisTrustedSafe
	case !result.IsTrustedSender:
		result.Analysis = analysisUntrusted
	default:
		result.Analysis = analysisSuspicious
	}

	e.remember(result)
	e.metrics.RecordAnalysis(true, result.IsBlocked, result.RiskScore, time.Since(start))

	if result.IsBlocked {
		e.audit.LogEvent(monitoring.EventMessageBlocked, result.Analysis).
			Actor(deviceID).
			Resource(models.NormalizeSenderID(result.SenderID)).
			Severity("medium").
			Detail("risk_score", result.RiskScore).
			Detail("confidence", classification.Confidence).
			Commit()
	}

	e.logger.Debug("message analyzed",
		zap.String("sender", result.SenderID),
		zap.Bool("trusted_sender", result.IsTrustedSender),
		zap.Float64("risk_score", result.RiskScore),
		zap.Bool("blocked", result.IsBlocked))

	return result
}

// Screen analyzes a message and, for OTP messages, folds the result into
// the sender's trust record.
func (e *MessageRiskEngine) Screen(ctx context.Context, text string, opts AnalyzeOptions) (*models.AnalysisResult, *models.SenderTrust, error) {
	result := e.AnalyzeMessage(ctx, text, opts)
	if !result.IsOTPMessage || e.senderTrust == nil {
		return result, nil, nil
	}

	trust, err := e.senderTrust.ApplyMessage(ctx, result.SenderID, result)
	if err != nil {
		return result, nil, err
	}
	return result, trust, nil
}

// History returns the recent OTP analyses, newest first.
func (e *MessageRiskEngine) History() []*models.AnalysisResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*models.AnalysisResult{}, e.history...)
}

func (e *MessageRiskEngine) resolveSender(text, explicit string) string {
	if header, ok := ml.ExtractSenderHeader(text); ok {
		return header
	}
	if explicit != "" {
		return explicit
	}
	if e.senders != nil {
		return e.senders.NextSenderID()
	}
	return models.UnknownKey
}

func (e *MessageRiskEngine) remember(result *models.AnalysisResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append([]*models.AnalysisResult{result}, e.history...)
	if len(e.history) > MaxAnalysisHistory {
		e.history = e.history[:MaxAnalysisHistory]
	}
}
