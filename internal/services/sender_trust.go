package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/ml"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/scoring"
)

const entitySender = "sender"

// SenderTrustService keeps the running trust record for every message sender
type SenderTrustService struct {
	signals ml.BehaviorSignals
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
	audit   *monitoring.AuditLogger
	store   *persister
	now     func() time.Time

	open     atomic.Bool
	locks    *keyedMutex
	records  *recordTable[models.SenderTrust]
	feedback *feedbackLog
}

// NewSenderTrustService creates a sender trust store over kv. Call Open before use.
func NewSenderTrustService(
	kv repository.KVStore,
	signals ml.BehaviorSignals,
	metricsCollector *metrics.MetricsCollector,
	auditLogger *monitoring.AuditLogger,
	logger *zap.Logger,
) *SenderTrustService {
	if signals == nil {
		signals = ml.HashSignals{}
	}
	return &SenderTrustService{
		signals: signals,
		logger:  logger,
		metrics: metricsCollector,
		audit:   auditLogger,
		store: &persister{
			kv:      kv,
			logger:  logger,
			metrics: metricsCollector,
			audit:   auditLogger,
		},
		now:      time.Now,
		locks:    newKeyedMutex(),
		records:  newRecordTable[models.SenderTrust](),
		feedback: newFeedbackLog(),
	}
}

// Open loads persisted sender state. Unreadable state is logged and the
// store starts empty.
func (s *SenderTrustService) Open(ctx context.Context) error {
	if s.open.Load() {
		return nil
	}

	records := make(map[string]*models.SenderTrust)
	s.store.load(ctx, repository.KeySenderTrust, &records)
	s.records.replace(records)

	events := make(map[string][]models.FeedbackEvent)
	s.store.load(ctx, repository.KeySenderFeedback, &events)
	s.feedback.replace(events)

	s.open.Store(true)
	s.logger.Info("sender trust store opened",
		zap.Int("senders", len(records)),
		zap.Int("feedback_keys", len(events)))
	return nil
}

// Close stops the store from serving further operations.
func (s *SenderTrustService) Close(ctx context.Context) error {
	s.open.Store(false)
	s.logger.Info("sender trust store closed")
	return nil
}

// GetOrCreate returns the sender's record, creating the default one on first sight.
func (s *SenderTrustService) GetOrCreate(ctx context.Context, senderID string) (*models.SenderTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	key := models.NormalizeSenderID(senderID)
	unlock := s.locks.lock(key)
	defer unlock()

	return s.getOrCreateLocked(ctx, key).Clone(), nil
}

func (s *SenderTrustService) getOrCreateLocked(ctx context.Context, key string) *models.SenderTrust {
	rec, created := s.records.getOrCreate(key, func() *models.SenderTrust {
		return models.NewSenderTrust(s.now())
	})
	if created {
		s.logger.Debug("sender trust record created", zap.String("sender", key))
		s.metrics.RecordTrustUpdate(entitySender, "create", rec.Score)
		s.saveRecords(ctx)
	}
	return rec
}

// ApplyMessage folds one analyzed message into the sender's record. A nil
// or non-OTP result carries no risk score and contributes a neutral sample.
func (s *SenderTrustService) ApplyMessage(ctx context.Context, senderID string, result *models.AnalysisResult) (*models.SenderTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	key := models.NormalizeSenderID(senderID)
	unlock := s.locks.lock(key)
	defer unlock()

	sample := scoring.NeutralScore
	if result != nil && result.IsOTPMessage {
		sample = 1 - scoring.Clamp01(result.RiskScore)
	}

	rec := s.getOrCreateLocked(ctx, key).Clone()
	rec.MessageCount++
	rec.MessageRiskScores = scoring.PushWindow(rec.MessageRiskScores, sample)
	rec.AvgMessageRisk = scoring.Mean(rec.MessageRiskScores, scoring.NeutralScore)
	rec.InteractionVolumeScore = scoring.VolumeScore(rec.MessageCount)
	rec.ResponseRateScore = scoring.Clamp01(s.signals.ResponseRate(key))
	rec.MessageDiversityScore = scoring.Clamp01(s.signals.MessageDiversity(key))
	if fb, ok := s.feedback.mean(key); ok {
		rec.UserFeedbackScore = fb
	}
	rec.Score = scoring.SenderScore(senderComponents(rec))
	rec.LastUpdated = s.now()

	s.records.put(key, rec)
	s.saveRecords(ctx)
	s.metrics.RecordTrustUpdate(entitySender, "message", rec.Score)

	s.logger.Debug("sender trust updated from message",
		zap.String("sender", key),
		zap.Float64("sample", sample),
		zap.Float64("score", rec.Score),
		zap.Int("message_count", rec.MessageCount))

	return rec.Clone(), nil
}

// ApplyFeedback records a user verdict for the sender and recombines the
// score with the stored components. Senders have no rating cooldown.
func (s *SenderTrustService) ApplyFeedback(ctx context.Context, senderID string, feedbackType models.FeedbackType) (*models.SenderTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	key := models.NormalizeSenderID(senderID)
	unlock := s.locks.lock(key)
	defer unlock()

	now := s.now()
	s.feedback.append(models.FeedbackEvent{
		Key:           key,
		Timestamp:     now,
		FeedbackType:  feedbackType,
		FeedbackScore: feedbackType.Score(),
	})
	s.store.save(ctx, repository.KeySenderFeedback, s.feedback.marshal)

	rec := s.getOrCreateLocked(ctx, key).Clone()
	if fb, ok := s.feedback.mean(key); ok {
		rec.UserFeedbackScore = fb
	}
	rec.Score = scoring.SenderScore(senderComponents(rec))
	rec.LastUpdated = now

	s.records.put(key, rec)
	s.saveRecords(ctx)
	s.metrics.RecordTrustUpdate(entitySender, "feedback", rec.Score)
	s.metrics.RecordFeedback(entitySender, string(feedbackType), true)

	s.audit.LogEvent(monitoring.EventSenderFeedback, "sender feedback recorded").
		Resource(key).
		Detail("feedback_type", string(feedbackType)).
		Detail("score", rec.Score).
		Commit()

	return rec.Clone(), nil
}

// Feedback returns the feedback events stored for a sender, oldest first.
func (s *SenderTrustService) Feedback(ctx context.Context, senderID string) ([]models.FeedbackEvent, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}
	return s.feedback.list(models.NormalizeSenderID(senderID)), nil
}

// Ping checks the backing store.
func (s *SenderTrustService) Ping(ctx context.Context) error {
	return s.store.kv.Ping(ctx)
}

func (s *SenderTrustService) saveRecords(ctx context.Context) {
	s.store.save(ctx, repository.KeySenderTrust, s.records.marshal)
}

func senderComponents(rec *models.SenderTrust) scoring.SenderComponents {
	return scoring.SenderComponents{
		AvgMessageRisk:   rec.AvgMessageRisk,
		UserFeedback:     rec.UserFeedbackScore,
		InteractionVol:   rec.InteractionVolumeScore,
		ResponseRate:     rec.ResponseRateScore,
		MessageDiversity: rec.MessageDiversityScore,
	}
}
