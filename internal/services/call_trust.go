package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/scoring"
)

const (
	entityCall = "call"

	// MaxCallHistory bounds the global newest-first call history.
	MaxCallHistory = 100

	// fallbackCallScore seeds a call record when the sender store cannot be read.
	fallbackCallScore = 50

	DefaultUserID = "default_user"
)

// SenderScoreSource is where call records borrow their initial score from
type SenderScoreSource interface {
	GetOrCreate(ctx context.Context, senderID string) (*models.SenderTrust, error)
}

// CallTrustOptions configures a CallTrustService
type CallTrustOptions struct {
	RatingCooldown time.Duration
	DefaultUserID  string
	DefaultRegion  string
}

// CallTrustService keeps the running trust record for every phone number,
// the global call history and the per-user rating cooldowns.
type CallTrustService struct {
	senders SenderScoreSource
	limiter *FeedbackRateLimiter
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
	audit   *monitoring.AuditLogger
	store   *persister
	now     func() time.Time

	defaultUserID string
	defaultRegion string

	open     atomic.Bool
	locks    *keyedMutex
	records  *recordTable[models.CallTrust]
	feedback *feedbackLog

	historyMu sync.RWMutex
	history   []models.CallRecord
}

// NewCallTrustService creates a call trust store over kv. Call Open before use.
func NewCallTrustService(
	kv repository.KVStore,
	senders SenderScoreSource,
	opts CallTrustOptions,
	metricsCollector *metrics.MetricsCollector,
	auditLogger *monitoring.AuditLogger,
	logger *zap.Logger,
) *CallTrustService {
	if opts.DefaultUserID == "" {
		opts.DefaultUserID = DefaultUserID
	}
	return &CallTrustService{
		senders: senders,
		limiter: NewFeedbackRateLimiter(opts.RatingCooldown),
		logger:  logger,
		metrics: metricsCollector,
		audit:   auditLogger,
		store: &persister{
			kv:      kv,
			logger:  logger,
			metrics: metricsCollector,
			audit:   auditLogger,
		},
		now:           time.Now,
		defaultUserID: opts.DefaultUserID,
		defaultRegion: opts.DefaultRegion,
		locks:         newKeyedMutex(),
		records:       newRecordTable[models.CallTrust](),
		feedback:      newFeedbackLog(),
		history:       make([]models.CallRecord, 0, MaxCallHistory),
	}
}

// Open loads persisted call state. Unreadable state is logged and the
// store starts empty.
func (s *CallTrustService) Open(ctx context.Context) error {
	if s.open.Load() {
		return nil
	}

	records := make(map[string]*models.CallTrust)
	s.store.load(ctx, repository.KeyCallTrust, &records)
	s.records.replace(records)

	events := make(map[string][]models.FeedbackEvent)
	s.store.load(ctx, repository.KeyCallFeedback, &events)
	s.feedback.replace(events)

	ratings := make(map[string]time.Time)
	s.store.load(ctx, repository.KeyRatingTimestamps, &ratings)
	s.limiter.replace(ratings)

	history := make([]models.CallRecord, 0, MaxCallHistory)
	s.store.load(ctx, repository.KeyCallHistory, &history)
	if len(history) > MaxCallHistory {
		history = history[:MaxCallHistory]
	}
	s.historyMu.Lock()
	s.history = history
	s.historyMu.Unlock()

	s.open.Store(true)
	s.logger.Info("call trust store opened",
		zap.Int("numbers", len(records)),
		zap.Int("history", len(history)),
		zap.Int("ratings", len(ratings)))
	return nil
}

// Close stops the store from serving further operations.
func (s *CallTrustService) Close(ctx context.Context) error {
	s.open.Store(false)
	s.logger.Info("call trust store closed")
	return nil
}

// GetOrCreate returns the number's record. A new record borrows its score
// and feedback from the sender store entry for the same key.
func (s *CallTrustService) GetOrCreate(ctx context.Context, phoneNumber string) (*models.CallTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	key := models.NormalizePhoneNumber(phoneNumber)
	unlock := s.locks.lock(key)
	defer unlock()

	return s.getOrCreateLocked(ctx, key).Clone(), nil
}

func (s *CallTrustService) getOrCreateLocked(ctx context.Context, key string) *models.CallTrust {
	rec, created := s.records.getOrCreate(key, func() *models.CallTrust {
		return s.seed(ctx, key)
	})
	if created {
		s.metrics.RecordTrustUpdate(entityCall, "create", rec.Score)
		s.saveRecords(ctx)
	}
	return rec
}

func (s *CallTrustService) seed(ctx context.Context, key string) *models.CallTrust {
	now := s.now()
	if s.senders == nil {
		return models.NewCallTrust(now, fallbackCallScore, scoring.NeutralScore)
	}

	sender, err := s.senders.GetOrCreate(ctx, key)
	if err != nil {
		s.logger.Warn("sender trust lookup failed, seeding neutral call record",
			zap.String("number", maskNumber(key)),
			zap.Error(err))
		s.audit.LogEvent(monitoring.EventTrustRecordSeed, "call record seeded without sender trust").
			Resource(key).
			Status("failure").
			Detail("error", err.Error()).
			Commit()
		return models.NewCallTrust(now, fallbackCallScore, scoring.NeutralScore)
	}
	return models.NewCallTrust(now, sender.Score, sender.UserFeedbackScore)
}

// RecordCall appends a call to the history and folds it into the number's trust.
func (s *CallTrustService) RecordCall(ctx context.Context, details models.CallDetails) (*models.CallRecord, *models.CallTrust, error) {
	if !s.open.Load() {
		return nil, nil, ErrStoreClosed
	}

	key := models.NormalizePhoneNumber(details.PhoneNumber)
	unlock := s.locks.lock(key)
	defer unlock()

	record := models.CallRecord{
		ID:          uuid.NewString(),
		PhoneNumber: key,
		Region:      s.regionFor(details.PhoneNumber),
		Timestamp:   s.now(),
		Duration:    details.Duration,
		Direction:   details.Direction,
		WasAnswered: details.WasAnswered,
	}
	if details.Timestamp != nil && !details.Timestamp.IsZero() {
		record.Timestamp = *details.Timestamp
	}
	if record.Duration < 0 {
		record.Duration = 0
	}
	if record.Direction == "" {
		record.Direction = models.CallIncoming
	}

	s.historyMu.Lock()
	s.history = append([]models.CallRecord{record}, s.history...)
	if len(s.history) > MaxCallHistory {
		s.history = s.history[:MaxCallHistory]
	}
	s.historyMu.Unlock()
	s.saveHistory(ctx)

	s.metrics.RecordCall(string(record.Direction), record.WasAnswered)
	s.audit.LogEvent(monitoring.EventCallRecorded, "call recorded").
		Resource(key).
		Detail("direction", string(record.Direction)).
		Detail("answered", record.WasAnswered).
		Commit()

	trust := s.recomputeLocked(ctx, key, &record)
	return &record, trust, nil
}

// RecomputeTrust folds record into the number's trust using the current call history.
func (s *CallTrustService) RecomputeTrust(ctx context.Context, phoneNumber string, record *models.CallRecord) (*models.CallTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	key := models.NormalizePhoneNumber(phoneNumber)
	unlock := s.locks.lock(key)
	defer unlock()

	return s.recomputeLocked(ctx, key, record), nil
}

func (s *CallTrustService) recomputeLocked(ctx context.Context, key string, record *models.CallRecord) *models.CallTrust {
	rec := s.getOrCreateLocked(ctx, key).Clone()

	rec.CallCount++
	if record != nil && record.Duration > 0 {
		rec.CallDurations = scoring.PushWindow(rec.CallDurations, record.Duration)
	}
	rec.AvgCallDuration = scoring.Mean(rec.CallDurations, 0)

	timestamps, answered := s.callStats(key)
	rec.CallFrequencyScore = scoring.FrequencyScore(timestamps)
	rec.CallResponseScore = scoring.ResponseScore(answered, len(timestamps))

	if fb, ok := s.feedback.mean(key); ok {
		rec.UserFeedbackScore = fb
	}
	rec.Score = scoring.CallScore(callComponents(rec))
	rec.LastUpdated = s.now()

	s.records.put(key, rec)
	s.saveRecords(ctx)
	s.metrics.RecordTrustUpdate(entityCall, "call", rec.Score)

	s.logger.Debug("call trust updated",
		zap.String("number", maskNumber(key)),
		zap.Float64("score", rec.Score),
		zap.Int("call_count", rec.CallCount))

	return rec.Clone()
}

// callStats returns the timestamps of, and the answered count among, the
// history entries for key.
func (s *CallTrustService) callStats(key string) ([]time.Time, int) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	var timestamps []time.Time
	answered := 0
	for _, call := range s.history {
		if call.PhoneNumber != key {
			continue
		}
		timestamps = append(timestamps, call.Timestamp)
		if call.WasAnswered {
			answered++
		}
	}
	return timestamps, answered
}

// RecordUserFeedback applies a user's verdict on a number, subject to the
// rating cooldown. A rejection returns *RateLimitError and changes nothing.
func (s *CallTrustService) RecordUserFeedback(ctx context.Context, phoneNumber string, feedbackType models.FeedbackType, userID string) (*models.CallTrust, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}
	if userID == "" {
		userID = s.defaultUserID
	}

	key := models.NormalizePhoneNumber(phoneNumber)
	unlock := s.locks.lock(key)
	defer unlock()

	now := s.now()
	decision := s.limiter.Check(userID, key, now)
	if !decision.Allowed {
		s.metrics.RecordFeedback(entityCall, string(feedbackType), false)
		s.audit.LogEvent(monitoring.EventFeedbackDenied, "call feedback rejected").
			Actor(userID).
			Resource(key).
			Status("failure").
			Detail("reason", decision.Message).
			Detail("cooldown_remaining_days", decision.CooldownRemaining).
			Commit()
		return nil, &RateLimitError{
			Message:           decision.Message,
			CooldownRemaining: decision.CooldownRemaining,
		}
	}

	s.feedback.append(models.FeedbackEvent{
		Key:           key,
		UserID:        userID,
		Timestamp:     now,
		FeedbackType:  feedbackType,
		FeedbackScore: feedbackType.Score(),
	})
	s.store.save(ctx, repository.KeyCallFeedback, s.feedback.marshal)

	s.limiter.Record(userID, key, now)
	s.store.save(ctx, repository.KeyRatingTimestamps, s.limiter.marshal)

	rec := s.getOrCreateLocked(ctx, key).Clone()
	if fb, ok := s.feedback.mean(key); ok {
		rec.UserFeedbackScore = fb
	}
	rec.Score = scoring.CallScore(callComponents(rec))
	rec.LastUpdated = now

	s.records.put(key, rec)
	s.saveRecords(ctx)

	if s.flagLatestCall(key) {
		s.saveHistory(ctx)
	}

	s.metrics.RecordTrustUpdate(entityCall, "feedback", rec.Score)
	s.metrics.RecordFeedback(entityCall, string(feedbackType), true)
	s.audit.LogEvent(monitoring.EventCallFeedback, "call feedback recorded").
		Actor(userID).
		Resource(key).
		Detail("feedback_type", string(feedbackType)).
		Detail("score", rec.Score).
		Commit()

	return rec.Clone(), nil
}

// flagLatestCall marks the newest history entry for key as rated.
func (s *CallTrustService) flagLatestCall(key string) bool {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	for i := range s.history {
		if s.history[i].PhoneNumber == key {
			s.history[i].HasUserFeedback = true
			return true
		}
	}
	return false
}

// CanRate reports whether userID may currently rate phoneNumber.
func (s *CallTrustService) CanRate(ctx context.Context, userID, phoneNumber string) RateDecision {
	if userID == "" {
		userID = s.defaultUserID
	}
	return s.limiter.Check(userID, models.NormalizePhoneNumber(phoneNumber), s.now())
}

// CallHistory returns the newest-first history, optionally for one number.
func (s *CallTrustService) CallHistory(ctx context.Context, phoneNumber string) ([]models.CallRecord, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}

	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if phoneNumber == "" {
		return append([]models.CallRecord{}, s.history...), nil
	}

	key := models.NormalizePhoneNumber(phoneNumber)
	out := make([]models.CallRecord, 0)
	for _, call := range s.history {
		if call.PhoneNumber == key {
			out = append(out, call)
		}
	}
	return out, nil
}

// Feedback returns the feedback events stored for a number, oldest first.
func (s *CallTrustService) Feedback(ctx context.Context, phoneNumber string) ([]models.FeedbackEvent, error) {
	if !s.open.Load() {
		return nil, ErrStoreClosed
	}
	return s.feedback.list(models.NormalizePhoneNumber(phoneNumber)), nil
}

func (s *CallTrustService) saveRecords(ctx context.Context) {
	s.store.save(ctx, repository.KeyCallTrust, s.records.marshal)
}

func (s *CallTrustService) saveHistory(ctx context.Context) {
	s.store.save(ctx, repository.KeyCallHistory, func() ([]byte, error) {
		s.historyMu.RLock()
		defer s.historyMu.RUnlock()
		return json.Marshal(s.history)
	})
}

// regionFor resolves the ISO region of a raw number, or "" when unknown.
func (s *CallTrustService) regionFor(raw string) string {
	if raw == "" || s.defaultRegion == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, s.defaultRegion)
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}

func callComponents(rec *models.CallTrust) scoring.CallComponents {
	return scoring.CallComponents{
		UserFeedback:    rec.UserFeedbackScore,
		CallFrequency:   rec.CallFrequencyScore,
		CallResponse:    rec.CallResponseScore,
		AvgCallDuration: rec.AvgCallDuration,
	}
}

// maskNumber keeps logs free of full phone numbers.
func maskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[:4] + "****"
}

// Ping checks the backing store.
func (s *CallTrustService) Ping(ctx context.Context) error {
	return s.store.kv.Ping(ctx)
}
