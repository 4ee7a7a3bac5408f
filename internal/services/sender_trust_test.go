package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/scoring"
)

func TestSenderGetOrCreateDefaults(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	svc := newTestSenderService(t, kv, newTestClock())

	rec, err := svc.GetOrCreate(ctx, "hdfc-bk")
	require.NoError(t, err)

	assert.Equal(t, 70.0, rec.Score)
	assert.Equal(t, 0, rec.MessageCount)
	assert.Equal(t, 0.5, rec.UserFeedbackScore)
	assert.Equal(t, 0.1, rec.InteractionVolumeScore)
	assert.Equal(t, testEpoch, rec.LastUpdated)
	assert.Empty(t, rec.MessageRiskScores)

	var stored map[string]*models.SenderTrust
	found, err := repository.LoadJSON(ctx, kv, repository.KeySenderTrust, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, stored, "HDFCBK")
}

func TestSenderApplyMessage(t *testing.T) {
	ctx := context.Background()
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	rec, err := svc.ApplyMessage(ctx, "HDFCBK", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MessageCount)
	assert.Equal(t, []float64{0.5}, rec.MessageRiskScores)
	assert.InDelta(t, 0.02, rec.InteractionVolumeScore, 1e-9)
	assert.InDelta(t, 42.8, rec.Score, 1e-9)

	rec, err = svc.ApplyMessage(ctx, "HDFCBK", &models.AnalysisResult{IsOTPMessage: true, RiskScore: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.MessageCount)
	require.Len(t, rec.MessageRiskScores, 2)
	assert.InDelta(t, 0.8, rec.MessageRiskScores[1], 1e-9)
	assert.InDelta(t, 0.65, rec.AvgMessageRisk, 1e-9)
}

func TestSenderApplyMessageHonorsZeroRisk(t *testing.T) {
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	rec, err := svc.ApplyMessage(context.Background(), "AMAZON", &models.AnalysisResult{IsOTPMessage: true, RiskScore: 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, rec.MessageRiskScores)
}

func TestSenderRiskWindowIsBounded(t *testing.T) {
	ctx := context.Background()
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	var rec *models.SenderTrust
	var err error
	for i := 0; i < 25; i++ {
		rec, err = svc.ApplyMessage(ctx, "SBI", &models.AnalysisResult{IsOTPMessage: true, RiskScore: float64(i%10) / 10})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(rec.MessageRiskScores), scoring.WindowSize)
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 100.0)
	}
	assert.Equal(t, 25, rec.MessageCount)
	assert.Len(t, rec.MessageRiskScores, scoring.WindowSize)
}

func TestSenderFeedback(t *testing.T) {
	ctx := context.Background()
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	safe, err := svc.ApplyFeedback(ctx, "GOODCO", models.FeedbackSafe)
	require.NoError(t, err)
	scam, err := svc.ApplyFeedback(ctx, "BADCO", models.FeedbackScam)
	require.NoError(t, err)

	assert.Equal(t, 1.0, safe.UserFeedbackScore)
	assert.Equal(t, 0.0, scam.UserFeedbackScore)
	assert.InDelta(t, 56.5, safe.Score, 1e-9)
	assert.InDelta(t, 31.5, scam.Score, 1e-9)
	assert.Greater(t, safe.Score, scam.Score)

	// A second verdict averages with the first.
	mixed, err := svc.ApplyFeedback(ctx, "goodco", models.FeedbackScam)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mixed.UserFeedbackScore, 1e-9)

	events, err := svc.Feedback(ctx, "GOODCO")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.FeedbackSafe, events[0].FeedbackType)
	assert.Equal(t, models.FeedbackScam, events[1].FeedbackType)
}

func TestSenderZeroFeedbackSurvivesLaterMessages(t *testing.T) {
	ctx := context.Background()
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	_, err := svc.ApplyFeedback(ctx, "BADCO", models.FeedbackScam)
	require.NoError(t, err)

	rec, err := svc.ApplyMessage(ctx, "BADCO", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.UserFeedbackScore)
}

func TestSenderStoreReload(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	clock := newTestClock()

	first := newTestSenderService(t, kv, clock)
	_, err := first.ApplyMessage(ctx, "ICICI", nil)
	require.NoError(t, err)
	want, err := first.ApplyFeedback(ctx, "ICICI", models.FeedbackSuspicious)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second := newTestSenderService(t, kv, clock)
	got, err := second.GetOrCreate(ctx, "icici")
	require.NoError(t, err)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, 1, got.MessageCount)

	events, err := second.Feedback(ctx, "ICICI")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSenderStoreClosed(t *testing.T) {
	ctx := context.Background()
	svc := NewSenderTrustService(repository.NewMemoryStore(), nil, nil, nil, zap.NewNop())

	_, err := svc.GetOrCreate(ctx, "HDFCBK")
	assert.ErrorIs(t, err, ErrStoreClosed)

	require.NoError(t, svc.Open(ctx))
	require.NoError(t, svc.Close(ctx))

	_, err = svc.ApplyFeedback(ctx, "HDFCBK", models.FeedbackSafe)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSenderStorageFailureIsNotReturned(t *testing.T) {
	ctx := context.Background()
	audit := monitoring.NewAuditLogger(zap.NewNop())
	svc := NewSenderTrustService(failingKV{}, fixedSignals{0.5, 0.5}, nil, audit, zap.NewNop())
	require.NoError(t, svc.Open(ctx))

	rec, err := svc.ApplyMessage(ctx, "HDFCBK", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.MessageCount)

	failures := audit.QueryEvents(monitoring.AuditQuery{
		EventTypes: []monitoring.AuditEventType{monitoring.EventStorageFailure},
	})
	assert.NotEmpty(t, failures)
}

func TestSenderConcurrentMessages(t *testing.T) {
	ctx := context.Background()
	svc := newTestSenderService(t, repository.NewMemoryStore(), newTestClock())

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ApplyMessage(ctx, "HDFCBK", nil)
			assert.NoError(t, err)
			_, err = svc.ApplyMessage(ctx, fmt.Sprintf("SENDER%d", i%4), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := svc.GetOrCreate(ctx, "HDFCBK")
	require.NoError(t, err)
	assert.Equal(t, workers, rec.MessageCount)

	total := 0
	for i := 0; i < 4; i++ {
		rec, err := svc.GetOrCreate(ctx, fmt.Sprintf("SENDER%d", i))
		require.NoError(t, err)
		total += rec.MessageCount
	}
	assert.Equal(t, workers, total)
}
