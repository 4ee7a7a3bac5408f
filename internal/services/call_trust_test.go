package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
)

const day = 24 * time.Hour

func TestCallGetOrCreateSeedsFromSenderStore(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	clock := newTestClock()
	senders := newTestSenderService(t, kv, clock)
	calls := newTestCallService(t, kv, senders, clock)

	_, err := senders.ApplyFeedback(ctx, "15550100", models.FeedbackScam)
	require.NoError(t, err)

	rec, err := calls.GetOrCreate(ctx, "+1 555-0100")
	require.NoError(t, err)
	assert.InDelta(t, 31.5, rec.Score, 1e-9)
	assert.Equal(t, 0.0, rec.UserFeedbackScore)
	assert.Equal(t, 0.5, rec.CallFrequencyScore)
	assert.Equal(t, 0.5, rec.CallResponseScore)
	assert.Equal(t, 0, rec.CallCount)
}

func TestCallGetOrCreateFallsBackWhenSenderLookupFails(t *testing.T) {
	calls := newTestCallService(t, repository.NewMemoryStore(), failingSenders{}, newTestClock())

	rec, err := calls.GetOrCreate(context.Background(), "15550100")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Score)
	assert.Equal(t, 0.5, rec.UserFeedbackScore)
	assert.Equal(t, 0.5, rec.CallFrequencyScore)
	assert.Equal(t, 0.5, rec.CallResponseScore)
}

func TestRecordCallRecomputesTrust(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	clock := newTestClock()
	calls := newTestCallService(t, kv, newTestSenderService(t, kv, clock), clock)

	first := testEpoch
	record, trust, err := calls.RecordCall(ctx, models.CallDetails{
		PhoneNumber: "+919876543210",
		Timestamp:   &first,
		Duration:    120,
		WasAnswered: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "919876543210", record.PhoneNumber)
	assert.Equal(t, "IN", record.Region)
	assert.Equal(t, models.CallIncoming, record.Direction)
	assert.Equal(t, 1, trust.CallCount)
	assert.Equal(t, []float64{120}, trust.CallDurations)
	assert.Equal(t, 1.0, trust.CallResponseScore)
	assert.InDelta(t, 59.0, trust.Score, 1e-9)

	second := testEpoch.Add(2 * time.Hour)
	_, trust, err = calls.RecordCall(ctx, models.CallDetails{
		PhoneNumber: "+919876543210",
		Timestamp:   &second,
		Direction:   models.CallOutgoing,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, trust.CallCount)
	assert.Equal(t, []float64{120}, trust.CallDurations, "zero-length calls are not sampled")
	assert.Equal(t, 0.4, trust.CallFrequencyScore)
	assert.Equal(t, 0.5, trust.CallResponseScore)
	assert.InDelta(t, 47.0, trust.Score, 1e-9)
}

func TestCallHistoryIsBoundedAndNewestFirst(t *testing.T) {
	ctx := context.Background()
	calls := newTestCallService(t, repository.NewMemoryStore(), nil, newTestClock())

	for i := 0; i < MaxCallHistory+5; i++ {
		number := "15550100"
		if i%2 == 1 {
			number = "15550199"
		}
		ts := testEpoch.Add(time.Duration(i) * time.Minute)
		_, _, err := calls.RecordCall(ctx, models.CallDetails{PhoneNumber: number, Timestamp: &ts})
		require.NoError(t, err)
	}

	all, err := calls.CallHistory(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, MaxCallHistory)
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

	filtered, err := calls.CallHistory(ctx, "+1 (555) 0199")
	require.NoError(t, err)
	require.NotEmpty(t, filtered)
	for _, call := range filtered {
		assert.Equal(t, "15550199", call.PhoneNumber)
	}
}

func TestRecordUserFeedbackCooldown(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	calls := newTestCallService(t, repository.NewMemoryStore(), nil, clock)

	_, _, err := calls.RecordCall(ctx, models.CallDetails{PhoneNumber: "15550100"})
	require.NoError(t, err)

	rec, err := calls.RecordUserFeedback(ctx, "15550100", models.FeedbackScam, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.UserFeedbackScore)

	history, err := calls.CallHistory(ctx, "15550100")
	require.NoError(t, err)
	assert.True(t, history[0].HasUserFeedback)

	clock.Advance(29 * day)
	_, err = calls.RecordUserFeedback(ctx, "15550100", models.FeedbackSafe, "user-1")
	var limited *RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 1, limited.CooldownRemaining)
	assert.Equal(t, "You can rate this number again in 1 days", limited.Message)

	events, err := calls.Feedback(ctx, "15550100")
	require.NoError(t, err)
	assert.Len(t, events, 1, "a rejected rating changes nothing")

	// Another user is not affected by user-1's cooldown.
	rec, err = calls.RecordUserFeedback(ctx, "15550100", models.FeedbackSafe, "user-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rec.UserFeedbackScore, 1e-9)

	clock.Advance(2 * day)
	_, err = calls.RecordUserFeedback(ctx, "15550100", models.FeedbackSafe, "user-1")
	require.NoError(t, err)

	events, err = calls.Feedback(ctx, "15550100")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestRecordUserFeedbackDefaultsUser(t *testing.T) {
	ctx := context.Background()
	calls := newTestCallService(t, repository.NewMemoryStore(), nil, newTestClock())

	_, err := calls.RecordUserFeedback(ctx, "15550100", models.FeedbackSuspicious, "")
	require.NoError(t, err)

	events, err := calls.Feedback(ctx, "15550100")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, DefaultUserID, events[0].UserID)
	assert.Equal(t, 0.3, events[0].FeedbackScore)

	decision := calls.CanRate(ctx, "", "15550100")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 30, decision.CooldownRemaining)
}

func TestRecordUserFeedbackRejectsMissingNumber(t *testing.T) {
	calls := newTestCallService(t, repository.NewMemoryStore(), nil, newTestClock())

	_, err := calls.RecordUserFeedback(context.Background(), "", models.FeedbackScam, "user-1")
	var limited *RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, "Invalid user ID or phone number", limited.Message)
	assert.Equal(t, 0, limited.CooldownRemaining)
}

func TestCallStoreReload(t *testing.T) {
	ctx := context.Background()
	kv := repository.NewMemoryStore()
	clock := newTestClock()

	first := newTestCallService(t, kv, nil, clock)
	_, _, err := first.RecordCall(ctx, models.CallDetails{PhoneNumber: "15550100", Duration: 60, WasAnswered: true})
	require.NoError(t, err)
	want, err := first.RecordUserFeedback(ctx, "15550100", models.FeedbackSafe, "user-1")
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	clock.Advance(day)
	second := newTestCallService(t, kv, nil, clock)

	got, err := second.GetOrCreate(ctx, "15550100")
	require.NoError(t, err)
	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, 1, got.CallCount)

	history, err := second.CallHistory(ctx, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].HasUserFeedback)

	_, err = second.RecordUserFeedback(ctx, "15550100", models.FeedbackSafe, "user-1")
	var limited *RateLimitError
	require.True(t, errors.As(err, &limited))
	assert.Equal(t, 29, limited.CooldownRemaining)
}

func TestCallConcurrentRecording(t *testing.T) {
	ctx := context.Background()
	calls := newTestCallService(t, repository.NewMemoryStore(), nil, newTestClock())

	const workers = 30
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := calls.RecordCall(ctx, models.CallDetails{PhoneNumber: "15550100", Duration: 30})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := calls.GetOrCreate(ctx, "15550100")
	require.NoError(t, err)
	assert.Equal(t, workers, rec.CallCount)

	history, err := calls.CallHistory(ctx, "15550100")
	require.NoError(t, err)
	assert.Len(t, history, workers)
}
