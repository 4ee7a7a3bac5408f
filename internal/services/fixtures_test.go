package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
)

var testEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixedSignals keeps the simulated sender components constant.
type fixedSignals struct {
	response  float64
	diversity float64
}

func (s fixedSignals) ResponseRate(string) float64     { return s.response }
func (s fixedSignals) MessageDiversity(string) float64 { return s.diversity }

type failingSenders struct{}

func (failingSenders) GetOrCreate(context.Context, string) (*models.SenderTrust, error) {
	return nil, errors.New("sender store unavailable")
}

// failingKV accepts reads as misses and rejects every write.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, repository.ErrNotFound }
func (failingKV) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}
func (failingKV) Ping(context.Context) error { return nil }
func (failingKV) Close() error               { return nil }

func newTestSenderService(t *testing.T, kv repository.KVStore, clock *testClock) *SenderTrustService {
	t.Helper()
	svc := NewSenderTrustService(kv, fixedSignals{0.5, 0.5}, nil, monitoring.NewAuditLogger(zap.NewNop()), zap.NewNop())
	svc.now = clock.Now
	require.NoError(t, svc.Open(context.Background()))
	return svc
}

func newTestCallService(t *testing.T, kv repository.KVStore, senders SenderScoreSource, clock *testClock) *CallTrustService {
	t.Helper()
	svc := NewCallTrustService(kv, senders, CallTrustOptions{DefaultRegion: "IN"}, nil,
		monitoring.NewAuditLogger(zap.NewNop()), zap.NewNop())
	svc.now = clock.Now
	require.NoError(t, svc.Open(context.Background()))
	return svc
}
