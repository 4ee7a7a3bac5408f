package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/metrics"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/monitoring"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/repository"
	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/scoring"
)

// keyedMutex serializes work per key while letting distinct keys proceed in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// lock blocks until key is free and returns its release func.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// recordTable is the lazily populated map of trust records for one entity
// type. Stored records are never mutated in place; writers put a new value.
type recordTable[T any] struct {
	mu      sync.RWMutex
	records map[string]*T
}

func newRecordTable[T any]() *recordTable[T] {
	return &recordTable[T]{records: make(map[string]*T)}
}

func (t *recordTable[T]) get(key string) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[key]
	return rec, ok
}

func (t *recordTable[T]) put(key string, rec *T) {
	t.mu.Lock()
	t.records[key] = rec
	t.mu.Unlock()
}

// getOrCreate returns the record for key, building and storing a default
// when absent. Callers must hold the key's lock.
func (t *recordTable[T]) getOrCreate(key string, newDefault func() *T) (*T, bool) {
	if rec, ok := t.get(key); ok {
		return rec, false
	}
	rec := newDefault()
	t.put(key, rec)
	return rec, true
}

func (t *recordTable[T]) replace(records map[string]*T) {
	if records == nil {
		records = make(map[string]*T)
	}
	t.mu.Lock()
	t.records = records
	t.mu.Unlock()
}

func (t *recordTable[T]) marshal() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(t.records)
}

// feedbackLog is the append-only per-key list of feedback events.
type feedbackLog struct {
	mu     sync.RWMutex
	events map[string][]models.FeedbackEvent
}

func newFeedbackLog() *feedbackLog {
	return &feedbackLog{events: make(map[string][]models.FeedbackEvent)}
}

func (f *feedbackLog) append(ev models.FeedbackEvent) {
	f.mu.Lock()
	f.events[ev.Key] = append(f.events[ev.Key], ev)
	f.mu.Unlock()
}

func (f *feedbackLog) list(key string) []models.FeedbackEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.FeedbackEvent{}, f.events[key]...)
}

// mean reports the average feedback score for key and whether any exists.
// A stored score of 0 counts as evidence.
func (f *feedbackLog) mean(key string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	events := f.events[key]
	if len(events) == 0 {
		return 0, false
	}
	scores := make([]float64, len(events))
	for i, ev := range events {
		scores[i] = ev.FeedbackScore
	}
	return scoring.Mean(scores, scoring.NeutralScore), true
}

func (f *feedbackLog) replace(events map[string][]models.FeedbackEvent) {
	if events == nil {
		events = make(map[string][]models.FeedbackEvent)
	}
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
}

func (f *feedbackLog) marshal() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return json.Marshal(f.events)
}

// persister writes whole-document snapshots to the KV store. Saves are
// serialized so the last write to a key always carries the newest snapshot.
// Failures are logged and counted but never surface to callers.
type persister struct {
	kv      repository.KVStore
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.MetricsCollector
	audit   *monitoring.AuditLogger

	mu sync.Mutex
}

func (p *persister) save(ctx context.Context, key string, snapshot func() ([]byte, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := snapshot()
	if err == nil {
		ctx, cancel := p.withTimeout(ctx)
		err = p.kv.Put(ctx, key, data)
		cancel()
	}

	p.metrics.RecordStorageOperation("save", err)
	if err != nil {
		p.logger.Warn("failed to persist trust state",
			zap.String("key", key),
			zap.Error(err))
		p.audit.LogEvent(monitoring.EventStorageFailure, "failed to persist trust state").
			Resource(key).
			Severity("high").
			Status("failure").
			Detail("error", err.Error()).
			Commit()
	}
}

// load decodes key into dst. Missing keys and failures both leave dst untouched.
func (p *persister) load(ctx context.Context, key string, dst interface{}) bool {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	found, err := repository.LoadJSON(ctx, p.kv, key, dst)
	p.metrics.RecordStorageOperation("load", err)
	if err != nil {
		p.logger.Warn("failed to load trust state, starting empty",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return found
}

func (p *persister) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
